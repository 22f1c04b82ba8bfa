package h5io

import (
	"fmt"
	"strings"
	"sync"

	"github.com/robert-malhotra/h5records/hdf5"
	"github.com/robert-malhotra/h5records/internal/message"
)

// Kind is the variant of a Schema.
type Kind int

const (
	KindInt Kind = iota
	KindUint
	KindFloat
	KindFixedString
	KindVarString
	KindOpaque
	KindArray
	KindCompound
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindFixedString:
		return "fixed-string"
	case KindVarString:
		return "var-string"
	case KindOpaque:
		return "opaque"
	case KindArray:
		return "array"
	case KindCompound:
		return "compound"
	case KindSequence:
		return "sequence"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Member is one field of a compound Schema.
type Member struct {
	Name   string
	Offset uintptr // byte offset in the stored element
	Schema *Schema
}

// Schema describes how one element is laid out in the file. A Schema is
// immutable once built.
type Schema struct {
	kind    Kind
	size    uintptr
	elem    *Schema // array and sequence
	length  int     // array
	members []Member

	once sync.Once
	dt   *hdf5.Datatype
}

// Primitive schemas.
var (
	Int8    = &Schema{kind: KindInt, size: 1}
	Int16   = &Schema{kind: KindInt, size: 2}
	Int32   = &Schema{kind: KindInt, size: 4}
	Int64   = &Schema{kind: KindInt, size: 8}
	Uint8   = &Schema{kind: KindUint, size: 1}
	Uint16  = &Schema{kind: KindUint, size: 2}
	Uint32  = &Schema{kind: KindUint, size: 4}
	Uint64  = &Schema{kind: KindUint, size: 8}
	Float32 = &Schema{kind: KindFloat, size: 4}
	Float64 = &Schema{kind: KindFloat, size: 8}

	// Float80 is the x87 extended precision type in 16 bytes of storage.
	Float80 = &Schema{kind: KindFloat, size: 16}

	// VarString is variable-length UTF-8 text stored in the global heap.
	VarString = &Schema{kind: KindVarString, size: varLenSize}
)

// varLenSize is the stored size of a global heap reference.
const varLenSize = 16

// FixedString returns the schema of a NUL-terminated string of n bytes.
func FixedString(n int) *Schema {
	return &Schema{kind: KindFixedString, size: uintptr(n)}
}

// Opaque returns the schema of n uninterpreted bytes.
func Opaque(n int) *Schema {
	return &Schema{kind: KindOpaque, size: uintptr(n)}
}

// ArrayOf returns the schema of a fixed array of n elements.
func ArrayOf(elem *Schema, n int) *Schema {
	return &Schema{kind: KindArray, size: elem.size * uintptr(n), elem: elem, length: n}
}

// SequenceOf returns the schema of a variable-length sequence of elem.
func SequenceOf(elem *Schema) *Schema {
	return &Schema{kind: KindSequence, size: varLenSize, elem: elem}
}

// ComplexOf returns the schema of a complex number whose parts have the
// given float schema, as a compound of members "r" and "i".
func ComplexOf(part *Schema) *Schema {
	return &Schema{
		kind: KindCompound,
		size: 2 * part.size,
		members: []Member{
			{Name: "r", Offset: 0, Schema: part},
			{Name: "i", Offset: part.size, Schema: part},
		},
	}
}

// Kind returns the schema variant.
func (s *Schema) Kind() Kind { return s.kind }

// Size returns the stored size of one element in bytes.
func (s *Schema) Size() uintptr { return s.size }

// Elem returns the element schema of an array or sequence.
func (s *Schema) Elem() *Schema { return s.elem }

// Len returns the length of an array.
func (s *Schema) Len() int { return s.length }

// Members returns the members of a compound.
func (s *Schema) Members() []Member { return append([]Member(nil), s.members...) }

// Flat reports whether an element is stored exactly as its bytes, with no
// global heap references.
func (s *Schema) Flat() bool {
	switch s.kind {
	case KindVarString, KindSequence:
		return false
	case KindArray:
		return s.elem.Flat()
	case KindCompound:
		for _, m := range s.members {
			if !m.Schema.Flat() {
				return false
			}
		}
	}
	return true
}

// Datatype returns the HDF5 datatype of the schema. It is derived once.
func (s *Schema) Datatype() *hdf5.Datatype {
	s.once.Do(func() {
		s.dt = s.derive()
	})
	return s.dt
}

func (s *Schema) derive() *hdf5.Datatype {
	size := uint32(s.size)
	switch s.kind {
	case KindInt:
		return hdf5.NewFixedPoint(size, true)
	case KindUint:
		return hdf5.NewFixedPoint(size, false)
	case KindFloat:
		return hdf5.NewFloat(size)
	case KindFixedString:
		return hdf5.NewString(size, message.PadNullTerm, message.CharsetASCII)
	case KindVarString:
		return hdf5.NewVarString(message.CharsetUTF8)
	case KindOpaque:
		return hdf5.NewOpaque(size, "")
	case KindArray:
		return hdf5.NewArray([]uint32{uint32(s.length)}, s.elem.Datatype())
	case KindSequence:
		return hdf5.NewVarSequence(s.elem.Datatype())
	case KindCompound:
		members := make([]hdf5.Member, len(s.members))
		for i, m := range s.members {
			members[i] = hdf5.Member{Name: m.Name, Offset: uint32(m.Offset), Type: m.Schema.Datatype()}
		}
		return hdf5.NewCompound(size, members)
	}
	panic(fmt.Sprintf("h5io: schema of %s", s.kind))
}

// Matches reports whether dt stores elements laid out as s.
func (s *Schema) Matches(dt *hdf5.Datatype) bool {
	return hdf5.EqualDatatypes(s.Datatype(), dt)
}

func (s *Schema) String() string {
	var sb strings.Builder
	s.format(&sb)
	return sb.String()
}

func (s *Schema) format(sb *strings.Builder) {
	switch s.kind {
	case KindInt, KindUint, KindFloat:
		fmt.Fprintf(sb, "%s%d", s.kind, s.size*8)
	case KindFixedString, KindOpaque:
		fmt.Fprintf(sb, "%s[%d]", s.kind, s.size)
	case KindVarString:
		sb.WriteString("string")
	case KindArray:
		fmt.Fprintf(sb, "[%d]", s.length)
		s.elem.format(sb)
	case KindSequence:
		sb.WriteString("[]")
		s.elem.format(sb)
	case KindCompound:
		sb.WriteString("{")
		for i, m := range s.members {
			if i > 0 {
				sb.WriteString("; ")
			}
			fmt.Fprintf(sb, "%s@%d ", m.Name, m.Offset)
			m.Schema.format(sb)
		}
		sb.WriteString("}")
	}
}
