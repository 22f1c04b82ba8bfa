package message

import (
	"fmt"
	"strings"

	binpkg "github.com/robert-malhotra/h5records/internal/binary"
)

// Class is the datatype class stored in the low nibble of the first byte.
type Class uint8

const (
	ClassFixedPoint Class = 0
	ClassFloatPoint Class = 1
	ClassTime       Class = 2
	ClassString     Class = 3
	ClassBitfield   Class = 4
	ClassOpaque     Class = 5
	ClassCompound   Class = 6
	ClassReference  Class = 7
	ClassEnum       Class = 8
	ClassVarLen     Class = 9
	ClassArray      Class = 10
)

// StringPadding selects how unused bytes of a fixed-length string are filled.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpacePad StringPadding = 2
)

// CharacterSet is the text encoding of string data.
type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// Member is one field of a compound datatype.
type Member struct {
	Name   string
	Offset uint32
	Type   *Datatype
}

// Datatype is the datatype message (0x0003). Nested datatypes (compound
// members, array and variable-length element types) use the same encoding.
type Datatype struct {
	Class   Class
	Version uint8
	Bits    uint32 // 24-bit class bit field
	Size    uint32

	// Fixed-point, bitfield and floating-point.
	BitOffset uint16
	Precision uint16

	// Floating-point.
	ExpLocation  uint8
	ExpSize      uint8
	MantLocation uint8
	MantSize     uint8
	ExpBias      uint32

	Tag        string   // opaque
	Members    []Member // compound
	EnumNames  []string // enum
	EnumValues []byte   // enum, len(EnumNames) values of Base.Size bytes
	Dims       []uint32 // array
	Base       *Datatype
}

func (dt *Datatype) Type() Type { return TypeDatatype }

// Signed reports whether a fixed-point type is two's complement.
func (dt *Datatype) Signed() bool {
	return dt.Class == ClassFixedPoint && dt.Bits&0x08 != 0
}

// IsVarString reports whether dt is a variable-length string.
func (dt *Datatype) IsVarString() bool {
	return dt.Class == ClassVarLen && dt.Bits&0x0F == 1
}

// IsVarSequence reports whether dt is a variable-length sequence.
func (dt *Datatype) IsVarSequence() bool {
	return dt.Class == ClassVarLen && dt.Bits&0x0F == 0
}

// Padding returns the padding of a fixed or variable-length string.
func (dt *Datatype) Padding() StringPadding {
	if dt.Class == ClassVarLen {
		return StringPadding(dt.Bits >> 4 & 0x0F)
	}
	return StringPadding(dt.Bits & 0x0F)
}

// Charset returns the character set of a fixed or variable-length string.
func (dt *Datatype) Charset() CharacterSet {
	if dt.Class == ClassVarLen {
		return CharacterSet(dt.Bits >> 8 & 0x0F)
	}
	return CharacterSet(dt.Bits >> 4 & 0x0F)
}

// HasVarLen reports whether dt or any type nested in it is variable-length.
func (dt *Datatype) HasVarLen() bool {
	switch dt.Class {
	case ClassVarLen:
		return true
	case ClassArray:
		return dt.Base.HasVarLen()
	case ClassCompound:
		for _, m := range dt.Members {
			if m.Type.HasVarLen() {
				return true
			}
		}
	}
	return false
}

// Member returns the compound member called name.
func (dt *Datatype) Member(name string) (Member, bool) {
	for _, m := range dt.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// decodeDatatype decodes one datatype and returns the bytes it occupied.
func decodeDatatype(data []byte) (*Datatype, int, error) {
	c := &cursor{data: data}
	head, err := c.bytes(8)
	if err != nil {
		return nil, 0, err
	}
	dt := &Datatype{
		Class:   Class(head[0] & 0x0F),
		Version: head[0] >> 4,
		Bits:    uint32(head[1]) | uint32(head[2])<<8 | uint32(head[3])<<16,
		Size:    uint32(binpkg.DecodeUint(head[4:], 4)),
	}

	switch dt.Class {
	case ClassFixedPoint, ClassBitfield:
		var v uint64
		if v, err = c.uint(2); err == nil {
			dt.BitOffset = uint16(v)
			v, err = c.uint(2)
			dt.Precision = uint16(v)
		}
	case ClassFloatPoint:
		err = dt.decodeFloat(c)
	case ClassTime:
		var v uint64
		v, err = c.uint(2)
		dt.Precision = uint16(v)
	case ClassString, ClassReference:
	case ClassOpaque:
		var tag []byte
		if tag, err = c.bytes(int(dt.Bits & 0xFF)); err == nil {
			dt.Tag = strings.TrimRight(string(tag), "\x00")
		}
	case ClassCompound:
		err = dt.decodeMembers(c)
	case ClassEnum:
		err = dt.decodeEnum(c)
	case ClassVarLen:
		dt.Base, err = c.datatype()
	case ClassArray:
		err = dt.decodeArray(c)
	default:
		return nil, 0, fmt.Errorf("datatype class %d not supported", dt.Class)
	}
	if err != nil {
		return nil, 0, err
	}
	return dt, c.pos, nil
}

func (c *cursor) datatype() (*Datatype, error) {
	dt, n, err := decodeDatatype(c.rest())
	if err != nil {
		return nil, err
	}
	c.pos += n
	return dt, nil
}

func (dt *Datatype) decodeFloat(c *cursor) error {
	p, err := c.bytes(12)
	if err != nil {
		return err
	}
	dt.BitOffset = uint16(binpkg.DecodeUint(p[0:], 2))
	dt.Precision = uint16(binpkg.DecodeUint(p[2:], 2))
	dt.ExpLocation, dt.ExpSize = p[4], p[5]
	dt.MantLocation, dt.MantSize = p[6], p[7]
	dt.ExpBias = uint32(binpkg.DecodeUint(p[8:], 4))
	return nil
}

// paddedName reads a member or enum name; versions 1 and 2 pad names to a
// multiple of eight bytes.
func (c *cursor) paddedName(version uint8) (string, error) {
	start := c.pos
	name, err := c.cstring()
	if err != nil {
		return "", err
	}
	if version < 3 {
		c.pos = start + align8(len(name)+1)
	}
	return name, nil
}

func (dt *Datatype) decodeMembers(c *cursor) error {
	n := int(dt.Bits & 0xFFFF)
	dt.Members = make([]Member, 0, n)
	for i := 0; i < n; i++ {
		name, err := c.paddedName(dt.Version)
		if err != nil {
			return err
		}
		width := 4
		if dt.Version >= 3 {
			width = memberOffsetWidth(dt.Size)
		}
		off, err := c.uint(width)
		if err != nil {
			return err
		}

		var dims []uint32
		if dt.Version == 1 {
			// rank, 3 reserved, permutation, 4 reserved, four dimension slots
			hdr, err := c.bytes(28)
			if err != nil {
				return err
			}
			for d := 0; d < int(hdr[0]) && d < 4; d++ {
				dims = append(dims, uint32(binpkg.DecodeUint(hdr[12+4*d:], 4)))
			}
		}

		typ, err := c.datatype()
		if err != nil {
			return fmt.Errorf("member %q: %w", name, err)
		}
		if len(dims) > 0 {
			typ = NewArray(dims, typ)
		}
		dt.Members = append(dt.Members, Member{Name: name, Offset: uint32(off), Type: typ})
	}
	return nil
}

func (dt *Datatype) decodeEnum(c *cursor) error {
	base, err := c.datatype()
	if err != nil {
		return err
	}
	dt.Base = base
	n := int(dt.Bits & 0xFFFF)
	for i := 0; i < n; i++ {
		name, err := c.paddedName(dt.Version)
		if err != nil {
			return err
		}
		dt.EnumNames = append(dt.EnumNames, name)
	}
	values, err := c.bytes(n * int(base.Size))
	dt.EnumValues = append([]byte(nil), values...)
	return err
}

func (dt *Datatype) decodeArray(c *cursor) error {
	rank, err := c.byte()
	if err != nil {
		return err
	}
	if dt.Version < 3 {
		c.pos += 3
	}
	for i := 0; i < int(rank); i++ {
		d, err := c.uint(4)
		if err != nil {
			return err
		}
		dt.Dims = append(dt.Dims, uint32(d))
	}
	if dt.Version < 3 {
		c.pos += 4 * int(rank)
	}
	dt.Base, err = c.datatype()
	return err
}

// memberOffsetWidth is the byte width of version 3 member offsets: the
// fewest bytes able to encode the compound size.
func memberOffsetWidth(size uint32) int {
	switch {
	case size < 1<<8:
		return 1
	case size < 1<<16:
		return 2
	case size < 1<<24:
		return 3
	}
	return 4
}

func align8(n int) int { return (n + 7) &^ 7 }
