package h5io

import (
	"sort"
	"unsafe"

	"github.com/pkg/errors"
)

// CompoundBuilder assembles the trait of a struct type T field by field.
//
// Fields added with Field are copied from T's memory. String and Slice
// fields own variable-length data and are stored in the global heap; a
// compound with any of them is written one row at a time through a
// derived serializer pair, its fixed fields packed in declaration order.
// Without them the compound mirrors T's memory layout and is copied in
// bulk.
type CompoundBuilder[T any] struct {
	fields []compoundField[T]
	err    error
}

type compoundField[T any] struct {
	name   string
	offset uintptr // in T; fixed fields only
	schema *Schema
	owned  ownedField[T] // nil for fixed fields
}

// ownedField moves one variable-length field between a value and a row.
type ownedField[T any] interface {
	schema() *Schema
	put(v *T, row *Row, off uintptr) error
	get(v *T, row *Row, off uintptr) error
}

// Compound starts the trait of struct type T.
func Compound[T any]() *CompoundBuilder[T] {
	return &CompoundBuilder[T]{}
}

// Field adds a fixed member stored with schema s, found at offset in T
// (use unsafe.Offsetof). s must be flat.
func (b *CompoundBuilder[T]) Field(name string, offset uintptr, s *Schema) *CompoundBuilder[T] {
	if b.err == nil && (s == nil || !s.Flat()) {
		b.err = errors.Wrapf(ErrInvalidSchema, "field %q: only flat schemas can be copied from memory", name)
	}
	b.fields = append(b.fields, compoundField[T]{name: name, offset: offset, schema: s})
	return b
}

// String adds a variable-length text member reached through get.
func (b *CompoundBuilder[T]) String(name string, get func(*T) *string) *CompoundBuilder[T] {
	b.fields = append(b.fields, compoundField[T]{name: name, schema: VarString, owned: stringField[T]{field: get}})
	return b
}

// Slice adds a variable-length sequence member; see SliceOf.
func (b *CompoundBuilder[T]) Slice(name string, binding SliceBinding[T]) *CompoundBuilder[T] {
	owned, err := binding.bind()
	if err != nil && b.err == nil {
		b.err = errors.Wrapf(err, "field %q", name)
	}
	f := compoundField[T]{name: name, owned: owned}
	if owned != nil {
		f.schema = owned.schema()
	}
	b.fields = append(b.fields, f)
	return b
}

// Build validates the members and returns the trait.
func (b *CompoundBuilder[T]) Build() (Trait[T], error) {
	typ := typeOf[T]()
	if b.err != nil {
		return Trait[T]{}, errors.Wrapf(b.err, "%s", typ)
	}
	if len(b.fields) == 0 {
		return Trait[T]{}, errors.Wrapf(ErrInvalidSchema, "%s: no fields", typ)
	}

	var zero T
	size := unsafe.Sizeof(zero)
	seen := make(map[string]bool, len(b.fields))
	var fixed []compoundField[T]
	for _, f := range b.fields {
		if f.name == "" || seen[f.name] {
			return Trait[T]{}, errors.Wrapf(ErrInvalidSchema, "%s: empty or repeated field name %q", typ, f.name)
		}
		seen[f.name] = true
		if f.owned != nil {
			continue
		}
		if f.offset+f.schema.Size() > size {
			return Trait[T]{}, errors.Wrapf(ErrInvalidSchema, "%s: field %q ends past %d bytes", typ, f.name, size)
		}
		if !rangePointerFree(typ, f.offset, f.schema.Size()) {
			return Trait[T]{}, errors.Wrapf(ErrInvalidSchema, "%s: field %q covers pointers", typ, f.name)
		}
		fixed = append(fixed, f)
	}
	sort.Slice(fixed, func(i, j int) bool { return fixed[i].offset < fixed[j].offset })
	for i := 1; i < len(fixed); i++ {
		if prev := fixed[i-1]; prev.offset+prev.schema.Size() > fixed[i].offset {
			return Trait[T]{}, errors.Wrapf(ErrInvalidSchema, "%s: fields %q and %q overlap", typ, prev.name, fixed[i].name)
		}
	}

	if len(fixed) == len(b.fields) {
		members := make([]Member, len(b.fields))
		for i, f := range b.fields {
			members[i] = Member{Name: f.name, Offset: f.offset, Schema: f.schema}
		}
		tr := Trait[T]{Schema: &Schema{kind: KindCompound, size: size, members: members}, Codec: Flat[T]()}
		return tr, tr.validate()
	}
	return b.buildPacked(), nil
}

// MustBuild is like Build but panics on error.
func (b *CompoundBuilder[T]) MustBuild() Trait[T] {
	tr, err := b.Build()
	if err != nil {
		panic(err)
	}
	return tr
}

// buildPacked lays the members out back to back and derives the
// serializer pair.
func (b *CompoundBuilder[T]) buildPacked() Trait[T] {
	fields := append([]compoundField[T](nil), b.fields...)
	members := make([]Member, len(fields))
	var off uintptr
	for i, f := range fields {
		members[i] = Member{Name: f.name, Offset: off, Schema: f.schema}
		off += f.schema.Size()
	}
	schema := &Schema{kind: KindCompound, size: off, members: members}

	ser := func(v *T, row *Row) error {
		base := unsafe.Pointer(v)
		for i, f := range fields {
			at := members[i].Offset
			if f.owned != nil {
				if err := f.owned.put(v, row, at); err != nil {
					return errors.Wrapf(err, "field %q", f.name)
				}
				continue
			}
			src := unsafe.Slice((*byte)(unsafe.Add(base, f.offset)), f.schema.Size())
			if err := row.Put(at, src); err != nil {
				return err
			}
		}
		return nil
	}
	deser := func(row *Row) (T, error) {
		var v T
		base := unsafe.Pointer(&v)
		for i, f := range fields {
			at := members[i].Offset
			if f.owned != nil {
				if err := f.owned.get(&v, row, at); err != nil {
					return v, errors.Wrapf(err, "field %q", f.name)
				}
				continue
			}
			src, err := row.Get(at, int(f.schema.Size()))
			if err != nil {
				return v, err
			}
			copy(unsafe.Slice((*byte)(unsafe.Add(base, f.offset)), f.schema.Size()), src)
		}
		return v, nil
	}
	return Trait[T]{Schema: schema, Codec: Custom[T](ser, deser)}
}

type stringField[T any] struct {
	field func(*T) *string
}

func (stringField[T]) schema() *Schema { return VarString }

func (f stringField[T]) put(v *T, row *Row, off uintptr) error {
	return row.PutString(off, *f.field(v))
}

func (f stringField[T]) get(v *T, row *Row, off uintptr) error {
	s, err := row.String(off)
	*f.field(v) = s
	return err
}

// SliceBinding reaches a slice field of T; build one with SliceOf.
type SliceBinding[T any] interface {
	bind() (ownedField[T], error)
}

// SliceOf binds a []E field of T. E must be a registered flat type.
func SliceOf[T, E any](get func(*T) *[]E) SliceBinding[T] {
	return sliceOf[T, E]{get: get}
}

type sliceOf[T, E any] struct {
	get func(*T) *[]E
}

func (s sliceOf[T, E]) bind() (ownedField[T], error) {
	tr, err := Lookup[E]()
	if err != nil {
		return nil, err
	}
	if tr.Codec.kind != CodecFlat {
		return nil, errors.Wrapf(ErrUnsupportedType, "sequence of %s: element is not flat", typeOf[E]())
	}
	return sliceField[T, E]{field: s.get, elem: tr.Schema, seq: SequenceOf(tr.Schema)}, nil
}

type sliceField[T, E any] struct {
	field func(*T) *[]E
	elem  *Schema
	seq   *Schema
}

func (f sliceField[T, E]) schema() *Schema { return f.seq }

func (f sliceField[T, E]) put(v *T, row *Row, off uintptr) error {
	s := *f.field(v)
	return row.PutSequence(off, bytesOf(s), len(s))
}

func (f sliceField[T, E]) get(v *T, row *Row, off uintptr) error {
	payload, count, err := row.Sequence(off)
	if err != nil {
		return err
	}
	if uintptr(len(payload)) != uintptr(count)*f.elem.Size() {
		return errors.Wrapf(ErrSchemaMismatch, "%d bytes for %d elements of %s", len(payload), count, f.elem)
	}
	var out []E
	if count > 0 {
		out = make([]E, count)
		copy(bytesOf(out), payload)
	}
	*f.field(v) = out
	return nil
}
