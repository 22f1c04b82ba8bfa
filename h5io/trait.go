package h5io

import (
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

// CodecKind selects how values of a type reach the file.
type CodecKind int

const (
	// CodecFlat copies values in bulk straight from Go memory.
	CodecFlat CodecKind = iota
	// CodecCustom transforms one value per row through a Serializer and
	// Deserializer.
	CodecCustom
)

func (k CodecKind) String() string {
	if k == CodecFlat {
		return "flat"
	}
	return "custom"
}

// Serializer fills one row window from v. It may store variable-length
// payloads through the row.
type Serializer[T any] func(v *T, row *Row) error

// Deserializer builds a value from one row window.
type Deserializer[T any] func(row *Row) (T, error)

// Codec is either flat or a custom serializer pair.
type Codec[T any] struct {
	kind  CodecKind
	ser   Serializer[T]
	deser Deserializer[T]
}

// Flat returns the bulk-copy codec.
func Flat[T any]() Codec[T] {
	return Codec[T]{kind: CodecFlat}
}

// Custom returns a codec running ser and deser once per row.
func Custom[T any](ser Serializer[T], deser Deserializer[T]) Codec[T] {
	return Codec[T]{kind: CodecCustom, ser: ser, deser: deser}
}

// Kind returns the codec variant.
func (c Codec[T]) Kind() CodecKind { return c.kind }

// Trait binds a Go type to its schema and codec.
type Trait[T any] struct {
	Schema *Schema
	Codec  Codec[T]
}

// validate checks that the trait can serve T.
func (tr Trait[T]) validate() error {
	typ := typeOf[T]()
	if tr.Schema == nil || tr.Schema.Size() == 0 {
		return errors.Wrapf(ErrInvalidSchema, "%s: empty schema", typ)
	}
	switch tr.Codec.kind {
	case CodecFlat:
		if !tr.Schema.Flat() {
			return errors.Wrapf(ErrInvalidSchema, "%s: flat codec for schema %s", typ, tr.Schema)
		}
		var zero T
		if size := unsafe.Sizeof(zero); size != tr.Schema.Size() {
			return errors.Wrapf(ErrInvalidSchema, "%s: %d bytes in memory, schema has %d", typ, size, tr.Schema.Size())
		}
		if !pointerFree(typ) {
			return errors.Wrapf(ErrUnsupportedType, "%s holds pointers and cannot be flat", typ)
		}
	case CodecCustom:
		if tr.Codec.ser == nil || tr.Codec.deser == nil {
			return errors.Wrapf(ErrInvalidSchema, "%s: custom codec without serializer pair", typ)
		}
	default:
		return errors.Wrapf(ErrInvalidSchema, "%s: codec kind %d", typ, tr.Codec.kind)
	}
	return nil
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// pointerFree reports whether values of typ can be copied as plain bytes.
func pointerFree(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return pointerFree(typ.Elem())
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if !pointerFree(typ.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return false
}

// rangePointerFree reports whether bytes [off, off+size) of struct typ
// hold no pointers.
func rangePointerFree(typ reflect.Type, off, size uintptr) bool {
	if typ.Kind() != reflect.Struct {
		return pointerFree(typ)
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.Offset < off+size && off < f.Offset+f.Type.Size() && !pointerFree(f.Type) {
			return false
		}
	}
	return true
}

// bytesOf returns the memory of s as bytes.
func bytesOf[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
}
