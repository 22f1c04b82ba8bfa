package h5io

import (
	"reflect"
	"unsafe"
)

// builtinTraits seeds the registry before any init function runs, so
// records registered from init can build on primitives.
func builtinTraits() map[reflect.Type]interface{} {
	m := make(map[reflect.Type]interface{})
	add(m, Trait[int8]{Int8, Flat[int8]()})
	add(m, Trait[int16]{Int16, Flat[int16]()})
	add(m, Trait[int32]{Int32, Flat[int32]()})
	add(m, Trait[int64]{Int64, Flat[int64]()})
	add(m, Trait[uint8]{Uint8, Flat[uint8]()})
	add(m, Trait[uint16]{Uint16, Flat[uint16]()})
	add(m, Trait[uint32]{Uint32, Flat[uint32]()})
	add(m, Trait[uint64]{Uint64, Flat[uint64]()})
	add(m, Trait[float32]{Float32, Flat[float32]()})
	add(m, Trait[float64]{Float64, Flat[float64]()})
	add(m, Trait[complex64]{ComplexOf(Float32), Flat[complex64]()})
	add(m, Trait[complex128]{ComplexOf(Float64), Flat[complex128]()})

	if unsafe.Sizeof(int(0)) == 8 {
		add(m, Trait[int]{Int64, Flat[int]()})
		add(m, Trait[uint]{Uint64, Flat[uint]()})
	} else {
		add(m, Trait[int]{Int32, Flat[int]()})
		add(m, Trait[uint]{Uint32, Flat[uint]()})
	}

	add(m, Trait[string]{VarString, Custom[string](putString, getString)})
	return m
}

func add[T any](m map[reflect.Type]interface{}, tr Trait[T]) {
	m[typeOf[T]()] = tr
}

func putString(v *string, row *Row) error {
	return row.PutString(0, *v)
}

func getString(row *Row) (string, error) {
	return row.String(0)
}
