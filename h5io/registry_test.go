package h5io

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveSchemas(t *testing.T) {
	tests := []struct {
		schema func() (*Schema, error)
		want   string
		size   uintptr
	}{
		{SchemaOf[int8], "int8", 1},
		{SchemaOf[uint16], "uint16", 2},
		{SchemaOf[int32], "int32", 4},
		{SchemaOf[float64], "float64", 8},
		{SchemaOf[complex64], "{r@0: float32, i@4: float32}", 8},
		{SchemaOf[complex128], "{r@0: float64, i@8: float64}", 16},
		{SchemaOf[string], "vlen string", 16},
		{SchemaOf[[3]float32], "array[3]<float32>", 12},
		{SchemaOf[[2][2]int16], "array[2]<array[2]<int16>>", 8},
	}
	for _, tt := range tests {
		s, err := tt.schema()
		require.NoError(t, err)
		assert.Equal(t, tt.want, s.Datatype().String())
		assert.Equal(t, tt.size, s.Size())
	}
	assert.Equal(t, "float80", Float80.Datatype().String())
	assert.Equal(t, uint32(16), Float80.Datatype().Size)
}

func TestDerivedArraysConcurrently(t *testing.T) {
	type cell [7]complex64
	var wg sync.WaitGroup
	schemas := make([]*Schema, 16)
	for i := range schemas {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := SchemaOf[cell]()
			assert.NoError(t, err)
			schemas[i] = s
		}(i)
	}
	wg.Wait()
	for _, s := range schemas {
		assert.Same(t, schemas[0], s)
	}
	assert.Same(t, schemas[0].Datatype(), schemas[1].Datatype())
	assert.Equal(t, unsafe.Sizeof(cell{}), schemas[0].Size())

	_, err := SchemaOf[[2]string]()
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestRegisterErrors(t *testing.T) {
	type once struct{ A int64 }
	tr := Trait[once]{Schema: Int64, Codec: Flat[once]()}
	if err := Register(tr); err != nil {
		require.ErrorIs(t, err, ErrDuplicateType)
	}
	require.ErrorIs(t, Register(tr), ErrDuplicateType)

	type wide struct{ A, B int64 }
	require.ErrorIs(t, Register(Trait[wide]{Schema: Int64, Codec: Flat[wide]()}), ErrInvalidSchema)

	type withPtr struct{ P *int64 }
	require.ErrorIs(t, Register(Trait[withPtr]{Schema: Int64, Codec: Flat[withPtr]()}), ErrUnsupportedType)

	type custom struct{ S string }
	require.ErrorIs(t, RegisterCustom[custom](VarString, nil, nil), ErrInvalidSchema)
	require.ErrorIs(t, Register(Trait[custom]{Schema: VarString, Codec: Flat[custom]()}), ErrInvalidSchema)

	_, err := Lookup[struct{ Z int }]()
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCompoundBuildErrors(t *testing.T) {
	type rec struct {
		A int32
		B float64
		S string
	}

	_, err := Compound[rec]().Build()
	require.ErrorIs(t, err, ErrInvalidSchema)

	_, err = Compound[rec]().Field("a", unsafe.Offsetof(rec{}.A), Int32).Field("a", unsafe.Offsetof(rec{}.B), Float64).Build()
	require.ErrorIs(t, err, ErrInvalidSchema, "repeated name")

	_, err = Compound[rec]().Field("", unsafe.Offsetof(rec{}.A), Int32).Build()
	require.ErrorIs(t, err, ErrInvalidSchema, "empty name")

	_, err = Compound[rec]().Field("a", unsafe.Offsetof(rec{}.A), Int64).Field("b", 4, Int32).Build()
	require.ErrorIs(t, err, ErrInvalidSchema, "overlap")

	_, err = Compound[rec]().Field("a", unsafe.Sizeof(rec{}), Int32).Build()
	require.ErrorIs(t, err, ErrInvalidSchema, "out of bounds")

	_, err = Compound[rec]().Field("s", unsafe.Offsetof(rec{}.S), Uint64).Build()
	require.ErrorIs(t, err, ErrInvalidSchema, "covers a string header")

	_, err = Compound[rec]().Field("seq", 0, SequenceOf(Int32)).Build()
	require.ErrorIs(t, err, ErrInvalidSchema, "referencing schema as fixed field")

	_, err = Compound[rec]().Field("a", unsafe.Offsetof(rec{}.A), Int32).Build()
	require.ErrorIs(t, err, ErrUnsupportedType, "flat compound of a type with pointers")

	tr, err := Compound[rec]().
		Field("a", unsafe.Offsetof(rec{}.A), Int32).
		Field("b", unsafe.Offsetof(rec{}.B), Float64).
		String("s", func(r *rec) *string { return &r.S }).
		Build()
	require.NoError(t, err)
	assert.Equal(t, CodecCustom, tr.Codec.Kind())
	assert.Equal(t, "{a@0: int32, b@4: float64, s@12: vlen string}", tr.Schema.Datatype().String())

	type flat struct {
		A int8
		B int64
	}
	tr2, err := Compound[flat]().Field("b", unsafe.Offsetof(flat{}.B), Int64).Build()
	require.NoError(t, err)
	assert.Equal(t, CodecFlat, tr2.Codec.Kind())
	assert.Equal(t, uintptr(16), tr2.Schema.Size(), "trailing and leading padding kept")
}
