package hdf5

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHyperslabRuns(t *testing.T) {
	tests := []struct {
		name  string
		sel   Hyperslab
		dims  []uint64
		elem  uint64
		want  []span
		count uint64
	}{
		{
			name:  "all",
			sel:   All([]uint64{2, 3}),
			dims:  []uint64{2, 3},
			elem:  4,
			want:  []span{{0, 24}},
			count: 6,
		},
		{
			name:  "one row",
			sel:   Hyperslab{Start: []uint64{1, 0}, Count: []uint64{1, 1}, Block: []uint64{1, 3}},
			dims:  []uint64{2, 3},
			elem:  4,
			want:  []span{{12, 12}},
			count: 3,
		},
		{
			name:  "column",
			sel:   Hyperslab{Start: []uint64{0, 1}, Count: []uint64{2, 1}},
			dims:  []uint64{2, 3},
			elem:  4,
			want:  []span{{4, 4}, {16, 4}},
			count: 2,
		},
		{
			name:  "strided",
			sel:   Hyperslab{Start: []uint64{0}, Count: []uint64{3}, Stride: []uint64{2}},
			dims:  []uint64{6},
			elem:  1,
			want:  []span{{0, 1}, {2, 1}, {4, 1}},
			count: 3,
		},
		{
			name:  "blocks",
			sel:   Hyperslab{Start: []uint64{0}, Count: []uint64{2}, Stride: []uint64{3}, Block: []uint64{2}},
			dims:  []uint64{5},
			elem:  8,
			want:  []span{{0, 16}, {24, 16}},
			count: 4,
		},
		{
			name:  "rows helper",
			sel:   Rows([]uint64{4, 2}, 1, 2),
			dims:  []uint64{4, 2},
			elem:  2,
			want:  []span{{4, 8}},
			count: 4,
		},
		{
			name:  "scalar",
			sel:   All(nil),
			elem:  16,
			want:  []span{{0, 16}},
			count: 1,
		},
		{
			name: "empty",
			sel:  All([]uint64{0, 0}),
			dims: []uint64{0, 0},
			elem: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, count, err := tt.sel.runs(tt.dims, tt.elem)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.count, count)
		})
	}
}

func TestHyperslabInvalid(t *testing.T) {
	dims := []uint64{4, 4}
	tests := map[string]Hyperslab{
		"rank":        {Start: []uint64{0}, Count: []uint64{1}},
		"stride rank": {Start: []uint64{0, 0}, Count: []uint64{1, 1}, Stride: []uint64{1}},
		"bounds":      {Start: []uint64{3, 0}, Count: []uint64{2, 1}},
		"block":       {Start: []uint64{0, 0}, Count: []uint64{1, 1}, Block: []uint64{1, 5}},
		"overlap":     {Start: []uint64{0, 0}, Count: []uint64{2, 1}, Stride: []uint64{1, 1}, Block: []uint64{2, 1}},
		"zero stride": {Start: []uint64{0, 0}, Count: []uint64{1, 1}, Stride: []uint64{0, 1}},
	}
	for name, sel := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := sel.runs(dims, 4)
			require.ErrorIs(t, err, ErrSelection)
		})
	}
}

func TestWriteReadSlab(t *testing.T) {
	f, path := createFile(t)
	ds, err := f.Root().CreateDataset("m", NewFixedPoint(4, true), []uint64{3, 4})
	require.NoError(t, err)

	// Unwritten storage reads as zeros.
	raw, err := ds.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 48), raw)

	for i := uint64(0); i < 3; i++ {
		row := int32Bytes(int32(10*i), int32(10*i+1), int32(10*i+2), int32(10*i+3))
		require.NoError(t, ds.WriteSlab(Rows(ds.Shape(), i, 1), row))
	}
	col := Hyperslab{Start: []uint64{0, 2}, Count: []uint64{3, 1}}
	require.NoError(t, ds.WriteSlab(col, int32Bytes(-1, -2, -3)))

	err = ds.WriteSlab(col, int32Bytes(1))
	require.ErrorIs(t, err, ErrSize)
	require.NoError(t, f.Close())

	r := reopen(t, path)
	ds, err = r.OpenDataset("m")
	require.NoError(t, err)
	raw, err = ds.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, int32Bytes(0, 1, -1, 3, 10, 11, -2, 13, 20, 21, -3, 23), raw)

	raw, err = ds.ReadSlab(Hyperslab{Start: []uint64{1, 1}, Count: []uint64{2, 1}, Block: []uint64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, int32Bytes(11, -2, 21, -3), raw)

	require.ErrorIs(t, ds.WriteSlab(All(ds.Shape()), make([]byte, 48)), ErrReadOnly)
}

func TestScalarAndEmptyDatasets(t *testing.T) {
	f, path := createFile(t)
	scalar, err := f.Root().CreateDataset("scalar", NewFloat(8), nil)
	require.NoError(t, err)
	require.NoError(t, scalar.Write([]byte{0, 0, 0, 0, 0, 0, 0xF8, 0x3F}))
	empty, err := f.Root().CreateDataset("empty", NewFixedPoint(2, false), []uint64{0})
	require.NoError(t, err)
	require.NoError(t, empty.Write(nil))
	require.NoError(t, f.Close())

	r := reopen(t, path)
	scalar, err = r.OpenDataset("scalar")
	require.NoError(t, err)
	assert.True(t, scalar.IsScalar())
	assert.Nil(t, scalar.Shape())
	raw, err := scalar.ReadRaw()
	require.NoError(t, err)
	v, err := DecodeElements(r, scalar.Datatype(), raw, 1)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.5}, v)

	empty, err = r.OpenDataset("empty")
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, empty.Shape())
	assert.Zero(t, empty.StorageSize())
	raw, err = empty.ReadRaw()
	require.NoError(t, err)
	assert.Empty(t, raw)
}
