package hdf5

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarLenRoundTrip(t *testing.T) {
	f, path := createFile(t)
	payloads := [][]byte{[]byte("hello"), bytes.Repeat([]byte{9}, 5000), {}}
	refs := make([][]byte, len(payloads))
	for i, p := range payloads {
		ref, err := f.PutVarLen(p, uint32(len(p)))
		require.NoError(t, err)
		assert.Len(t, ref, 16)
		refs[i] = ref
	}
	assert.Equal(t, make([]byte, 16), refs[2], "empty payloads are null references")

	ds, err := f.Root().CreateDataset("refs", NewVarSequence(NewFixedPoint(1, false)), []uint64{3})
	require.NoError(t, err)
	require.NoError(t, ds.Write(bytes.Join(refs, nil)))
	require.NoError(t, f.Close())

	r := reopen(t, path)
	ds, err = r.OpenDataset("refs")
	require.NoError(t, err)
	raw, err := ds.ReadRaw()
	require.NoError(t, err)
	for i, p := range payloads {
		got, count, err := r.ResolveVarLen(raw[16*i : 16*(i+1)])
		require.NoError(t, err)
		assert.Equal(t, uint32(len(p)), count)
		assert.Equal(t, len(p), len(got))
		if len(p) > 0 {
			assert.Equal(t, p, got)
		}
	}

	_, _, err = r.ResolveVarLen(raw[:8])
	require.ErrorIs(t, err, ErrSize)
}

func TestVarLenSpillsCollections(t *testing.T) {
	f, _ := createFile(t)
	var refs [][]byte
	for i := 0; i < 10; i++ {
		ref, err := f.PutVarLen(bytes.Repeat([]byte{byte(i)}, 1500), 1500)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	assert.Greater(t, f.HeapStats().Collections, 1)
	for i, ref := range refs {
		got, _, err := f.ResolveVarLen(ref)
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{byte(i)}, 1500), got)
	}
}
