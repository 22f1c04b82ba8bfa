package hdf5

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5records/internal/alloc"
)

func int32Bytes(vals ...int32) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[4*i:], uint32(v))
	}
	return b
}

func tempFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.h5")
}

func createFile(t *testing.T) (*File, string) {
	t.Helper()
	path := tempFile(t)
	f, err := Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f, path
}

func reopen(t *testing.T, path string) *File {
	t.Helper()
	f, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestCreateEmpty(t *testing.T) {
	f, path := createFile(t)
	assert.True(t, f.IsWritable())
	require.NoError(t, f.Close())
	require.NoError(t, f.Close(), "second close")

	r := reopen(t, path)
	assert.Equal(t, 3, r.Version())
	assert.False(t, r.IsWritable())
	members, err := r.Root().Members()
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.Equal(t, "/", r.Root().Name())
}

func TestOpenNotHDF5(t *testing.T) {
	path := tempFile(t)
	require.NoError(t, os.WriteFile(path, []byte("definitely not a container"), 0o644))
	_, err := Open(path)
	require.ErrorIs(t, err, ErrNotHDF5)

	_, err = Open(filepath.Join(t.TempDir(), "missing.h5"))
	require.Error(t, err)
}

func TestClosedAndReadOnly(t *testing.T) {
	f, path := createFile(t)
	_, err := f.Root().CreateGroup("g")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = f.Root().CreateGroup("h")
	require.ErrorIs(t, err, ErrClosed)
	_, err = f.OpenGroup("/g")
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, f.Flush(), ErrClosed)

	r := reopen(t, path)
	_, err = r.Root().CreateGroup("h")
	require.ErrorIs(t, err, ErrReadOnly)
	g, err := r.OpenGroup("/g")
	require.NoError(t, err)
	require.ErrorIs(t, g.CreateAttribute("a", NewFixedPoint(4, true), nil, int32Bytes(1)), ErrReadOnly)
	_, err = r.PutVarLen([]byte("x"), 1)
	require.ErrorIs(t, err, ErrReadOnly)
	require.NoError(t, r.Flush())
}

func TestOpenReadWriteAppends(t *testing.T) {
	f, path := createFile(t)
	ds, err := f.Root().CreateDataset("first", NewFixedPoint(4, true), []uint64{3})
	require.NoError(t, err)
	require.NoError(t, ds.Write(int32Bytes(1, 2, 3)))
	require.NoError(t, f.Close())

	rw, err := OpenReadWrite(path)
	require.NoError(t, err)
	g, err := rw.Root().CreateGroup("more")
	require.NoError(t, err)
	second, err := g.CreateDataset("second", NewFixedPoint(4, true), []uint64{2})
	require.NoError(t, err)
	require.NoError(t, second.Write(int32Bytes(7, 8)))
	ref, err := rw.PutVarLen([]byte("appended"), 8)
	require.NoError(t, err)
	require.NoError(t, g.CreateAttribute("note", NewVarString(0), nil, ref))
	require.NoError(t, rw.Close())

	r := reopen(t, path)
	first, err := r.OpenDataset("/first")
	require.NoError(t, err)
	raw, err := first.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, int32Bytes(1, 2, 3), raw)

	second, err = r.OpenDataset("/more/second")
	require.NoError(t, err)
	raw, err = second.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, int32Bytes(7, 8), raw)

	g, err = r.OpenGroup("more")
	require.NoError(t, err)
	note, err := g.Attr("note").String()
	require.NoError(t, err)
	assert.Equal(t, "appended", note)
}

func TestFileStats(t *testing.T) {
	f, _ := createFile(t)
	_, err := f.Root().CreateDataset("d", NewFloat(8), []uint64{100})
	require.NoError(t, err)
	_, err = f.PutVarLen([]byte("abc"), 3)
	require.NoError(t, err)

	s := f.AllocStats()
	assert.Equal(t, uint64(800), s.Bytes[alloc.KindData])
	assert.Equal(t, 1, f.HeapStats().Objects)
	require.NoError(t, f.alloc.Validate())
}
