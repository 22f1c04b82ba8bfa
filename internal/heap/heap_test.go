package heap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5records/internal/alloc"
	"github.com/robert-malhotra/h5records/internal/binary"
)

func newWriter(minSize uint64) (*Writer, *binary.Buffer, *alloc.Allocator) {
	buf := binary.NewBuffer(0)
	a := alloc.New(48)
	return NewWriter(binary.NewWriter(buf, binary.DefaultConfig()), a, minSize), buf, a
}

func TestPutAndRead(t *testing.T) {
	w, buf, a := newWriter(0)
	payloads := [][]byte{[]byte("Hello"), []byte("World"), {}, bytes.Repeat([]byte{7}, 13)}

	ids := make([]ID, len(payloads))
	for i, p := range payloads {
		id, err := w.Put(p)
		require.NoError(t, err)
		ids[i] = id
	}
	assert.Equal(t, ids[0].Collection, ids[3].Collection)
	assert.Equal(t, uint32(1), ids[0].Index)
	assert.Equal(t, uint32(4), ids[3].Index)

	c, err := ReadCollection(binary.NewReader(buf, binary.DefaultConfig()), ids[0].Collection)
	require.NoError(t, err)
	assert.Equal(t, uint64(MinCollectionSize), c.Size)
	assert.Equal(t, 4, c.Len())
	for i, p := range payloads {
		got, err := c.Object(ids[i].Index)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err = c.Object(9)
	require.ErrorIs(t, err, ErrObjectNotFound)

	assert.Equal(t, int(ids[0].Collection+MinCollectionSize), buf.Len(), "collection is written out in full")
	assert.Equal(t, Stats{Collections: 1, Objects: 4, Bytes: 23}, w.Stats())
	assert.Equal(t, uint64(MinCollectionSize), a.Stats().Bytes[alloc.KindHeap])
}

func TestPutSpillsToNewCollection(t *testing.T) {
	w, buf, _ := newWriter(0)
	r := binary.NewReader(buf, binary.DefaultConfig())

	first, err := w.Put(make([]byte, 3000))
	require.NoError(t, err)
	second, err := w.Put(make([]byte, 3000))
	require.NoError(t, err)
	assert.NotEqual(t, first.Collection, second.Collection)
	assert.Equal(t, uint32(1), second.Index)

	big, err := w.Put(bytes.Repeat([]byte("x"), 10000))
	require.NoError(t, err)
	c, err := ReadCollection(r, big.Collection)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, c.Size, uint64(10000+16+16))
	got, err := c.Object(big.Index)
	require.NoError(t, err)
	assert.Len(t, got, 10000)

	// The first collection is still intact after the others were written.
	c, err = ReadCollection(r, first.Collection)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestPutFillsExactly(t *testing.T) {
	w, buf, _ := newWriter(0)
	// header 16, object header 16: 4064 bytes of payload leaves nothing free
	id, err := w.Put(make([]byte, MinCollectionSize-32))
	require.NoError(t, err)
	c, err := ReadCollection(binary.NewReader(buf, binary.DefaultConfig()), id.Collection)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	next, err := w.Put([]byte("a"))
	require.NoError(t, err)
	assert.NotEqual(t, id.Collection, next.Collection)
}

func TestReadCollectionErrors(t *testing.T) {
	buf := binary.NewBuffer(0)
	_, err := buf.WriteAt([]byte("NOPE\x01\x00\x00\x00\x10\x00\x00\x00\x00\x00\x00\x00"), 0)
	require.NoError(t, err)
	_, err = ReadCollection(binary.NewReader(buf, binary.DefaultConfig()), 0)
	require.ErrorIs(t, err, ErrInvalidCollection)
}

func TestVarLenElement(t *testing.T) {
	cfg := binary.DefaultConfig()
	b := make([]byte, VarLenSize(cfg))
	require.Len(t, b, 16)

	EncodeVarLen(b, cfg, 5, ID{Collection: 4096, Index: 3})
	count, id := DecodeVarLen(b, cfg)
	assert.Equal(t, uint32(5), count)
	assert.Equal(t, ID{Collection: 4096, Index: 3}, id)
	assert.False(t, id.IsNull())
	assert.True(t, ID{}.IsNull())
}

func TestReadLocalHeap(t *testing.T) {
	cfg := binary.DefaultConfig()
	buf := binary.NewBuffer(0)
	w := binary.NewWriter(buf, cfg).At(100)
	require.NoError(t, w.WriteBytes([]byte{'H', 'E', 'A', 'P', 0, 0, 0, 0}))
	require.NoError(t, w.WriteLength(24))
	require.NoError(t, w.WriteLength(^uint64(0)))
	require.NoError(t, w.WriteOffset(200))
	data := append([]byte("\x00data\x00matrix"), make([]byte, 12)...)
	_, err := buf.WriteAt(data, 200)
	require.NoError(t, err)

	h, err := ReadLocalHeap(binary.NewReader(buf, cfg), 100)
	require.NoError(t, err)
	assert.Equal(t, 24, h.Size())
	assert.Equal(t, uint64(200), h.DataAddress)

	for offset, want := range map[uint64]string{0: "", 1: "data", 6: "matrix"} {
		got, err := h.String(offset)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = h.String(24)
	assert.ErrorIs(t, err, ErrInvalidLocalHeap)

	_, err = ReadLocalHeap(binary.NewReader(buf, cfg), 200)
	assert.ErrorIs(t, err, ErrInvalidLocalHeap)
}
