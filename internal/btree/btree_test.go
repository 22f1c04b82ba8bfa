package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5records/internal/binary"
	"github.com/robert-malhotra/h5records/internal/heap"
)

var cfg = binary.DefaultConfig()

func writer(buf *binary.Buffer, at int64) *binary.Writer {
	return binary.NewWriter(buf, cfg).At(at)
}

func writeNodeHeader(t *testing.T, w *binary.Writer, kind, level uint8, entries uint16) {
	t.Helper()
	require.NoError(t, w.WriteBytes([]byte(treeSignature)))
	require.NoError(t, w.WriteBytes([]byte{kind, level}))
	require.NoError(t, w.WriteUint16(entries))
	require.NoError(t, w.WriteOffset(cfg.Undefined()))
	require.NoError(t, w.WriteOffset(cfg.Undefined()))
}

func writeEntry(t *testing.T, w *binary.Writer, name, addr uint64, cache uint32, scratch uint64) {
	t.Helper()
	require.NoError(t, w.WriteOffset(name))
	require.NoError(t, w.WriteOffset(addr))
	require.NoError(t, w.WriteUint32(cache))
	require.NoError(t, w.WriteUint32(0))
	require.NoError(t, w.WriteUint64(scratch))
	require.NoError(t, w.WriteUint64(0))
}

// groupFixture lays out a two-level group tree over one symbol node with
// a hard link "data" and a soft link "alias" to "/data".
func groupFixture(t *testing.T) (*binary.Buffer, *heap.LocalHeap) {
	buf := binary.NewBuffer(0)

	w := writer(buf, 0)
	require.NoError(t, w.WriteBytes([]byte{'H', 'E', 'A', 'P', 0, 0, 0, 0}))
	require.NoError(t, w.WriteLength(32))
	require.NoError(t, w.WriteLength(cfg.Undefined()))
	require.NoError(t, w.WriteOffset(64))
	_, err := buf.WriteAt(append([]byte("\x00data\x00alias\x00/data\x00"), make([]byte, 14)...), 64)
	require.NoError(t, err)

	// Internal node at 200 points at the leaf at 300, which points at the
	// symbol node at 400.
	w = writer(buf, 200)
	writeNodeHeader(t, w, nodeGroup, 1, 1)
	require.NoError(t, w.WriteLength(0))
	require.NoError(t, w.WriteOffset(300))
	require.NoError(t, w.WriteLength(6))

	w = writer(buf, 300)
	writeNodeHeader(t, w, nodeGroup, 0, 1)
	require.NoError(t, w.WriteLength(0))
	require.NoError(t, w.WriteOffset(400))
	require.NoError(t, w.WriteLength(6))

	w = writer(buf, 400)
	require.NoError(t, w.WriteBytes([]byte{'S', 'N', 'O', 'D', 1, 0}))
	require.NoError(t, w.WriteUint16(2))
	writeEntry(t, w, 6, cfg.Undefined(), cacheSoftLink, 12)
	writeEntry(t, w, 1, 1024, 0, 0)

	names, err := heap.ReadLocalHeap(binary.NewReader(buf, cfg), 0)
	require.NoError(t, err)
	return buf, names
}

func TestReadGroup(t *testing.T) {
	buf, names := groupFixture(t)
	entries, err := ReadGroup(binary.NewReader(buf, cfg), 200, names)
	require.NoError(t, err)
	assert.Equal(t, []GroupEntry{
		{Name: "alias", Address: cfg.Undefined(), Soft: true, Target: "/data"},
		{Name: "data", Address: 1024},
	}, entries)
}

func TestReadGroupRejectsChunkTree(t *testing.T) {
	buf, names := groupFixture(t)
	writeNodeHeader(t, writer(buf, 300), nodeChunk, 0, 0)
	_, err := ReadGroup(binary.NewReader(buf, cfg), 200, names)
	require.ErrorIs(t, err, ErrInvalidNode)

	_, err = ReadGroup(binary.NewReader(buf, cfg), 400, names)
	require.ErrorIs(t, err, ErrInvalidNode)
}

func writeChunkKey(t *testing.T, w *binary.Writer, size, mask uint32, offsets ...uint64) {
	t.Helper()
	require.NoError(t, w.WriteUint32(size))
	require.NoError(t, w.WriteUint32(mask))
	for _, o := range offsets {
		require.NoError(t, w.WriteUint64(o))
	}
	require.NoError(t, w.WriteUint64(0))
}

func TestReadChunks(t *testing.T) {
	buf := binary.NewBuffer(0)

	// A leaf with three keys for a rank 2 dataset: two allocated chunks
	// and an unallocated one, then the closing key.
	w := writer(buf, 0)
	writeNodeHeader(t, w, nodeChunk, 0, 3)
	writeChunkKey(t, w, 64, 0, 0, 0)
	require.NoError(t, w.WriteOffset(1000))
	writeChunkKey(t, w, 40, 1, 0, 4)
	require.NoError(t, w.WriteOffset(2000))
	writeChunkKey(t, w, 64, 0, 4, 0)
	require.NoError(t, w.WriteOffset(cfg.Undefined()))
	writeChunkKey(t, w, 0, 0, 8, 8)

	w = writer(buf, 500)
	writeNodeHeader(t, w, nodeChunk, 1, 1)
	writeChunkKey(t, w, 0, 0, 0, 0)
	require.NoError(t, w.WriteOffset(0))
	writeChunkKey(t, w, 0, 0, 8, 8)

	chunks, err := ReadChunks(binary.NewReader(buf, cfg), 500, 2)
	require.NoError(t, err)
	assert.Equal(t, []Chunk{
		{Offset: []uint64{0, 0}, Size: 64, Address: 1000},
		{Offset: []uint64{0, 4}, Size: 40, FilterMask: 1, Address: 2000},
	}, chunks)
}

func TestReadChunksRejectsCycle(t *testing.T) {
	buf := binary.NewBuffer(0)
	w := writer(buf, 0)
	writeNodeHeader(t, w, nodeChunk, 1, 1)
	writeChunkKey(t, w, 0, 0, 0)
	require.NoError(t, w.WriteOffset(0))
	writeChunkKey(t, w, 0, 0, 8)

	_, err := ReadChunks(binary.NewReader(buf, cfg), 0, 1)
	require.ErrorIs(t, err, ErrInvalidNode)
}
