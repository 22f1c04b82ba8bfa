package superblock

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binpkg "github.com/robert-malhotra/h5records/internal/binary"
)

func encode(t *testing.T, sb *Superblock, at int64) []byte {
	t.Helper()
	buf := binpkg.NewBuffer(0)
	require.NoError(t, sb.Write(binpkg.NewWriter(buf, sb.Config()).At(at)))
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	sb := New()
	sb.RootAddress = 48
	sb.EOFAddress = 4096

	raw := encode(t, sb, 0)
	require.Len(t, raw, sb.Size())
	assert.Equal(t, 48, sb.Size())

	got, err := Read(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, uint8(3), got.Version)
	assert.Equal(t, uint64(48), got.RootAddress)
	assert.Equal(t, uint64(4096), got.EOFAddress)
	assert.Equal(t, ^uint64(0), got.ExtensionAddress)
	assert.Equal(t, int64(0), got.FileOffset)
}

func TestReadAtUserBlockOffset(t *testing.T) {
	sb := New()
	sb.RootAddress = 560
	raw := encode(t, sb, 512)

	got, err := Read(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, int64(512), got.FileOffset)
	assert.Equal(t, uint64(560), got.RootAddress)
}

func TestReadRejectsCorruption(t *testing.T) {
	raw := encode(t, New(), 0)
	raw[20] ^= 0xFF
	_, err := Read(bytes.NewReader(raw))
	require.ErrorIs(t, err, ErrChecksum)
}

// encodeLegacy lays out a version 0 or 1 superblock with 8-byte offsets
// whose root entry caches the given B-tree and heap addresses.
func encodeLegacy(t *testing.T, version uint8, root, btree, localHeap, eof uint64) []byte {
	t.Helper()
	cfg := binpkg.DefaultConfig()
	buf := binpkg.NewBuffer(0)
	w := binpkg.NewWriter(buf, cfg)
	require.NoError(t, w.WriteBytes(Signature))
	require.NoError(t, w.WriteBytes([]byte{version, 0, 0, 0, 0, 8, 8, 0}))
	require.NoError(t, w.WriteUint16(4))  // group leaf K
	require.NoError(t, w.WriteUint16(16)) // group internal K
	require.NoError(t, w.WriteUint32(0))
	if version == 1 {
		require.NoError(t, w.WriteUint16(32))
		require.NoError(t, w.WriteUint16(0))
	}
	for _, addr := range []uint64{0, ^uint64(0), eof, ^uint64(0)} {
		require.NoError(t, w.WriteOffset(addr))
	}
	require.NoError(t, w.WriteOffset(0))
	require.NoError(t, w.WriteOffset(root))
	require.NoError(t, w.WriteUint32(1))
	require.NoError(t, w.WriteUint32(0))
	require.NoError(t, w.WriteOffset(btree))
	require.NoError(t, w.WriteOffset(localHeap))
	return buf.Bytes()
}

func TestReadLegacy(t *testing.T) {
	for _, version := range []uint8{0, 1} {
		raw := encodeLegacy(t, version, 96, 136, 680, 2048)
		sb, err := Read(bytes.NewReader(raw))
		require.NoError(t, err, "version %d", version)
		assert.True(t, sb.Legacy())
		assert.Equal(t, version, sb.Version)
		assert.Equal(t, uint8(8), sb.OffsetSize)
		assert.Equal(t, uint64(96), sb.RootAddress)
		assert.Equal(t, uint64(136), sb.RootBTree)
		assert.Equal(t, uint64(680), sb.RootHeap)
		assert.Equal(t, uint64(2048), sb.EOFAddress)
		assert.Equal(t, uint16(4), sb.GroupLeafK)
		assert.Equal(t, uint16(16), sb.GroupInternalK)
		if version == 1 {
			assert.Equal(t, uint16(32), sb.ChunkK)
		}
	}
}

func TestWriteRejectsLegacy(t *testing.T) {
	sb, err := Read(bytes.NewReader(encodeLegacy(t, 0, 96, 136, 680, 2048)))
	require.NoError(t, err)
	err = sb.Write(binpkg.NewWriter(binpkg.NewBuffer(0), sb.Config()))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	raw := encode(t, New(), 0)
	raw[8] = 7
	_, err := Read(bytes.NewReader(raw))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestReadNotHDF5(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("plain text, not a container")))
	require.ErrorIs(t, err, ErrNotHDF5)
}
