package filter

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binpkg "github.com/robert-malhotra/h5records/internal/binary"
	"github.com/robert-malhotra/h5records/internal/message"
)

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func shuffleBytes(data []byte, elemSize int) []byte {
	n := len(data) / elemSize
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		for b := 0; b < elemSize; b++ {
			out[b*n+i] = data[i*elemSize+b]
		}
	}
	copy(out[n*elemSize:], data[n*elemSize:])
	return out
}

func withChecksum(data []byte) []byte {
	return binary.LittleEndian.AppendUint32(append([]byte(nil), data...), binpkg.Fletcher32(data))
}

func int32s(vals ...int32) []byte {
	out := make([]byte, 0, 4*len(vals))
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint32(out, uint32(v))
	}
	return out
}

func pipeline(t *testing.T, infos ...message.FilterInfo) *Pipeline {
	t.Helper()
	p, err := NewPipeline(&message.FilterPipeline{Version: 2, Filters: infos})
	require.NoError(t, err)
	return p
}

var (
	shuffle4 = message.FilterInfo{ID: message.FilterShuffle, ClientData: []uint32{4}}
	deflate6 = message.FilterInfo{ID: message.FilterDeflate, ClientData: []uint32{6}}
	checksum = message.FilterInfo{ID: message.FilterFletcher32}
)

func TestShuffleDeflateChecksum(t *testing.T) {
	raw := int32s(1, 2, 3, 4, 5, 1000, -1)
	stored := withChecksum(compress(t, shuffleBytes(raw, 4)))

	p := pipeline(t, shuffle4, deflate6, checksum)
	assert.Equal(t, 3, p.Len())
	got, err := p.Decode(stored, 0)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestFilterMaskSkipsFilters(t *testing.T) {
	raw := int32s(7, 8, 9)
	p := pipeline(t, shuffle4, deflate6)

	// Deflate was skipped for this chunk.
	got, err := p.Decode(shuffleBytes(raw, 4), 0b10)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = p.Decode(raw, 0b11)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestShuffleKeepsTrailingBytes(t *testing.T) {
	raw := append(int32s(1, 2), 0xAA, 0xBB)
	got, err := pipeline(t, shuffle4).Decode(shuffleBytes(raw, 4), 0)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestChecksumMismatch(t *testing.T) {
	stored := withChecksum(int32s(1, 2, 3))
	stored[0] ^= 0xFF
	_, err := pipeline(t, checksum).Decode(stored, 0)
	require.ErrorIs(t, err, ErrChecksum)

	_, err = pipeline(t, checksum).Decode([]byte{1, 2}, 0)
	require.ErrorIs(t, err, ErrChecksum)
}

func TestCorruptDeflate(t *testing.T) {
	_, err := pipeline(t, deflate6).Decode([]byte("not zlib data"), 0)
	assert.Error(t, err)
}

func TestUnsupportedFilter(t *testing.T) {
	_, err := NewPipeline(&message.FilterPipeline{Filters: []message.FilterInfo{{ID: message.FilterSZIP, Name: "szip"}}})
	require.ErrorIs(t, err, ErrUnsupportedFilter)

	p, err := NewPipeline(nil)
	require.NoError(t, err)
	got, err := p.Decode([]byte{1, 2, 3}, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}
