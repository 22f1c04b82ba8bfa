package binary

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup3KnownVectors(t *testing.T) {
	assert.Equal(t, uint32(0xdeadbeef), Lookup3Checksum(nil))
	assert.Equal(t, uint32(0x17770551), Lookup3Checksum([]byte("Four score and seven years ago")))
}

func TestFletcher32KnownVectors(t *testing.T) {
	assert.Equal(t, uint32(0), Fletcher32(nil))
	assert.Equal(t, uint32(0x4ff029c7), Fletcher32([]byte("abcde")))
	assert.Equal(t, uint32(0x50562a2d), Fletcher32([]byte("abcdef")))

	long := make([]byte, 2048)
	for i := range long {
		long[i] = byte(i)
	}
	assert.Equal(t, uint32(0x282e01fe), Fletcher32(long))
}

func TestLookup3DistinctLengths(t *testing.T) {
	seen := map[uint32]int{}
	for n := 0; n <= 24; n++ {
		sum := Lookup3Checksum(make([]byte, n))
		prev, dup := seen[sum]
		require.False(t, dup, "length %d collides with length %d", n, prev)
		seen[sum] = n
	}
	assert.True(t, VerifyLookup3([]byte("abc"), Lookup3Checksum([]byte("abc"))))
}

func TestWriterReaderRoundTrip(t *testing.T) {
	for _, cfg := range []Config{
		DefaultConfig(),
		{ByteOrder: binary.LittleEndian, OffsetSize: 4, LengthSize: 2},
	} {
		buf := NewBuffer(0)
		w := NewWriter(buf, cfg)
		require.NoError(t, w.WriteUint8(0xAB))
		require.NoError(t, w.WriteUint16(0x1234))
		require.NoError(t, w.WriteUint32(0xDEADBEEF))
		require.NoError(t, w.WriteUint64(0x0102030405060708))
		require.NoError(t, w.WriteOffset(0x4000))
		require.NoError(t, w.WriteLength(77))
		require.NoError(t, w.WriteZeros(3))
		require.NoError(t, w.WriteBytes([]byte("GCOL")))

		r := NewReader(bytes.NewReader(buf.Bytes()), cfg)
		u8, err := r.ReadUint8()
		require.NoError(t, err)
		assert.Equal(t, uint8(0xAB), u8)
		u16, _ := r.ReadUint16()
		assert.Equal(t, uint16(0x1234), u16)
		u32, _ := r.ReadUint32()
		assert.Equal(t, uint32(0xDEADBEEF), u32)
		u64, _ := r.ReadUint64()
		assert.Equal(t, uint64(0x0102030405060708), u64)
		off, _ := r.ReadOffset()
		assert.Equal(t, uint64(0x4000), off)
		n, _ := r.ReadLength()
		assert.Equal(t, uint64(77), n)
		r.Skip(3)
		sig, err := r.ReadBytes(4)
		require.NoError(t, err)
		assert.Equal(t, "GCOL", string(sig))
		assert.Equal(t, int64(buf.Len()), r.Pos())
	}
}

func TestReaderShortRead(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2}), DefaultConfig())
	_, err := r.ReadUint32()
	require.Error(t, err)
}

func TestUndefinedAddress(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ^uint64(0), cfg.Undefined())
	cfg.OffsetSize = 4
	assert.Equal(t, uint64(0xFFFFFFFF), cfg.Undefined())
	r := NewReader(bytes.NewReader(nil), cfg)
	assert.True(t, r.IsUndefined(0xFFFFFFFF))
	assert.False(t, r.IsUndefined(0))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	bad := DefaultConfig()
	bad.OffsetSize = 3
	require.ErrorIs(t, bad.Validate(), ErrInvalidSize)
}

func TestBufferSeal(t *testing.T) {
	b := NewBuffer(4)
	_, err := b.WriteAt([]byte("OHDR"), 0)
	require.NoError(t, err)
	_, err = b.WriteAt([]byte{9}, 10)
	require.NoError(t, err)
	require.Equal(t, 11, b.Len())

	body := append([]byte(nil), b.Bytes()...)
	sealed := b.Seal()
	require.Len(t, sealed, 15)
	sum := uint32(DecodeUint(sealed[11:], 4))
	assert.Equal(t, Lookup3Checksum(body), sum)
}
