package binary

import "io"

// Buffer is a growable in-memory io.WriterAt and io.ReaderAt. Structures
// that carry a checksum are encoded into a Buffer first and flushed in one
// write.
type Buffer struct {
	buf []byte
}

// NewBuffer returns a buffer with capacity for n bytes.
func NewBuffer(n int) *Buffer {
	return &Buffer{buf: make([]byte, 0, n)}
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, b.buf)
			b.buf = grown
		} else {
			b.buf = b.buf[:end]
		}
	}
	copy(b.buf[off:], p)
	return len(p), nil
}

// ReadAt implements io.ReaderAt over the bytes written so far.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.buf)) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Bytes returns the encoded bytes.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the number of encoded bytes.
func (b *Buffer) Len() int { return len(b.buf) }

// Seal appends the lookup3 checksum of the current contents and returns the
// sealed bytes.
func (b *Buffer) Seal() []byte {
	sum := Lookup3Checksum(b.buf)
	n := len(b.buf)
	var tail [4]byte
	EncodeUint(tail[:], uint64(sum), 4)
	_, _ = b.WriteAt(tail[:], int64(n))
	return b.buf
}
