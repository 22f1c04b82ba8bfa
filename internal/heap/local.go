package heap

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5records/internal/binary"
)

const localSignature = "HEAP"

// ErrInvalidLocalHeap is returned for a local heap that cannot be decoded.
var ErrInvalidLocalHeap = errors.New("invalid local heap")

// LocalHeap is a legacy group's local heap, which holds its member names.
type LocalHeap struct {
	Address     uint64
	DataAddress uint64
	FreeOffset  uint64
	data        []byte
}

// ReadLocalHeap reads the heap header at addr and its data segment.
func ReadLocalHeap(r *binary.Reader, addr uint64) (*LocalHeap, error) {
	hr := r.At(int64(addr))
	head, err := hr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("reading local heap at %d: %w", addr, err)
	}
	if string(head[:4]) != localSignature {
		return nil, fmt.Errorf("%w: no signature at %d", ErrInvalidLocalHeap, addr)
	}
	if head[4] != 0 {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidLocalHeap, head[4])
	}
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	free, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	dataAddr, err := hr.ReadOffset()
	if err != nil {
		return nil, err
	}
	data, err := r.At(int64(dataAddr)).ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("reading local heap data at %d: %w", dataAddr, err)
	}
	return &LocalHeap{Address: addr, DataAddress: dataAddr, FreeOffset: free, data: data}, nil
}

// String returns the NUL-terminated string at offset in the data segment.
func (h *LocalHeap) String(offset uint64) (string, error) {
	if offset >= uint64(len(h.data)) {
		return "", fmt.Errorf("%w: offset %d beyond %d bytes", ErrInvalidLocalHeap, offset, len(h.data))
	}
	rest := h.data[offset:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at %d", ErrInvalidLocalHeap, offset)
	}
	return string(rest[:end]), nil
}

// Size returns the length of the data segment.
func (h *LocalHeap) Size() int { return len(h.data) }
