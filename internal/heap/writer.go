package heap

import (
	"sync"

	"github.com/robert-malhotra/h5records/internal/alloc"
	"github.com/robert-malhotra/h5records/internal/binary"
)

// Allocator reserves file space.
type Allocator interface {
	Alloc(size uint64, kind alloc.Kind) uint64
}

// Stats counts what a Writer has stored.
type Stats struct {
	Collections int
	Objects     int
	Bytes       uint64
}

// Writer appends objects to global heap collections. It is safe for
// concurrent use.
type Writer struct {
	mu      sync.Mutex
	w       *binary.Writer
	alloc   Allocator
	minSize uint64

	addr  uint64 // current collection, zero if none
	size  uint64
	used  uint64
	index uint16
	stats Stats
}

// NewWriter returns a writer whose collections are at least minSize bytes.
func NewWriter(w *binary.Writer, a Allocator, minSize uint64) *Writer {
	if minSize < MinCollectionSize {
		minSize = MinCollectionSize
	}
	return &Writer{w: w, alloc: a, minSize: minSize}
}

// Put stores data as a new object and returns its ID.
func (hw *Writer) Put(data []byte) (ID, error) {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	cfg := hw.w.Config()
	ohs := objectHeaderSize(cfg)
	need := ohs + uint64(align8(len(data)))
	if hw.addr == 0 || hw.index == 0xFFFF || hw.used+need > hw.size {
		if err := hw.start(need); err != nil {
			return ID{}, err
		}
	}

	hw.index++
	obj := make([]byte, need)
	binary.EncodeUint(obj, uint64(hw.index), 2)
	binary.EncodeUint(obj[8:], uint64(len(data)), cfg.LengthSize)
	copy(obj[ohs:], data)
	if err := hw.w.At(int64(hw.addr + hw.used)).WriteBytes(obj); err != nil {
		return ID{}, err
	}
	hw.used += need
	if err := hw.writeFree(); err != nil {
		return ID{}, err
	}

	hw.stats.Objects++
	hw.stats.Bytes += uint64(len(data))
	return ID{Collection: hw.addr, Index: uint32(hw.index)}, nil
}

// start allocates a collection with room for at least n bytes of objects.
func (hw *Writer) start(n uint64) error {
	cfg := hw.w.Config()
	size := headerSize(cfg) + n
	if size < hw.minSize {
		size = hw.minSize
	}
	size = uint64(align8(int(size)))
	addr := hw.alloc.Alloc(size, alloc.KindHeap)

	w := hw.w.At(int64(addr))
	if err := w.WriteBytes([]byte{'G', 'C', 'O', 'L', 1, 0, 0, 0}); err != nil {
		return err
	}
	if err := w.WriteLength(size); err != nil {
		return err
	}
	// Zero the body so the collection is complete without the caller
	// extending the file.
	if err := w.WriteZeros(int(size - headerSize(cfg))); err != nil {
		return err
	}
	hw.addr, hw.size, hw.used, hw.index = addr, size, headerSize(cfg), 0
	hw.stats.Collections++
	return hw.writeFree()
}

// writeFree describes the unused tail of the collection. A tail shorter
// than an object header is left as zeros, which readers treat as free.
func (hw *Writer) writeFree() error {
	cfg := hw.w.Config()
	free := hw.size - hw.used
	if free < objectHeaderSize(cfg) {
		return hw.w.At(int64(hw.addr + hw.used)).WriteZeros(int(free))
	}
	obj := make([]byte, objectHeaderSize(cfg))
	binary.EncodeUint(obj[8:], free, cfg.LengthSize)
	return hw.w.At(int64(hw.addr + hw.used)).WriteBytes(obj)
}

// Stats returns what has been stored so far.
func (hw *Writer) Stats() Stats {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.stats
}
