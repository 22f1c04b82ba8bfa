package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/h5records/internal/heap"
)

// PutVarLen stores payload in the global heap and returns the encoded
// variable-length element referring to it. count is the number of base
// elements payload holds (bytes, for strings). An empty payload is stored
// as a null reference without touching the heap.
func (f *File) PutVarLen(payload []byte, count uint32) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(true); err != nil {
		return nil, err
	}
	ref := make([]byte, heap.VarLenSize(f.cfg))
	if len(payload) == 0 {
		heap.EncodeVarLen(ref, f.cfg, count, heap.ID{})
		return ref, nil
	}
	id, err := f.heapw.Put(payload)
	if err != nil {
		return nil, fmt.Errorf("storing variable-length data: %w", err)
	}
	delete(f.heaps, id.Collection)
	if err := f.extend(f.alloc.EOF()); err != nil {
		return nil, err
	}
	heap.EncodeVarLen(ref, f.cfg, count, id)
	return ref, nil
}

// ResolveVarLen returns the payload and element count of an encoded
// variable-length element. Null references resolve to an empty payload.
func (f *File) ResolveVarLen(ref []byte) ([]byte, uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(false); err != nil {
		return nil, 0, err
	}
	if len(ref) < heap.VarLenSize(f.cfg) {
		return nil, 0, fmt.Errorf("%w: variable-length element of %d bytes", ErrSize, len(ref))
	}
	count, id := heap.DecodeVarLen(ref, f.cfg)
	if id.IsNull() {
		return nil, count, nil
	}
	c, ok := f.heaps[id.Collection]
	if !ok {
		var err error
		if c, err = heap.ReadCollection(f.reader, id.Collection); err != nil {
			return nil, 0, err
		}
		f.heaps[id.Collection] = c
	}
	data, err := c.Object(id.Index)
	if err != nil {
		return nil, 0, fmt.Errorf("resolving %s: %w", id, err)
	}
	return append([]byte(nil), data...), count, nil
}
