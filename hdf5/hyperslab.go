package hdf5

import "fmt"

// Hyperslab selects a regular block pattern from a dataspace: in each
// dimension, Count blocks of Block elements starting at Start and Stride
// elements apart. Nil Stride and Block mean ones.
type Hyperslab struct {
	Start  []uint64
	Count  []uint64
	Stride []uint64
	Block  []uint64
}

// All selects every element of a dataspace with the given dimensions.
func All(dims []uint64) Hyperslab {
	return Hyperslab{
		Start: make([]uint64, len(dims)),
		Count: append([]uint64(nil), dims...),
	}
}

// Rows selects count consecutive rows starting at row start of a dataspace
// with the given dimensions.
func Rows(dims []uint64, start, count uint64) Hyperslab {
	sel := All(dims)
	if len(dims) > 0 {
		sel.Start[0], sel.Count[0] = start, count
	}
	return sel
}

// NumElements returns the number of elements selected.
func (h Hyperslab) NumElements() uint64 {
	n := uint64(1)
	for d, c := range h.Count {
		n *= c * h.block(d)
	}
	return n
}

func (h Hyperslab) stride(d int) uint64 {
	if h.Stride == nil {
		return 1
	}
	return h.Stride[d]
}

func (h Hyperslab) block(d int) uint64 {
	if h.Block == nil {
		return 1
	}
	return h.Block[d]
}

// validate checks h against a dataspace of the given dimensions.
func (h Hyperslab) validate(dims []uint64) error {
	rank := len(dims)
	if len(h.Start) != rank || len(h.Count) != rank {
		return fmt.Errorf("%w: rank %d selection for rank %d dataspace", ErrSelection, len(h.Start), rank)
	}
	if (h.Stride != nil && len(h.Stride) != rank) || (h.Block != nil && len(h.Block) != rank) {
		return fmt.Errorf("%w: stride or block rank differs from dataspace", ErrSelection)
	}
	for d := 0; d < rank; d++ {
		stride, block := h.stride(d), h.block(d)
		if stride == 0 || block == 0 {
			return fmt.Errorf("%w: zero stride or block in dimension %d", ErrSelection, d)
		}
		if h.Count[d] == 0 {
			continue
		}
		if h.Count[d] > 1 && stride < block {
			return fmt.Errorf("%w: overlapping blocks in dimension %d", ErrSelection, d)
		}
		if end := h.Start[d] + (h.Count[d]-1)*stride + block; end > dims[d] {
			return fmt.Errorf("%w: dimension %d ends at %d beyond extent %d", ErrSelection, d, end, dims[d])
		}
	}
	return nil
}

// span is a byte range of a dataset's storage.
type span struct {
	off uint64
	len uint64
}

// runs returns the byte ranges selected by h in row-major order, merging
// neighbours, and the number of elements they hold.
func (h Hyperslab) runs(dims []uint64, elemSize uint64) ([]span, uint64, error) {
	if err := h.validate(dims); err != nil {
		return nil, 0, err
	}
	rank := len(dims)
	if rank == 0 {
		return []span{{0, elemSize}}, 1, nil
	}
	count := h.NumElements()
	if count == 0 {
		return nil, 0, nil
	}

	// segments[d] lists the selected [start, start+len) ranges of
	// dimension d.
	type segment struct{ start, len uint64 }
	segments := make([][]segment, rank)
	for d := 0; d < rank; d++ {
		stride, block := h.stride(d), h.block(d)
		if stride == block {
			segments[d] = []segment{{h.Start[d], h.Count[d] * block}}
			continue
		}
		for i := uint64(0); i < h.Count[d]; i++ {
			segments[d] = append(segments[d], segment{h.Start[d] + i*stride, block})
		}
	}
	pitch := make([]uint64, rank)
	pitch[rank-1] = 1
	for d := rank - 2; d >= 0; d-- {
		pitch[d] = pitch[d+1] * dims[d+1]
	}

	var out []span
	var walk func(d int, base uint64)
	walk = func(d int, base uint64) {
		for _, s := range segments[d] {
			if d == rank-1 {
				r := span{off: (base + s.start) * elemSize, len: s.len * elemSize}
				if last := len(out) - 1; last >= 0 && out[last].off+out[last].len == r.off {
					out[last].len += r.len
				} else {
					out = append(out, r)
				}
				continue
			}
			for i := s.start; i < s.start+s.len; i++ {
				walk(d+1, base+i*pitch[d])
			}
		}
	}
	walk(0, 0)
	return out, count, nil
}
