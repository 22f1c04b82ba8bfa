package hdf5

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/h5records/internal/btree"
	"github.com/robert-malhotra/h5records/internal/filter"
	"github.com/robert-malhotra/h5records/internal/message"
)

// chunks lists the allocated chunks of a chunked dataset. The caller holds
// f.mu.
func (d *Dataset) chunks(st *storage) ([]btree.Chunk, error) {
	f := d.n.file
	l := st.layout
	rank := len(st.dims)
	if len(l.ChunkDims) != rank {
		return nil, fmt.Errorf("%w: %d chunk dimensions for rank %d in %s", ErrUnsupported, len(l.ChunkDims), rank, d.n.path)
	}
	if f.reader.IsUndefined(l.Address) {
		return nil, nil
	}

	chunkBytes := l.ChunkSize(st.elemSize)
	switch l.Index {
	case message.IndexBTreeV1:
		chunks, err := btree.ReadChunks(f.reader, l.Address, rank)
		if err != nil {
			return nil, fmt.Errorf("reading chunk index of %s: %w", d.n.path, err)
		}
		return chunks, nil
	case message.IndexSingle:
		size := l.SingleSize
		if size == 0 {
			size = chunkBytes
		}
		return []btree.Chunk{{
			Offset:     make([]uint64, rank),
			Size:       uint32(size),
			FilterMask: l.SingleMask,
			Address:    l.Address,
		}}, nil
	case message.IndexImplicit:
		// Unfiltered chunks stored back to back in row-major grid order.
		var out []btree.Chunk
		eachChunk(st.dims, l.ChunkDims, func(offset []uint64) {
			out = append(out, btree.Chunk{
				Offset:  offset,
				Size:    uint32(chunkBytes),
				Address: l.Address + uint64(len(out))*chunkBytes,
			})
		})
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s chunk index in %s", ErrUnsupported, l.Index, d.n.path)
}

// readChunked decodes the chunks that sel touches into one row-major
// buffer of the whole dataset. Unallocated chunks read as zeros. The
// caller holds f.mu and has validated sel.
func (d *Dataset) readChunked(st *storage, sel Hyperslab) ([]byte, error) {
	f := d.n.file
	pipeline, err := filter.NewPipeline(d.n.hdr.FilterPipeline())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupported, d.n.path, err)
	}
	chunks, err := d.chunks(st)
	if err != nil {
		return nil, err
	}

	total := st.elemSize
	for _, n := range st.dims {
		total *= n
	}
	out := make([]byte, total)
	chunkBytes := st.layout.ChunkSize(st.elemSize)
	var decoded int
	for _, c := range chunks {
		if !sel.touches(c.Offset, st.layout.ChunkDims) {
			continue
		}
		decoded++
		raw := make([]byte, c.Size)
		if _, err := f.data.ReadAt(raw, int64(c.Address)); err != nil {
			return nil, fmt.Errorf("reading chunk %v of %s: %w", c.Offset, d.n.path, err)
		}
		data, err := pipeline.Decode(raw, c.FilterMask)
		if err != nil {
			return nil, fmt.Errorf("decoding chunk %v of %s: %w", c.Offset, d.n.path, err)
		}
		if uint64(len(data)) < chunkBytes {
			return nil, fmt.Errorf("%w: chunk %v of %s decodes to %d bytes, expected %d", ErrSize, c.Offset, d.n.path, len(data), chunkBytes)
		}
		copyChunk(out, data, st.dims, st.layout.ChunkDims, c.Offset, st.elemSize)
	}
	f.log.WithFields(logrus.Fields{
		"dataset": d.n.path,
		"chunks":  decoded,
		"filters": pipeline.Len(),
	}).Debug("read chunked data")
	return out, nil
}

// touches reports whether the bounding box of h meets the chunk of the
// given dims at offset.
func (h Hyperslab) touches(offset, chunkDims []uint64) bool {
	for d := range offset {
		if h.Count[d] == 0 {
			return false
		}
		lo := h.Start[d]
		hi := lo + (h.Count[d]-1)*h.stride(d) + h.block(d)
		if offset[d] >= hi || offset[d]+chunkDims[d] <= lo {
			return false
		}
	}
	return true
}

// eachChunk calls fn with the offset of every chunk of the grid covering
// dims, in row-major order.
func eachChunk(dims, chunkDims []uint64, fn func(offset []uint64)) {
	for _, n := range dims {
		if n == 0 {
			return
		}
	}
	pos := make([]uint64, len(dims))
	for {
		fn(append([]uint64(nil), pos...))
		k := len(dims) - 1
		for ; k >= 0; k-- {
			pos[k] += chunkDims[k]
			if pos[k] < dims[k] {
				break
			}
			pos[k] = 0
		}
		if k < 0 {
			return
		}
	}
}

// copyChunk places a decoded chunk whose first element sits at offset into
// dst, the row-major buffer of a dataset with the given dims. The parts of
// edge chunks outside the dataset are dropped.
func copyChunk(dst, chunk []byte, dims, chunkDims, offset []uint64, elemSize uint64) {
	last := len(dims) - 1
	if offset[last] >= dims[last] {
		return
	}
	row := chunkDims[last]
	if rem := dims[last] - offset[last]; rem < row {
		row = rem
	}

	idx := make([]uint64, len(dims))
	for {
		var src, at uint64
		inside := true
		for k := range dims {
			coord := offset[k] + idx[k]
			if coord >= dims[k] {
				inside = false
				break
			}
			src = src*chunkDims[k] + idx[k]
			at = at*dims[k] + coord
		}
		if inside {
			copy(dst[at*elemSize:(at+row)*elemSize], chunk[src*elemSize:])
		}

		k := last - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < chunkDims[k] {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return
		}
	}
}
