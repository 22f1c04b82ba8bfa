package btree

import (
	"fmt"

	"github.com/robert-malhotra/h5records/internal/binary"
)

// Chunk is one stored chunk of a chunked dataset.
type Chunk struct {
	// Offset is the element coordinate of the chunk's first element.
	Offset []uint64

	// Size is the stored, possibly filtered, size in bytes.
	Size uint32

	// FilterMask has bit i set when filter i was not applied.
	FilterMask uint32

	Address uint64
}

// ReadChunks returns every allocated chunk indexed by the B-tree at addr
// for a dataset of the given rank.
func ReadChunks(r *binary.Reader, addr uint64, rank int) ([]Chunk, error) {
	var out []Chunk
	err := walkChunks(r, addr, rank, 0, func(c Chunk) { out = append(out, c) })
	return out, err
}

func walkChunks(r *binary.Reader, addr uint64, rank, depth int, fn func(Chunk)) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: chunk tree deeper than %d", ErrInvalidNode, maxDepth)
	}
	n, err := readNode(r, addr, nodeChunk)
	if err != nil {
		return err
	}
	undefined := r.Config().Undefined()
	for i := 0; i < n.entries; i++ {
		key, err := readChunkKey(n.r, rank)
		if err != nil {
			return fmt.Errorf("B-tree node at %d key %d: %w", addr, i, err)
		}
		child, err := n.r.ReadOffset()
		if err != nil {
			return err
		}
		if n.level > 0 {
			if err := walkChunks(r, child, rank, depth+1, fn); err != nil {
				return err
			}
			continue
		}
		if child == undefined || key.Size == 0 {
			continue
		}
		key.Address = child
		fn(key)
	}
	return nil
}

// readChunkKey decodes a chunk key: size, filter mask and rank+1 offsets,
// the last of which is always zero.
func readChunkKey(r *binary.Reader, rank int) (Chunk, error) {
	var c Chunk
	var err error
	if c.Size, err = r.ReadUint32(); err != nil {
		return c, err
	}
	if c.FilterMask, err = r.ReadUint32(); err != nil {
		return c, err
	}
	c.Offset = make([]uint64, rank)
	for i := range c.Offset {
		if c.Offset[i], err = r.ReadUint64(); err != nil {
			return c, err
		}
	}
	_, err = r.ReadUint64()
	return c, err
}
