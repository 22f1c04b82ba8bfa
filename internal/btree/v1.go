package btree

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5records/internal/binary"
)

const (
	treeSignature   = "TREE"
	symbolSignature = "SNOD"

	nodeGroup = 0
	nodeChunk = 1

	// maxDepth bounds the height of a tree, guarding against cycles.
	maxDepth = 32
)

var ErrInvalidNode = errors.New("invalid B-tree node")

// node is the fixed part of a v1 B-tree node.
type node struct {
	level   uint8
	entries int
	r       *binary.Reader // positioned at the first key
}

func readNode(r *binary.Reader, addr uint64, kind uint8) (*node, error) {
	nr := r.At(int64(addr))
	head, err := nr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("reading B-tree node at %d: %w", addr, err)
	}
	if string(head[:4]) != treeSignature {
		return nil, fmt.Errorf("%w: no signature at %d", ErrInvalidNode, addr)
	}
	if head[4] != kind {
		return nil, fmt.Errorf("%w: node type %d at %d, expected %d", ErrInvalidNode, head[4], addr, kind)
	}
	nr.Skip(int64(2 * r.OffsetSize())) // siblings
	return &node{
		level:   head[5],
		entries: int(binary.DecodeUint(head[6:], 2)),
		r:       nr,
	}, nil
}
