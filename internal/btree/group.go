package btree

import (
	"fmt"

	"github.com/robert-malhotra/h5records/internal/binary"
	"github.com/robert-malhotra/h5records/internal/heap"
)

// cacheSoftLink is the cache type of a symbol table entry whose scratch
// pad holds the heap offset of a soft link target.
const cacheSoftLink = 2

// GroupEntry is one member of a legacy group.
type GroupEntry struct {
	Name    string
	Address uint64

	// Soft links carry their target path instead of an address.
	Soft   bool
	Target string
}

// ReadGroup returns the members of the group indexed by the B-tree at
// addr, in name order.
func ReadGroup(r *binary.Reader, addr uint64, names *heap.LocalHeap) ([]GroupEntry, error) {
	var out []GroupEntry
	err := walkGroup(r, addr, names, 0, func(e GroupEntry) { out = append(out, e) })
	return out, err
}

func walkGroup(r *binary.Reader, addr uint64, names *heap.LocalHeap, depth int, fn func(GroupEntry)) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: group tree deeper than %d", ErrInvalidNode, maxDepth)
	}
	n, err := readNode(r, addr, nodeGroup)
	if err != nil {
		return err
	}
	for i := 0; i < n.entries; i++ {
		// Keys are heap offsets of the largest name below each child.
		if _, err := n.r.ReadLength(); err != nil {
			return err
		}
		child, err := n.r.ReadOffset()
		if err != nil {
			return err
		}
		if n.level > 0 {
			err = walkGroup(r, child, names, depth+1, fn)
		} else {
			err = readSymbolNode(r, child, names, fn)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readSymbolNode reads the entries of one symbol table node.
func readSymbolNode(r *binary.Reader, addr uint64, names *heap.LocalHeap, fn func(GroupEntry)) error {
	sr := r.At(int64(addr))
	head, err := sr.ReadBytes(8)
	if err != nil {
		return fmt.Errorf("reading symbol node at %d: %w", addr, err)
	}
	if string(head[:4]) != symbolSignature {
		return fmt.Errorf("%w: no symbol node signature at %d", ErrInvalidNode, addr)
	}
	if head[4] != 1 {
		return fmt.Errorf("%w: symbol node version %d", ErrInvalidNode, head[4])
	}
	count := int(binary.DecodeUint(head[6:], 2))
	for i := 0; i < count; i++ {
		e, err := readEntry(sr, names)
		if err != nil {
			return fmt.Errorf("symbol node at %d entry %d: %w", addr, i, err)
		}
		fn(e)
	}
	return nil
}

// readEntry decodes a symbol table entry: name offset, header address,
// cache type, four reserved bytes and a 16-byte scratch pad.
func readEntry(r *binary.Reader, names *heap.LocalHeap) (GroupEntry, error) {
	var e GroupEntry
	nameOff, err := r.ReadOffset()
	if err != nil {
		return e, err
	}
	if e.Address, err = r.ReadOffset(); err != nil {
		return e, err
	}
	cache, err := r.ReadUint32()
	if err != nil {
		return e, err
	}
	r.Skip(4)
	scratch, err := r.ReadBytes(16)
	if err != nil {
		return e, err
	}
	if e.Name, err = names.String(nameOff); err != nil {
		return e, err
	}
	if cache == cacheSoftLink {
		e.Soft = true
		e.Target, err = names.String(binary.DecodeUint(scratch, 4))
	}
	return e, err
}
