package alloc

import (
	"fmt"
	"sort"
	"sync"
)

// Kind classifies what an allocated block holds.
type Kind uint8

const (
	KindHeader Kind = iota // object header
	KindData               // contiguous dataset storage
	KindHeap               // global heap collection
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindData:
		return "data"
	case KindHeap:
		return "heap"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Block is one allocated or abandoned region.
type Block struct {
	Addr uint64
	Size uint64
	Kind Kind
}

// Stats summarises the allocator's history.
type Stats struct {
	Allocations uint64
	Bytes       [numKinds]uint64
	Abandoned   uint64 // bytes of blocks superseded by a relocation
}

// Total returns the number of bytes handed out across all kinds.
func (s Stats) Total() uint64 {
	var n uint64
	for _, b := range s.Bytes {
		n += b
	}
	return n
}

// Allocator hands out file space by bumping the end-of-file address.
// Space is never reused; blocks that a rewrite makes unreachable are
// recorded through Abandon so the waste stays visible.
type Allocator struct {
	mu        sync.Mutex
	base, eof uint64
	blocks    []Block
	stats     Stats
}

// New returns an allocator whose first block starts at base.
func New(base uint64) *Allocator {
	return &Allocator{base: base, eof: base}
}

// Alloc reserves size bytes at the end of the file and returns the address.
// Blocks are 8-byte aligned.
func (a *Allocator) Alloc(size uint64, kind Kind) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := (a.eof + 7) &^ 7
	if size == 0 {
		return addr
	}
	a.eof = addr + size
	a.blocks = append(a.blocks, Block{Addr: addr, Size: size, Kind: kind})
	a.stats.Allocations++
	a.stats.Bytes[kind] += size
	return addr
}

// Abandon records that the block at addr is no longer referenced.
func (a *Allocator) Abandon(addr, size uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Abandoned += size
}

// EOF returns the current end-of-file address.
func (a *Allocator) EOF() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eof
}

// Stats returns a snapshot of the allocation counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Validate checks that every block lies in [base, eof) and that no two
// blocks overlap.
func (a *Allocator) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	blocks := append([]Block(nil), a.blocks...)
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Addr < blocks[j].Addr })
	for i, b := range blocks {
		if b.Addr < a.base || b.Addr+b.Size > a.eof {
			return fmt.Errorf("%s block 0x%x+%d outside [0x%x, 0x%x)", b.Kind, b.Addr, b.Size, a.base, a.eof)
		}
		if i > 0 {
			prev := blocks[i-1]
			if prev.Addr+prev.Size > b.Addr {
				return fmt.Errorf("%s block 0x%x+%d overlaps %s block 0x%x", prev.Kind, prev.Addr, prev.Size, b.Kind, b.Addr)
			}
		}
	}
	return nil
}
