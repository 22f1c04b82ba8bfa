package message

import (
	binpkg "github.com/robert-malhotra/h5records/internal/binary"
)

// LinkInfo is the link info message (0x0002) of a new-style group. A defined
// FractalHeap address means links live in dense storage rather than in the
// header.
type LinkInfo struct {
	Flags         uint8
	MaxCreation   uint64
	FractalHeap   uint64
	NameIndex     uint64
	CreationIndex uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// NewLinkInfo returns link info for a group with compact storage only.
func NewLinkInfo() *LinkInfo {
	return &LinkInfo{FractalHeap: ^uint64(0), NameIndex: ^uint64(0)}
}

// Dense reports whether links are held in a fractal heap.
func (m *LinkInfo) Dense() bool { return m.FractalHeap != ^uint64(0) }

func parseLinkInfo(data []byte, cfg binpkg.Config) (*LinkInfo, error) {
	c := &cursor{data: data}
	head, err := c.bytes(2)
	if err != nil {
		return nil, err
	}
	m := &LinkInfo{Flags: head[1], CreationIndex: ^uint64(0)}
	if m.Flags&0x01 != 0 {
		if m.MaxCreation, err = c.uint(8); err != nil {
			return nil, err
		}
	}
	if m.FractalHeap, err = c.uint(cfg.OffsetSize); err != nil {
		return nil, err
	}
	if m.NameIndex, err = c.uint(cfg.OffsetSize); err != nil {
		return nil, err
	}
	if m.Flags&0x02 != 0 {
		if m.CreationIndex, err = c.uint(cfg.OffsetSize); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *LinkInfo) Encode(w *binpkg.Writer) error {
	if err := w.WriteBytes([]byte{0, m.Flags}); err != nil {
		return err
	}
	if m.Flags&0x01 != 0 {
		if err := w.WriteUint64(m.MaxCreation); err != nil {
			return err
		}
	}
	if err := w.WriteOffset(m.FractalHeap); err != nil {
		return err
	}
	if err := w.WriteOffset(m.NameIndex); err != nil {
		return err
	}
	if m.Flags&0x02 != 0 {
		return w.WriteOffset(m.CreationIndex)
	}
	return nil
}

func (m *LinkInfo) EncodedSize(cfg binpkg.Config) int {
	n := 2 + 2*cfg.OffsetSize
	if m.Flags&0x01 != 0 {
		n += 8
	}
	if m.Flags&0x02 != 0 {
		n += cfg.OffsetSize
	}
	return n
}

// GroupInfo is the group info message (0x000A). Groups written here use the
// library defaults, so no optional fields are stored.
type GroupInfo struct{}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

func (m *GroupInfo) Encode(w *binpkg.Writer) error { return w.WriteBytes([]byte{0, 0}) }

func (m *GroupInfo) EncodedSize(binpkg.Config) int { return 2 }
