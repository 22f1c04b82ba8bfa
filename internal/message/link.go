package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5records/internal/binary"
)

// LinkType distinguishes hard links from symbolic ones.
type LinkType uint8

const (
	LinkHard     LinkType = 0
	LinkSoft     LinkType = 1
	LinkExternal LinkType = 64
)

// Link is the link message (0x0006): one named member of a group.
type Link struct {
	LinkType LinkType
	Name     string
	Charset  CharacterSet
	Address  uint64 // hard links
	Target   string // soft links
}

func (m *Link) Type() Type { return TypeLink }

// NewHardLink returns a link naming the object header at addr.
func NewHardLink(name string, addr uint64) *Link {
	return &Link{LinkType: LinkHard, Name: name, Address: addr}
}

// IsHard reports whether the link points directly at an object header.
func (m *Link) IsHard() bool { return m.LinkType == LinkHard }

func parseLink(data []byte, cfg binpkg.Config) (*Link, error) {
	c := &cursor{data: data}
	head, err := c.bytes(2)
	if err != nil {
		return nil, err
	}
	if head[0] != 1 {
		return nil, fmt.Errorf("link version %d not supported", head[0])
	}
	flags := head[1]
	link := &Link{}

	if flags&0x08 != 0 {
		t, err := c.byte()
		if err != nil {
			return nil, err
		}
		link.LinkType = LinkType(t)
	}
	if flags&0x04 != 0 {
		if _, err := c.bytes(8); err != nil { // creation order
			return nil, err
		}
	}
	if flags&0x10 != 0 {
		cs, err := c.byte()
		if err != nil {
			return nil, err
		}
		link.Charset = CharacterSet(cs)
	}

	n, err := c.uint(1 << (flags & 0x03))
	if err != nil {
		return nil, err
	}
	name, err := c.bytes(int(n))
	if err != nil {
		return nil, err
	}
	link.Name = string(name)

	switch link.LinkType {
	case LinkHard:
		link.Address, err = c.uint(cfg.OffsetSize)
	case LinkSoft:
		var n uint64
		if n, err = c.uint(2); err == nil {
			var target []byte
			target, err = c.bytes(int(n))
			link.Target = string(target)
		}
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func nameLengthWidth(n int) (int, uint8) {
	switch {
	case n <= 0xFF:
		return 1, 0
	case n <= 0xFFFF:
		return 2, 1
	}
	return 4, 2
}

// Encode writes a version 1 link. Only hard links are written.
func (m *Link) Encode(w *binpkg.Writer) error {
	if m.LinkType != LinkHard {
		return fmt.Errorf("writing %d links not supported", m.LinkType)
	}
	width, bits := nameLengthWidth(len(m.Name))
	b := []byte{1, bits}
	if m.Charset != CharsetASCII {
		b[1] |= 0x10
		b = append(b, byte(m.Charset))
	}
	b = appendUint(b, uint64(len(m.Name)), width)
	b = append(b, m.Name...)
	if err := w.WriteBytes(b); err != nil {
		return err
	}
	return w.WriteOffset(m.Address)
}

func (m *Link) EncodedSize(cfg binpkg.Config) int {
	width, _ := nameLengthWidth(len(m.Name))
	n := 2 + width + len(m.Name) + cfg.OffsetSize
	if m.Charset != CharsetASCII {
		n++
	}
	return n
}
