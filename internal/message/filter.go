package message

import (
	"bytes"
	"fmt"

	binpkg "github.com/robert-malhotra/h5records/internal/binary"
)

// Filter identifiers registered with the format.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
)

// FilterInfo is one stage of a filter pipeline.
type FilterInfo struct {
	ID         uint16
	Name       string
	Flags      uint16
	ClientData []uint32
}

// Optional reports whether a chunk may skip the filter when it fails.
func (f FilterInfo) Optional() bool { return f.Flags&0x01 != 0 }

// FilterPipeline is the filter pipeline message (0x000B): the filters
// applied to each chunk on write, in order.
type FilterPipeline struct {
	Version uint8
	Filters []FilterInfo

	raw []byte
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

func parseFilterPipeline(data []byte) (*FilterPipeline, error) {
	c := &cursor{data: data}
	head, err := c.bytes(2)
	if err != nil {
		return nil, err
	}
	m := &FilterPipeline{Version: head[0], raw: append([]byte(nil), data...)}
	switch m.Version {
	case 1:
		if _, err := c.bytes(6); err != nil {
			return nil, err
		}
	case 2:
	default:
		return nil, fmt.Errorf("filter pipeline version %d not supported", m.Version)
	}

	for i := 0; i < int(head[1]); i++ {
		f, err := m.parseFilter(c)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		m.Filters = append(m.Filters, f)
	}
	return m, nil
}

func (m *FilterPipeline) parseFilter(c *cursor) (FilterInfo, error) {
	var f FilterInfo
	id, err := c.uint(2)
	if err != nil {
		return f, err
	}
	f.ID = uint16(id)

	var nameLen uint64
	if m.Version == 1 || f.ID >= 256 {
		if nameLen, err = c.uint(2); err != nil {
			return f, err
		}
	}
	flags, err := c.uint(2)
	if err != nil {
		return f, err
	}
	f.Flags = uint16(flags)
	nvalues, err := c.uint(2)
	if err != nil {
		return f, err
	}
	if nameLen > 0 {
		name, err := c.bytes(int(nameLen))
		if err != nil {
			return f, err
		}
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		f.Name = string(name)
		if m.Version == 1 {
			c.align(8)
		}
	}
	for j := uint64(0); j < nvalues; j++ {
		v, err := c.uint(4)
		if err != nil {
			return f, err
		}
		f.ClientData = append(f.ClientData, uint32(v))
	}
	if m.Version == 1 && nvalues%2 == 1 {
		if _, err := c.bytes(4); err != nil {
			return f, err
		}
	}
	return f, nil
}

// Encode writes the pipeline back as it was read.
func (m *FilterPipeline) Encode(w *binpkg.Writer) error { return w.WriteBytes(m.raw) }

func (m *FilterPipeline) EncodedSize(binpkg.Config) int { return len(m.raw) }
