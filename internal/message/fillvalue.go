package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5records/internal/binary"
)

// Space allocation and fill write times stored in the fill value flags.
const (
	AllocEarly     = 1
	AllocLate      = 2
	FillWriteIfSet = 2
)

// FillValue is the fill value message (0x0005).
type FillValue struct {
	AllocTime uint8
	WriteTime uint8
	Defined   bool
	Value     []byte
}

func (m *FillValue) Type() Type { return TypeFillValue }

// NewFillValue describes storage allocated when the dataset is created with
// the library default (zero) fill.
func NewFillValue() *FillValue {
	return &FillValue{AllocTime: AllocEarly, WriteTime: FillWriteIfSet}
}

func parseFillValue(data []byte) (*FillValue, error) {
	c := &cursor{data: data}
	head, err := c.bytes(2)
	if err != nil {
		return nil, err
	}
	m := &FillValue{}
	switch head[0] {
	case 1, 2:
		rest, err := c.bytes(2)
		if err != nil {
			return nil, err
		}
		m.AllocTime, m.WriteTime, m.Defined = head[1], rest[0], rest[1] != 0
		if m.Defined || head[0] == 1 {
			n, err := c.uint(4)
			if err != nil {
				return nil, err
			}
			v, err := c.bytes(int(n))
			if err != nil {
				return nil, err
			}
			m.Value = append([]byte(nil), v...)
		}
	case 3:
		flags := head[1]
		m.AllocTime = flags & 0x03
		m.WriteTime = flags >> 2 & 0x03
		m.Defined = flags&0x20 != 0
		if m.Defined {
			n, err := c.uint(4)
			if err != nil {
				return nil, err
			}
			v, err := c.bytes(int(n))
			if err != nil {
				return nil, err
			}
			m.Value = append([]byte(nil), v...)
		}
	default:
		return nil, fmt.Errorf("fill value version %d not supported", head[0])
	}
	return m, nil
}

// Encode writes a version 3 fill value message.
func (m *FillValue) Encode(w *binpkg.Writer) error {
	flags := m.AllocTime&0x03 | (m.WriteTime&0x03)<<2
	if !m.Defined {
		return w.WriteBytes([]byte{3, flags})
	}
	b := []byte{3, flags | 0x20}
	b = appendUint(b, uint64(len(m.Value)), 4)
	return w.WriteBytes(append(b, m.Value...))
}

func (m *FillValue) EncodedSize(binpkg.Config) int {
	if !m.Defined {
		return 2
	}
	return 6 + len(m.Value)
}
