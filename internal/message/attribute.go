package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5records/internal/binary"
)

// Attribute is the attribute message (0x000C): a small named value stored
// in an object header.
type Attribute struct {
	Name      string
	Charset   CharacterSet
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

// NewAttribute returns an attribute message. Names that are not plain ASCII
// are flagged as UTF-8.
func NewAttribute(name string, dt *Datatype, ds *Dataspace, data []byte) *Attribute {
	cs := CharsetASCII
	for i := 0; i < len(name); i++ {
		if name[i] >= 0x80 {
			cs = CharsetUTF8
			break
		}
	}
	return &Attribute{Name: name, Charset: cs, Datatype: dt, Dataspace: ds, Data: data}
}

func parseAttribute(data []byte, cfg binpkg.Config) (*Attribute, error) {
	c := &cursor{data: data}
	head, err := c.bytes(8)
	if err != nil {
		return nil, err
	}
	version := head[0]
	nameSize := int(binpkg.DecodeUint(head[2:], 2))
	dtSize := int(binpkg.DecodeUint(head[4:], 2))
	dsSize := int(binpkg.DecodeUint(head[6:], 2))
	if version < 1 || version > 3 {
		return nil, fmt.Errorf("attribute version %d not supported", version)
	}
	if head[1]&0x03 != 0 {
		return nil, fmt.Errorf("shared attribute datatype or dataspace not supported")
	}

	attr := &Attribute{}
	if version == 3 {
		cs, err := c.byte()
		if err != nil {
			return nil, err
		}
		attr.Charset = CharacterSet(cs)
	}

	// Version 1 pads each field to eight bytes.
	field := func(n int) ([]byte, error) {
		b, err := c.bytes(n)
		if err == nil && version == 1 {
			c.pos = align8(c.pos)
		}
		return b, err
	}

	name, err := field(nameSize)
	if err != nil {
		return nil, err
	}
	for i, ch := range name {
		if ch == 0 {
			name = name[:i]
			break
		}
	}
	attr.Name = string(name)

	raw, err := field(dtSize)
	if err != nil {
		return nil, err
	}
	if attr.Datatype, _, err = decodeDatatype(raw); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
	}
	if raw, err = field(dsSize); err != nil {
		return nil, err
	}
	if attr.Dataspace, err = parseDataspace(raw, cfg); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
	}
	attr.Data = append([]byte(nil), c.rest()...)
	return attr, nil
}

// Encode writes a version 3 attribute message.
func (m *Attribute) Encode(w *binpkg.Writer) error {
	dt := m.Datatype.appendTo(nil)
	head := []byte{3, 0}
	head = appendUint(head, uint64(len(m.Name)+1), 2)
	head = appendUint(head, uint64(len(dt)), 2)
	head = appendUint(head, uint64(m.Dataspace.EncodedSize(w.Config())), 2)
	head = append(head, byte(m.Charset))
	head = append(head, m.Name...)
	head = append(head, 0)
	head = append(head, dt...)
	if err := w.WriteBytes(head); err != nil {
		return err
	}
	if err := m.Dataspace.Encode(w); err != nil {
		return err
	}
	return w.WriteBytes(m.Data)
}

func (m *Attribute) EncodedSize(cfg binpkg.Config) int {
	return 9 + len(m.Name) + 1 + m.Datatype.EncodedSize(cfg) + m.Dataspace.EncodedSize(cfg) + len(m.Data)
}
