package message

import (
	"errors"
	"fmt"

	binpkg "github.com/robert-malhotra/h5records/internal/binary"
)

// Type identifies a header message.
type Type uint16

const (
	TypeNIL            Type = 0x0000
	TypeDataspace      Type = 0x0001
	TypeLinkInfo       Type = 0x0002
	TypeDatatype       Type = 0x0003
	TypeFillValue      Type = 0x0005
	TypeLink           Type = 0x0006
	TypeDataLayout     Type = 0x0008
	TypeGroupInfo      Type = 0x000A
	TypeFilterPipeline Type = 0x000B
	TypeAttribute      Type = 0x000C
	TypeContinuation   Type = 0x0010
	TypeSymbolTable    Type = 0x0011
	TypeAttributeInfo  Type = 0x0015
)

func (t Type) String() string {
	switch t {
	case TypeNIL:
		return "nil"
	case TypeDataspace:
		return "dataspace"
	case TypeLinkInfo:
		return "link-info"
	case TypeDatatype:
		return "datatype"
	case TypeFillValue:
		return "fill-value"
	case TypeLink:
		return "link"
	case TypeDataLayout:
		return "layout"
	case TypeGroupInfo:
		return "group-info"
	case TypeFilterPipeline:
		return "filter-pipeline"
	case TypeAttribute:
		return "attribute"
	case TypeContinuation:
		return "continuation"
	case TypeSymbolTable:
		return "symbol-table"
	case TypeAttributeInfo:
		return "attribute-info"
	}
	return fmt.Sprintf("message(0x%04x)", uint16(t))
}

// ErrTruncated is returned when a message body ends before its fields do.
var ErrTruncated = errors.New("message truncated")

// Message is a decoded header message.
type Message interface {
	Type() Type
}

// Encoder is implemented by messages that can be written back to a header.
type Encoder interface {
	Message
	Encode(w *binpkg.Writer) error
	EncodedSize(cfg binpkg.Config) int
}

// Parse decodes the body of a header message.
func Parse(typ Type, data []byte, cfg binpkg.Config) (Message, error) {
	var (
		msg Message
		err error
	)
	switch typ {
	case TypeDataspace:
		msg, err = parseDataspace(data, cfg)
	case TypeDatatype:
		msg, _, err = decodeDatatype(data)
	case TypeDataLayout:
		msg, err = parseDataLayout(data, cfg)
	case TypeFillValue:
		msg, err = parseFillValue(data)
	case TypeAttribute:
		msg, err = parseAttribute(data, cfg)
	case TypeLink:
		msg, err = parseLink(data, cfg)
	case TypeLinkInfo:
		msg, err = parseLinkInfo(data, cfg)
	case TypeContinuation:
		msg, err = parseContinuation(data, cfg)
	case TypeSymbolTable:
		msg, err = parseSymbolTable(data, cfg)
	case TypeFilterPipeline:
		msg, err = parseFilterPipeline(data)
	default:
		return &Unknown{typ: typ, Data: data}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s message: %w", typ, err)
	}
	return msg, nil
}

// Unknown carries a message this package does not interpret. It is written
// back verbatim when its header is rewritten.
type Unknown struct {
	typ  Type
	Data []byte
}

// NewUnknown wraps an uninterpreted message body.
func NewUnknown(typ Type, data []byte) *Unknown {
	return &Unknown{typ: typ, Data: data}
}

func (m *Unknown) Type() Type { return m.typ }

func (m *Unknown) Encode(w *binpkg.Writer) error { return w.WriteBytes(m.Data) }

func (m *Unknown) EncodedSize(binpkg.Config) int { return len(m.Data) }

// Continuation points at a further block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeContinuation }

func parseContinuation(data []byte, cfg binpkg.Config) (*Continuation, error) {
	o := cfg.OffsetSize
	if len(data) < o+cfg.LengthSize {
		return nil, ErrTruncated
	}
	return &Continuation{
		Offset: binpkg.DecodeUint(data, o),
		Length: binpkg.DecodeUint(data[o:], cfg.LengthSize),
	}, nil
}

// cursor walks a message body.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) need(n int) error {
	if c.pos+n > len(c.data) {
		return ErrTruncated
	}
	return nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) uint(n int) (uint64, error) {
	b, err := c.bytes(n)
	if err != nil {
		return 0, err
	}
	return binpkg.DecodeUint(b, n), nil
}

func (c *cursor) byte() (byte, error) {
	v, err := c.uint(1)
	return byte(v), err
}

// cstring reads a NUL-terminated string; the terminator is consumed.
func (c *cursor) cstring() (string, error) {
	for i := c.pos; i < len(c.data); i++ {
		if c.data[i] == 0 {
			s := string(c.data[c.pos:i])
			c.pos = i + 1
			return s, nil
		}
	}
	return "", ErrTruncated
}

func (c *cursor) align(n int) {
	if rem := c.pos % n; rem != 0 {
		c.pos += n - rem
	}
}

func (c *cursor) rest() []byte {
	if c.pos >= len(c.data) {
		return nil
	}
	return c.data[c.pos:]
}
