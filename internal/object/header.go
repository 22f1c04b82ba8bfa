package object

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5records/internal/binary"
	"github.com/robert-malhotra/h5records/internal/message"
)

const (
	signature             = "OHDR"
	continuationSignature = "OCHK"

	// messageHeaderSize is type, size and flags of one message.
	messageHeaderSize = 4

	// MaxMessageSize is the largest message body a header can carry.
	MaxMessageSize = 0xFFFF

	// MinGroupChunkSize matches the first chunk the reference library
	// reserves for a new group.
	MinGroupChunkSize = 120
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksum           = errors.New("object header checksum mismatch")
	ErrMessageTooLarge    = errors.New("header message too large")
)

// Block is a region of the file occupied by part of a header.
type Block struct {
	Addr uint64
	Size uint64
}

// Header is a decoded object header.
type Header struct {
	Address  uint64
	Version  uint8
	Flags    uint8
	Messages []message.Message

	// ChunkSize is the message capacity of the first chunk.
	ChunkSize int

	// Chunk is the first chunk; Continuations are any further blocks.
	Chunk         Block
	Continuations []Block
}

// Read decodes the object header at addr.
func Read(r *binary.Reader, addr uint64) (*Header, error) {
	hr := r.At(int64(addr))
	prefix, err := hr.ReadBytes(6)
	if err != nil {
		return nil, fmt.Errorf("reading object header at %d: %w", addr, err)
	}
	if string(prefix[:4]) != signature {
		if prefix[0] == 1 {
			return readV1(r, addr)
		}
		return nil, fmt.Errorf("%w: no signature at %d", ErrInvalidHeader, addr)
	}
	if prefix[4] != 2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, prefix[4])
	}
	flags := prefix[5]

	skip := 0
	if flags&0x20 != 0 {
		skip += 16 // access, modification, change and birth times
	}
	if flags&0x10 != 0 {
		skip += 4 // attribute phase change values
	}
	width := 1 << (flags & 0x03)
	rest, err := hr.ReadBytes(skip + width)
	if err != nil {
		return nil, err
	}
	chunkSize := binary.DecodeUint(rest[skip:], width)
	body, err := hr.ReadBytes(int(chunkSize) + 4)
	if err != nil {
		return nil, fmt.Errorf("reading object header at %d: %w", addr, err)
	}

	sum := make([]byte, 0, len(prefix)+len(rest)+int(chunkSize))
	sum = append(append(append(sum, prefix...), rest...), body[:chunkSize]...)
	if !binary.VerifyLookup3(sum, uint32(binary.DecodeUint(body[chunkSize:], 4))) {
		return nil, fmt.Errorf("%w at %d", ErrChecksum, addr)
	}

	h := &Header{
		Address:   addr,
		Version:   2,
		Flags:     flags,
		ChunkSize: int(chunkSize),
		Chunk:     Block{Addr: addr, Size: uint64(len(sum) + 4)},
	}
	if err := h.parseMessages(r, body[:chunkSize], 0); err != nil {
		return nil, fmt.Errorf("object header at %d: %w", addr, err)
	}
	return h, nil
}

// maxContinuationDepth bounds chains of continuation blocks.
const maxContinuationDepth = 64

func (h *Header) parseMessages(r *binary.Reader, chunk []byte, depth int) error {
	if h.Version == 1 {
		return h.parseV1Messages(r, chunk, depth)
	}
	for pos := 0; pos+messageHeaderSize <= len(chunk); {
		typ := message.Type(chunk[pos])
		size := int(binary.DecodeUint(chunk[pos+1:], 2))
		flags := chunk[pos+3]
		pos += messageHeaderSize
		if h.Flags&0x04 != 0 {
			pos += 2 // creation order
		}
		if pos+size > len(chunk) {
			return fmt.Errorf("%w: %s message overruns chunk", ErrInvalidHeader, typ)
		}
		data := chunk[pos : pos+size]
		pos += size

		if typ == message.TypeNIL {
			continue
		}
		if flags&0x02 != 0 {
			// Shared messages point into the shared message table, which
			// is not read.
			h.Messages = append(h.Messages, message.NewUnknown(typ, data))
			continue
		}
		if err := h.addMessage(r, typ, data, depth); err != nil {
			return err
		}
	}
	return nil
}

// addMessage decodes one message body, following continuations.
func (h *Header) addMessage(r *binary.Reader, typ message.Type, data []byte, depth int) error {
	msg, err := message.Parse(typ, data, r.Config())
	if err != nil {
		return err
	}
	if cont, ok := msg.(*message.Continuation); ok {
		if depth >= maxContinuationDepth {
			return fmt.Errorf("%w: continuation chain too deep", ErrInvalidHeader)
		}
		return h.readContinuation(r, cont, depth+1)
	}
	h.Messages = append(h.Messages, msg)
	return nil
}

func (h *Header) readContinuation(r *binary.Reader, cont *message.Continuation, depth int) error {
	if cont.Length < 8 {
		return fmt.Errorf("%w: continuation block of %d bytes", ErrInvalidHeader, cont.Length)
	}
	block, err := r.At(int64(cont.Offset)).ReadBytes(int(cont.Length))
	if err != nil {
		return fmt.Errorf("reading continuation at %d: %w", cont.Offset, err)
	}
	if h.Version == 1 {
		// Version 1 continuation blocks are bare messages.
		h.Continuations = append(h.Continuations, Block{Addr: cont.Offset, Size: cont.Length})
		return h.parseMessages(r, block, depth)
	}
	if string(block[:4]) != continuationSignature {
		return fmt.Errorf("%w: no continuation signature at %d", ErrInvalidHeader, cont.Offset)
	}
	n := len(block) - 4
	if !binary.VerifyLookup3(block[:n], uint32(binary.DecodeUint(block[n:], 4))) {
		return fmt.Errorf("%w in continuation at %d", ErrChecksum, cont.Offset)
	}
	h.Continuations = append(h.Continuations, Block{Addr: cont.Offset, Size: cont.Length})
	return h.parseMessages(r, block[4:n], depth)
}

// Blocks returns every block the header occupies.
func (h *Header) Blocks() []Block {
	return append([]Block{h.Chunk}, h.Continuations...)
}

// Message returns the first message of the given type, or nil.
func (h *Header) Message(typ message.Type) message.Message {
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			return msg
		}
	}
	return nil
}

// MessagesOf returns all messages of the given type in header order.
func (h *Header) MessagesOf(typ message.Type) []message.Message {
	var out []message.Message
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			out = append(out, msg)
		}
	}
	return out
}

func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.Message(message.TypeDataspace).(*message.Dataspace)
	return m
}

func (h *Header) Datatype() *message.Datatype {
	m, _ := h.Message(message.TypeDatatype).(*message.Datatype)
	return m
}

func (h *Header) DataLayout() *message.DataLayout {
	m, _ := h.Message(message.TypeDataLayout).(*message.DataLayout)
	return m
}

func (h *Header) SymbolTable() *message.SymbolTable {
	m, _ := h.Message(message.TypeSymbolTable).(*message.SymbolTable)
	return m
}

func (h *Header) FilterPipeline() *message.FilterPipeline {
	m, _ := h.Message(message.TypeFilterPipeline).(*message.FilterPipeline)
	return m
}

func (h *Header) LinkInfo() *message.LinkInfo {
	m, _ := h.Message(message.TypeLinkInfo).(*message.LinkInfo)
	return m
}

// Links returns the link messages in header order.
func (h *Header) Links() []*message.Link {
	var out []*message.Link
	for _, msg := range h.Messages {
		if l, ok := msg.(*message.Link); ok {
			out = append(out, l)
		}
	}
	return out
}

// Attributes returns the attribute messages in header order.
func (h *Header) Attributes() []*message.Attribute {
	var out []*message.Attribute
	for _, msg := range h.Messages {
		if a, ok := msg.(*message.Attribute); ok {
			out = append(out, a)
		}
	}
	return out
}

// IsGroup reports whether the header describes a group, compact, dense or
// symbol table.
func (h *Header) IsGroup() bool {
	return h.Message(message.TypeLinkInfo) != nil || h.Message(message.TypeSymbolTable) != nil
}

// IsDataset reports whether the header describes a dataset.
func (h *Header) IsDataset() bool {
	return h.Message(message.TypeDataLayout) != nil
}
