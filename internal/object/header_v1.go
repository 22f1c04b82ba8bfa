package object

import (
	"fmt"

	"github.com/robert-malhotra/h5records/internal/binary"
	"github.com/robert-malhotra/h5records/internal/message"
)

const (
	// v1PrefixSize covers version, reserved byte, message count, reference
	// count, header size and the padding that aligns the first message.
	v1PrefixSize = 16

	// v1MessageHeaderSize is type, size, flags and three reserved bytes.
	v1MessageHeaderSize = 8
)

// readV1 decodes a version 1 header. These headers carry no signature and
// no checksum, and every message is aligned to eight bytes.
func readV1(r *binary.Reader, addr uint64) (*Header, error) {
	prefix, err := r.At(int64(addr)).ReadBytes(v1PrefixSize)
	if err != nil {
		return nil, fmt.Errorf("reading object header at %d: %w", addr, err)
	}
	size := binary.DecodeUint(prefix[8:], 4)
	body, err := r.At(int64(addr) + v1PrefixSize).ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("reading object header at %d: %w", addr, err)
	}
	h := &Header{
		Address:   addr,
		Version:   1,
		ChunkSize: int(size),
		Chunk:     Block{Addr: addr, Size: v1PrefixSize + size},
	}
	if err := h.parseMessages(r, body, 0); err != nil {
		return nil, fmt.Errorf("object header at %d: %w", addr, err)
	}
	return h, nil
}

func (h *Header) parseV1Messages(r *binary.Reader, chunk []byte, depth int) error {
	for pos := 0; pos+v1MessageHeaderSize <= len(chunk); {
		typ := message.Type(binary.DecodeUint(chunk[pos:], 2))
		size := int(binary.DecodeUint(chunk[pos+2:], 2))
		flags := chunk[pos+4]
		pos += v1MessageHeaderSize
		if pos+size > len(chunk) {
			return fmt.Errorf("%w: %s message overruns chunk", ErrInvalidHeader, typ)
		}
		data := chunk[pos : pos+size]
		pos += size
		if rem := pos % 8; rem != 0 {
			pos += 8 - rem
		}

		switch {
		case typ == message.TypeNIL:
			continue
		case flags&0x02 != 0:
			h.Messages = append(h.Messages, message.NewUnknown(typ, data))
			continue
		}
		if err := h.addMessage(r, typ, data, depth); err != nil {
			return err
		}
	}
	return nil
}
