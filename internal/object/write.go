package object

import (
	"fmt"

	"github.com/robert-malhotra/h5records/internal/binary"
	"github.com/robert-malhotra/h5records/internal/message"
)

// MessagesSize returns the number of chunk bytes msgs occupy.
func MessagesSize(cfg binary.Config, msgs []message.Message) (int, error) {
	n := 0
	for _, m := range msgs {
		e, ok := m.(message.Encoder)
		if !ok {
			return 0, fmt.Errorf("%w: %s message cannot be written", ErrInvalidHeader, m.Type())
		}
		size := e.EncodedSize(cfg)
		if size > MaxMessageSize {
			return 0, fmt.Errorf("%w: %s message of %d bytes", ErrMessageTooLarge, m.Type(), size)
		}
		n += messageHeaderSize + size
	}
	return n, nil
}

// ChunkFor returns the chunk size used for need bytes of messages when at
// least minChunk bytes are requested. A gap too small for a NIL message is
// widened to hold one.
func ChunkFor(need, minChunk int) int {
	chunk := need
	if chunk < minChunk {
		chunk = minChunk
	}
	if pad := chunk - need; pad > 0 && pad < messageHeaderSize {
		chunk = need + messageHeaderSize
	}
	return chunk
}

// BlockSize returns the on-disk size of a header whose chunk holds chunk
// bytes.
func BlockSize(chunk int) int {
	width, _ := sizeFieldWidth(chunk)
	return 6 + width + chunk + 4
}

// Encode returns a complete single-chunk header holding msgs. The chunk is
// padded with NIL messages up to ChunkFor(size, minChunk) bytes.
func Encode(cfg binary.Config, msgs []message.Message, minChunk int) ([]byte, error) {
	body, err := MessagesSize(cfg, msgs)
	if err != nil {
		return nil, err
	}
	chunk := ChunkFor(body, minChunk)
	width, bits := sizeFieldWidth(chunk)

	buf := binary.NewBuffer(6 + width + chunk + 4)
	w := binary.NewWriter(buf, cfg)
	if err := w.WriteBytes([]byte(signature)); err != nil {
		return nil, err
	}
	if err := w.WriteBytes([]byte{2, bits}); err != nil {
		return nil, err
	}
	if err := w.WriteUintN(uint64(chunk), width); err != nil {
		return nil, err
	}
	for _, m := range msgs {
		e := m.(message.Encoder)
		size := e.EncodedSize(cfg)
		if err := writeMessage(w, e.Type(), size); err != nil {
			return nil, err
		}
		start := w.Pos()
		if err := e.Encode(w); err != nil {
			return nil, fmt.Errorf("encoding %s message: %w", e.Type(), err)
		}
		if got := int(w.Pos() - start); got != size {
			return nil, fmt.Errorf("%s message encoded %d bytes, expected %d", e.Type(), got, size)
		}
	}
	if err := writePadding(w, chunk-body); err != nil {
		return nil, err
	}
	return buf.Seal(), nil
}

// EncodedSize returns the length Encode would produce.
func EncodedSize(cfg binary.Config, msgs []message.Message, minChunk int) (int, error) {
	body, err := MessagesSize(cfg, msgs)
	if err != nil {
		return 0, err
	}
	return BlockSize(ChunkFor(body, minChunk)), nil
}

func writeMessage(w *binary.Writer, typ message.Type, size int) error {
	if err := w.WriteUint8(uint8(typ)); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(size)); err != nil {
		return err
	}
	return w.WriteUint8(0)
}

// writePadding fills n bytes (zero or at least messageHeaderSize) with NIL
// messages.
func writePadding(w *binary.Writer, n int) error {
	for n > 0 {
		size := n - messageHeaderSize
		if size > MaxMessageSize {
			size = MaxMessageSize
			if left := n - messageHeaderSize - size; left > 0 && left < messageHeaderSize {
				size -= messageHeaderSize
			}
		}
		if err := writeMessage(w, message.TypeNIL, size); err != nil {
			return err
		}
		if err := w.WriteZeros(size); err != nil {
			return err
		}
		n -= messageHeaderSize + size
	}
	return nil
}

func sizeFieldWidth(chunk int) (int, uint8) {
	switch {
	case chunk <= 0xFF:
		return 1, 0
	case chunk <= 0xFFFF:
		return 2, 1
	case chunk <= 0xFFFFFFFF:
		return 4, 2
	}
	return 8, 3
}

// NewGroupMessages returns the messages of a compact-storage group.
func NewGroupMessages(links []*message.Link) []message.Message {
	msgs := make([]message.Message, 0, len(links)+2)
	msgs = append(msgs, message.NewLinkInfo(), &message.GroupInfo{})
	for _, l := range links {
		msgs = append(msgs, l)
	}
	return msgs
}

// NewDatasetMessages returns the messages of a dataset.
func NewDatasetMessages(ds *message.Dataspace, dt *message.Datatype, layout *message.DataLayout) []message.Message {
	return []message.Message{ds, dt, message.NewFillValue(), layout}
}
