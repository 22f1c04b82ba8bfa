package heap

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5records/internal/binary"
)

const (
	signature = "GCOL"

	// MinCollectionSize is the smallest collection the reference library
	// will read.
	MinCollectionSize = 4096
)

var (
	ErrInvalidCollection = errors.New("invalid global heap collection")
	ErrObjectNotFound    = errors.New("global heap object not found")
)

// ID locates one object in a global heap collection.
type ID struct {
	Collection uint64
	Index      uint32
}

// IsNull reports whether the ID refers to no object, as written for empty
// variable-length elements.
func (id ID) IsNull() bool { return id.Collection == 0 && id.Index == 0 }

func (id ID) String() string { return fmt.Sprintf("%d:%d", id.Collection, id.Index) }

// VarLenSize is the width of a variable-length element: count, collection
// address and object index.
func VarLenSize(cfg binary.Config) int { return 4 + cfg.OffsetSize + 4 }

// EncodeVarLen writes a variable-length element into b.
func EncodeVarLen(b []byte, cfg binary.Config, count uint32, id ID) {
	binary.EncodeUint(b, uint64(count), 4)
	binary.EncodeUint(b[4:], id.Collection, cfg.OffsetSize)
	binary.EncodeUint(b[4+cfg.OffsetSize:], uint64(id.Index), 4)
}

// DecodeVarLen reads a variable-length element from b.
func DecodeVarLen(b []byte, cfg binary.Config) (uint32, ID) {
	count := uint32(binary.DecodeUint(b, 4))
	return count, ID{
		Collection: binary.DecodeUint(b[4:], cfg.OffsetSize),
		Index:      uint32(binary.DecodeUint(b[4+cfg.OffsetSize:], 4)),
	}
}

// Collection is a decoded global heap collection.
type Collection struct {
	Address uint64
	Size    uint64
	objects map[uint16][]byte
}

func headerSize(cfg binary.Config) uint64 { return uint64(8 + cfg.LengthSize) }

func objectHeaderSize(cfg binary.Config) uint64 { return uint64(8 + cfg.LengthSize) }

// ReadCollection decodes the collection at addr.
func ReadCollection(r *binary.Reader, addr uint64) (*Collection, error) {
	cfg := r.Config()
	hr := r.At(int64(addr))
	head, err := hr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("reading global heap at %d: %w", addr, err)
	}
	if string(head[:4]) != signature {
		return nil, fmt.Errorf("%w: no signature at %d", ErrInvalidCollection, addr)
	}
	if head[4] != 1 {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidCollection, head[4])
	}
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	if size < headerSize(cfg) {
		return nil, fmt.Errorf("%w: size %d", ErrInvalidCollection, size)
	}
	body, err := hr.ReadBytes(int(size - headerSize(cfg)))
	if err != nil {
		return nil, fmt.Errorf("reading global heap at %d: %w", addr, err)
	}

	c := &Collection{Address: addr, Size: size, objects: make(map[uint16][]byte)}
	ohs := int(objectHeaderSize(cfg))
	for pos := 0; pos+ohs <= len(body); {
		index := uint16(binary.DecodeUint(body[pos:], 2))
		n := int(binary.DecodeUint(body[pos+8:], cfg.LengthSize))
		if index == 0 {
			break // free space runs to the end of the collection
		}
		start := pos + ohs
		if start+n > len(body) {
			return nil, fmt.Errorf("%w: object %d overruns collection at %d", ErrInvalidCollection, index, addr)
		}
		c.objects[index] = body[start : start+n]
		pos = start + align8(n)
	}
	return c, nil
}

// Object returns the payload of the object with the given index.
func (c *Collection) Object(index uint32) ([]byte, error) {
	data, ok := c.objects[uint16(index)]
	if !ok || index > 0xFFFF {
		return nil, fmt.Errorf("%w: %d in collection at %d", ErrObjectNotFound, index, c.Address)
	}
	return data, nil
}

// Len returns the number of objects in the collection.
func (c *Collection) Len() int { return len(c.objects) }

func align8(n int) int { return (n + 7) &^ 7 }
