package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5records/internal/binary"
)

// LayoutClass is the raw data storage class.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

func (c LayoutClass) String() string {
	switch c {
	case LayoutCompact:
		return "compact"
	case LayoutContiguous:
		return "contiguous"
	case LayoutChunked:
		return "chunked"
	case LayoutVirtual:
		return "virtual"
	}
	return fmt.Sprintf("layout(%d)", uint8(c))
}

// ChunkIndex is the structure that locates the chunks of a chunked
// dataset.
type ChunkIndex uint8

const (
	// IndexBTreeV1 is the only index before layout version 4.
	IndexBTreeV1    ChunkIndex = 0
	IndexSingle     ChunkIndex = 1
	IndexImplicit   ChunkIndex = 2
	IndexFixedArray ChunkIndex = 3
	IndexExtensible ChunkIndex = 4
	IndexBTreeV2    ChunkIndex = 5
)

func (i ChunkIndex) String() string {
	switch i {
	case IndexBTreeV1:
		return "v1 B-tree"
	case IndexSingle:
		return "single chunk"
	case IndexImplicit:
		return "implicit"
	case IndexFixedArray:
		return "fixed array"
	case IndexExtensible:
		return "extensible array"
	case IndexBTreeV2:
		return "v2 B-tree"
	}
	return fmt.Sprintf("index(%d)", uint8(i))
}

// DataLayout is the data layout message (0x0008). For chunked storage
// Address is the chunk index address; virtual layouts are recognised only.
type DataLayout struct {
	Version uint8
	Class   LayoutClass
	Compact []byte
	Address uint64
	Size    uint64

	// Chunked storage. ChunkDims excludes the trailing element size.
	ChunkDims []uint64
	Index     ChunkIndex

	// A single chunk index records the filtered size and the filter
	// mask of its chunk when the dataset is filtered.
	SingleSize uint64
	SingleMask uint32

	raw []byte
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

// NewContiguousLayout returns a layout for size bytes stored at addr. An
// empty dataset has no storage and an undefined address.
func NewContiguousLayout(addr, size uint64) *DataLayout {
	if size == 0 {
		addr = ^uint64(0)
	}
	return &DataLayout{Version: 3, Class: LayoutContiguous, Address: addr, Size: size}
}

func parseDataLayout(data []byte, cfg binpkg.Config) (*DataLayout, error) {
	if len(data) < 2 {
		return nil, ErrTruncated
	}
	var (
		m   *DataLayout
		err error
	)
	switch version := data[0]; version {
	case 1, 2:
		m, err = parseLegacyLayout(data, cfg)
	case 3, 4:
		m, err = parseLayout(data, cfg)
	default:
		return nil, fmt.Errorf("layout version %d not supported", version)
	}
	if err != nil {
		return nil, err
	}
	if m.Class == LayoutChunked {
		m.raw = append([]byte(nil), data...)
	}
	return m, nil
}

// parseLegacyLayout reads layout versions 1 and 2, where every class lists
// its dimensions and the last one is the element size.
func parseLegacyLayout(data []byte, cfg binpkg.Config) (*DataLayout, error) {
	c := &cursor{data: data}
	head, err := c.bytes(8)
	if err != nil {
		return nil, err
	}
	m := &DataLayout{Version: head[0], Class: LayoutClass(head[2])}
	ndims := int(head[1])
	if m.Class != LayoutCompact {
		if m.Address, err = c.uint(cfg.OffsetSize); err != nil {
			return nil, err
		}
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		if dims[i], err = c.uint(4); err != nil {
			return nil, err
		}
	}
	switch m.Class {
	case LayoutCompact:
		n, err := c.uint(4)
		if err != nil {
			return nil, err
		}
		raw, err := c.bytes(int(n))
		if err != nil {
			return nil, err
		}
		m.Compact = append([]byte(nil), raw...)
	case LayoutContiguous:
		m.Size = 1
		for _, d := range dims {
			m.Size *= d
		}
	case LayoutChunked:
		if ndims < 2 {
			return nil, fmt.Errorf("chunked layout with %d dimensions", ndims)
		}
		m.ChunkDims = dims[:ndims-1]
	}
	return m, nil
}

func parseLayout(data []byte, cfg binpkg.Config) (*DataLayout, error) {
	c := &cursor{data: data}
	head, err := c.bytes(2)
	if err != nil {
		return nil, err
	}
	m := &DataLayout{Version: head[0], Class: LayoutClass(head[1])}
	switch m.Class {
	case LayoutCompact:
		var n uint64
		if n, err = c.uint(2); err == nil {
			var raw []byte
			raw, err = c.bytes(int(n))
			m.Compact = append([]byte(nil), raw...)
		}
	case LayoutContiguous:
		if m.Address, err = c.uint(cfg.OffsetSize); err == nil {
			m.Size, err = c.uint(cfg.LengthSize)
		}
	case LayoutChunked:
		if m.Version == 3 {
			err = m.parseChunkedV3(c, cfg)
		} else {
			err = m.parseChunkedV4(c, cfg)
		}
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DataLayout) parseChunkedV3(c *cursor, cfg binpkg.Config) error {
	ndims, err := c.byte()
	if err != nil {
		return err
	}
	if ndims < 2 {
		return fmt.Errorf("chunked layout with %d dimensions", ndims)
	}
	if m.Address, err = c.uint(cfg.OffsetSize); err != nil {
		return err
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		if dims[i], err = c.uint(4); err != nil {
			return err
		}
	}
	m.ChunkDims = dims[:ndims-1]
	return nil
}

func (m *DataLayout) parseChunkedV4(c *cursor, cfg binpkg.Config) error {
	head, err := c.bytes(3)
	if err != nil {
		return err
	}
	flags, ndims, width := head[0], int(head[1]), int(head[2])
	if ndims < 2 || width < 1 || width > 8 {
		return fmt.Errorf("chunked layout with %d dimensions of %d bytes", ndims, width)
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		if dims[i], err = c.uint(width); err != nil {
			return err
		}
	}
	m.ChunkDims = dims[:ndims-1]

	idx, err := c.byte()
	if err != nil {
		return err
	}
	m.Index = ChunkIndex(idx)
	switch m.Index {
	case IndexSingle:
		if flags&0x02 != 0 {
			if m.SingleSize, err = c.uint(cfg.LengthSize); err != nil {
				return err
			}
			var mask uint64
			if mask, err = c.uint(4); err != nil {
				return err
			}
			m.SingleMask = uint32(mask)
		}
	case IndexImplicit:
	case IndexFixedArray:
		_, err = c.bytes(1)
	case IndexExtensible:
		_, err = c.bytes(5)
	case IndexBTreeV2:
		_, err = c.bytes(6)
	default:
		return fmt.Errorf("chunk index type %d not supported", idx)
	}
	if err != nil {
		return err
	}
	m.Address, err = c.uint(cfg.OffsetSize)
	return err
}

// ChunkSize returns the unfiltered size in bytes of one chunk.
func (m *DataLayout) ChunkSize(elemSize uint64) uint64 {
	n := elemSize
	for _, d := range m.ChunkDims {
		n *= d
	}
	return n
}

// Encode writes a version 3 layout for compact or contiguous storage. A
// chunked layout that was read from a file is written back unchanged.
func (m *DataLayout) Encode(w *binpkg.Writer) error {
	if m.Class == LayoutChunked && m.raw != nil {
		return w.WriteBytes(m.raw)
	}
	if err := w.WriteBytes([]byte{3, byte(m.Class)}); err != nil {
		return err
	}
	switch m.Class {
	case LayoutCompact:
		if err := w.WriteUint16(uint16(len(m.Compact))); err != nil {
			return err
		}
		return w.WriteBytes(m.Compact)
	case LayoutContiguous:
		if err := w.WriteOffset(m.Address); err != nil {
			return err
		}
		return w.WriteLength(m.Size)
	}
	return fmt.Errorf("writing %s layout not supported", m.Class)
}

func (m *DataLayout) EncodedSize(cfg binpkg.Config) int {
	if m.Class == LayoutChunked && m.raw != nil {
		return len(m.raw)
	}
	if m.Class == LayoutCompact {
		return 4 + len(m.Compact)
	}
	return 2 + cfg.OffsetSize + cfg.LengthSize
}
