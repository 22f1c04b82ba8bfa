package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5records/internal/binary"
)

// SpaceType is the dataspace class.
type SpaceType uint8

const (
	SpaceScalar SpaceType = 0
	SpaceSimple SpaceType = 1
	SpaceNull   SpaceType = 2
)

// Dataspace is the dataspace message (0x0001): the shape of a dataset or
// attribute.
type Dataspace struct {
	Space   SpaceType
	Dims    []uint64
	MaxDims []uint64 // nil when equal to Dims
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NewDataspace returns a simple dataspace with fixed dimensions.
func NewDataspace(dims []uint64) *Dataspace {
	return &Dataspace{Space: SpaceSimple, Dims: append([]uint64(nil), dims...)}
}

// NewScalarDataspace returns a dataspace holding exactly one element.
func NewScalarDataspace() *Dataspace {
	return &Dataspace{Space: SpaceScalar}
}

// Rank returns the number of dimensions.
func (m *Dataspace) Rank() int { return len(m.Dims) }

// IsScalar reports whether the dataspace holds a single dimensionless element.
func (m *Dataspace) IsScalar() bool { return m.Space == SpaceScalar }

// NumElements returns the product of the dimensions.
func (m *Dataspace) NumElements() uint64 {
	switch m.Space {
	case SpaceScalar:
		return 1
	case SpaceNull:
		return 0
	}
	n := uint64(1)
	for _, d := range m.Dims {
		n *= d
	}
	return n
}

func parseDataspace(data []byte, cfg binpkg.Config) (*Dataspace, error) {
	c := &cursor{data: data}
	head, err := c.bytes(4)
	if err != nil {
		return nil, err
	}
	version, rank, flags := head[0], int(head[1]), head[2]

	ds := &Dataspace{Space: SpaceSimple}
	switch version {
	case 1:
		if rank == 0 {
			ds.Space = SpaceScalar
		}
		c.pos += 4
	case 2:
		ds.Space = SpaceType(head[3])
	default:
		return nil, fmt.Errorf("dataspace version %d not supported", version)
	}

	if ds.Space != SpaceSimple {
		return ds, nil
	}
	read := func() ([]uint64, error) {
		dims := make([]uint64, rank)
		for i := range dims {
			v, err := c.uint(cfg.LengthSize)
			if err != nil {
				return nil, err
			}
			dims[i] = v
		}
		return dims, nil
	}
	if ds.Dims, err = read(); err != nil {
		return nil, err
	}
	if flags&0x01 != 0 {
		if ds.MaxDims, err = read(); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Encode writes a version 2 dataspace.
func (m *Dataspace) Encode(w *binpkg.Writer) error {
	var flags uint8
	if m.MaxDims != nil {
		flags = 0x01
	}
	if err := w.WriteBytes([]byte{2, uint8(len(m.Dims)), flags, uint8(m.Space)}); err != nil {
		return err
	}
	for _, d := range m.Dims {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	for _, d := range m.MaxDims {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	return nil
}

func (m *Dataspace) EncodedSize(cfg binpkg.Config) int {
	return 4 + (len(m.Dims)+len(m.MaxDims))*cfg.LengthSize
}
