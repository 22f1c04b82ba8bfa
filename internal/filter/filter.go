package filter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	binpkg "github.com/robert-malhotra/h5records/internal/binary"
	"github.com/robert-malhotra/h5records/internal/message"
)

var (
	ErrUnsupportedFilter = errors.New("unsupported filter")
	ErrChecksum          = errors.New("fletcher32 checksum mismatch")
)

// Filter undoes one stage of a pipeline.
type Filter interface {
	ID() uint16
	Decode(in []byte) ([]byte, error)
}

// New returns the filter described by info.
func New(info message.FilterInfo) (Filter, error) {
	switch info.ID {
	case message.FilterDeflate:
		return deflate{}, nil
	case message.FilterShuffle:
		size := 1
		if len(info.ClientData) > 0 && info.ClientData[0] > 0 {
			size = int(info.ClientData[0])
		}
		return shuffle{elemSize: size}, nil
	case message.FilterFletcher32:
		return fletcher32{}, nil
	}
	name := info.Name
	if name == "" {
		name = "unnamed"
	}
	return nil, fmt.Errorf("%w: %d (%s)", ErrUnsupportedFilter, info.ID, name)
}

type deflate struct{}

func (deflate) ID() uint16 { return message.FilterDeflate }

func (deflate) Decode(in []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// shuffle stores byte i of every element together, for each i.
type shuffle struct {
	elemSize int
}

func (shuffle) ID() uint16 { return message.FilterShuffle }

func (f shuffle) Decode(in []byte) ([]byte, error) {
	n := len(in) / f.elemSize
	if f.elemSize <= 1 || n <= 1 {
		return in, nil
	}
	out := make([]byte, len(in))
	for b := 0; b < f.elemSize; b++ {
		plane := in[b*n : (b+1)*n]
		for i, v := range plane {
			out[i*f.elemSize+b] = v
		}
	}
	// Bytes past the last whole element are not shuffled.
	copy(out[n*f.elemSize:], in[n*f.elemSize:])
	return out, nil
}

// fletcher32 strips the trailing little-endian checksum after checking it.
type fletcher32 struct{}

func (fletcher32) ID() uint16 { return message.FilterFletcher32 }

func (fletcher32) Decode(in []byte) ([]byte, error) {
	if len(in) < 4 {
		return nil, fmt.Errorf("%w: chunk of %d bytes", ErrChecksum, len(in))
	}
	data := in[:len(in)-4]
	if stored, sum := binary.LittleEndian.Uint32(in[len(in)-4:]), binpkg.Fletcher32(data); stored != sum {
		return nil, fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksum, stored, sum)
	}
	return data, nil
}
