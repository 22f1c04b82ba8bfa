package hdf5

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/robert-malhotra/h5records/internal/message"
)

// DecodeElements converts n packed elements of dt to Go values:
//   - fixed-point: int64 or uint64
//   - floating-point: float64
//   - strings: string
//   - enum: the member name
//   - opaque: []byte
//   - compound: map[string]interface{}
//   - array and variable-length sequence: []interface{}
//
// Variable-length data is resolved through f's global heap.
func DecodeElements(f *File, dt *Datatype, raw []byte, n uint64) ([]interface{}, error) {
	if dt == nil {
		return nil, fmt.Errorf("no datatype")
	}
	size := uint64(dt.Size)
	if uint64(len(raw)) < n*size {
		return nil, fmt.Errorf("%w: %d elements of %d bytes in %d bytes", ErrSize, n, size, len(raw))
	}
	out := make([]interface{}, n)
	for i := range out {
		v, err := decodeElement(f, dt, raw[uint64(i)*size:uint64(i+1)*size])
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func decodeElement(f *File, dt *Datatype, b []byte) (interface{}, error) {
	switch dt.Class {
	case message.ClassFixedPoint:
		return decodeInteger(b, dt.Signed())
	case message.ClassFloatPoint:
		switch dt.Size {
		case 4:
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
		case 8:
			return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
		case 16:
			return decodeFloat80(b), nil
		}
	case message.ClassString:
		return trimString(b, dt.Padding()), nil
	case message.ClassOpaque:
		return append([]byte(nil), b...), nil
	case message.ClassEnum:
		base := int(dt.Base.Size)
		for i, name := range dt.EnumNames {
			if string(dt.EnumValues[i*base:(i+1)*base]) == string(b[:base]) {
				return name, nil
			}
		}
		return decodeInteger(b[:base], dt.Base.Signed())
	case message.ClassCompound:
		out := make(map[string]interface{}, len(dt.Members))
		for _, m := range dt.Members {
			end := m.Offset + m.Type.Size
			if end > uint32(len(b)) {
				return nil, fmt.Errorf("%w: member %q overruns element", ErrSize, m.Name)
			}
			v, err := decodeElement(f, m.Type, b[m.Offset:end])
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", m.Name, err)
			}
			out[m.Name] = v
		}
		return out, nil
	case message.ClassArray:
		n := uint64(1)
		for _, d := range dt.Dims {
			n *= uint64(d)
		}
		return DecodeElements(f, dt.Base, b, n)
	case message.ClassVarLen:
		if f == nil {
			return nil, fmt.Errorf("%w: variable-length data without a file", ErrUnsupported)
		}
		payload, count, err := f.ResolveVarLen(b)
		if err != nil {
			return nil, err
		}
		if dt.IsVarString() {
			return string(payload), nil
		}
		return DecodeElements(f, dt.Base, payload, uint64(count))
	}
	return nil, fmt.Errorf("%w: decoding %s", ErrUnsupported, dt)
}

func decodeInteger(b []byte, signed bool) (interface{}, error) {
	var u uint64
	switch len(b) {
	case 1:
		u = uint64(b[0])
	case 2:
		u = uint64(binary.LittleEndian.Uint16(b))
	case 4:
		u = uint64(binary.LittleEndian.Uint32(b))
	case 8:
		u = binary.LittleEndian.Uint64(b)
	default:
		return nil, fmt.Errorf("%w: %d-byte integer", ErrUnsupported, len(b))
	}
	if !signed {
		return u, nil
	}
	shift := 64 - 8*uint(len(b))
	return int64(u<<shift) >> shift, nil
}

// decodeFloat80 converts an x87 extended precision value, stored in the
// low 10 bytes of b, to the nearest float64.
func decodeFloat80(b []byte) float64 {
	mant := binary.LittleEndian.Uint64(b)
	se := binary.LittleEndian.Uint16(b[8:])
	exp := int(se & 0x7FFF)
	neg := se&0x8000 != 0

	var v float64
	switch {
	case exp == 0x7FFF && mant<<1 == 0:
		v = math.Inf(1)
	case exp == 0x7FFF:
		return math.NaN()
	default:
		if exp == 0 {
			exp = 1 // denormal
		}
		v = math.Ldexp(float64(mant), exp-16383-63)
	}
	if neg {
		v = -v
	}
	return v
}
