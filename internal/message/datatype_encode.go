package message

import (
	binpkg "github.com/robert-malhotra/h5records/internal/binary"
)

// NewFixedPoint returns a little-endian integer type of size bytes.
func NewFixedPoint(size uint32, signed bool) *Datatype {
	var bits uint32
	if signed {
		bits |= 0x08
	}
	return &Datatype{
		Class:     ClassFixedPoint,
		Version:   1,
		Bits:      bits,
		Size:      size,
		Precision: uint16(size * 8),
	}
}

// NewFloat returns a little-endian floating-point type. Sizes 4 and 8 are
// IEEE 754 binary32/binary64; size 16 is the x87 80-bit extended format
// padded to 16 bytes.
func NewFloat(size uint32) *Datatype {
	dt := &Datatype{Class: ClassFloatPoint, Version: 1, Size: size}
	var sign uint32
	switch size {
	case 4:
		sign = 31
		dt.Precision, dt.ExpLocation, dt.ExpSize, dt.MantSize, dt.ExpBias = 32, 23, 8, 23, 127
		dt.Bits = 2 << 4 // implied leading mantissa bit
	case 8:
		sign = 63
		dt.Precision, dt.ExpLocation, dt.ExpSize, dt.MantSize, dt.ExpBias = 64, 52, 11, 52, 1023
		dt.Bits = 2 << 4
	case 16:
		sign = 79
		dt.Precision, dt.ExpLocation, dt.ExpSize, dt.MantSize, dt.ExpBias = 80, 64, 15, 64, 16383
	default:
		dt.Precision = uint16(size * 8)
	}
	dt.Bits |= sign << 8
	return dt
}

// NewString returns a fixed-length string type.
func NewString(size uint32, pad StringPadding, cs CharacterSet) *Datatype {
	return &Datatype{
		Class:   ClassString,
		Version: 1,
		Bits:    uint32(pad) | uint32(cs)<<4,
		Size:    size,
	}
}

// NewVarString returns a variable-length string type. Elements are global
// heap references of VarLenSize(cfg) bytes; the base type is an unsigned
// byte as the reference library writes it.
func NewVarString(cs CharacterSet) *Datatype {
	return &Datatype{
		Class:   ClassVarLen,
		Version: 1,
		Bits:    1 | uint32(PadNullTerm)<<4 | uint32(cs)<<8,
		Size:    uint32(VarLenSize(binpkg.DefaultConfig())),
		Base:    NewFixedPoint(1, false),
	}
}

// NewVarSequence returns a variable-length sequence of base elements.
func NewVarSequence(base *Datatype) *Datatype {
	return &Datatype{
		Class:   ClassVarLen,
		Version: 1,
		Size:    uint32(VarLenSize(binpkg.DefaultConfig())),
		Base:    base,
	}
}

// NewOpaque returns an uninterpreted byte block of size bytes.
func NewOpaque(size uint32, tag string) *Datatype {
	return &Datatype{Class: ClassOpaque, Version: 1, Size: size, Tag: tag}
}

// NewCompound returns a compound type of size bytes.
func NewCompound(size uint32, members []Member) *Datatype {
	return &Datatype{
		Class:   ClassCompound,
		Version: 3,
		Bits:    uint32(len(members)),
		Size:    size,
		Members: members,
	}
}

// NewArray returns a fixed-size array of base elements.
func NewArray(dims []uint32, base *Datatype) *Datatype {
	n := uint32(1)
	for _, d := range dims {
		n *= d
	}
	return &Datatype{
		Class:   ClassArray,
		Version: 3,
		Size:    n * base.Size,
		Dims:    dims,
		Base:    base,
	}
}

// VarLenSize is the on-disk size of a variable-length element: a 4-byte
// element count followed by a global heap ID (collection address and 4-byte
// object index).
func VarLenSize(cfg binpkg.Config) int {
	return 4 + cfg.OffsetSize + 4
}

// Encode writes the datatype message.
func (dt *Datatype) Encode(w *binpkg.Writer) error {
	return w.WriteBytes(dt.appendTo(nil))
}

// EncodedSize returns the encoded length, which does not depend on cfg.
func (dt *Datatype) EncodedSize(binpkg.Config) int {
	return len(dt.appendTo(nil))
}

func (dt *Datatype) appendTo(b []byte) []byte {
	version := dt.Version
	if version == 0 {
		version = 1
	}
	bits := dt.Bits
	switch dt.Class {
	case ClassCompound:
		version = 3
		bits = bits&^0xFFFF | uint32(len(dt.Members))
	case ClassArray, ClassEnum:
		version = 3
	case ClassOpaque:
		bits = bits&^0xFF | uint32(align8(len(dt.Tag)+1))
	}

	b = append(b, byte(dt.Class)|version<<4, byte(bits), byte(bits>>8), byte(bits>>16))
	b = appendUint(b, uint64(dt.Size), 4)

	switch dt.Class {
	case ClassFixedPoint, ClassBitfield:
		b = appendUint(b, uint64(dt.BitOffset), 2)
		b = appendUint(b, uint64(dt.Precision), 2)
	case ClassFloatPoint:
		b = appendUint(b, uint64(dt.BitOffset), 2)
		b = appendUint(b, uint64(dt.Precision), 2)
		b = append(b, dt.ExpLocation, dt.ExpSize, dt.MantLocation, dt.MantSize)
		b = appendUint(b, uint64(dt.ExpBias), 4)
	case ClassTime:
		b = appendUint(b, uint64(dt.Precision), 2)
	case ClassOpaque:
		tag := make([]byte, align8(len(dt.Tag)+1))
		copy(tag, dt.Tag)
		b = append(b, tag...)
	case ClassCompound:
		width := memberOffsetWidth(dt.Size)
		for _, m := range dt.Members {
			b = append(b, m.Name...)
			b = append(b, 0)
			b = appendUint(b, uint64(m.Offset), width)
			b = m.Type.appendTo(b)
		}
	case ClassEnum:
		b = dt.Base.appendTo(b)
		for _, name := range dt.EnumNames {
			b = append(b, name...)
			b = append(b, 0)
		}
		b = append(b, dt.EnumValues...)
	case ClassVarLen:
		b = dt.Base.appendTo(b)
	case ClassArray:
		b = append(b, byte(len(dt.Dims)))
		for _, d := range dt.Dims {
			b = appendUint(b, uint64(d), 4)
		}
		b = dt.Base.appendTo(b)
	}
	return b
}

func appendUint(b []byte, v uint64, n int) []byte {
	for i := 0; i < n; i++ {
		b = append(b, byte(v>>(8*i)))
	}
	return b
}
