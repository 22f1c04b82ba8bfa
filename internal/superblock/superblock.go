package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/h5records/internal/binary"
)

// Signature identifies a container file.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrChecksum           = errors.New("superblock checksum mismatch")
)

// Superblock holds the file-level metadata. Versions 0 and 1 are read
// only.
type Superblock struct {
	Version          uint8
	OffsetSize       uint8
	LengthSize       uint8
	ConsistencyFlags uint8
	BaseAddress      uint64
	ExtensionAddress uint64
	EOFAddress       uint64
	RootAddress      uint64

	// Legacy superblocks also carry the B-tree parameters and the root
	// group's cached symbol table, if the root entry has one.
	GroupLeafK     uint16
	GroupInternalK uint16
	ChunkK         uint16
	RootBTree      uint64
	RootHeap       uint64

	// FileOffset is where the signature was found.
	FileOffset int64
}

// Legacy reports whether the superblock is version 0 or 1.
func (sb *Superblock) Legacy() bool {
	return sb.Version < 2
}

// New returns a version 3 superblock with 8-byte offsets and lengths.
func New() *Superblock {
	return &Superblock{
		Version:          3,
		OffsetSize:       8,
		LengthSize:       8,
		ExtensionAddress: ^uint64(0),
	}
}

// Config returns the binary layout described by the superblock.
func (sb *Superblock) Config() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// Size returns the encoded size including the checksum.
func (sb *Superblock) Size() int {
	return 12 + 4*int(sb.OffsetSize) + 4
}

// Read locates and decodes the superblock.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, 9)
	for _, off := range searchOffsets {
		if _, err := r.ReadAt(sig, off); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(sig[:8], Signature) {
			continue
		}
		var (
			sb  *Superblock
			err error
		)
		switch v := sig[8]; v {
		case 0, 1:
			sb, err = decodeLegacy(r, off, v)
		case 2, 3:
			sb, err = decode(r, off)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
		}
		if err != nil {
			return nil, err
		}
		sb.FileOffset = off
		return sb, nil
	}
	return nil, ErrNotHDF5
}

func decode(r io.ReaderAt, off int64) (*Superblock, error) {
	head := make([]byte, 12)
	if _, err := r.ReadAt(head, off); err != nil {
		return nil, err
	}
	sb := &Superblock{
		Version:          head[8],
		OffsetSize:       head[9],
		LengthSize:       head[10],
		ConsistencyFlags: head[11],
	}
	if err := sb.Config().Validate(); err != nil {
		return nil, err
	}

	raw := make([]byte, sb.Size())
	if _, err := r.ReadAt(raw, off); err != nil {
		return nil, err
	}
	body, tail := raw[:len(raw)-4], raw[len(raw)-4:]
	if !binpkg.VerifyLookup3(body, uint32(binpkg.DecodeUint(tail, 4))) {
		return nil, ErrChecksum
	}

	o := int(sb.OffsetSize)
	fields := []*uint64{&sb.BaseAddress, &sb.ExtensionAddress, &sb.EOFAddress, &sb.RootAddress}
	for i, f := range fields {
		*f = binpkg.DecodeUint(body[12+i*o:], o)
	}
	return sb, nil
}

// legacyRootEntryScratch is the cache type of a root entry whose scratch
// pad holds the group's B-tree and local heap addresses.
const legacyRootEntryScratch = 1

// decodeLegacy reads a version 0 or 1 superblock, which ends with the
// symbol table entry of the root group and has no checksum.
func decodeLegacy(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	head := make([]byte, 28)
	if _, err := r.ReadAt(head, off); err != nil {
		return nil, err
	}
	sb := &Superblock{
		Version:          version,
		OffsetSize:       head[13],
		LengthSize:       head[14],
		ExtensionAddress: ^uint64(0),
		GroupLeafK:       uint16(binpkg.DecodeUint(head[16:], 2)),
		GroupInternalK:   uint16(binpkg.DecodeUint(head[18:], 2)),
	}
	if err := sb.Config().Validate(); err != nil {
		return nil, err
	}
	start := 24
	if version == 1 {
		sb.ChunkK = uint16(binpkg.DecodeUint(head[24:], 2))
		start = 28
	}

	// Base, free-space, end-of-file and driver addresses, then the root
	// entry: name offset, header address, cache type, reserved, scratch.
	o := int(sb.OffsetSize)
	raw := make([]byte, 4*o+2*o+8+16)
	if _, err := r.ReadAt(raw, off+int64(start)); err != nil {
		return nil, fmt.Errorf("reading legacy superblock: %w", err)
	}
	sb.BaseAddress = binpkg.DecodeUint(raw, o)
	sb.EOFAddress = binpkg.DecodeUint(raw[2*o:], o)
	entry := raw[4*o:]
	sb.RootAddress = binpkg.DecodeUint(entry[o:], o)
	if binpkg.DecodeUint(entry[2*o:], 4) == legacyRootEntryScratch {
		scratch := entry[2*o+8:]
		sb.RootBTree = binpkg.DecodeUint(scratch, o)
		sb.RootHeap = binpkg.DecodeUint(scratch[o:], o)
	} else {
		sb.RootBTree = sb.Config().Undefined()
		sb.RootHeap = sb.Config().Undefined()
	}
	return sb, nil
}

// Write encodes a version 2 or 3 superblock at the writer's position.
func (sb *Superblock) Write(w *binpkg.Writer) error {
	if sb.Legacy() {
		return fmt.Errorf("%w: writing version %d", ErrUnsupportedVersion, sb.Version)
	}
	buf := binpkg.NewBuffer(sb.Size())
	bw := binpkg.NewWriter(buf, sb.Config())

	if err := bw.WriteBytes(Signature); err != nil {
		return err
	}
	if err := bw.WriteBytes([]byte{sb.Version, sb.OffsetSize, sb.LengthSize, sb.ConsistencyFlags}); err != nil {
		return err
	}
	for _, addr := range []uint64{sb.BaseAddress, sb.ExtensionAddress, sb.EOFAddress, sb.RootAddress} {
		if err := bw.WriteOffset(addr); err != nil {
			return err
		}
	}
	return w.WriteBytes(buf.Seal())
}
