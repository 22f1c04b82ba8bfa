package hdf5

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/h5records/internal/message"
)

// Dataset represents an HDF5 dataset.
type Dataset struct {
	n *node
}

// Name returns the dataset name (last component of path).
func (d *Dataset) Name() string {
	return d.n.name
}

// Path returns the full path to this dataset.
func (d *Dataset) Path() string {
	return d.n.path
}

// File returns the file the dataset belongs to.
func (d *Dataset) File() *File {
	return d.n.file
}

// Shape returns the dimensions of the dataset; nil for a scalar.
func (d *Dataset) Shape() []uint64 {
	ds := d.dataspace()
	if ds == nil || len(ds.Dims) == 0 {
		return nil
	}
	return append([]uint64(nil), ds.Dims...)
}

// Rank returns the number of dimensions.
func (d *Dataset) Rank() int {
	return len(d.Shape())
}

// NumElements returns the total number of elements.
func (d *Dataset) NumElements() uint64 {
	ds := d.dataspace()
	if ds == nil {
		return 0
	}
	return ds.NumElements()
}

// IsScalar returns true if the dataset is a scalar (single value).
func (d *Dataset) IsScalar() bool {
	ds := d.dataspace()
	return ds != nil && ds.IsScalar()
}

// Datatype returns the element type.
func (d *Dataset) Datatype() *Datatype {
	f := d.n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	return d.n.hdr.Datatype()
}

// Layout returns the storage class of the raw data.
func (d *Dataset) Layout() message.LayoutClass {
	f := d.n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	if l := d.n.hdr.DataLayout(); l != nil {
		return l.Class
	}
	return message.LayoutContiguous
}

// StorageSize returns the number of bytes of raw data the dataset holds.
// For chunked datasets this is the stored, possibly compressed, size of
// the allocated chunks, or zero if their index cannot be read.
func (d *Dataset) StorageSize() uint64 {
	f := d.n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	l := d.n.hdr.DataLayout()
	switch {
	case l == nil:
		return 0
	case l.Class == message.LayoutCompact:
		return uint64(len(l.Compact))
	case l.Class == message.LayoutChunked:
		st, err := d.storage()
		if err != nil {
			return 0
		}
		chunks, err := d.chunks(st)
		if err != nil {
			return 0
		}
		var n uint64
		for _, c := range chunks {
			n += uint64(c.Size)
		}
		return n
	}
	return l.Size
}

func (d *Dataset) dataspace() *message.Dataspace {
	f := d.n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	return d.n.hdr.Dataspace()
}

// storage describes where a dataset's elements live. The caller holds
// f.mu.
type storage struct {
	layout   *message.DataLayout
	dims     []uint64
	elemSize uint64
}

func (d *Dataset) storage() (*storage, error) {
	h := d.n.hdr
	ds, dt, l := h.Dataspace(), h.Datatype(), h.DataLayout()
	if ds == nil || dt == nil || l == nil {
		return nil, fmt.Errorf("%w: %s lacks dataspace, datatype or layout", ErrUnsupported, d.n.path)
	}
	if ds.Space == message.SpaceNull {
		return nil, fmt.Errorf("%w: null dataspace in %s", ErrUnsupported, d.n.path)
	}
	switch l.Class {
	case message.LayoutContiguous, message.LayoutCompact, message.LayoutChunked:
	default:
		return nil, fmt.Errorf("%w: %s layout in %s", ErrUnsupported, l.Class, d.n.path)
	}
	return &storage{layout: l, dims: ds.Dims, elemSize: uint64(dt.Size)}, nil
}

// WriteSlab writes raw, the packed elements selected by sel in row-major
// order, into the dataset.
func (d *Dataset) WriteSlab(sel Hyperslab, raw []byte) error {
	f := d.n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(true); err != nil {
		return err
	}
	st, err := d.storage()
	if err != nil {
		return err
	}
	if st.layout.Class != message.LayoutContiguous {
		return fmt.Errorf("%w: writing %s storage", ErrUnsupported, st.layout.Class)
	}
	runs, count, err := sel.runs(st.dims, st.elemSize)
	if err != nil {
		return err
	}
	if want := count * st.elemSize; uint64(len(raw)) != want {
		return fmt.Errorf("%w: selection of %d elements needs %d bytes, got %d", ErrSize, count, want, len(raw))
	}

	var pos uint64
	for _, r := range runs {
		if _, err := f.data.WriteAt(raw[pos:pos+r.len], int64(st.layout.Address+r.off)); err != nil {
			return fmt.Errorf("writing %s: %w", d.n.path, err)
		}
		pos += r.len
	}
	f.log.WithFields(logrus.Fields{
		"dataset":  d.n.path,
		"elements": count,
		"runs":     len(runs),
	}).Debug("wrote selection")
	return nil
}

// ReadSlab returns the packed elements selected by sel in row-major order.
func (d *Dataset) ReadSlab(sel Hyperslab) ([]byte, error) {
	f := d.n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(false); err != nil {
		return nil, err
	}
	st, err := d.storage()
	if err != nil {
		return nil, err
	}
	runs, count, err := sel.runs(st.dims, st.elemSize)
	if err != nil {
		return nil, err
	}

	var chunked []byte
	if st.layout.Class == message.LayoutChunked {
		if chunked, err = d.readChunked(st, sel); err != nil {
			return nil, err
		}
	}

	out := make([]byte, count*st.elemSize)
	var pos uint64
	for _, r := range runs {
		dst := out[pos : pos+r.len]
		pos += r.len
		if chunked != nil {
			copy(dst, chunked[r.off:])
			continue
		}
		if st.layout.Class == message.LayoutCompact {
			if r.off+r.len > uint64(len(st.layout.Compact)) {
				return nil, fmt.Errorf("%w: compact data of %s is short", ErrSize, d.n.path)
			}
			copy(dst, st.layout.Compact[r.off:])
			continue
		}
		if r.off+r.len > st.layout.Size {
			return nil, fmt.Errorf("%w: contiguous data of %s is short", ErrSize, d.n.path)
		}
		if _, err := f.data.ReadAt(dst, int64(st.layout.Address+r.off)); err != nil {
			return nil, fmt.Errorf("reading %s: %w", d.n.path, err)
		}
	}
	return out, nil
}

// Write replaces every element of the dataset.
func (d *Dataset) Write(raw []byte) error {
	return d.WriteSlab(All(d.Shape()), raw)
}

// ReadRaw reads all data from the dataset as raw bytes.
func (d *Dataset) ReadRaw() ([]byte, error) {
	return d.ReadSlab(All(d.Shape()))
}

// Attrs returns the attribute names for this dataset.
func (d *Dataset) Attrs() []string {
	return d.n.attributeNames()
}

// Attr returns an attribute by name, or nil if not found.
func (d *Dataset) Attr(name string) *Attribute {
	return d.n.attribute(name)
}

// HasAttr returns true if the dataset has an attribute with the given name.
func (d *Dataset) HasAttr(name string) bool {
	return d.Attr(name) != nil
}

// CreateAttribute attaches an attribute holding raw, which must contain
// exactly one element of dt for each element of dims.
func (d *Dataset) CreateAttribute(name string, dt *Datatype, dims []uint64, raw []byte) error {
	return d.n.createAttribute(name, dt, dims, raw)
}
