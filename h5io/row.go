package h5io

import (
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/robert-malhotra/h5records/hdf5"
)

// Row is the window onto one stored element handed to a Serializer or
// Deserializer. Its bytes are laid out as the trait's schema; offsets
// passed to its methods are offsets into that layout.
type Row struct {
	file  *hdf5.File
	index uint64
	buf   []byte
}

// Index returns the position of the element in its dataset.
func (r *Row) Index() uint64 { return r.index }

// Bytes returns the packed element.
func (r *Row) Bytes() []byte { return r.buf }

func (r *Row) span(off uintptr, n int) ([]byte, error) {
	if int(off)+n > len(r.buf) {
		return nil, errors.Wrapf(ErrInvalidSchema, "field at %d overruns %d-byte row", off, len(r.buf))
	}
	return r.buf[off : int(off)+n], nil
}

// Put copies b into the row at off.
func (r *Row) Put(off uintptr, b []byte) error {
	dst, err := r.span(off, len(b))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

// Get returns n bytes of the row at off.
func (r *Row) Get(off uintptr, n int) ([]byte, error) {
	return r.span(off, n)
}

// PutSequence stores payload, holding count elements, in the global heap
// and writes the reference at off.
func (r *Row) PutSequence(off uintptr, payload []byte, count int) error {
	if count < 0 || uint64(count) > math.MaxUint32 {
		return errors.Wrapf(ErrUnsupportedType, "row %d: sequence of %d elements", r.index, count)
	}
	dst, err := r.span(off, varLenSize)
	if err != nil {
		return err
	}
	ref, err := r.file.PutVarLen(payload, uint32(count))
	if err != nil {
		return errors.Wrapf(err, "row %d", r.index)
	}
	copy(dst, ref)
	return nil
}

// Sequence resolves the reference at off, returning the payload and its
// element count.
func (r *Row) Sequence(off uintptr) ([]byte, int, error) {
	ref, err := r.span(off, varLenSize)
	if err != nil {
		return nil, 0, err
	}
	payload, count, err := r.file.ResolveVarLen(ref)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "row %d", r.index)
	}
	return payload, int(count), nil
}

// PutString stores s as variable-length text referenced from off.
func (r *Row) PutString(off uintptr, s string) error {
	if !utf8.ValidString(s) {
		return errors.Errorf("row %d: string is not valid UTF-8", r.index)
	}
	return r.PutSequence(off, []byte(s), len(s))
}

// String resolves variable-length text referenced from off.
func (r *Row) String(off uintptr) (string, error) {
	payload, _, err := r.Sequence(off)
	return string(payload), err
}

// rowWindow walks a one-dimensional dataset one element at a time.
type rowWindow struct {
	ds  *hdf5.Dataset
	row Row
}

func newRowWindow(ds *hdf5.Dataset, s *Schema) *rowWindow {
	return &rowWindow{
		ds:  ds,
		row: Row{file: ds.File(), buf: make([]byte, s.Size())},
	}
}

// selection is the file space of the current row.
func (w *rowWindow) selection() hdf5.Hyperslab {
	return hdf5.Hyperslab{
		Start:  []uint64{w.row.index},
		Count:  []uint64{1},
		Stride: []uint64{1},
		Block:  []uint64{1},
	}
}

// write serializes into the current row, stores it and advances.
func (w *rowWindow) write(fill func(*Row) error) error {
	for i := range w.row.buf {
		w.row.buf[i] = 0
	}
	if err := fill(&w.row); err != nil {
		return errors.Wrapf(err, "serializing row %d", w.row.index)
	}
	if err := w.ds.WriteSlab(w.selection(), w.row.buf); err != nil {
		return errors.Wrapf(err, "writing row %d", w.row.index)
	}
	w.row.index++
	return nil
}

// read loads the current row, deserializes it and advances.
func (w *rowWindow) read(drain func(*Row) error) error {
	raw, err := w.ds.ReadSlab(w.selection())
	if err != nil {
		return errors.Wrapf(err, "reading row %d", w.row.index)
	}
	w.row.buf = raw
	if err := drain(&w.row); err != nil {
		return errors.Wrapf(err, "deserializing row %d", w.row.index)
	}
	w.row.index++
	return nil
}
