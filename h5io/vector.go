package h5io

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/h5records/hdf5"
)

// WriteVector stores values as a new one-dimensional dataset called name.
// Flat types are written in one bulk copy; others row by row through
// their serializer. A failing row leaves the rows before it written.
func WriteVector[T any](loc Location, name string, values []T, opts ...Option) error {
	o := newOptions(opts)
	tr, err := Lookup[T]()
	if err != nil {
		return err
	}
	ds, err := loc.CreateDataset(name, tr.Schema.Datatype(), []uint64{uint64(len(values))})
	if err != nil {
		return errors.Wrapf(err, "creating dataset %q", name)
	}

	switch tr.Codec.kind {
	case CodecFlat:
		if err := ds.Write(bytesOf(values)); err != nil {
			return errors.Wrapf(err, "writing dataset %q", name)
		}
	case CodecCustom:
		w := newRowWindow(ds, tr.Schema)
		for i := range values {
			v := &values[i]
			if err := w.write(func(row *Row) error { return tr.Codec.ser(v, row) }); err != nil {
				return errors.Wrapf(err, "dataset %q", name)
			}
		}
	}
	o.log.WithFields(logrus.Fields{
		"dataset": ds.Path(),
		"rows":    len(values),
		"mode":    tr.Codec.kind.String(),
	}).Debug("wrote vector")
	return nil
}

// ReadVector reads the one-dimensional dataset name as a []T.
func ReadVector[T any](loc Location, name string, opts ...Option) ([]T, error) {
	o := newOptions(opts)
	tr, err := Lookup[T]()
	if err != nil {
		return nil, err
	}
	ds, err := openMatching(loc, name, tr.Schema, 1)
	if err != nil {
		return nil, err
	}
	n := ds.Shape()[0]

	out := make([]T, n)
	switch tr.Codec.kind {
	case CodecFlat:
		raw, err := ds.ReadRaw()
		if err != nil {
			return nil, errors.Wrapf(err, "reading dataset %q", name)
		}
		copy(bytesOf(out), raw)
	case CodecCustom:
		w := newRowWindow(ds, tr.Schema)
		for i := range out {
			err := w.read(func(row *Row) error {
				v, err := tr.Codec.deser(row)
				out[i] = v
				return err
			})
			if err != nil {
				return nil, errors.Wrapf(err, "dataset %q", name)
			}
		}
	}
	o.log.WithFields(logrus.Fields{
		"dataset": ds.Path(),
		"rows":    n,
		"mode":    tr.Codec.kind.String(),
	}).Debug("read vector")
	return out, nil
}

// openMatching opens dataset name and checks its rank and element type.
func openMatching(loc Location, name string, s *Schema, rank int) (*hdf5.Dataset, error) {
	ds, err := loc.OpenDataset(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening dataset %q", name)
	}
	if shape := ds.Shape(); len(shape) != rank {
		return nil, errors.Wrapf(ErrShapeMismatch, "dataset %q has shape %v, want rank %d", name, shape, rank)
	}
	if dt := ds.Datatype(); !s.Matches(dt) {
		return nil, errors.Wrapf(ErrSchemaMismatch, "dataset %q is %s, want %s", name, dt, s)
	}
	return ds, nil
}
