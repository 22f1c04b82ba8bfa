package h5io

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/h5records/hdf5"
)

// WriteMatrix stores rows as a new two-dimensional dataset called name,
// one row at a time. T must be flat and every row as long as the first;
// nothing is created otherwise.
func WriteMatrix[T any](loc Location, name string, rows [][]T, opts ...Option) error {
	o := newOptions(opts)
	tr, err := flatTrait[T]()
	if err != nil {
		return err
	}
	var cols int
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	for i, row := range rows {
		if len(row) != cols {
			return errors.Wrapf(ErrRaggedShape, "row %d has %d columns, row 0 has %d", i, len(row), cols)
		}
	}

	dims := []uint64{uint64(len(rows)), uint64(cols)}
	ds, err := loc.CreateDataset(name, tr.Schema.Datatype(), dims)
	if err != nil {
		return errors.Wrapf(err, "creating dataset %q", name)
	}
	if cols > 0 {
		for i, row := range rows {
			if err := ds.WriteSlab(matrixRow(i, cols), bytesOf(row)); err != nil {
				return errors.Wrapf(err, "writing row %d of %q", i, name)
			}
		}
	}
	o.log.WithFields(logrus.Fields{
		"dataset": ds.Path(),
		"rows":    len(rows),
		"cols":    cols,
	}).Debug("wrote matrix")
	return nil
}

// ReadMatrix reads the two-dimensional dataset name row by row.
func ReadMatrix[T any](loc Location, name string, opts ...Option) ([][]T, error) {
	o := newOptions(opts)
	tr, err := flatTrait[T]()
	if err != nil {
		return nil, err
	}
	ds, err := openMatching(loc, name, tr.Schema, 2)
	if err != nil {
		return nil, err
	}
	shape := ds.Shape()
	rows, cols := int(shape[0]), int(shape[1])

	out := make([][]T, rows)
	for i := range out {
		out[i] = make([]T, cols)
		if cols == 0 {
			continue
		}
		raw, err := ds.ReadSlab(matrixRow(i, cols))
		if err != nil {
			return nil, errors.Wrapf(err, "reading row %d of %q", i, name)
		}
		copy(bytesOf(out[i]), raw)
	}
	o.log.WithFields(logrus.Fields{
		"dataset": ds.Path(),
		"rows":    rows,
		"cols":    cols,
	}).Debug("read matrix")
	return out, nil
}

// matrixRow selects row i of a matrix with cols columns.
func matrixRow(i, cols int) hdf5.Hyperslab {
	return hdf5.Hyperslab{
		Start:  []uint64{uint64(i), 0},
		Count:  []uint64{1, 1},
		Stride: []uint64{1, 1},
		Block:  []uint64{1, uint64(cols)},
	}
}
