package h5io

import (
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/h5records/hdf5"
	"github.com/robert-malhotra/h5records/internal/message"
)

// WriteStringVectorAttribute attaches values to h as a one-dimensional
// attribute of variable-length UTF-8 strings.
func WriteStringVectorAttribute(h AttributeHolder, name string, values []string, opts ...Option) error {
	o := newOptions(opts)
	if h.Attr(name) != nil {
		return errors.Wrapf(hdf5.ErrExists, "attribute %q", name)
	}
	for i, s := range values {
		if !utf8.ValidString(s) {
			return errors.Errorf("attribute %q: value %d is not valid UTF-8", name, i)
		}
	}
	raw := make([]byte, len(values)*varLenSize)
	row := Row{file: h.File()}
	for i, s := range values {
		row.index = uint64(i)
		row.buf = raw[i*varLenSize : (i+1)*varLenSize]
		if err := row.PutString(0, s); err != nil {
			return errors.Wrapf(err, "attribute %q", name)
		}
	}
	if err := h.CreateAttribute(name, VarString.Datatype(), []uint64{uint64(len(values))}, raw); err != nil {
		return errors.Wrapf(err, "writing attribute %q", name)
	}
	o.log.WithFields(logrus.Fields{
		"attribute": name,
		"rows":      len(values),
	}).Debug("wrote string vector attribute")
	return nil
}

// ReadStringVectorAttribute reads a one-dimensional string attribute of
// variable-length or fixed-length strings.
func ReadStringVectorAttribute(h AttributeHolder, name string, opts ...Option) ([]string, error) {
	a := h.Attr(name)
	if a == nil {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}
	if shape := a.Shape(); len(shape) != 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "attribute %q has shape %v", name, shape)
	}
	if !isString(a.Datatype()) {
		return nil, errors.Wrapf(ErrSchemaMismatch, "attribute %q is %s", name, a.Datatype())
	}
	values, err := a.Strings()
	return values, errors.Wrapf(err, "reading attribute %q", name)
}

func isString(dt *hdf5.Datatype) bool {
	return dt != nil && (dt.Class == message.ClassString || dt.IsVarString())
}
