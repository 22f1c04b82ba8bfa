package h5io

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/h5records/hdf5"
)

// AttributeHolder is a group or dataset that carries attributes.
type AttributeHolder interface {
	CreateAttribute(name string, dt *hdf5.Datatype, dims []uint64, raw []byte) error
	Attr(name string) *hdf5.Attribute
	File() *hdf5.File
}

// Location is a group in which datasets are created and opened.
type Location interface {
	AttributeHolder
	CreateDataset(name string, dt *hdf5.Datatype, dims []uint64) (*hdf5.Dataset, error)
	OpenDataset(name string) (*hdf5.Dataset, error)
}

// flatTrait returns T's trait, which must be flat.
func flatTrait[T any]() (Trait[T], error) {
	tr, err := Lookup[T]()
	if err != nil {
		return tr, err
	}
	if tr.Codec.kind != CodecFlat {
		return tr, errors.Wrapf(ErrUnsupportedType, "%s is not flat", typeOf[T]())
	}
	return tr, nil
}

// WriteAttribute attaches v to h as a scalar attribute. T must be flat.
func WriteAttribute[T any](h AttributeHolder, name string, v T, opts ...Option) error {
	o := newOptions(opts)
	tr, err := flatTrait[T]()
	if err != nil {
		return err
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&v)), tr.Schema.Size())
	if err := h.CreateAttribute(name, tr.Schema.Datatype(), nil, raw); err != nil {
		return errors.Wrapf(err, "writing attribute %q", name)
	}
	o.log.WithFields(logrus.Fields{
		"attribute": name,
		"schema":    tr.Schema.String(),
	}).Debug("wrote attribute")
	return nil
}

// ReadAttribute reads the scalar attribute name of h as a T.
func ReadAttribute[T any](h AttributeHolder, name string, opts ...Option) (T, error) {
	var v T
	tr, err := flatTrait[T]()
	if err != nil {
		return v, err
	}
	a, err := scalarAttr(h, name)
	if err != nil {
		return v, err
	}
	if !tr.Schema.Matches(a.Datatype()) {
		return v, errors.Wrapf(ErrSchemaMismatch, "attribute %q is %s, want %s", name, a.Datatype(), tr.Schema)
	}
	raw := a.Raw()
	if uintptr(len(raw)) != tr.Schema.Size() {
		return v, errors.Wrapf(ErrSchemaMismatch, "attribute %q holds %d bytes", name, len(raw))
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), tr.Schema.Size()), raw)
	return v, nil
}

func scalarAttr(h AttributeHolder, name string) (*hdf5.Attribute, error) {
	a := h.Attr(name)
	if a == nil {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}
	if !a.IsScalar() {
		return nil, errors.Wrapf(ErrShapeMismatch, "attribute %q has shape %v", name, a.Shape())
	}
	return a, nil
}

// WriteStringAttribute attaches value to h as a scalar fixed-length
// string attribute.
func WriteStringAttribute(h AttributeHolder, name, value string, opts ...Option) error {
	o := newOptions(opts)
	n := len(value)
	if n == 0 {
		n = 1
	}
	raw := make([]byte, n)
	copy(raw, value)
	if err := h.CreateAttribute(name, FixedString(n).Datatype(), nil, raw); err != nil {
		return errors.Wrapf(err, "writing attribute %q", name)
	}
	o.log.WithField("attribute", name).Debug("wrote string attribute")
	return nil
}

// ReadStringAttribute reads a scalar string attribute, fixed or variable
// length.
func ReadStringAttribute(h AttributeHolder, name string, opts ...Option) (string, error) {
	a, err := scalarAttr(h, name)
	if err != nil {
		return "", err
	}
	if !isString(a.Datatype()) {
		return "", errors.Wrapf(ErrSchemaMismatch, "attribute %q is %s", name, a.Datatype())
	}
	s, err := a.String()
	return s, errors.Wrapf(err, "reading attribute %q", name)
}
