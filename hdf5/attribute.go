package hdf5

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/h5records/internal/message"
)

// Attribute represents an HDF5 attribute attached to a dataset or group.
type Attribute struct {
	file *File // for resolving global heap references
	msg  *message.Attribute
}

// Name returns the attribute name.
func (a *Attribute) Name() string {
	return a.msg.Name
}

// Shape returns the dimensions of the attribute value; nil for a scalar.
func (a *Attribute) Shape() []uint64 {
	if a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar() {
		return nil
	}
	return append([]uint64(nil), a.msg.Dataspace.Dims...)
}

// NumElements returns the total number of elements.
func (a *Attribute) NumElements() uint64 {
	if a.msg.Dataspace == nil {
		return 1
	}
	return a.msg.Dataspace.NumElements()
}

// IsScalar returns true if the attribute is a scalar value.
func (a *Attribute) IsScalar() bool {
	return a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar()
}

// Datatype returns the element type.
func (a *Attribute) Datatype() *Datatype {
	return a.msg.Datatype
}

// Raw returns the stored bytes: NumElements elements of Datatype().Size
// bytes each. Variable-length elements are heap references.
func (a *Attribute) Raw() []byte {
	return a.msg.Data
}

// Strings returns the values of a fixed-length or variable-length string
// attribute.
func (a *Attribute) Strings() ([]string, error) {
	dt := a.msg.Datatype
	if dt == nil || (dt.Class != message.ClassString && !dt.IsVarString()) {
		return nil, fmt.Errorf("attribute %q is not a string", a.msg.Name)
	}
	n := a.NumElements()
	size := uint64(dt.Size)
	if uint64(len(a.msg.Data)) < n*size {
		return nil, fmt.Errorf("%w: attribute %q holds %d bytes", ErrSize, a.msg.Name, len(a.msg.Data))
	}
	out := make([]string, n)
	for i := range out {
		v, err := decodeElement(a.file, dt, a.msg.Data[uint64(i)*size:uint64(i+1)*size])
		if err != nil {
			return nil, fmt.Errorf("attribute %q element %d: %w", a.msg.Name, i, err)
		}
		out[i] = v.(string)
	}
	return out, nil
}

// String returns the value of a scalar or single-element string
// attribute.
func (a *Attribute) String() (string, error) {
	s, err := a.Strings()
	if err != nil {
		return "", err
	}
	if len(s) != 1 {
		return "", fmt.Errorf("attribute %q holds %d strings", a.msg.Name, len(s))
	}
	return s[0], nil
}

// Value reads the attribute and returns an auto-typed Go value, using the
// types described at DecodeElements. Scalars return a single value, other
// dataspaces a []interface{}.
func (a *Attribute) Value() (interface{}, error) {
	values, err := DecodeElements(a.file, a.msg.Datatype, a.msg.Data, a.NumElements())
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.msg.Name, err)
	}
	if a.IsScalar() && len(values) == 1 {
		return values[0], nil
	}
	return values, nil
}

// trimString cuts a fixed-length string at its padding.
func trimString(b []byte, pad message.StringPadding) string {
	if pad == message.PadSpacePad {
		return strings.TrimRight(string(b), " ")
	}
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
