// Package h5io maps typed Go records onto HDF5 datasets and attributes.
//
// Every record type is registered once with a Trait: a Schema describing
// its on-disk layout and a Codec saying how values reach the file. Flat
// types are copied in bulk straight from Go memory. Types that own strings
// or slices are transformed one row at a time, their variable-length
// payloads going to the file's global heap.
package h5io

import "github.com/pkg/errors"

var (
	// ErrUnsupportedType is returned for types with no registered trait,
	// and for types that are not flat where only flat types are allowed.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrRaggedShape is returned when matrix rows differ in length.
	ErrRaggedShape = errors.New("matrix rows differ in length")

	// ErrSchemaMismatch is returned when stored data has a different
	// element type than the record type.
	ErrSchemaMismatch = errors.New("stored type does not match schema")

	// ErrShapeMismatch is returned when stored data has an unexpected rank.
	ErrShapeMismatch = errors.New("stored shape does not match")

	// ErrInvalidSchema is returned for malformed schemas and traits.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrDuplicateType is returned when a type is registered twice.
	ErrDuplicateType = errors.New("type already registered")

	// ErrNotFound is returned when an attribute does not exist.
	ErrNotFound = errors.New("attribute not found")
)
