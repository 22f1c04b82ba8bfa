// Package hdf5 is a pure Go reader and writer for the subset of HDF5 used
// to store typed records: version 2/3 superblocks, version 2 object
// headers, compact groups, contiguous datasets, attributes and global heap
// variable-length data.
//
// Files with a legacy (version 0/1) superblock can be read: version 1
// object headers, symbol table groups and chunked datasets, including
// deflate, shuffle and fletcher32 filtered chunks. They are never written.
package hdf5

import (
	"errors"

	"github.com/robert-malhotra/h5records/internal/superblock"
)

// Common errors
var (
	ErrNotHDF5     = superblock.ErrNotHDF5
	ErrNotFound    = errors.New("object not found")
	ErrExists      = errors.New("object already exists")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrUnsupported = errors.New("unsupported feature")
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("file is closed")
	ErrReadOnly    = errors.New("file is not writable")
	ErrSelection   = errors.New("invalid selection")
	ErrSize        = errors.New("buffer size does not match selection")
)
