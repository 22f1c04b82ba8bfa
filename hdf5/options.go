package hdf5

import (
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/h5records/internal/heap"
)

// FileOption configures Create, Open and OpenReadWrite.
type FileOption func(*fileOptions)

type fileOptions struct {
	log      logrus.FieldLogger
	heapSize uint64
}

func defaultFileOptions() *fileOptions {
	return &fileOptions{
		log:      logrus.StandardLogger(),
		heapSize: heap.MinCollectionSize,
	}
}

// WithLogger sets the logger used for debug output. Fields identifying the
// file are added to every entry.
func WithLogger(log logrus.FieldLogger) FileOption {
	return func(o *fileOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithHeapCollectionSize sets the size of new global heap collections.
// Values below 4096 bytes are raised to 4096.
func WithHeapCollectionSize(size uint64) FileOption {
	return func(o *fileOptions) {
		o.heapSize = size
	}
}
