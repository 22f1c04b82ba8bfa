package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/h5records/h5io"
	"github.com/robert-malhotra/h5records/hdf5"
	"github.com/robert-malhotra/h5records/internal/demo"
)

// writeDemo creates path, stores the demo sample under group (the root
// when empty) and reads it back to check the round trip.
func writeDemo(w io.Writer, path, group string) error {
	log := logrus.WithField("file", path)
	f, err := hdf5.Create(path, hdf5.WithLogger(log))
	if err != nil {
		return errors.Wrap(err, "create file")
	}
	defer f.Close()

	var loc h5io.Location = f.Root()
	if group != "" {
		g, err := f.Root().CreateGroup(group)
		if err != nil {
			return errors.Wrapf(err, "create group %q", group)
		}
		loc = g
	}

	want := demo.NewSample()
	if err := demo.Write(loc, want, h5io.WithLogger(log)); err != nil {
		return err
	}
	got, err := demo.Read(loc, h5io.WithLogger(log))
	if err != nil {
		return err
	}
	if len(got.Matrix) != len(want.Matrix) || len(got.Complex) != len(want.Complex) {
		return errors.Errorf("read back %d matrix rows and %d complex records, wrote %d and %d",
			len(got.Matrix), len(got.Complex), len(want.Matrix), len(want.Complex))
	}

	allocated, heap := f.AllocStats(), f.HeapStats()
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close file")
	}
	fmt.Fprintf(w, "wrote %s: %s; %d heap objects in %d collections (%s)\n",
		path, formatAllocStats(allocated), heap.Objects, heap.Collections, humanize.IBytes(heap.Bytes))
	return nil
}
