package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/h5records/hdf5"
	"github.com/robert-malhotra/h5records/internal/alloc"
)

type dumpOptions struct {
	values    bool
	maxValues int
}

// dumpFiles inspects paths concurrently and prints the reports in argument
// order. Reports of files that could not be read are replaced by the error.
func dumpFiles(ctx context.Context, w io.Writer, paths []string, opts dumpOptions, jobs int) error {
	reports := make([]bytes.Buffer, len(paths))
	failed := make([]error, len(paths))

	eg, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		eg.SetLimit(jobs)
	}
	for i, path := range paths {
		i, path := i, path
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := dumpFile(&reports[i], path, opts); err != nil {
				logrus.WithField("file", path).WithError(err).Debug("dump failed")
				failed[i] = err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	var nfailed int
	for i := range paths {
		if _, err := reports[i].WriteTo(w); err != nil {
			return err
		}
		if failed[i] != nil {
			nfailed++
			fmt.Fprintf(w, "ERROR: %s: %v\n", paths[i], failed[i])
		}
	}
	if nfailed > 0 {
		return errors.Errorf("%d of %d files could not be dumped", nfailed, len(paths))
	}
	return nil
}

func dumpFile(w io.Writer, path string, opts dumpOptions) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	f, err := hdf5.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(w, "=== %s (%s, superblock v%d) ===\n", path, humanize.IBytes(uint64(info.Size())), f.Version())

	var groups, datasets int
	var stored uint64
	err = hdf5.Walk(f.Root(), func(p string, obj interface{}, err error) error {
		indent := strings.Repeat("  ", depth(p))
		if err != nil {
			fmt.Fprintf(w, "%s%s: ERROR %v\n", indent, p, err)
			return nil
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			groups++
			members, _ := o.NumObjects()
			fmt.Fprintf(w, "%sGROUP %q (%d members)\n", indent, p, members)
			dumpAttrs(w, indent+"  ", f, o.Attrs(), o.Attr, opts)
		case *hdf5.Dataset:
			datasets++
			stored += o.StorageSize()
			fmt.Fprintf(w, "%sDATASET %q %s %s %s, %s\n", indent, p,
				formatShape(o.Shape()), o.Datatype(), o.Layout(), humanize.IBytes(o.StorageSize()))
			if opts.values {
				dumpDatasetValues(w, indent+"    ", f, o, opts.maxValues)
			}
			dumpAttrs(w, indent+"  ", f, o.Attrs(), o.Attr, opts)
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d groups, %d datasets, %s of raw data\n\n", groups, datasets, humanize.IBytes(stored))
	return nil
}

func dumpAttrs(w io.Writer, indent string, f *hdf5.File, names []string, attr func(string) *hdf5.Attribute, opts dumpOptions) {
	for _, name := range names {
		a := attr(name)
		if a == nil {
			continue
		}
		fmt.Fprintf(w, "%sATTRIBUTE %q %s %s\n", indent, name, formatShape(a.Shape()), a.Datatype())
		if opts.values {
			n := limit(a.NumElements(), opts.maxValues)
			vals, err := hdf5.DecodeElements(f, a.Datatype(), a.Raw(), n)
			writeValues(w, indent+"    ", vals, n < a.NumElements(), err)
		}
	}
}

func dumpDatasetValues(w io.Writer, indent string, f *hdf5.File, ds *hdf5.Dataset, maxValues int) {
	total := ds.NumElements()
	n := limit(total, maxValues)
	if n == 0 {
		return
	}
	raw, err := ds.ReadRaw()
	if err != nil {
		writeValues(w, indent, nil, false, err)
		return
	}
	vals, err := hdf5.DecodeElements(f, ds.Datatype(), raw, n)
	writeValues(w, indent, vals, n < total, err)
}

func writeValues(w io.Writer, indent string, vals []interface{}, truncated bool, err error) {
	if err != nil {
		fmt.Fprintf(w, "%sERROR %v\n", indent, err)
		return
	}
	for i, v := range vals {
		fmt.Fprintf(w, "%s[%d] %v\n", indent, i, v)
	}
	if truncated {
		fmt.Fprintf(w, "%s...\n", indent)
	}
}

func limit(n uint64, max int) uint64 {
	if max > 0 && n > uint64(max) {
		return uint64(max)
	}
	return n
}

func formatShape(dims []uint64) string {
	if dims == nil {
		return "scalar"
	}
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = fmt.Sprint(d)
	}
	return "(" + strings.Join(parts, "x") + ")"
}

func depth(p string) int {
	return len(hdf5.SplitPath(p))
}

// formatAllocStats renders what a write session allocated, by kind.
func formatAllocStats(s alloc.Stats) string {
	parts := []string{
		fmt.Sprintf("headers %s", humanize.IBytes(s.Bytes[alloc.KindHeader])),
		fmt.Sprintf("data %s", humanize.IBytes(s.Bytes[alloc.KindData])),
		fmt.Sprintf("heap %s", humanize.IBytes(s.Bytes[alloc.KindHeap])),
	}
	if s.Abandoned > 0 {
		parts = append(parts, fmt.Sprintf("abandoned %s", humanize.IBytes(s.Abandoned)))
	}
	return strings.Join(parts, ", ")
}
