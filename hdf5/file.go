package hdf5

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/h5records/internal/alloc"
	"github.com/robert-malhotra/h5records/internal/binary"
	"github.com/robert-malhotra/h5records/internal/heap"
	"github.com/robert-malhotra/h5records/internal/object"
	"github.com/robert-malhotra/h5records/internal/superblock"
)

// File represents an open HDF5 file.
//
// All methods on a File and on the groups, datasets and attributes opened
// from it are safe for concurrent use; mutations are serialized by the
// file.
type File struct {
	mu sync.Mutex

	path   string
	file   *os.File
	data   section
	cfg    binary.Config
	reader *binary.Reader
	sb     *superblock.Superblock
	log    logrus.FieldLogger
	closed bool

	// Write support fields
	writable bool
	writer   *binary.Writer
	alloc    *alloc.Allocator
	heapw    *heap.Writer
	physical int64 // bytes of address space backed by the file

	root  *node
	heaps map[uint64]*heap.Collection
	nodes map[string]*node // by path
}

// section addresses the file relative to the base address.
type section struct {
	f    *os.File
	base int64
}

func (s section) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off+s.base) }

func (s section) WriteAt(p []byte, off int64) (int, error) { return s.f.WriteAt(p, off+s.base) }

// Create creates a new file at path, truncating any existing file. The
// file starts with a version 3 superblock and an empty root group.
func Create(path string, opts ...FileOption) (*File, error) {
	options := defaultFileOptions()
	for _, opt := range opts {
		opt(options)
	}

	osFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	sb := superblock.New()
	f := newFile(path, osFile, sb, options)
	f.writable = true
	f.alloc = alloc.New(uint64(sb.Size()))
	f.writer = binary.NewWriter(f.data, f.cfg)
	f.heapw = heap.NewWriter(f.writer, f.alloc, options.heapSize)

	root, err := f.writeNewHeader(object.NewGroupMessages(nil), object.MinGroupChunkSize)
	if err != nil {
		osFile.Close()
		return nil, fmt.Errorf("writing root group: %w", err)
	}
	root.path, root.group = "/", true
	sb.RootAddress = root.addr
	f.nodes["/"] = root
	f.root = root

	if err := f.flush(); err != nil {
		osFile.Close()
		return nil, err
	}
	f.log.WithField("eof", f.alloc.EOF()).Debug("created file")
	return f, nil
}

// Open opens an existing file for reading. Files with a legacy superblock
// are supported, including symbol table groups and chunked datasets.
func Open(path string, opts ...FileOption) (*File, error) {
	return open(path, os.O_RDONLY, opts)
}

// OpenReadWrite opens an existing file for reading and writing. New
// objects are appended after the current end of file. Files with a legacy
// superblock cannot be opened for writing.
func OpenReadWrite(path string, opts ...FileOption) (*File, error) {
	return open(path, os.O_RDWR, opts)
}

func open(path string, flag int, opts []FileOption) (*File, error) {
	options := defaultFileOptions()
	for _, opt := range opts {
		opt(options)
	}

	osFile, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	sb, err := superblock.Read(osFile)
	if err != nil {
		osFile.Close()
		return nil, fmt.Errorf("reading superblock: %w", err)
	}

	f := newFile(path, osFile, sb, options)
	if flag&os.O_RDWR != 0 {
		if sb.Legacy() {
			osFile.Close()
			return nil, fmt.Errorf("%w: writing files with a version %d superblock", ErrUnsupported, sb.Version)
		}
		if sb.OffsetSize != 8 || sb.LengthSize != 8 {
			osFile.Close()
			return nil, fmt.Errorf("%w: writing files with %d-byte offsets", ErrUnsupported, sb.OffsetSize)
		}
		info, err := osFile.Stat()
		if err != nil {
			osFile.Close()
			return nil, err
		}
		f.writable = true
		f.physical = info.Size() - f.data.base
		f.alloc = alloc.New(sb.EOFAddress)
		f.writer = binary.NewWriter(f.data, f.cfg)
		f.heapw = heap.NewWriter(f.writer, f.alloc, options.heapSize)
	}

	root, err := f.readNode(nil, "", "/", sb.RootAddress)
	if err != nil {
		osFile.Close()
		return nil, fmt.Errorf("opening root group: %w", err)
	}
	if !root.group {
		osFile.Close()
		return nil, fmt.Errorf("root object: %w", ErrNotGroup)
	}
	f.nodes["/"] = root
	f.root = root
	return f, nil
}

func newFile(path string, osFile *os.File, sb *superblock.Superblock, options *fileOptions) *File {
	// Addresses are relative to the superblock, wherever a user block
	// placed it.
	data := section{f: osFile, base: sb.FileOffset}
	f := &File{
		path:  path,
		file:  osFile,
		data:  data,
		cfg:   sb.Config(),
		sb:    sb,
		log:   options.log.WithField("file", path),
		heaps: make(map[uint64]*heap.Collection),
		nodes: make(map[string]*node),
	}
	f.reader = binary.NewReader(f.data, f.cfg)
	return f
}

// Close flushes a writable file and releases it. Closing twice is a no-op.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	var err error
	if f.writable {
		err = f.flush()
	}
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Flush writes the superblock and syncs the file to disk.
func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if !f.writable {
		return nil
	}
	return f.flush()
}

func (f *File) flush() error {
	eof := f.alloc.EOF()
	f.sb.EOFAddress = eof
	if err := f.sb.Write(binary.NewWriter(f.file, f.cfg).At(f.sb.FileOffset)); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	if err := f.extend(eof); err != nil {
		return err
	}
	return f.file.Sync()
}

// extend makes the file at least eof bytes long so that unwritten
// allocations read back as zeros.
func (f *File) extend(eof uint64) error {
	if int64(eof) <= f.physical {
		return nil
	}
	if err := f.file.Truncate(f.data.base + int64(eof)); err != nil {
		return fmt.Errorf("extending file: %w", err)
	}
	f.physical = int64(eof)
	return nil
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Version returns the superblock version.
func (f *File) Version() int {
	return int(f.sb.Version)
}

// IsWritable reports whether the file was opened for writing.
func (f *File) IsWritable() bool {
	return f.writable
}

// Root returns the root group.
func (f *File) Root() *Group {
	return &Group{n: f.root}
}

// OpenGroup opens a group by absolute path.
func (f *File) OpenGroup(path string) (*Group, error) {
	return f.Root().OpenGroup(path)
}

// OpenDataset opens a dataset by absolute path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	return f.Root().OpenDataset(path)
}

// AllocStats returns what has been allocated since the file was opened.
func (f *File) AllocStats() alloc.Stats {
	if f.alloc == nil {
		return alloc.Stats{}
	}
	return f.alloc.Stats()
}

// HeapStats returns what has been stored in the global heap since the file
// was opened.
func (f *File) HeapStats() heap.Stats {
	if f.heapw == nil {
		return heap.Stats{}
	}
	return f.heapw.Stats()
}

// check reports why the file cannot be used, if it cannot. The caller
// holds f.mu.
func (f *File) check(write bool) error {
	if f.closed {
		return ErrClosed
	}
	if write && !f.writable {
		return ErrReadOnly
	}
	return nil
}
