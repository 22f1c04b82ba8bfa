package hdf5

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/h5records/internal/alloc"
	"github.com/robert-malhotra/h5records/internal/btree"
	"github.com/robert-malhotra/h5records/internal/heap"
	"github.com/robert-malhotra/h5records/internal/message"
	"github.com/robert-malhotra/h5records/internal/object"
)

// node is the shared state of an opened group or dataset. Every handle to
// the same path refers to one node, so a header moved by a rewrite is seen
// through all of them.
type node struct {
	file   *File
	parent *node
	name   string
	path   string
	group  bool

	addr   uint64
	hdr    *object.Header
	chunk  int            // message capacity of the first chunk
	blocks []object.Block // file space holding the header

	// symbols caches the members of a symbol table group.
	symbols []*message.Link
}

func (f *File) readNode(parent *node, name, path string, addr uint64) (*node, error) {
	hdr, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, err
	}
	if parent == nil && f.sb.Legacy() && hdr.SymbolTable() == nil && !f.reader.IsUndefined(f.sb.RootBTree) {
		// The superblock's root entry caches the symbol table.
		hdr.Messages = append(hdr.Messages, &message.SymbolTable{BTreeAddress: f.sb.RootBTree, HeapAddress: f.sb.RootHeap})
	}
	n := &node{
		file:   f,
		parent: parent,
		name:   name,
		path:   path,
		addr:   addr,
		hdr:    hdr,
		chunk:  hdr.ChunkSize,
		blocks: hdr.Blocks(),
	}
	switch {
	case hdr.IsGroup():
		n.group = true
	case hdr.IsDataset():
	default:
		return nil, fmt.Errorf("%w: %s is neither a group nor a dataset", ErrUnsupported, path)
	}
	return n, nil
}

// headroom is the spare chunk space given to a header when it is written
// at a new address, so that a few attributes or links fit without moving
// it again.
func headroom(need int) int {
	h := need / 2
	if h < 64 {
		h = 64
	}
	if h > 4096 {
		h = 4096
	}
	return h
}

// writeNewHeader allocates and writes a header for msgs. The caller holds
// f.mu and fills in the node's place in the hierarchy.
func (f *File) writeNewHeader(msgs []message.Message, minChunk int) (*node, error) {
	need, err := object.MessagesSize(f.cfg, msgs)
	if err != nil {
		return nil, headerError(err)
	}
	if m := need + headroom(need); m > minChunk {
		minChunk = m
	}
	chunk := object.ChunkFor(need, minChunk)
	raw, err := object.Encode(f.cfg, msgs, chunk)
	if err != nil {
		return nil, err
	}
	addr := f.alloc.Alloc(uint64(len(raw)), alloc.KindHeader)
	if err := f.writer.At(int64(addr)).WriteBytes(raw); err != nil {
		return nil, fmt.Errorf("writing object header: %w", err)
	}
	block := object.Block{Addr: addr, Size: uint64(len(raw))}
	return &node{
		file:   f,
		addr:   addr,
		hdr:    &object.Header{Address: addr, Messages: msgs, ChunkSize: chunk, Chunk: block},
		chunk:  chunk,
		blocks: []object.Block{block},
	}, nil
}

// rewrite stores n's messages. The header is rewritten in place when they
// fit its first chunk; otherwise it moves to a new block and the link that
// names it is updated, which may in turn move the parent. The caller holds
// f.mu.
func (f *File) rewrite(n *node) error {
	if n.hdr.Version != 2 {
		return fmt.Errorf("%w: rewriting version %d object header of %s", ErrUnsupported, n.hdr.Version, n.path)
	}
	need, err := object.MessagesSize(f.cfg, n.hdr.Messages)
	if err != nil {
		return headerError(err)
	}

	if object.ChunkFor(need, n.chunk) == n.chunk {
		raw, err := object.Encode(f.cfg, n.hdr.Messages, n.chunk)
		if err != nil {
			return err
		}
		if err := f.writer.At(int64(n.addr)).WriteBytes(raw); err != nil {
			return fmt.Errorf("rewriting %s: %w", n.path, err)
		}
		// Continuation blocks are no longer referenced.
		for _, b := range n.blocks[1:] {
			f.alloc.Abandon(b.Addr, b.Size)
		}
		n.blocks = n.blocks[:1]
		return nil
	}

	minChunk := 0
	if n.group {
		minChunk = object.MinGroupChunkSize
	}
	moved, err := f.writeNewHeader(n.hdr.Messages, minChunk)
	if err != nil {
		return err
	}
	for _, b := range n.blocks {
		f.alloc.Abandon(b.Addr, b.Size)
	}
	f.log.WithFields(logrus.Fields{
		"path": n.path,
		"from": n.addr,
		"to":   moved.addr,
	}).Debug("relocated object header")

	n.addr, n.chunk, n.blocks = moved.addr, moved.chunk, moved.blocks
	n.hdr.Address = moved.addr
	if n.parent == nil {
		f.sb.RootAddress = n.addr
		return nil
	}
	link, err := n.parent.link(n.name)
	if err != nil {
		return err
	}
	link.Address = n.addr
	return f.rewrite(n.parent)
}

func headerError(err error) error {
	if errors.Is(err, object.ErrMessageTooLarge) {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return err
}

// link returns the link called name in group n.
func (n *node) link(name string) (*message.Link, error) {
	links, err := n.links()
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		if l.Name == name {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, joinPath(n.path, name))
}

// links returns the members of group n: the link messages of a compact
// group, or the entries of a symbol table group in name order. The caller
// holds f.mu.
func (n *node) links() ([]*message.Link, error) {
	if li := n.hdr.LinkInfo(); li != nil && li.Dense() {
		return nil, fmt.Errorf("%w: dense link storage in %s", ErrUnsupported, n.path)
	}
	st := n.hdr.SymbolTable()
	if st == nil {
		return n.hdr.Links(), nil
	}
	if n.symbols != nil {
		return n.symbols, nil
	}

	f := n.file
	names, err := heap.ReadLocalHeap(f.reader, st.HeapAddress)
	if err != nil {
		return nil, fmt.Errorf("reading names of %s: %w", n.path, err)
	}
	entries, err := btree.ReadGroup(f.reader, st.BTreeAddress, names)
	if err != nil {
		return nil, fmt.Errorf("reading members of %s: %w", n.path, err)
	}
	links := make([]*message.Link, 0, len(entries))
	for _, e := range entries {
		if e.Soft {
			links = append(links, &message.Link{LinkType: message.LinkSoft, Name: e.Name, Target: e.Target})
			continue
		}
		links = append(links, message.NewHardLink(e.Name, e.Address))
	}
	f.log.WithFields(logrus.Fields{
		"path":    n.path,
		"members": len(links),
	}).Debug("read symbol table")
	n.symbols = links
	return links, nil
}

// resolve walks path from n. Absolute paths start at the root. The caller
// holds f.mu.
func (f *File) resolve(from *node, path string) (*node, error) {
	cur := from
	if len(path) > 0 && path[0] == '/' {
		cur = f.root
	}
	for _, name := range SplitPath(path) {
		if !cur.group {
			return nil, fmt.Errorf("%w: %s", ErrNotGroup, cur.path)
		}
		p := joinPath(cur.path, name)
		if n, ok := f.nodes[p]; ok {
			cur = n
			continue
		}
		link, err := cur.link(name)
		if err != nil {
			return nil, err
		}
		if !link.IsHard() {
			return nil, fmt.Errorf("%w: symbolic link %s", ErrUnsupported, p)
		}
		n, err := f.readNode(cur, name, p, link.Address)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", p, err)
		}
		f.nodes[p] = n
		cur = n
	}
	return cur, nil
}

func (n *node) attributeNames() []string {
	f := n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	var names []string
	for _, m := range n.hdr.Attributes() {
		names = append(names, m.Name)
	}
	return names
}

func (n *node) attribute(name string) *Attribute {
	f := n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	if m := n.findAttribute(name); m != nil {
		return &Attribute{file: f, msg: m}
	}
	return nil
}

func (n *node) findAttribute(name string) *message.Attribute {
	for _, m := range n.hdr.Attributes() {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (n *node) createAttribute(name string, dt *Datatype, dims []uint64, raw []byte) error {
	f := n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(true); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return err
	}
	if dt == nil {
		return fmt.Errorf("attribute %q: missing datatype", name)
	}
	if n.findAttribute(name) != nil {
		return fmt.Errorf("%w: attribute %q on %s", ErrExists, name, n.path)
	}
	ds := dataspaceFor(dims)
	if want := ds.NumElements() * uint64(dt.Size); uint64(len(raw)) != want {
		return fmt.Errorf("%w: attribute %q needs %d bytes, got %d", ErrSize, name, want, len(raw))
	}

	msg := message.NewAttribute(name, dt, ds, append([]byte(nil), raw...))
	if size := msg.EncodedSize(f.cfg); size > object.MaxMessageSize {
		return fmt.Errorf("%w: attribute %q of %d bytes exceeds header message limit", ErrUnsupported, name, size)
	}
	n.hdr.Messages = append(n.hdr.Messages, msg)
	if err := f.rewrite(n); err != nil {
		n.hdr.Messages = n.hdr.Messages[:len(n.hdr.Messages)-1]
		return err
	}
	f.log.WithFields(logrus.Fields{
		"path":      n.path,
		"attribute": name,
		"bytes":     len(raw),
	}).Debug("created attribute")
	return nil
}

func dataspaceFor(dims []uint64) *message.Dataspace {
	if len(dims) == 0 {
		return message.NewScalarDataspace()
	}
	return message.NewDataspace(dims)
}
