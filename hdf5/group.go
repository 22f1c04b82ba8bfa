package hdf5

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/h5records/internal/alloc"
	"github.com/robert-malhotra/h5records/internal/message"
	"github.com/robert-malhotra/h5records/internal/object"
)

// Group represents an HDF5 group.
type Group struct {
	n *node
}

// Name returns the group name (last component of path).
func (g *Group) Name() string {
	if g.n.path == "/" {
		return "/"
	}
	return g.n.name
}

// Path returns the full path to this group.
func (g *Group) Path() string {
	return g.n.path
}

// File returns the file the group belongs to.
func (g *Group) File() *File {
	return g.n.file
}

// OpenGroup opens a subgroup by relative path. Paths starting with "/"
// are resolved from the root.
func (g *Group) OpenGroup(relativePath string) (*Group, error) {
	obj, err := g.Open(relativePath)
	if err != nil {
		return nil, err
	}
	sub, ok := obj.(*Group)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, relativePath)
	}
	return sub, nil
}

// OpenDataset opens a dataset by relative path.
func (g *Group) OpenDataset(relativePath string) (*Dataset, error) {
	obj, err := g.Open(relativePath)
	if err != nil {
		return nil, err
	}
	ds, ok := obj.(*Dataset)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, relativePath)
	}
	return ds, nil
}

// Open opens the object at relativePath and returns a *Group or *Dataset.
func (g *Group) Open(relativePath string) (interface{}, error) {
	f := g.n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(false); err != nil {
		return nil, err
	}
	n, err := f.resolve(g.n, relativePath)
	if err != nil {
		return nil, err
	}
	if n.group {
		return &Group{n: n}, nil
	}
	return &Dataset{n: n}, nil
}

// Members returns the names of all members of this group in link order;
// members of a symbol table group come in name order.
func (g *Group) Members() ([]string, error) {
	f := g.n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(false); err != nil {
		return nil, err
	}
	links, err := g.n.links()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, l := range links {
		names = append(names, l.Name)
	}
	return names, nil
}

// NumObjects returns the number of objects in this group.
func (g *Group) NumObjects() (int, error) {
	members, err := g.Members()
	return len(members), err
}

// Has reports whether the group has a member called name.
func (g *Group) Has(name string) bool {
	f := g.n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.check(false) != nil {
		return false
	}
	_, err := g.n.link(name)
	return err == nil
}

// CreateGroup creates an empty subgroup.
func (g *Group) CreateGroup(name string) (*Group, error) {
	f := g.n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := g.canCreate(name); err != nil {
		return nil, err
	}

	n, err := f.writeNewHeader(object.NewGroupMessages(nil), object.MinGroupChunkSize)
	if err != nil {
		return nil, err
	}
	n.group = true
	if err := g.attach(n, name); err != nil {
		return nil, err
	}
	f.log.WithField("path", n.path).Debug("created group")
	return &Group{n: n}, nil
}

// CreateDataset creates a contiguous dataset of the given element type and
// dimensions. Its storage is allocated immediately and reads as zeros until
// written. Empty dims create a scalar dataset.
func (g *Group) CreateDataset(name string, dt *Datatype, dims []uint64) (*Dataset, error) {
	f := g.n.file
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := g.canCreate(name); err != nil {
		return nil, err
	}
	if dt == nil || dt.Size == 0 {
		return nil, fmt.Errorf("dataset %q: missing datatype", name)
	}

	ds := dataspaceFor(dims)
	size := ds.NumElements() * uint64(dt.Size)
	var addr uint64
	if size > 0 {
		addr = f.alloc.Alloc(size, alloc.KindData)
		if err := f.extend(f.alloc.EOF()); err != nil {
			return nil, err
		}
	}

	n, err := f.writeNewHeader(object.NewDatasetMessages(ds, dt, message.NewContiguousLayout(addr, size)), 0)
	if err != nil {
		if size > 0 {
			f.alloc.Abandon(addr, size)
		}
		return nil, err
	}
	if err := g.attach(n, name); err != nil {
		return nil, err
	}
	f.log.WithFields(logrus.Fields{
		"path":  n.path,
		"type":  dt.String(),
		"dims":  dims,
		"bytes": size,
	}).Debug("created dataset")
	return &Dataset{n: n}, nil
}

// canCreate checks that name can be added to g. The caller holds f.mu.
func (g *Group) canCreate(name string) error {
	if err := g.n.file.check(true); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return err
	}
	if g.n.hdr.SymbolTable() != nil {
		return fmt.Errorf("%w: adding members to symbol table group %s", ErrUnsupported, g.n.path)
	}
	_, err := g.n.link(name)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrExists, joinPath(g.n.path, name))
	case errors.Is(err, ErrNotFound):
		return nil
	}
	return err
}

// attach links the new object n into g as name.
func (g *Group) attach(n *node, name string) error {
	f := g.n.file
	link := message.NewHardLink(name, n.addr)
	for i := 0; i < len(name); i++ {
		if name[i] >= 0x80 {
			link.Charset = message.CharsetUTF8
			break
		}
	}
	g.n.hdr.Messages = append(g.n.hdr.Messages, link)
	if err := f.rewrite(g.n); err != nil {
		g.n.hdr.Messages = g.n.hdr.Messages[:len(g.n.hdr.Messages)-1]
		for _, b := range n.blocks {
			f.alloc.Abandon(b.Addr, b.Size)
		}
		return err
	}
	n.parent, n.name, n.path = g.n, name, joinPath(g.n.path, name)
	f.nodes[n.path] = n
	return nil
}

// Attrs returns the attribute names for this group.
func (g *Group) Attrs() []string {
	return g.n.attributeNames()
}

// Attr returns an attribute by name, or nil if not found.
func (g *Group) Attr(name string) *Attribute {
	return g.n.attribute(name)
}

// HasAttr returns true if the group has an attribute with the given name.
func (g *Group) HasAttr(name string) bool {
	return g.Attr(name) != nil
}

// CreateAttribute attaches an attribute holding raw, which must contain
// exactly one element of dt for each element of dims. Empty dims create a
// scalar attribute.
func (g *Group) CreateAttribute(name string, dt *Datatype, dims []uint64, raw []byte) error {
	return g.n.createAttribute(name, dt, dims, raw)
}
