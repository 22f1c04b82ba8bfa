package hdf5

// WalkFunc receives each object Walk visits: a *Group or *Dataset under
// its absolute path, or the error that prevented opening it. A non-nil
// return stops the walk and is returned by Walk.
type WalkFunc func(path string, obj interface{}, err error) error

// Walk visits g and everything below it depth first, parents before
// children and members in link order.
func Walk(g *Group, fn WalkFunc) error {
	if err := fn(g.Path(), g, nil); err != nil {
		return err
	}

	members, err := g.Members()
	if err != nil {
		return fn(g.Path(), nil, err)
	}
	for _, name := range members {
		obj, err := g.Open(name)
		if err != nil {
			if err := fn(joinPath(g.Path(), name), nil, err); err != nil {
				return err
			}
			continue
		}
		switch o := obj.(type) {
		case *Group:
			err = Walk(o, fn)
		case *Dataset:
			err = fn(o.Path(), o, nil)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// AttrInfo locates an attribute found by WalkAttrs.
type AttrInfo struct {
	ObjectPath string
	ObjectType string // "group" or "dataset"
	Attr       *Attribute
}

// Path returns the attribute path in "object@attribute" form.
func (i AttrInfo) Path() string {
	return i.ObjectPath + "@" + i.Attr.Name()
}

// WalkAttrsFunc receives each attribute; a non-nil return stops the walk.
type WalkAttrsFunc func(info AttrInfo) error

// WalkAttrs calls fn for every attribute of every group and dataset in the
// file. Objects that cannot be opened are skipped.
func (f *File) WalkAttrs(fn WalkAttrsFunc) error {
	return Walk(f.Root(), func(path string, obj interface{}, err error) error {
		if err != nil {
			return nil
		}
		var (
			kind  string
			names []string
			attr  func(string) *Attribute
		)
		switch o := obj.(type) {
		case *Group:
			kind, names, attr = "group", o.Attrs(), o.Attr
		case *Dataset:
			kind, names, attr = "dataset", o.Attrs(), o.Attr
		}
		for _, name := range names {
			a := attr(name)
			if a == nil {
				continue
			}
			if err := fn(AttrInfo{ObjectPath: path, ObjectType: kind, Attr: a}); err != nil {
				return err
			}
		}
		return nil
	})
}
