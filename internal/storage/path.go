package storage

import "strings"

const maxNameLength = 255

// splitPath normalizes a path relative to a directory into its components.
// The path may not be absolute nor climb above the directory it is relative
// to. The returned flag is true when the path ends with a slash.
func splitPath(path string) (elems []string, trailingSlash bool, err error) {
	if strings.HasPrefix(path, "/") {
		return nil, false, ErrPermission
	}
	trailingSlash = strings.HasSuffix(path, "/")

	for _, elem := range strings.Split(path, "/") {
		switch elem {
		case "", ".":
		case "..":
			if len(elems) == 0 {
				return nil, false, ErrPermission
			}
			elems = elems[:len(elems)-1]
		default:
			if len(elem) > maxNameLength {
				return nil, false, ErrNameTooLong
			}
			if strings.IndexByte(elem, 0) >= 0 {
				return nil, false, ErrInvalid
			}
			elems = append(elems, elem)
		}
	}
	return elems, trailingSlash, nil
}

// lookup returns the child of dir named name.
func (fsys *FileSystem) lookup(dir *nodeRecord, name string) (*entryRecord, uint64, error) {
	if dir.FileType != DirectoryType {
		return nil, 0, ErrNotDirectory
	}
	b, ok, err := fsys.meta.Get(nameKey(dir.Node, name))
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, ErrNotExist
	}
	if len(b) != 8 {
		return nil, 0, ErrCorrupted
	}
	index := beUint64(b)
	entry, err := fsys.readEntry(dir.Node, index)
	if err != nil {
		return nil, 0, err
	}
	return entry, index, nil
}

// resolved is the outcome of resolving a path: the directory holding the
// last component, and the node it names when it exists.
//
// When intermediate directories are missing, parent is the deepest existing
// one and missing lists the directories to create below it.
type resolved struct {
	parent        *nodeRecord
	missing       []string
	name          string
	node          *nodeRecord
	index         uint64
	trailingSlash bool
}

// resolve walks path from the directory open at fd. When create is true,
// missing intermediate directories are recorded in the result rather than
// failing the resolution; createParents creates them.
func (fsys *FileSystem) resolve(fd Fd, path string, create bool) (*resolved, error) {
	f, err := fsys.fds.lookup(fd)
	if err != nil {
		return nil, err
	}
	base, err := fsys.readNode(f.node)
	if err != nil {
		return nil, err
	}
	if base.FileType != DirectoryType {
		return nil, ErrNotDirectory
	}
	elems, trailingSlash, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return &resolved{node: base, trailingSlash: trailingSlash}, nil
	}

	dir := base
	parents, last := elems[:len(elems)-1], elems[len(elems)-1]
	for i, name := range parents {
		entry, _, err := fsys.lookup(dir, name)
		if err == ErrNotExist && create {
			return &resolved{
				parent:        dir,
				missing:       parents[i:],
				name:          last,
				trailingSlash: trailingSlash,
			}, nil
		}
		if err != nil {
			return nil, err
		}
		if entry.typ != DirectoryType {
			return nil, ErrNotDirectory
		}
		if dir, err = fsys.readNode(entry.node); err != nil {
			return nil, err
		}
	}

	r := &resolved{
		parent:        dir,
		name:          last,
		trailingSlash: trailingSlash,
	}
	entry, index, err := fsys.lookup(dir, r.name)
	switch err {
	case nil:
		if r.node, err = fsys.readNode(entry.node); err != nil {
			return nil, err
		}
		r.index = index
		if trailingSlash && r.node.FileType != DirectoryType {
			return nil, ErrNotDirectory
		}
	case ErrNotExist:
	default:
		return nil, err
	}
	return r, nil
}

// createParents creates the missing intermediate directories of r, which
// must only be called once the last component is known to be creatable.
func (fsys *FileSystem) createParents(r *resolved) (err error) {
	for _, name := range r.missing {
		if r.parent, err = fsys.createNode(r.parent, name, DirectoryType); err != nil {
			return err
		}
	}
	r.missing = nil
	return nil
}

// resolveExisting is like resolve but fails when the path does not exist.
func (fsys *FileSystem) resolveExisting(fd Fd, path string) (*resolved, error) {
	r, err := fsys.resolve(fd, path, false)
	if err != nil {
		return nil, err
	}
	if r.node == nil {
		return nil, ErrNotExist
	}
	return r, nil
}
