package storage

import (
	"github.com/stealthrocket/stablefs/internal/stable"
)

func (fsys *FileSystem) readMount(node Node) (*mountRecord, error) {
	b, ok, err := fsys.meta.Get(mountKey(node))
	if err != nil {
		return nil, err
	}
	m := new(mountRecord)
	if !ok {
		return m, nil
	}
	return m, m.unmarshal(b)
}

func (fsys *FileSystem) writeMount(node Node, m *mountRecord) error {
	return fsys.meta.Put(mountKey(node), m.marshal())
}

// mounted resolves path to a regular file which has a memory mounted.
func (fsys *FileSystem) mounted(dir Fd, path string) (*nodeRecord, stable.Memory, error) {
	r, err := fsys.resolveExisting(dir, path)
	if err != nil {
		return nil, nil, err
	}
	mem, ok := fsys.mounts[r.node.Node]
	if !ok {
		return nil, nil, ErrInvalid
	}
	return r.node, mem, nil
}

// Mount binds mem to the regular file at path, creating the file if it does
// not exist. Until it is unmounted, the content of the file is read from and
// written to mem.
//
// The size of the mounted content is recorded with the file, so mounting the
// same memory again exposes the same content. Mounting does not copy data
// between the file and the memory; see InitMemoryFile and StoreMemoryFile.
func (fsys *FileSystem) Mount(dir Fd, path string, mem stable.Memory) error {
	r, err := fsys.resolve(dir, path, true)
	if err != nil {
		return err
	}
	rec := r.node
	if rec == nil {
		if r.trailingSlash {
			return ErrIsDirectory
		}
		if err := fsys.createParents(r); err != nil {
			return err
		}
		if rec, err = fsys.createNode(r.parent, r.name, RegularFileType); err != nil {
			return err
		}
	}
	if rec.FileType != RegularFileType {
		return ErrIsDirectory
	}
	if !fsys.meta.Has(mountKey(rec.Node)) {
		m := &mountRecord{
			accessTime: rec.AccessTime,
			modifyTime: rec.ModifyTime,
			changeTime: rec.ChangeTime,
		}
		if err := fsys.writeMount(rec.Node, m); err != nil {
			return err
		}
	}
	fsys.mounts[rec.Node] = mem
	return nil
}

// Unmount releases the memory mounted at path. The content of the file is
// read from the storage again.
func (fsys *FileSystem) Unmount(dir Fd, path string) error {
	rec, _, err := fsys.mounted(dir, path)
	if err != nil {
		return err
	}
	delete(fsys.mounts, rec.Node)
	return nil
}

// InitMemoryFile copies the content of the file at path from the storage to
// its mounted memory.
func (fsys *FileSystem) InitMemoryFile(dir Fd, path string) error {
	rec, mem, err := fsys.mounted(dir, path)
	if err != nil {
		return err
	}
	if err := stable.EnsureCapacity(mem, rec.Size); err != nil {
		return ErrNoSpace
	}
	buf := make([]byte, chunkSize)
	for offset := uint64(0); offset < rec.Size; {
		n, err := fsys.readChunks(rec.Node, buf, offset, rec.Size)
		if err != nil {
			return err
		}
		if _, err := mem.WriteAt(buf[:n], int64(offset)); err != nil {
			return err
		}
		offset += uint64(n)
	}
	m, err := fsys.readMount(rec.Node)
	if err != nil {
		return err
	}
	m.size = rec.Size
	m.modifyTime, m.changeTime = rec.ModifyTime, fsys.now()
	return fsys.writeMount(rec.Node, m)
}

// StoreMemoryFile copies the content of the mounted memory of the file at
// path to the storage.
func (fsys *FileSystem) StoreMemoryFile(dir Fd, path string) error {
	rec, mem, err := fsys.mounted(dir, path)
	if err != nil {
		return err
	}
	m, err := fsys.readMount(rec.Node)
	if err != nil {
		return err
	}
	if m.size < rec.Size {
		if err := fsys.truncateChunks(rec.Node, m.size); err != nil {
			return err
		}
	}
	buf := make([]byte, chunkSize)
	for offset := uint64(0); offset < m.size; {
		n, err := readMemory(mem, buf, offset, m.size)
		if err != nil {
			return err
		}
		if err := fsys.writeChunks(rec.Node, buf[:n], offset); err != nil {
			return err
		}
		offset += uint64(n)
	}
	rec.Size = m.size
	rec.ModifyTime = m.modifyTime
	rec.ChangeTime = fsys.now()
	return fsys.writeNode(rec)
}
