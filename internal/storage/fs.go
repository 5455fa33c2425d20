package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/stealthrocket/stablefs/internal/stable"
	"go.uber.org/zap"
)

// RootPath is the name under which the root directory is preopened.
const RootPath = "/"

// FileSystem is a tree of files and directories persisted in two stable
// memories: one holding the metadata of the tree, the other the content of
// files, split in chunks.
//
// The table of open descriptors lives in the Go heap and is written to the
// metadata memory by Checkpoint; reopening a file system over the same
// memories restores the tree, and the descriptors of the last checkpoint.
//
// FileSystem values are not safe for concurrent use.
type FileSystem struct {
	meta     *Log
	data     *Log
	opts     options
	fds      *fdTable
	mounts   map[Node]stable.Memory
	nextNode Node
}

// New opens the file system stored in the meta and data memories. Blank
// memories are formatted with an empty root directory.
func New(meta, data stable.Memory, opts ...Option) (*FileSystem, error) {
	fsys := &FileSystem{
		opts:   defaultOptions(),
		fds:    newFdTable(),
		mounts: make(map[Node]stable.Memory),
	}
	for _, opt := range opts {
		opt(&fsys.opts)
	}

	var err error
	logger := fsys.opts.logger
	fsys.meta, err = OpenLog(meta, append(opts, WithLogger(logger.With(zap.String("log", "metadata"))))...)
	if err != nil {
		return nil, fmt.Errorf("opening metadata log: %w", err)
	}
	fsys.data, err = OpenLog(data, append(opts, WithLogger(logger.With(zap.String("log", "data"))))...)
	if err != nil {
		return nil, fmt.Errorf("opening data log: %w", err)
	}
	if err := fsys.load(); err != nil {
		return nil, err
	}
	return fsys, nil
}

// Open is like New but fails with ErrNotInitialized instead of formatting
// blank memories.
func Open(meta, data stable.Memory, opts ...Option) (*FileSystem, error) {
	for _, mem := range []stable.Memory{meta, data} {
		if mem.Size() == 0 {
			return nil, ErrNotInitialized
		}
		var magic [4]byte
		if _, err := mem.ReadAt(magic[:], 0); err != nil {
			return nil, err
		}
		if string(magic[:]) != logMagic {
			return nil, ErrNotInitialized
		}
	}
	return New(meta, data, opts...)
}

func (fsys *FileSystem) load() error {
	b, ok, err := fsys.meta.Get(superblockKey)
	if err != nil {
		return err
	}
	if !ok {
		return fsys.format()
	}
	if len(b) != superblockSize {
		return fmt.Errorf("%w: superblock has invalid length %d", ErrCorrupted, len(b))
	}
	fsys.nextNode = Node(binary.LittleEndian.Uint64(b))

	if b, ok, err := fsys.meta.Get(fdTableKey); err != nil {
		return err
	} else if ok {
		skipped, err := fsys.fds.unmarshal(b, func(node Node) bool {
			return fsys.meta.Has(nodeKey(node))
		})
		if err != nil {
			return err
		}
		if skipped > 0 {
			fsys.opts.logger.Warn("dropped descriptors of removed files from checkpoint",
				zap.Int("count", skipped))
		}
	}
	fsys.fds.insert(RootFd, &fileDescriptor{node: RootNode, stat: fsys.opts.rootRights})
	return fsys.collectOrphans()
}

func (fsys *FileSystem) format() error {
	now := fsys.now()
	root := &nodeRecord{
		Metadata: Metadata{
			Node:       RootNode,
			FileType:   DirectoryType,
			Links:      1,
			AccessTime: now,
			ModifyTime: now,
			ChangeTime: now,
		},
		NextIndex: 2,
		Parent:    RootNode,
	}
	fsys.nextNode = RootNode + 1
	if err := fsys.writeNode(root); err != nil {
		return err
	}
	if err := fsys.writeSuperblock(); err != nil {
		return err
	}
	fsys.fds.insert(RootFd, &fileDescriptor{node: RootNode, stat: fsys.opts.rootRights})
	return nil
}

// collectOrphans frees the nodes which were unlinked while open and never
// closed before the descriptor table was lost.
func (fsys *FileSystem) collectOrphans() error {
	from, _ := prefixRange(nodePrefix, 0)
	var orphans []Node
	var err error
	fsys.meta.Ascend(from, string([]byte{nodePrefix + 1}), func(key string) bool {
		node := nodeFromKey(key)
		var rec *nodeRecord
		if rec, err = fsys.readNode(node); err != nil {
			return false
		}
		if rec.Links == 0 && !fsys.fds.opened(node) {
			orphans = append(orphans, node)
		}
		return true
	})
	if err != nil {
		return err
	}
	for _, node := range orphans {
		if err := fsys.freeNode(node); err != nil {
			return err
		}
	}
	if len(orphans) > 0 {
		fsys.opts.logger.Info("freed orphaned nodes", zap.Int("count", len(orphans)))
	}
	return nil
}

func (fsys *FileSystem) now() uint64 {
	return uint64(fsys.opts.clock.Now().UnixNano())
}

func (fsys *FileSystem) writeSuperblock() error {
	b := make([]byte, superblockSize)
	binary.LittleEndian.PutUint64(b, uint64(fsys.nextNode))
	return fsys.meta.Put(superblockKey, b)
}

func (fsys *FileSystem) readNode(node Node) (*nodeRecord, error) {
	b, ok, err := fsys.meta.Get(nodeKey(node))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotExist
	}
	rec := new(nodeRecord)
	return rec, rec.unmarshal(node, b)
}

func (fsys *FileSystem) writeNode(rec *nodeRecord) error {
	return fsys.meta.Put(nodeKey(rec.Node), rec.marshal())
}

func (fsys *FileSystem) readEntry(dir Node, index uint64) (*entryRecord, error) {
	b, ok, err := fsys.meta.Get(entryKey(dir, index))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: missing entry %d of directory %d", ErrCorrupted, index, dir)
	}
	entry := new(entryRecord)
	return entry, entry.unmarshal(b)
}

// createNode allocates a node of the given type and links it in parent.
func (fsys *FileSystem) createNode(parent *nodeRecord, name string, typ FileType) (*nodeRecord, error) {
	now := fsys.now()
	rec := &nodeRecord{
		Metadata: Metadata{
			Node:       fsys.nextNode,
			FileType:   typ,
			Links:      1,
			AccessTime: now,
			ModifyTime: now,
			ChangeTime: now,
		},
	}
	if typ == DirectoryType {
		rec.NextIndex = 2
		rec.Parent = parent.Node
	}
	fsys.nextNode++
	if err := fsys.writeSuperblock(); err != nil {
		return nil, err
	}
	if err := fsys.writeNode(rec); err != nil {
		return nil, err
	}
	if err := fsys.addEntry(parent, name, rec.Node, typ); err != nil {
		return nil, err
	}
	return rec, nil
}

func (fsys *FileSystem) addEntry(parent *nodeRecord, name string, node Node, typ FileType) error {
	index := parent.NextIndex
	parent.NextIndex++
	entry := &entryRecord{node: node, typ: typ, name: name}
	if err := fsys.meta.Put(entryKey(parent.Node, index), entry.marshal()); err != nil {
		return err
	}
	if err := fsys.meta.Put(nameKey(parent.Node, name), putBeUint64(index)); err != nil {
		return err
	}
	parent.ModifyTime = fsys.now()
	parent.ChangeTime = parent.ModifyTime
	return fsys.writeNode(parent)
}

func (fsys *FileSystem) removeEntry(parent *nodeRecord, name string, index uint64) error {
	if err := fsys.meta.Delete(entryKey(parent.Node, index)); err != nil {
		return err
	}
	if err := fsys.meta.Delete(nameKey(parent.Node, name)); err != nil {
		return err
	}
	parent.ModifyTime = fsys.now()
	parent.ChangeTime = parent.ModifyTime
	return fsys.writeNode(parent)
}

// unlinkNode drops one link to rec, freeing the node when it was the last
// one and no descriptor references it.
func (fsys *FileSystem) unlinkNode(rec *nodeRecord) error {
	if rec.Links > 0 {
		rec.Links--
	}
	if rec.Links == 0 && !fsys.fds.opened(rec.Node) {
		return fsys.freeNode(rec.Node)
	}
	rec.ChangeTime = fsys.now()
	return fsys.writeNode(rec)
}

func (fsys *FileSystem) freeNode(node Node) error {
	if err := fsys.truncateChunks(node, 0); err != nil {
		return err
	}
	delete(fsys.mounts, node)
	if err := fsys.meta.Delete(mountKey(node)); err != nil {
		return err
	}
	return fsys.meta.Delete(nodeKey(node))
}

func (fsys *FileSystem) isEmpty(dir Node) bool {
	from, to := prefixRange(entryPrefix, dir)
	empty := true
	fsys.meta.Ascend(from, to, func(string) bool {
		empty = false
		return false
	})
	return empty
}

func (fsys *FileSystem) firstChild(dir *nodeRecord) uint64 {
	from, to := prefixRange(entryPrefix, dir.Node)
	first := dir.NextIndex
	fsys.meta.Ascend(from, to, func(key string) bool {
		first = entryIndex(key)
		return false
	})
	return first
}

// file returns the descriptor open at fd and its node, which must not be a
// directory.
func (fsys *FileSystem) file(fd Fd) (*fileDescriptor, *nodeRecord, error) {
	f, err := fsys.fds.lookup(fd)
	if err != nil {
		return nil, nil, err
	}
	rec, err := fsys.readNode(f.node)
	if err != nil {
		return nil, nil, err
	}
	if rec.FileType == DirectoryType {
		return nil, nil, ErrBadDescriptor
	}
	return f, rec, nil
}

// Open opens the path relative to the directory open at dir and returns a
// new descriptor carrying stat.
//
// With Create, the missing file is created along with its missing parent
// directories; with Create and Directory, a directory is created instead.
// Truncate empties an existing regular file.
func (fsys *FileSystem) Open(dir Fd, path string, stat FdStat, flags OpenFlags) (Fd, error) {
	r, err := fsys.resolve(dir, path, flags.Has(Create))
	if err != nil {
		return 0, err
	}

	rec := r.node
	switch {
	case rec != nil:
		if flags.Has(Create | Exclusive) {
			return 0, ErrExist
		}
		if flags.Has(Directory) && rec.FileType != DirectoryType {
			return 0, ErrNotDirectory
		}
		if flags.Has(Truncate) {
			if rec.FileType == DirectoryType {
				return 0, ErrIsDirectory
			}
			if err := fsys.setSize(rec, 0); err != nil {
				return 0, err
			}
		}
	case flags.Has(Create):
		typ := RegularFileType
		if flags.Has(Directory) {
			typ = DirectoryType
		} else if r.trailingSlash {
			return 0, ErrIsDirectory
		}
		if fsys.fds.full() {
			return 0, ErrTooManyFiles
		}
		if err := fsys.createParents(r); err != nil {
			return 0, err
		}
		if rec, err = fsys.createNode(r.parent, r.name, typ); err != nil {
			return 0, err
		}
	default:
		return 0, ErrNotExist
	}

	return fsys.fds.open(&fileDescriptor{node: rec.Node, stat: stat})
}

// Mkdir creates a directory. The parent directory must exist.
func (fsys *FileSystem) Mkdir(dir Fd, path string) error {
	r, err := fsys.resolve(dir, path, false)
	if err != nil {
		return err
	}
	if r.node != nil {
		return ErrExist
	}
	_, err = fsys.createNode(r.parent, r.name, DirectoryType)
	return err
}

// Close releases a descriptor. Files unlinked while open are freed when
// their last descriptor is closed. The root descriptor cannot be closed.
func (fsys *FileSystem) Close(fd Fd) error {
	if fd <= RootFd {
		return ErrBadDescriptor
	}
	node, last, err := fsys.fds.close(fd)
	if err != nil || !last {
		return err
	}
	rec, err := fsys.readNode(node)
	if err != nil {
		return err
	}
	if rec.Links == 0 {
		return fsys.freeNode(node)
	}
	return nil
}

// Read reads from the cursor of fd and advances it. A short count means the
// end of the file was reached.
func (fsys *FileSystem) Read(fd Fd, p []byte) (int, error) {
	f, rec, err := fsys.file(fd)
	if err != nil {
		return 0, err
	}
	n, err := fsys.readData(rec, p, f.cursor)
	f.cursor += uint64(n)
	return n, err
}

// ReadAt reads at offset without moving the cursor of fd.
func (fsys *FileSystem) ReadAt(fd Fd, p []byte, offset uint64) (int, error) {
	_, rec, err := fsys.file(fd)
	if err != nil {
		return 0, err
	}
	return fsys.readData(rec, p, offset)
}

// Write writes at the cursor of fd, or at the end of the file when fd has
// the Append flag, and moves the cursor past the written bytes.
func (fsys *FileSystem) Write(fd Fd, p []byte) (int, error) {
	f, rec, err := fsys.file(fd)
	if err != nil {
		return 0, err
	}
	offset := f.cursor
	if f.stat.Flags.Has(Append) {
		if offset, err = fsys.size(rec); err != nil {
			return 0, err
		}
	}
	n, err := fsys.writeData(rec, p, offset)
	f.cursor = offset + uint64(n)
	return n, err
}

// WriteAt writes at offset without moving the cursor of fd. When fd was
// opened in append mode, offset is ignored and p goes to the end of the file.
func (fsys *FileSystem) WriteAt(fd Fd, p []byte, offset uint64) (int, error) {
	f, rec, err := fsys.file(fd)
	if err != nil {
		return 0, err
	}
	if f.stat.Flags.Has(Append) {
		if offset, err = fsys.size(rec); err != nil {
			return 0, err
		}
	}
	return fsys.writeData(rec, p, offset)
}

// Seek moves the cursor of fd. Seeking past the end of the file is allowed,
// seeking before its beginning is not.
func (fsys *FileSystem) Seek(fd Fd, delta int64, whence Whence) (uint64, error) {
	f, rec, err := fsys.file(fd)
	if err != nil {
		return 0, err
	}
	var base uint64
	switch whence {
	case SeekStart:
	case SeekCurrent:
		base = f.cursor
	case SeekEnd:
		if base, err = fsys.size(rec); err != nil {
			return 0, err
		}
	default:
		return 0, ErrInvalid
	}
	offset := int64(base) + delta
	if offset < 0 || (delta > 0 && offset < int64(base)) {
		return 0, ErrInvalid
	}
	f.cursor = uint64(offset)
	return f.cursor, nil
}

// Tell returns the cursor of fd.
func (fsys *FileSystem) Tell(fd Fd) (uint64, error) {
	f, _, err := fsys.file(fd)
	if err != nil {
		return 0, err
	}
	return f.cursor, nil
}

// Metadata returns the metadata of the node open at fd.
func (fsys *FileSystem) Metadata(fd Fd) (Metadata, error) {
	f, err := fsys.fds.lookup(fd)
	if err != nil {
		return Metadata{}, err
	}
	rec, err := fsys.readNode(f.node)
	if err != nil {
		return Metadata{}, err
	}
	return fsys.metadata(rec)
}

// PathMetadata returns the metadata of the node at path.
func (fsys *FileSystem) PathMetadata(dir Fd, path string) (Metadata, error) {
	r, err := fsys.resolveExisting(dir, path)
	if err != nil {
		return Metadata{}, err
	}
	return fsys.metadata(r.node)
}

func (fsys *FileSystem) metadata(rec *nodeRecord) (Metadata, error) {
	md := rec.Metadata
	if _, ok := fsys.mounts[rec.Node]; ok {
		m, err := fsys.readMount(rec.Node)
		if err != nil {
			return Metadata{}, err
		}
		md.Size = m.size
		md.AccessTime = m.accessTime
		md.ModifyTime = m.modifyTime
		md.ChangeTime = m.changeTime
	}
	return md, nil
}

// SetSize truncates or extends the file open at fd. Extended regions read as
// zeros.
func (fsys *FileSystem) SetSize(fd Fd, size uint64) error {
	_, rec, err := fsys.file(fd)
	if err != nil {
		return err
	}
	return fsys.setSize(rec, size)
}

// SetTimes updates the access and modification times of the node open at
// fd. Nil times are left unchanged.
func (fsys *FileSystem) SetTimes(fd Fd, accessTime, modifyTime *uint64) error {
	f, err := fsys.fds.lookup(fd)
	if err != nil {
		return err
	}
	rec, err := fsys.readNode(f.node)
	if err != nil {
		return err
	}
	return fsys.setTimes(rec, accessTime, modifyTime)
}

// SetPathTimes is like SetTimes for the node at path.
func (fsys *FileSystem) SetPathTimes(dir Fd, path string, accessTime, modifyTime *uint64) error {
	r, err := fsys.resolveExisting(dir, path)
	if err != nil {
		return err
	}
	return fsys.setTimes(r.node, accessTime, modifyTime)
}

func (fsys *FileSystem) setTimes(rec *nodeRecord, accessTime, modifyTime *uint64) error {
	now := fsys.now()
	if _, ok := fsys.mounts[rec.Node]; ok {
		m, err := fsys.readMount(rec.Node)
		if err != nil {
			return err
		}
		if accessTime != nil {
			m.accessTime = *accessTime
		}
		if modifyTime != nil {
			m.modifyTime = *modifyTime
		}
		m.changeTime = now
		return fsys.writeMount(rec.Node, m)
	}
	if accessTime != nil {
		rec.AccessTime = *accessTime
	}
	if modifyTime != nil {
		rec.ModifyTime = *modifyTime
	}
	rec.ChangeTime = now
	return fsys.writeNode(rec)
}

// DirEntries calls fn for the entries of the directory open at fd, starting
// at cookie, until fn returns false. The entries "." and ".." come first.
func (fsys *FileSystem) DirEntries(fd Fd, cookie uint64, fn func(DirEntry) bool) error {
	f, err := fsys.fds.lookup(fd)
	if err != nil {
		return err
	}
	dir, err := fsys.readNode(f.node)
	if err != nil {
		return err
	}
	if dir.FileType != DirectoryType {
		return ErrNotDirectory
	}

	if cookie == 0 {
		if !fn(DirEntry{Index: 0, Next: 1, Node: dir.Node, Type: DirectoryType, Name: "."}) {
			return nil
		}
	}
	if cookie <= 1 {
		parent := dir.Parent
		if parent == 0 {
			parent = dir.Node
		}
		if !fn(DirEntry{Index: 1, Next: fsys.firstChild(dir), Node: parent, Type: DirectoryType, Name: ".."}) {
			return nil
		}
	}
	if cookie < 2 {
		cookie = 2
	}

	from, to := entryKey(dir.Node, cookie), string(makeKey(entryPrefix, uint64(dir.Node)+1))
	fsys.meta.Ascend(from, to, func(key string) bool {
		index := entryIndex(key)
		var entry *entryRecord
		if entry, err = fsys.readEntry(dir.Node, index); err != nil {
			return false
		}
		return fn(DirEntry{
			Index: index,
			Next:  index + 1,
			Node:  entry.node,
			Type:  entry.typ,
			Name:  entry.name,
		})
	})
	return err
}

// Rename moves the node at oldPath to newPath, replacing the file or empty
// directory found there.
func (fsys *FileSystem) Rename(oldDir Fd, oldPath string, newDir Fd, newPath string) error {
	src, err := fsys.resolveExisting(oldDir, oldPath)
	if err != nil {
		return err
	}
	dst, err := fsys.resolve(newDir, newPath, false)
	if err != nil {
		return err
	}
	if src.parent == nil || dst.parent == nil {
		return ErrInvalid
	}
	isDir := src.node.FileType == DirectoryType
	if dst.trailingSlash && !isDir {
		return ErrNotDirectory
	}
	if dst.parent.Node == src.parent.Node {
		dst.parent = src.parent
	}
	if isDir {
		for n := dst.parent; ; {
			if n.Node == src.node.Node {
				return ErrInvalid
			}
			if n.Node == RootNode || n.Parent == 0 || n.Parent == n.Node {
				break
			}
			if n, err = fsys.readNode(n.Parent); err != nil {
				return err
			}
		}
	}

	if dst.node != nil {
		if dst.node.Node == src.node.Node {
			return nil
		}
		switch dstIsDir := dst.node.FileType == DirectoryType; {
		case !isDir && dstIsDir:
			return ErrAccess
		case isDir && !dstIsDir:
			return ErrNotDirectory
		case isDir && !fsys.isEmpty(dst.node.Node):
			return ErrNotEmpty
		}
		if err := fsys.removeEntry(dst.parent, dst.name, dst.index); err != nil {
			return err
		}
		if err := fsys.unlinkNode(dst.node); err != nil {
			return err
		}
	}

	if err := fsys.removeEntry(src.parent, src.name, src.index); err != nil {
		return err
	}
	if err := fsys.addEntry(dst.parent, dst.name, src.node.Node, src.node.FileType); err != nil {
		return err
	}
	if isDir {
		src.node.Parent = dst.parent.Node
	}
	src.node.ChangeTime = fsys.now()
	return fsys.writeNode(src.node)
}

// Link creates a hard link at newPath to the file at oldPath.
func (fsys *FileSystem) Link(oldDir Fd, oldPath string, newDir Fd, newPath string) error {
	src, err := fsys.resolveExisting(oldDir, oldPath)
	if err != nil {
		return err
	}
	if src.node.FileType == DirectoryType {
		return ErrPermission
	}
	dst, err := fsys.resolve(newDir, newPath, false)
	if err != nil {
		return err
	}
	if dst.node != nil {
		return ErrExist
	}
	if dst.trailingSlash {
		return ErrNotDirectory
	}
	if err := fsys.addEntry(dst.parent, dst.name, src.node.Node, src.node.FileType); err != nil {
		return err
	}
	src.node.Links++
	src.node.ChangeTime = fsys.now()
	return fsys.writeNode(src.node)
}

// RemoveFile unlinks the file at path.
func (fsys *FileSystem) RemoveFile(dir Fd, path string) error {
	r, err := fsys.resolveExisting(dir, path)
	if err != nil {
		return err
	}
	if r.parent == nil || r.node.FileType == DirectoryType {
		return ErrIsDirectory
	}
	if err := fsys.removeEntry(r.parent, r.name, r.index); err != nil {
		return err
	}
	return fsys.unlinkNode(r.node)
}

// RemoveDir removes the empty directory at path.
func (fsys *FileSystem) RemoveDir(dir Fd, path string) error {
	r, err := fsys.resolveExisting(dir, path)
	if err != nil {
		return err
	}
	if r.parent == nil {
		return ErrInvalid
	}
	if r.node.FileType != DirectoryType {
		return ErrNotDirectory
	}
	if !fsys.isEmpty(r.node.Node) {
		return ErrNotEmpty
	}
	if err := fsys.removeEntry(r.parent, r.name, r.index); err != nil {
		return err
	}
	return fsys.unlinkNode(r.node)
}

// Renumber moves the descriptor from to the number to, closing the
// descriptor previously open at to. The reserved descriptors cannot be
// renumbered.
func (fsys *FileSystem) Renumber(from, to Fd) error {
	if from <= RootFd || to <= RootFd {
		return ErrNotSupported
	}
	if _, err := fsys.fds.lookup(from); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if _, err := fsys.fds.lookup(to); err == nil {
		if err := fsys.Close(to); err != nil {
			return err
		}
	}
	if to >= maxOpenFiles {
		return ErrTooManyFiles
	}
	return fsys.fds.renumber(from, to)
}

// Flush writes the content of the file open at fd to its memory.
func (fsys *FileSystem) Flush(fd Fd) error {
	_, rec, err := fsys.file(fd)
	if err != nil {
		return err
	}
	if mem, ok := fsys.mounts[rec.Node]; ok {
		if s, ok := mem.(interface{ Sync() error }); ok {
			if err := s.Sync(); err != nil {
				return err
			}
		}
	}
	if err := fsys.data.Sync(); err != nil {
		return err
	}
	return fsys.meta.Sync()
}

// Advise validates an access pattern hint for the file open at fd. Hints
// have no effect on the storage.
func (fsys *FileSystem) Advise(fd Fd, offset, length uint64, advice Advice) error {
	if _, _, err := fsys.file(fd); err != nil {
		return err
	}
	if advice > AdviceNoReuse {
		return ErrInvalid
	}
	return nil
}

// Allocate extends the file open at fd so it covers [offset, offset+length).
func (fsys *FileSystem) Allocate(fd Fd, offset, length uint64) error {
	_, rec, err := fsys.file(fd)
	if err != nil {
		return err
	}
	if length == 0 {
		return ErrInvalid
	}
	end := offset + length
	if end < offset {
		return ErrFileTooLarge
	}
	size, err := fsys.size(rec)
	if err != nil {
		return err
	}
	if end <= size {
		return nil
	}
	return fsys.setSize(rec, end)
}

// Stat returns the flags and rights of fd.
func (fsys *FileSystem) Stat(fd Fd) (FdStat, error) {
	f, err := fsys.fds.lookup(fd)
	if err != nil {
		return FdStat{}, err
	}
	return f.stat, nil
}

// SetStat replaces the flags and rights of fd.
func (fsys *FileSystem) SetStat(fd Fd, stat FdStat) error {
	f, err := fsys.fds.lookup(fd)
	if err != nil {
		return err
	}
	f.stat = stat
	return nil
}

// RootFd returns the descriptor of the root directory.
func (fsys *FileSystem) RootFd() Fd { return RootFd }

// RootPath returns the name of the root directory.
func (fsys *FileSystem) RootPath() string { return RootPath }

// StorageVersion returns the layout version of the metadata memory.
func (fsys *FileSystem) StorageVersion() uint32 { return fsys.meta.Version() }

// ID returns the identifier generated when the file system was formatted.
func (fsys *FileSystem) ID() uuid.UUID { return fsys.meta.ID() }

// Checkpoint writes the descriptor table to the metadata memory and flushes
// both memories.
func (fsys *FileSystem) Checkpoint() error {
	if err := fsys.meta.Put(fdTableKey, fsys.fds.marshal()); err != nil {
		return err
	}
	if err := fsys.data.Sync(); err != nil {
		return err
	}
	return fsys.meta.Sync()
}

// Compact reclaims the space held by overwritten and deleted records.
func (fsys *FileSystem) Compact() error {
	if err := fsys.meta.Compact(); err != nil {
		return err
	}
	return fsys.data.Compact()
}

// Stats describes the state of a file system.
type Stats struct {
	ID        string   `json:"id"         yaml:"id"`
	Version   uint32   `json:"version"    yaml:"version"`
	Nodes     uint64   `json:"nodes"      yaml:"nodes"`
	OpenFiles int      `json:"open_files" yaml:"open_files"`
	Mounts    int      `json:"mounts"     yaml:"mounts"`
	Metadata  LogStats `json:"metadata"   yaml:"metadata"`
	Data      LogStats `json:"data"       yaml:"data"`
}

// Stats returns the space accounting of the file system.
func (fsys *FileSystem) Stats() Stats {
	var nodes uint64
	from, _ := prefixRange(nodePrefix, 0)
	fsys.meta.Ascend(from, string([]byte{nodePrefix + 1}), func(string) bool {
		nodes++
		return true
	})
	return Stats{
		ID:        fsys.meta.ID().String(),
		Version:   fsys.meta.Version(),
		Nodes:     nodes,
		OpenFiles: len(fsys.fds.table),
		Mounts:    len(fsys.mounts),
		Metadata:  fsys.meta.Stats(),
		Data:      fsys.data.Stats(),
	}
}
