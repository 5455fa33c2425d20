package storage

import (
	"encoding/binary"
	"fmt"
)

// Node identifies a file or directory of the tree. Node numbers are never
// reused after a node is removed.
type Node uint64

// RootNode is the node of the root directory.
const RootNode Node = 1

// FileType is the type of a node. The values match the WASI filetype
// enumeration.
type FileType uint8

const (
	UnknownType FileType = iota
	BlockDeviceType
	CharacterDeviceType
	DirectoryType
	RegularFileType
	SocketDgramType
	SocketStreamType
	SymbolicLinkType
)

func (t FileType) String() string {
	switch t {
	case BlockDeviceType:
		return "block-device"
	case CharacterDeviceType:
		return "char-device"
	case DirectoryType:
		return "directory"
	case RegularFileType:
		return "file"
	case SocketDgramType:
		return "socket-dgram"
	case SocketStreamType:
		return "socket-stream"
	case SymbolicLinkType:
		return "symlink"
	default:
		return "unknown"
	}
}

// Metadata describes a node. Times are in nanoseconds since the epoch.
type Metadata struct {
	Node       Node     `json:"node"        yaml:"node"`
	FileType   FileType `json:"type"        yaml:"type"`
	Links      uint64   `json:"links"       yaml:"links"`
	Size       uint64   `json:"size"        yaml:"size"`
	AccessTime uint64   `json:"access_time" yaml:"access_time"`
	ModifyTime uint64   `json:"modify_time" yaml:"modify_time"`
	ChangeTime uint64   `json:"change_time" yaml:"change_time"`
}

// FdFlags are the descriptor flags. The values match the WASI fdflags bits.
type FdFlags uint16

const (
	Append FdFlags = 1 << iota
	DSync
	NonBlock
	RSync
	Sync
)

func (f FdFlags) Has(flags FdFlags) bool { return (f & flags) == flags }

// Rights are opaque capability bits carried by descriptors. The storage
// layer records them; enforcing them is left to the caller.
type Rights uint64

// AllRights has every capability bit set.
const AllRights = ^Rights(0)

func (r Rights) Has(rights Rights) bool { return (r & rights) == rights }

// FdStat is the state of a descriptor which is not derived from its node.
type FdStat struct {
	Flags            FdFlags
	RightsBase       Rights
	RightsInheriting Rights
}

// OpenFlags control how a path is opened.
type OpenFlags uint16

const (
	Create OpenFlags = 1 << iota
	Directory
	Exclusive
	Truncate
)

func (f OpenFlags) Has(flags OpenFlags) bool { return (f & flags) == flags }

// Whence is the reference point of a seek.
type Whence uint8

const (
	SeekStart Whence = iota
	SeekCurrent
	SeekEnd
)

// Advice is an access pattern hint given to Advise.
type Advice uint8

const (
	AdviceNormal Advice = iota
	AdviceSequential
	AdviceRandom
	AdviceWillNeed
	AdviceDontNeed
	AdviceNoReuse
)

// DirEntry is an entry returned by DirEntries.
//
// Index is the cookie of the entry itself and Next the cookie to resume the
// iteration after it. The entries "." and ".." have indexes 0 and 1.
type DirEntry struct {
	Index uint64
	Next  uint64
	Node  Node
	Type  FileType
	Name  string
}

// nodeRecord is the persisted form of a node, stored under M|node:
//
//	type   uint8
//	links  uint64
//	size   uint64
//	atime  uint64
//	mtime  uint64
//	ctime  uint64
//	next   uint64  next child index (directories)
//	parent uint64  parent directory (directories)
type nodeRecord struct {
	Metadata
	NextIndex uint64
	Parent    Node
}

const nodeRecordSize = 1 + 7*8

func (r *nodeRecord) marshal() []byte {
	b := make([]byte, nodeRecordSize)
	b[0] = byte(r.FileType)
	binary.LittleEndian.PutUint64(b[1:], r.Links)
	binary.LittleEndian.PutUint64(b[9:], r.Size)
	binary.LittleEndian.PutUint64(b[17:], r.AccessTime)
	binary.LittleEndian.PutUint64(b[25:], r.ModifyTime)
	binary.LittleEndian.PutUint64(b[33:], r.ChangeTime)
	binary.LittleEndian.PutUint64(b[41:], r.NextIndex)
	binary.LittleEndian.PutUint64(b[49:], uint64(r.Parent))
	return b
}

func (r *nodeRecord) unmarshal(node Node, b []byte) error {
	if len(b) != nodeRecordSize {
		return fmt.Errorf("%w: node %d record has invalid length %d", ErrCorrupted, node, len(b))
	}
	r.Node = node
	r.FileType = FileType(b[0])
	r.Links = binary.LittleEndian.Uint64(b[1:])
	r.Size = binary.LittleEndian.Uint64(b[9:])
	r.AccessTime = binary.LittleEndian.Uint64(b[17:])
	r.ModifyTime = binary.LittleEndian.Uint64(b[25:])
	r.ChangeTime = binary.LittleEndian.Uint64(b[33:])
	r.NextIndex = binary.LittleEndian.Uint64(b[41:])
	r.Parent = Node(binary.LittleEndian.Uint64(b[49:]))
	return nil
}

// entryRecord is the persisted form of a directory entry, stored under
// D|dir|index.
type entryRecord struct {
	node Node
	typ  FileType
	name string
}

func (e *entryRecord) marshal() []byte {
	b := make([]byte, 9+len(e.name))
	binary.LittleEndian.PutUint64(b, uint64(e.node))
	b[8] = byte(e.typ)
	copy(b[9:], e.name)
	return b
}

func (e *entryRecord) unmarshal(b []byte) error {
	if len(b) < 9 {
		return fmt.Errorf("%w: directory entry too short", ErrCorrupted)
	}
	e.node = Node(binary.LittleEndian.Uint64(b))
	e.typ = FileType(b[8])
	e.name = string(b[9:])
	return nil
}

// mountRecord holds the metadata of a node while its content lives in a
// mounted memory, stored under T|node.
type mountRecord struct {
	size       uint64
	accessTime uint64
	modifyTime uint64
	changeTime uint64
}

const mountRecordSize = 4 * 8

func (m *mountRecord) marshal() []byte {
	b := make([]byte, mountRecordSize)
	binary.LittleEndian.PutUint64(b[0:], m.size)
	binary.LittleEndian.PutUint64(b[8:], m.accessTime)
	binary.LittleEndian.PutUint64(b[16:], m.modifyTime)
	binary.LittleEndian.PutUint64(b[24:], m.changeTime)
	return b
}

func (m *mountRecord) unmarshal(b []byte) error {
	if len(b) != mountRecordSize {
		return fmt.Errorf("%w: mount record has invalid length %d", ErrCorrupted, len(b))
	}
	m.size = binary.LittleEndian.Uint64(b[0:])
	m.accessTime = binary.LittleEndian.Uint64(b[8:])
	m.modifyTime = binary.LittleEndian.Uint64(b[16:])
	m.changeTime = binary.LittleEndian.Uint64(b[24:])
	return nil
}
