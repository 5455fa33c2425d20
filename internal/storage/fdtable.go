package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/exp/slices"
)

// Fd is a file descriptor number.
type Fd uint32

const (
	// RootFd is the descriptor of the preopened root directory. The
	// descriptors below it are reserved for the standard streams.
	RootFd Fd = 3

	firstFreeFd  = RootFd + 1
	maxOpenFiles = 1 << 16
)

type fileDescriptor struct {
	node   Node
	cursor uint64
	stat   FdStat
}

// fdTable maps descriptors to open nodes, and counts the descriptors
// referencing each node.
type fdTable struct {
	used  *bitset.BitSet
	table map[Fd]*fileDescriptor
	refs  map[Node]int
}

func newFdTable() *fdTable {
	t := &fdTable{
		used:  bitset.New(64),
		table: make(map[Fd]*fileDescriptor),
		refs:  make(map[Node]int),
	}
	for fd := uint(0); fd < uint(firstFreeFd); fd++ {
		t.used.Set(fd)
	}
	return t
}

func (t *fdTable) lookup(fd Fd) (*fileDescriptor, error) {
	f, ok := t.table[fd]
	if !ok {
		return nil, ErrBadDescriptor
	}
	return f, nil
}

func (t *fdTable) next() uint {
	next, ok := t.used.NextClear(uint(firstFreeFd))
	if !ok {
		next = t.used.Len()
	}
	return next
}

// full reports whether no descriptor can be opened.
func (t *fdTable) full() bool {
	return t.next() >= maxOpenFiles
}

// open assigns the lowest free descriptor to f.
func (t *fdTable) open(f *fileDescriptor) (Fd, error) {
	next := t.next()
	if next >= maxOpenFiles {
		return 0, ErrTooManyFiles
	}
	fd := Fd(next)
	t.insert(fd, f)
	return fd, nil
}

func (t *fdTable) insert(fd Fd, f *fileDescriptor) {
	t.used.Set(uint(fd))
	t.table[fd] = f
	t.refs[f.node]++
}

// close releases fd and returns the node it referenced, and whether it was
// the last descriptor referencing it.
func (t *fdTable) close(fd Fd) (Node, bool, error) {
	f, ok := t.table[fd]
	if !ok {
		return 0, false, ErrBadDescriptor
	}
	delete(t.table, fd)
	if fd >= firstFreeFd {
		t.used.Clear(uint(fd))
	}
	t.refs[f.node]--
	last := t.refs[f.node] == 0
	if last {
		delete(t.refs, f.node)
	}
	return f.node, last, nil
}

// renumber moves the descriptor from to the number to. The descriptor
// previously open at to must have been closed by the caller.
func (t *fdTable) renumber(from, to Fd) error {
	f, ok := t.table[from]
	if !ok {
		return ErrBadDescriptor
	}
	if _, busy := t.table[to]; busy {
		return ErrBusy
	}
	delete(t.table, from)
	t.used.Clear(uint(from))
	t.used.Set(uint(to))
	t.table[to] = f
	return nil
}

func (t *fdTable) opened(node Node) bool {
	return t.refs[node] > 0
}

func (t *fdTable) fds() []Fd {
	fds := make([]Fd, 0, len(t.table))
	for fd := range t.table {
		fds = append(fds, fd)
	}
	slices.Sort(fds)
	return fds
}

// The checkpoint of the table is a count followed by fixed size entries:
//
//	fd       uint32
//	node     uint64
//	cursor   uint64
//	flags    uint16
//	base     uint64
//	inherit  uint64
const fdEntrySize = 4 + 8 + 8 + 2 + 8 + 8

func (t *fdTable) marshal() []byte {
	fds := t.fds()
	b := make([]byte, 4, 4+fdEntrySize*len(fds))
	n := 0
	for _, fd := range fds {
		if fd < firstFreeFd {
			continue
		}
		f := t.table[fd]
		b = binary.LittleEndian.AppendUint32(b, uint32(fd))
		b = binary.LittleEndian.AppendUint64(b, uint64(f.node))
		b = binary.LittleEndian.AppendUint64(b, f.cursor)
		b = binary.LittleEndian.AppendUint16(b, uint16(f.stat.Flags))
		b = binary.LittleEndian.AppendUint64(b, uint64(f.stat.RightsBase))
		b = binary.LittleEndian.AppendUint64(b, uint64(f.stat.RightsInheriting))
		n++
	}
	binary.LittleEndian.PutUint32(b, uint32(n))
	return b
}

// unmarshal restores the descriptors of a checkpoint, skipping those for
// which keep returns false.
func (t *fdTable) unmarshal(b []byte, keep func(Node) bool) (skipped int, err error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("%w: descriptor table too short", ErrCorrupted)
	}
	n := int(binary.LittleEndian.Uint32(b))
	b = b[4:]
	if len(b) != n*fdEntrySize {
		return 0, fmt.Errorf("%w: descriptor table has invalid length", ErrCorrupted)
	}
	for i := 0; i < n; i++ {
		e := b[i*fdEntrySize:]
		fd := Fd(binary.LittleEndian.Uint32(e))
		f := &fileDescriptor{
			node:   Node(binary.LittleEndian.Uint64(e[4:])),
			cursor: binary.LittleEndian.Uint64(e[12:]),
			stat: FdStat{
				Flags:            FdFlags(binary.LittleEndian.Uint16(e[20:])),
				RightsBase:       Rights(binary.LittleEndian.Uint64(e[22:])),
				RightsInheriting: Rights(binary.LittleEndian.Uint64(e[30:])),
			},
		}
		if fd < firstFreeFd || !keep(f.node) {
			skipped++
			continue
		}
		t.insert(fd, f)
	}
	return skipped, nil
}
