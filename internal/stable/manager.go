package stable

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// MemoryID identifies a virtual memory of a MemoryManager.
type MemoryID uint8

// MaxMemoryID is the largest identifier a MemoryManager accepts.
const MaxMemoryID MemoryID = 254

const (
	managerMagic         = "MGR"
	managerLayoutVersion = 1
	managerSizesOffset   = 64
	managerBucketsOffset = 4096
	managerMaxBuckets    = 32768
	unallocatedBucket    = 0xFF

	// DefaultBucketSize is the number of pages in a bucket when none is
	// specified.
	DefaultBucketSize = 128
)

// ErrNotManaged is returned when opening a memory manager over a memory
// that holds something other than a memory manager.
var ErrNotManaged = errors.New("memory does not contain a memory manager")

// MemoryManager multiplexes up to 255 virtual memories over one physical
// memory.
//
// The physical memory is split in buckets of a fixed number of pages, each
// bucket owned by one virtual memory. The first page holds the header
// recording the bucket size, the size of each virtual memory, and the owner
// of each allocated bucket; reopening a manager over the same memory restores
// all virtual memories.
type MemoryManager struct {
	mutex       sync.Mutex
	mem         Memory
	bucketPages uint64
	allocated   int
	sizes       [MaxMemoryID + 1]uint64
	buckets     [MaxMemoryID + 1][]uint16
}

// NewMemoryManager opens the manager stored in mem, or formats mem if it is
// empty. The bucket size is only used when formatting; zero selects
// DefaultBucketSize.
func NewMemoryManager(mem Memory, bucketSize uint16) (*MemoryManager, error) {
	if bucketSize == 0 {
		bucketSize = DefaultBucketSize
	}
	m := &MemoryManager{mem: mem}

	if mem.Size() == 0 {
		return m, m.format(bucketSize)
	}

	var header [managerSizesOffset]byte
	if _, err := mem.ReadAt(header[:], 0); err != nil {
		return nil, err
	}
	if string(header[:3]) != managerMagic {
		for _, b := range header[:4] {
			if b != 0 {
				return nil, ErrNotManaged
			}
		}
		return m, m.format(bucketSize)
	}
	if v := header[3]; v != managerLayoutVersion {
		return nil, fmt.Errorf("unsupported memory manager layout version %d", v)
	}
	m.allocated = int(binary.LittleEndian.Uint16(header[4:]))
	m.bucketPages = uint64(binary.LittleEndian.Uint16(header[6:]))
	if m.bucketPages == 0 || m.allocated > managerMaxBuckets {
		return nil, fmt.Errorf("%w: corrupted header", ErrNotManaged)
	}

	sizes := make([]byte, 8*len(m.sizes))
	if _, err := mem.ReadAt(sizes, managerSizesOffset); err != nil {
		return nil, err
	}
	for i := range m.sizes {
		m.sizes[i] = binary.LittleEndian.Uint64(sizes[8*i:])
	}

	owners := make([]byte, m.allocated)
	if _, err := mem.ReadAt(owners, managerBucketsOffset); err != nil {
		return nil, err
	}
	for bucket, owner := range owners {
		if owner != unallocatedBucket {
			m.buckets[owner] = append(m.buckets[owner], uint16(bucket))
		}
	}
	return m, nil
}

func (m *MemoryManager) format(bucketSize uint16) error {
	if err := EnsureCapacity(m.mem, PageSize); err != nil {
		return err
	}
	m.bucketPages = uint64(bucketSize)

	header := make([]byte, PageSize)
	copy(header, managerMagic)
	header[3] = managerLayoutVersion
	binary.LittleEndian.PutUint16(header[6:], bucketSize)
	for i := managerBucketsOffset; i < managerBucketsOffset+managerMaxBuckets; i++ {
		header[i] = unallocatedBucket
	}
	_, err := m.mem.WriteAt(header, 0)
	return err
}

// Get returns the virtual memory with the given id.
func (m *MemoryManager) Get(id MemoryID) Memory {
	if id > MaxMemoryID {
		panic("memory id out of range: " + strconv.Itoa(int(id)))
	}
	return &virtualMemory{manager: m, id: id}
}

// BucketSize returns the number of pages per bucket.
func (m *MemoryManager) BucketSize() uint64 {
	return m.bucketPages
}

func (m *MemoryManager) bucketBytes() uint64 {
	return m.bucketPages * PageSize
}

func (m *MemoryManager) grow(id MemoryID, pages uint64) (uint64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	previous := m.sizes[id]
	size := previous + pages
	need := int((size + m.bucketPages - 1) / m.bucketPages)

	for len(m.buckets[id]) < need {
		bucket := m.allocated
		if bucket >= managerMaxBuckets {
			return previous, ErrGrowFailed
		}
		end := PageSize + uint64(bucket+1)*m.bucketBytes()
		if err := EnsureCapacity(m.mem, end); err != nil {
			return previous, err
		}
		if _, err := m.mem.WriteAt([]byte{byte(id)}, int64(managerBucketsOffset+bucket)); err != nil {
			return previous, err
		}
		m.allocated++
		m.buckets[id] = append(m.buckets[id], uint16(bucket))

		var count [2]byte
		binary.LittleEndian.PutUint16(count[:], uint16(m.allocated))
		if _, err := m.mem.WriteAt(count[:], 4); err != nil {
			return previous, err
		}
	}

	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], size)
	if _, err := m.mem.WriteAt(b[:], int64(managerSizesOffset+8*int(id))); err != nil {
		return previous, err
	}
	m.sizes[id] = size
	return previous, nil
}

// access splits the virtual range [off, off+len(b)) along bucket boundaries
// and calls fn with the matching physical offsets.
func (m *MemoryManager) access(id MemoryID, b []byte, off int64, fn func([]byte, int64) (int, error)) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := checkBounds(m.sizes[id]*PageSize, off, len(b)); err != nil {
		return 0, err
	}
	bucketBytes := m.bucketBytes()
	n := 0
	for n < len(b) {
		virt := uint64(off) + uint64(n)
		index := virt / bucketBytes
		within := virt % bucketBytes
		chunk := bucketBytes - within
		if rest := uint64(len(b) - n); chunk > rest {
			chunk = rest
		}
		phys := PageSize + uint64(m.buckets[id][index])*bucketBytes + within
		if _, err := fn(b[n:n+int(chunk)], int64(phys)); err != nil {
			return n, err
		}
		n += int(chunk)
	}
	return n, nil
}

type virtualMemory struct {
	manager *MemoryManager
	id      MemoryID
}

func (v *virtualMemory) Size() uint64 {
	v.manager.mutex.Lock()
	defer v.manager.mutex.Unlock()
	return v.manager.sizes[v.id]
}

func (v *virtualMemory) Grow(pages uint64) (uint64, error) {
	return v.manager.grow(v.id, pages)
}

func (v *virtualMemory) ReadAt(b []byte, off int64) (int, error) {
	return v.manager.access(v.id, b, off, v.manager.mem.ReadAt)
}

func (v *virtualMemory) WriteAt(b []byte, off int64) (int, error) {
	return v.manager.access(v.id, b, off, v.manager.mem.WriteAt)
}

// MemoryIDRange is an inclusive range of memory ids, written "first-last".
type MemoryIDRange struct {
	First MemoryID
	Last  MemoryID
}

// ParseMemoryIDRange parses a range like "1-4", or a single id like "7".
func ParseMemoryIDRange(s string) (MemoryIDRange, error) {
	first, last, found := strings.Cut(s, "-")
	if !found {
		last = first
	}
	a, err := strconv.ParseUint(strings.TrimSpace(first), 10, 8)
	if err != nil {
		return MemoryIDRange{}, fmt.Errorf("invalid memory id range %q: %w", s, err)
	}
	b, err := strconv.ParseUint(strings.TrimSpace(last), 10, 8)
	if err != nil {
		return MemoryIDRange{}, fmt.Errorf("invalid memory id range %q: %w", s, err)
	}
	r := MemoryIDRange{First: MemoryID(a), Last: MemoryID(b)}
	if r.First > r.Last || r.Last > MaxMemoryID {
		return MemoryIDRange{}, fmt.Errorf("invalid memory id range %q", s)
	}
	return r, nil
}

// Len returns the number of ids in the range.
func (r MemoryIDRange) Len() int {
	return int(r.Last) - int(r.First) + 1
}

func (r MemoryIDRange) String() string {
	return fmt.Sprintf("%d-%d", r.First, r.Last)
}

func (r *MemoryIDRange) Set(s string) error {
	v, err := ParseMemoryIDRange(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (r MemoryIDRange) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *MemoryIDRange) UnmarshalText(b []byte) error {
	return r.Set(string(b))
}
