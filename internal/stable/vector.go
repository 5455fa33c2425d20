package stable

import "sync"

// VectorMemory is a Memory held in the Go heap.
//
// Its content can be copied out with Bytes and used to construct a new
// memory with NewVectorMemoryFrom, which is how snapshots are taken and
// restored.
type VectorMemory struct {
	mutex    sync.Mutex
	data     []byte
	maxPages uint64
}

// NewVectorMemory returns an empty memory. A non-zero maxPages limits how far
// the memory can grow.
func NewVectorMemory(maxPages uint64) *VectorMemory {
	return &VectorMemory{maxPages: maxPages}
}

// NewVectorMemoryFrom returns a memory holding a copy of b. The length of b
// is rounded up to a whole number of pages.
func NewVectorMemoryFrom(b []byte) *VectorMemory {
	pages := (uint64(len(b)) + PageSize - 1) / PageSize
	data := make([]byte, pages*PageSize)
	copy(data, b)
	return &VectorMemory{data: data}
}

func (m *VectorMemory) Size() uint64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return uint64(len(m.data)) / PageSize
}

func (m *VectorMemory) Grow(pages uint64) (uint64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	previous := uint64(len(m.data)) / PageSize
	if m.maxPages != 0 && previous+pages > m.maxPages {
		return previous, ErrGrowFailed
	}
	if pages == 0 {
		return previous, nil
	}
	data := make([]byte, (previous+pages)*PageSize)
	copy(data, m.data)
	m.data = data
	return previous, nil
}

func (m *VectorMemory) ReadAt(b []byte, off int64) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := checkBounds(uint64(len(m.data)), off, len(b)); err != nil {
		return 0, err
	}
	return copy(b, m.data[off:]), nil
}

func (m *VectorMemory) WriteAt(b []byte, off int64) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := checkBounds(uint64(len(m.data)), off, len(b)); err != nil {
		return 0, err
	}
	return copy(m.data[off:], b), nil
}

// Bytes returns a copy of the memory content.
func (m *VectorMemory) Bytes() []byte {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	b := make([]byte, len(m.data))
	copy(b, m.data)
	return b
}

var _ Memory = (*VectorMemory)(nil)
