package stable

import (
	"fmt"
	"os"
	"sync"

	mmap "github.com/edsrzf/mmap-go"
)

// FileMemory is a Memory backed by a memory-mapped host file.
//
// The file size is always a multiple of PageSize. Growing the memory extends
// the file and remaps it, so slices obtained from a previous mapping must not
// be retained by callers (the ReaderAt/WriterAt interface never exposes
// them).
type FileMemory struct {
	mutex sync.Mutex
	file  *os.File
	data  mmap.MMap
}

// OpenFileMemory opens or creates the memory file at path. The file is locked
// for exclusive use by the calling process until Close is called.
func OpenFileMemory(path string) (*FileMemory, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		unlockFile(f)
		f.Close()
		return nil, err
	}
	m := &FileMemory{file: f}

	size := info.Size()
	if rem := size % PageSize; rem != 0 {
		size += PageSize - rem
		if err := f.Truncate(size); err != nil {
			m.Close()
			return nil, err
		}
	}
	if size > 0 {
		if err := m.remap(); err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}

func (m *FileMemory) remap() error {
	if m.data != nil {
		if err := m.data.Unmap(); err != nil {
			return err
		}
		m.data = nil
	}
	data, err := mmap.Map(m.file, mmap.RDWR, 0)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}

func (m *FileMemory) Size() uint64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return uint64(len(m.data)) / PageSize
}

func (m *FileMemory) Grow(pages uint64) (uint64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	previous := uint64(len(m.data)) / PageSize
	if pages == 0 {
		return previous, nil
	}
	if m.data != nil {
		if err := m.data.Flush(); err != nil {
			return previous, err
		}
	}
	if err := m.file.Truncate(int64((previous + pages) * PageSize)); err != nil {
		return previous, fmt.Errorf("%w: %s", ErrGrowFailed, err)
	}
	if err := m.remap(); err != nil {
		return previous, err
	}
	return previous, nil
}

func (m *FileMemory) ReadAt(b []byte, off int64) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := checkBounds(uint64(len(m.data)), off, len(b)); err != nil {
		return 0, err
	}
	return copy(b, m.data[off:]), nil
}

func (m *FileMemory) WriteAt(b []byte, off int64) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := checkBounds(uint64(len(m.data)), off, len(b)); err != nil {
		return 0, err
	}
	return copy(m.data[off:], b), nil
}

// Sync flushes modified pages to the underlying file.
func (m *FileMemory) Sync() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.data == nil {
		return nil
	}
	return m.data.Flush()
}

// Close unmaps the memory, releases the file lock and closes the file.
func (m *FileMemory) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var err error
	if m.data != nil {
		if e := m.data.Flush(); e != nil {
			err = e
		}
		if e := m.data.Unmap(); e != nil && err == nil {
			err = e
		}
		m.data = nil
	}
	if m.file != nil {
		unlockFile(m.file)
		if e := m.file.Close(); e != nil && err == nil {
			err = e
		}
		m.file = nil
	}
	return err
}

var _ Memory = (*FileMemory)(nil)
