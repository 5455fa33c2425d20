// Package stable provides byte-addressable memories that survive the process
// holding them: a heap vector for tests and snapshots, an mmap'ed host file,
// and a manager carving many virtual memories out of a single region.
package stable

import (
	"errors"
	"fmt"
	"io"
)

// PageSize is the unit by which memories grow.
const PageSize = 65536

var (
	// ErrOutOfBounds is returned when reading or writing past the current
	// size of a memory.
	ErrOutOfBounds = errors.New("stable memory access out of bounds")

	// ErrGrowFailed is returned when a memory cannot be grown by the
	// requested number of pages.
	ErrGrowFailed = errors.New("stable memory cannot grow")
)

// Memory is a growable linear byte region.
//
// Reads and writes must lie entirely within Size()*PageSize bytes; callers
// are expected to Grow the memory before writing past its end.
type Memory interface {
	io.ReaderAt
	io.WriterAt
	// Size returns the size of the memory in pages.
	Size() uint64
	// Grow extends the memory by the given number of pages and returns the
	// size it had before the call.
	Grow(pages uint64) (previous uint64, err error)
}

// EnsureCapacity grows mem so that it holds at least size bytes.
func EnsureCapacity(mem Memory, size uint64) error {
	have := mem.Size() * PageSize
	if size <= have {
		return nil
	}
	pages := (size - have + PageSize - 1) / PageSize
	if _, err := mem.Grow(pages); err != nil {
		return fmt.Errorf("growing memory by %d pages: %w", pages, err)
	}
	return nil
}

func checkBounds(size uint64, off int64, n int) error {
	if off < 0 || uint64(off)+uint64(n) > size {
		return fmt.Errorf("%w: offset=%d length=%d size=%d", ErrOutOfBounds, off, n, size)
	}
	return nil
}
