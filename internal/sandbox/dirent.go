package sandbox

import (
	"context"
	"errors"

	"github.com/stealthrocket/stablefs/internal/storage"
	"github.com/stealthrocket/wasi-go"
)

// FDReadDir fills entries with the directory entries of fd, starting at
// cookie, until either entries is full or the encoded size of the entries
// reaches bufferSizeBytes. The last entry may not fit in the buffer; the
// caller truncates it when encoding.
func (s *System) FDReadDir(ctx context.Context, fd wasi.FD, entries []wasi.DirEntry, cookie wasi.DirCookie, bufferSizeBytes int) (int, wasi.Errno) {
	defer s.borrow()()
	if isStdio(fd) {
		return 0, wasi.EBADF
	}
	if bufferSizeBytes < wasi.SizeOfDirent || len(entries) == 0 {
		return 0, wasi.ESUCCESS
	}
	n := 0
	err := s.fsys.DirEntries(storage.Fd(fd), uint64(cookie), func(entry storage.DirEntry) bool {
		entries[n] = wasi.DirEntry{
			Next:  wasi.DirCookie(entry.Next),
			INode: wasi.INode(entry.Node),
			Type:  wasi.FileType(entry.Type),
			Name:  []byte(entry.Name),
		}
		bufferSizeBytes -= wasi.SizeOfDirent + len(entry.Name)
		n++
		return n < len(entries) && bufferSizeBytes > 0
	})
	switch {
	case err == nil:
		return n, wasi.ESUCCESS
	case errors.Is(err, storage.ErrNotDirectory):
		return 0, wasi.EBADF
	default:
		return 0, Errno(err)
	}
}
