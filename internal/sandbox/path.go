package sandbox

import (
	"context"

	"github.com/stealthrocket/stablefs/internal/storage"
	"github.com/stealthrocket/wasi-go"
)

const openFlagsMask = wasi.OpenCreate | wasi.OpenDirectory | wasi.OpenExclusive | wasi.OpenTruncate

func (s *System) PathCreateDirectory(ctx context.Context, fd wasi.FD, path string) wasi.Errno {
	defer s.borrow()()
	return Errno(s.fsys.Mkdir(storage.Fd(fd), path))
}

func (s *System) PathFileStatGet(ctx context.Context, fd wasi.FD, flags wasi.LookupFlags, path string) (wasi.FileStat, wasi.Errno) {
	defer s.borrow()()
	md, err := s.fsys.PathMetadata(storage.Fd(fd), path)
	if err != nil {
		return wasi.FileStat{}, Errno(err)
	}
	return makeFileStat(md), wasi.ESUCCESS
}

func (s *System) PathFileStatSetTimes(ctx context.Context, fd wasi.FD, lookupFlags wasi.LookupFlags, path string, accessTime, modifyTime wasi.Timestamp, flags wasi.FSTFlags) wasi.Errno {
	defer s.borrow()()
	atim, mtim, errno := s.makeTimes(accessTime, modifyTime, flags)
	if errno != wasi.ESUCCESS {
		return errno
	}
	return Errno(s.fsys.SetPathTimes(storage.Fd(fd), path, atim, mtim))
}

func (s *System) PathLink(ctx context.Context, oldFD wasi.FD, oldFlags wasi.LookupFlags, oldPath string, newFD wasi.FD, newPath string) wasi.Errno {
	defer s.borrow()()
	return Errno(s.fsys.Link(storage.Fd(oldFD), oldPath, storage.Fd(newFD), newPath))
}

// PathOpen opens path relative to the directory open at fd.
//
// The rights of the new descriptor are the requested rights which the
// directory allows its children to inherit. OpenTruncate is ignored when the
// new descriptor cannot write.
func (s *System) PathOpen(ctx context.Context, fd wasi.FD, dirFlags wasi.LookupFlags, path string, openFlags wasi.OpenFlags, rightsBase, rightsInheriting wasi.Rights, fdFlags wasi.FDFlags) (wasi.FD, wasi.Errno) {
	defer s.borrow()()
	const none = ^wasi.FD(0)

	if openFlags&^openFlagsMask != 0 || fdFlags&^fdFlagsMask != 0 {
		return none, wasi.EINVAL
	}
	parent, err := s.fsys.Stat(storage.Fd(fd))
	if err != nil {
		return none, Errno(err)
	}
	inheriting := wasi.Rights(parent.RightsInheriting)
	rightsBase &= inheriting
	rightsInheriting &= inheriting

	var flags storage.OpenFlags
	if openFlags&wasi.OpenCreate != 0 {
		flags |= storage.Create
	}
	if openFlags&wasi.OpenDirectory != 0 {
		flags |= storage.Directory
	}
	if openFlags&wasi.OpenExclusive != 0 {
		flags |= storage.Exclusive
	}
	if openFlags&wasi.OpenTruncate != 0 && rightsBase&wasi.FDWriteRight != 0 {
		flags |= storage.Truncate
	}

	newFD, err := s.fsys.Open(storage.Fd(fd), path, storage.FdStat{
		Flags:            storage.FdFlags(fdFlags),
		RightsBase:       storage.Rights(rightsBase),
		RightsInheriting: storage.Rights(rightsInheriting),
	}, flags)
	if err != nil {
		return none, Errno(err)
	}
	return wasi.FD(newFD), wasi.ESUCCESS
}

func (s *System) PathRemoveDirectory(ctx context.Context, fd wasi.FD, path string) wasi.Errno {
	defer s.borrow()()
	return Errno(s.fsys.RemoveDir(storage.Fd(fd), path))
}

func (s *System) PathRename(ctx context.Context, fd wasi.FD, oldPath string, newFD wasi.FD, newPath string) wasi.Errno {
	defer s.borrow()()
	return Errno(s.fsys.Rename(storage.Fd(fd), oldPath, storage.Fd(newFD), newPath))
}

func (s *System) PathUnlinkFile(ctx context.Context, fd wasi.FD, path string) wasi.Errno {
	defer s.borrow()()
	return Errno(s.fsys.RemoveFile(storage.Fd(fd), path))
}
