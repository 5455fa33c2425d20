package sandbox

import (
	"context"

	"github.com/stealthrocket/stablefs/internal/storage"
	"github.com/stealthrocket/wasi-go"
)

const fdFlagsMask = wasi.Append | wasi.DSync | wasi.NonBlock | wasi.RSync | wasi.Sync

func isStdio(fd wasi.FD) bool { return uint32(fd) < uint32(storage.RootFd) }

func stdioStat(fd wasi.FD) wasi.FDStat {
	rights := wasi.TTYRights &^ wasi.FDReadRight
	if fd == 0 {
		rights = wasi.TTYRights &^ wasi.FDWriteRight
	}
	return wasi.FDStat{
		FileType:   wasi.CharacterDeviceType,
		RightsBase: rights,
	}
}

// checkRights returns denied if the descriptor open at fd does not hold all
// of the rights passed as argument.
func (s *System) checkRights(fd wasi.FD, rights wasi.Rights, denied wasi.Errno) wasi.Errno {
	stat, err := s.fsys.Stat(storage.Fd(fd))
	if err != nil {
		return Errno(err)
	}
	if wasi.Rights(stat.RightsBase)&rights != rights {
		return denied
	}
	return wasi.ESUCCESS
}

func makeFileStat(md storage.Metadata) wasi.FileStat {
	return wasi.FileStat{
		FileType:   wasi.FileType(md.FileType),
		INode:      wasi.INode(md.Node),
		NLink:      wasi.LinkCount(md.Links),
		Size:       wasi.FileSize(md.Size),
		AccessTime: wasi.Timestamp(md.AccessTime),
		ModifyTime: wasi.Timestamp(md.ModifyTime),
		ChangeTime: wasi.Timestamp(md.ChangeTime),
	}
}

// makeTimes converts the arguments of the set_times calls to the times passed
// to the file system, nil meaning that the time is left unchanged.
func (s *System) makeTimes(atim, mtim wasi.Timestamp, flags wasi.FSTFlags) (accessTime, modifyTime *uint64, errno wasi.Errno) {
	const (
		access = wasi.AccessTime | wasi.AccessTimeNow
		modify = wasi.ModifyTime | wasi.ModifyTimeNow
	)
	if flags&access == access || flags&modify == modify || flags&^(access|modify) != 0 {
		return nil, nil, wasi.EINVAL
	}
	now := uint64(s.clock.Now().UnixNano())
	switch {
	case flags&wasi.AccessTime != 0:
		t := uint64(atim)
		accessTime = &t
	case flags&wasi.AccessTimeNow != 0:
		accessTime = &now
	}
	switch {
	case flags&wasi.ModifyTime != 0:
		t := uint64(mtim)
		modifyTime = &t
	case flags&wasi.ModifyTimeNow != 0:
		modifyTime = &now
	}
	return accessTime, modifyTime, wasi.ESUCCESS
}

func (s *System) FDAdvise(ctx context.Context, fd wasi.FD, offset, length wasi.FileSize, advice wasi.Advice) wasi.Errno {
	defer s.borrow()()
	return Errno(s.fsys.Advise(storage.Fd(fd), uint64(offset), uint64(length), storage.Advice(advice)))
}

func (s *System) FDAllocate(ctx context.Context, fd wasi.FD, offset, length wasi.FileSize) wasi.Errno {
	defer s.borrow()()
	if errno := s.checkRights(fd, wasi.FDWriteRight, wasi.EPERM); errno != wasi.ESUCCESS {
		return errno
	}
	return Errno(s.fsys.Allocate(storage.Fd(fd), uint64(offset), uint64(length)))
}

func (s *System) FDClose(ctx context.Context, fd wasi.FD) wasi.Errno {
	defer s.borrow()()
	if isStdio(fd) {
		return wasi.ESUCCESS
	}
	return Errno(s.fsys.Close(storage.Fd(fd)))
}

func (s *System) FDDataSync(ctx context.Context, fd wasi.FD) wasi.Errno {
	return s.FDSync(ctx, fd)
}

func (s *System) FDSync(ctx context.Context, fd wasi.FD) wasi.Errno {
	defer s.borrow()()
	if isStdio(fd) {
		return wasi.ESUCCESS
	}
	return Errno(s.fsys.Flush(storage.Fd(fd)))
}

func (s *System) FDStatGet(ctx context.Context, fd wasi.FD) (wasi.FDStat, wasi.Errno) {
	defer s.borrow()()
	if isStdio(fd) {
		return stdioStat(fd), wasi.ESUCCESS
	}
	stat, err := s.fsys.Stat(storage.Fd(fd))
	if err != nil {
		return wasi.FDStat{}, Errno(err)
	}
	md, err := s.fsys.Metadata(storage.Fd(fd))
	if err != nil {
		return wasi.FDStat{}, Errno(err)
	}
	return wasi.FDStat{
		FileType:         wasi.FileType(md.FileType),
		Flags:            wasi.FDFlags(stat.Flags),
		RightsBase:       wasi.Rights(stat.RightsBase),
		RightsInheriting: wasi.Rights(stat.RightsInheriting),
	}, wasi.ESUCCESS
}

func (s *System) FDStatSetFlags(ctx context.Context, fd wasi.FD, flags wasi.FDFlags) wasi.Errno {
	defer s.borrow()()
	if flags&^fdFlagsMask != 0 {
		return wasi.EINVAL
	}
	if isStdio(fd) {
		return wasi.ESUCCESS
	}
	md, err := s.fsys.Metadata(storage.Fd(fd))
	if err != nil {
		return Errno(err)
	}
	if md.FileType == storage.DirectoryType {
		return wasi.EBADF
	}
	stat, err := s.fsys.Stat(storage.Fd(fd))
	if err != nil {
		return Errno(err)
	}
	stat.Flags = storage.FdFlags(flags)
	return Errno(s.fsys.SetStat(storage.Fd(fd), stat))
}

// FDStatSetRights drops the rights of fd which are not present in rightsBase
// and rightsInheriting. Rights cannot be gained, so requesting more rights
// than the descriptor holds is not an error but has no effect.
func (s *System) FDStatSetRights(ctx context.Context, fd wasi.FD, rightsBase, rightsInheriting wasi.Rights) wasi.Errno {
	defer s.borrow()()
	if isStdio(fd) {
		return wasi.ESUCCESS
	}
	stat, err := s.fsys.Stat(storage.Fd(fd))
	if err != nil {
		return Errno(err)
	}
	stat.RightsBase &= storage.Rights(rightsBase)
	stat.RightsInheriting &= storage.Rights(rightsInheriting)
	return Errno(s.fsys.SetStat(storage.Fd(fd), stat))
}

func (s *System) FDFileStatGet(ctx context.Context, fd wasi.FD) (wasi.FileStat, wasi.Errno) {
	defer s.borrow()()
	if isStdio(fd) {
		return wasi.FileStat{}, wasi.ESUCCESS
	}
	md, err := s.fsys.Metadata(storage.Fd(fd))
	if err != nil {
		return wasi.FileStat{}, Errno(err)
	}
	return makeFileStat(md), wasi.ESUCCESS
}

func (s *System) FDFileStatSetSize(ctx context.Context, fd wasi.FD, size wasi.FileSize) wasi.Errno {
	defer s.borrow()()
	if errno := s.checkRights(fd, wasi.FDWriteRight, wasi.EINVAL); errno != wasi.ESUCCESS {
		return errno
	}
	return Errno(s.fsys.SetSize(storage.Fd(fd), uint64(size)))
}

func (s *System) FDFileStatSetTimes(ctx context.Context, fd wasi.FD, accessTime, modifyTime wasi.Timestamp, flags wasi.FSTFlags) wasi.Errno {
	defer s.borrow()()
	atim, mtim, errno := s.makeTimes(accessTime, modifyTime, flags)
	if errno != wasi.ESUCCESS {
		return errno
	}
	return Errno(s.fsys.SetTimes(storage.Fd(fd), atim, mtim))
}

func (s *System) FDPread(ctx context.Context, fd wasi.FD, iovecs []wasi.IOVec, offset wasi.FileSize) (wasi.Size, wasi.Errno) {
	defer s.borrow()()
	if isStdio(fd) {
		return 0, wasi.ESPIPE
	}
	if errno := s.checkRights(fd, wasi.FDReadRight, wasi.EPERM); errno != wasi.ESUCCESS {
		return 0, errno
	}
	var size wasi.Size
	for _, iov := range iovecs {
		n, err := s.fsys.ReadAt(storage.Fd(fd), iov, uint64(offset)+uint64(size))
		size += wasi.Size(n)
		if err != nil {
			return size, partialErrno(size, err)
		}
		if n < len(iov) {
			break
		}
	}
	return size, wasi.ESUCCESS
}

func (s *System) FDPwrite(ctx context.Context, fd wasi.FD, iovecs []wasi.IOVec, offset wasi.FileSize) (wasi.Size, wasi.Errno) {
	defer s.borrow()()
	if isStdio(fd) {
		return 0, wasi.ESPIPE
	}
	if errno := s.checkRights(fd, wasi.FDWriteRight, wasi.EPERM); errno != wasi.ESUCCESS {
		return 0, errno
	}
	var size wasi.Size
	for _, iov := range iovecs {
		n, err := s.fsys.WriteAt(storage.Fd(fd), iov, uint64(offset)+uint64(size))
		size += wasi.Size(n)
		if err != nil {
			return size, partialErrno(size, err)
		}
	}
	return size, wasi.ESUCCESS
}

func (s *System) FDRead(ctx context.Context, fd wasi.FD, iovecs []wasi.IOVec) (wasi.Size, wasi.Errno) {
	defer s.borrow()()
	if isStdio(fd) {
		return 0, wasi.EINVAL
	}
	if errno := s.checkRights(fd, wasi.FDReadRight, wasi.EPERM); errno != wasi.ESUCCESS {
		return 0, errno
	}
	var size wasi.Size
	for _, iov := range iovecs {
		n, err := s.fsys.Read(storage.Fd(fd), iov)
		size += wasi.Size(n)
		if err != nil {
			return size, partialErrno(size, err)
		}
		if n < len(iov) {
			break
		}
	}
	return size, wasi.ESUCCESS
}

func (s *System) FDWrite(ctx context.Context, fd wasi.FD, iovecs []wasi.IOVec) (wasi.Size, wasi.Errno) {
	defer s.borrow()()
	var size wasi.Size
	if isStdio(fd) {
		for _, iov := range iovecs {
			n, err := s.debug.Write(iov)
			size += wasi.Size(n)
			if err != nil {
				return size, wasi.EIO
			}
		}
		return size, wasi.ESUCCESS
	}
	if errno := s.checkRights(fd, wasi.FDWriteRight, wasi.EPERM); errno != wasi.ESUCCESS {
		return 0, errno
	}
	for _, iov := range iovecs {
		n, err := s.fsys.Write(storage.Fd(fd), iov)
		size += wasi.Size(n)
		if err != nil {
			return size, partialErrno(size, err)
		}
	}
	return size, wasi.ESUCCESS
}

// partialErrno reports err, unless some bytes were already transferred by
// the call in which case the short count is returned without error.
func partialErrno(size wasi.Size, err error) wasi.Errno {
	if size > 0 {
		return wasi.ESUCCESS
	}
	return Errno(err)
}

// FDPreStatGet returns the length of the name of the preopened directory.
// The root directory is the only preopen.
func (s *System) FDPreStatGet(ctx context.Context, fd wasi.FD) (wasi.PreStat, wasi.Errno) {
	var stat wasi.PreStat
	if fd != wasi.FD(storage.RootFd) {
		return stat, wasi.EBADF
	}
	stat.PreStatDir.NameLength = wasi.Size(len(storage.RootPath))
	return stat, wasi.ESUCCESS
}

// FDPreStatDirName returns the name of the preopened directory.
func (s *System) FDPreStatDirName(ctx context.Context, fd wasi.FD) (string, wasi.Errno) {
	if fd != wasi.FD(storage.RootFd) {
		return "", wasi.EBADF
	}
	return storage.RootPath, wasi.ESUCCESS
}

func (s *System) FDRenumber(ctx context.Context, from, to wasi.FD) wasi.Errno {
	defer s.borrow()()
	return Errno(s.fsys.Renumber(storage.Fd(from), storage.Fd(to)))
}

func (s *System) FDSeek(ctx context.Context, fd wasi.FD, offset wasi.FileDelta, whence wasi.Whence) (wasi.FileSize, wasi.Errno) {
	defer s.borrow()()
	if isStdio(fd) {
		return 0, wasi.ESPIPE
	}
	pos, err := s.fsys.Seek(storage.Fd(fd), int64(offset), storage.Whence(whence))
	if err != nil {
		return 0, Errno(err)
	}
	return wasi.FileSize(pos), wasi.ESUCCESS
}

func (s *System) FDTell(ctx context.Context, fd wasi.FD) (wasi.FileSize, wasi.Errno) {
	defer s.borrow()()
	if isStdio(fd) {
		return 0, wasi.ESPIPE
	}
	pos, err := s.fsys.Tell(storage.Fd(fd))
	if err != nil {
		return 0, Errno(err)
	}
	return wasi.FileSize(pos), wasi.ESUCCESS
}
