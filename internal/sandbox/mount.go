package sandbox

import (
	"context"

	"github.com/stealthrocket/stablefs/internal/stable"
	"github.com/stealthrocket/stablefs/internal/storage"
	"github.com/stealthrocket/wasi-go"
	"go.uber.org/zap"
)

// MountMemoryFile binds mem to the regular file at path, relative to the
// root directory.
func (s *System) MountMemoryFile(ctx context.Context, path string, mem stable.Memory) wasi.Errno {
	defer s.borrow()()
	s.logger.Debug("mounting memory file", zap.String("path", path))
	return Errno(s.fsys.Mount(storage.RootFd, path, mem))
}

// UnmountMemoryFile releases the memory mounted at path.
func (s *System) UnmountMemoryFile(ctx context.Context, path string) wasi.Errno {
	defer s.borrow()()
	s.logger.Debug("unmounting memory file", zap.String("path", path))
	return Errno(s.fsys.Unmount(storage.RootFd, path))
}

// InitMemoryFile copies the stored content of the file at path to the
// memory mounted on it.
func (s *System) InitMemoryFile(ctx context.Context, path string) wasi.Errno {
	defer s.borrow()()
	return Errno(s.fsys.InitMemoryFile(storage.RootFd, path))
}

// StoreMemoryFile copies the memory mounted on the file at path to the
// storage.
func (s *System) StoreMemoryFile(ctx context.Context, path string) wasi.Errno {
	defer s.borrow()()
	return Errno(s.fsys.StoreMemoryFile(storage.RootFd, path))
}
