package stablefs_test

import (
	"context"
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
	"github.com/stealthrocket/stablefs/internal/imports/stablefs"
	"github.com/stealthrocket/stablefs/internal/sandbox"
	"github.com/stealthrocket/stablefs/internal/stable"
	"github.com/stealthrocket/stablefs/internal/storage"
	"github.com/stealthrocket/wasi-go"
	"github.com/stealthrocket/wazergo"
)

var ctx = context.Background()

func newModule(t *testing.T, opts ...stablefs.Option) (*stablefs.Module, *sandbox.System, *stable.MemoryManager) {
	t.Helper()
	manager, err := stable.NewMemoryManager(stable.NewVectorMemory(0), 1)
	assert.OK(t, err)
	fsys, err := storage.New(manager.Get(1), manager.Get(2),
		storage.WithRootRights(storage.Rights(sandbox.DefaultRights), storage.Rights(sandbox.DefaultRights)),
	)
	assert.OK(t, err)
	system, err := sandbox.New(sandbox.FileSystem(fsys))
	assert.OK(t, err)

	m := new(stablefs.Module)
	wazergo.Configure(m, append([]stablefs.Option{
		stablefs.WithSystem(system),
		stablefs.WithMemoryManager(manager),
		stablefs.WithReservedMemories(1, 2),
	}, opts...)...)
	return m, system, manager
}

func TestMountPath(t *testing.T) {
	m, system, manager := newModule(t)

	assert.Equal(t, m.MountPath(ctx, "data.bin", 5), wasi.ESUCCESS)

	root := wasi.FD(storage.RootFd)
	fd, errno := system.PathOpen(ctx, root, 0, "data.bin", 0, sandbox.DefaultRights, 0, 0)
	assert.Equal(t, errno, wasi.ESUCCESS)
	n, errno := system.FDWrite(ctx, fd, []wasi.IOVec{[]byte("abc")})
	assert.Equal(t, errno, wasi.ESUCCESS)
	assert.Equal(t, n, 3)

	b := make([]byte, 3)
	_, err := manager.Get(5).ReadAt(b, 0)
	assert.OK(t, err)
	assert.Equal(t, string(b), "abc")

	assert.Equal(t, system.StoreMemoryFile(ctx, "data.bin"), wasi.ESUCCESS)
	assert.Equal(t, system.UnmountMemoryFile(ctx, "data.bin"), wasi.ESUCCESS)
	assert.Equal(t, system.UnmountMemoryFile(ctx, "data.bin"), wasi.EINVAL)
}

func TestMountPathErrors(t *testing.T) {
	tests := []struct {
		scenario string
		path     string
		id       int
		errno    wasi.Errno
	}{
		{scenario: "memory of the file system", path: "a", id: 1, errno: wasi.EINVAL},
		{scenario: "id out of range", path: "a", id: 300, errno: wasi.EINVAL},
		{scenario: "negative id", path: "a", id: -1, errno: wasi.EINVAL},
		{scenario: "absolute path", path: "/a", id: 3, errno: wasi.EPERM},
		{scenario: "path escaping the root", path: "../a", id: 3, errno: wasi.EPERM},
		{scenario: "directory", path: ".", id: 3, errno: wasi.EISDIR},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			m, _, _ := newModule(t)
			assert.Equal(t, m.MountPath(ctx, test.path, test.id), test.errno)
		})
	}
}

func TestMountWithoutManager(t *testing.T) {
	m, _, _ := newModule(t, stablefs.WithMemoryManager(nil))
	assert.Equal(t, m.MountPath(ctx, "a", 3), wasi.ENOTSUP)
}
