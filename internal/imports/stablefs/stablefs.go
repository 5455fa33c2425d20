// Package stablefs is the host module giving guests control over the
// memories mounted on their files.
package stablefs

import (
	"context"

	"github.com/stealthrocket/stablefs/internal/sandbox"
	"github.com/stealthrocket/stablefs/internal/stable"
	"github.com/stealthrocket/wasi-go"
	"github.com/stealthrocket/wazergo"
	. "github.com/stealthrocket/wazergo/types"
	"github.com/tetratelabs/wazero"
)

// HostModuleName is the import name of the host module.
const HostModuleName = "stablefs"

// HostModule exports:
//
//	mount(path, path_len, memory_id) -> errno
//	unmount(path, path_len) -> errno
//	store(path, path_len) -> errno
//	init(path, path_len) -> errno
//
// Paths are relative to the root directory. Memory ids name the virtual
// memories of the memory manager of the host.
var HostModule wazergo.HostModule[*Module] = functions{
	"mount":   wazergo.F3((*Module).Mount),
	"unmount": wazergo.F2((*Module).Unmount),
	"store":   wazergo.F2((*Module).Store),
	"init":    wazergo.F2((*Module).Init),
}

type functions wazergo.Functions[*Module]

func (f functions) Name() string {
	return HostModuleName
}

func (f functions) Functions() wazergo.Functions[*Module] {
	return (wazergo.Functions[*Module])(f)
}

func (f functions) Instantiate(ctx context.Context, opts ...Option) (*Module, error) {
	mod := &Module{}
	wazergo.Configure(mod, opts...)
	return mod, nil
}

// Instantiate instantiates the host module in runtime and returns a context
// carrying the instance.
func Instantiate(ctx context.Context, runtime wazero.Runtime, opts ...Option) (context.Context, *wazergo.ModuleInstance[*Module], error) {
	instance, err := wazergo.Instantiate(ctx, runtime, HostModule, opts...)
	if err != nil {
		return ctx, nil, err
	}
	return wazergo.WithModuleInstance(ctx, instance), instance, nil
}

type Option = wazergo.Option[*Module]

// Module is the state of the host module.
type Module struct {
	system   *sandbox.System
	manager  *stable.MemoryManager
	reserved []stable.MemoryID
}

// WithSystem sets the system owning the file system of the guest.
func WithSystem(system *sandbox.System) Option {
	return wazergo.OptionFunc(func(m *Module) { m.system = system })
}

// WithMemoryManager sets the manager resolving memory ids.
func WithMemoryManager(manager *stable.MemoryManager) Option {
	return wazergo.OptionFunc(func(m *Module) { m.manager = manager })
}

// WithReservedMemories sets the ids that guests cannot mount, typically the
// memories holding the file system.
func WithReservedMemories(ids ...stable.MemoryID) Option {
	return wazergo.OptionFunc(func(m *Module) { m.reserved = append(m.reserved, ids...) })
}

func (m *Module) Close(ctx context.Context) error {
	m.system = nil
	m.manager = nil
	return nil
}

func (m *Module) Mount(ctx context.Context, path Pointer[Uint8], length Int32, id Int32) Int32 {
	p, ok := readPath(path, length)
	if !ok {
		return errno(wasi.EFAULT)
	}
	return errno(m.MountPath(ctx, p, int(id)))
}

func (m *Module) Unmount(ctx context.Context, path Pointer[Uint8], length Int32) Int32 {
	p, ok := readPath(path, length)
	if !ok {
		return errno(wasi.EFAULT)
	}
	return errno(m.system.UnmountMemoryFile(ctx, p))
}

func (m *Module) Store(ctx context.Context, path Pointer[Uint8], length Int32) Int32 {
	p, ok := readPath(path, length)
	if !ok {
		return errno(wasi.EFAULT)
	}
	return errno(m.system.StoreMemoryFile(ctx, p))
}

func (m *Module) Init(ctx context.Context, path Pointer[Uint8], length Int32) Int32 {
	p, ok := readPath(path, length)
	if !ok {
		return errno(wasi.EFAULT)
	}
	return errno(m.system.InitMemoryFile(ctx, p))
}

// MountPath mounts the virtual memory id on the file at path.
func (m *Module) MountPath(ctx context.Context, path string, id int) wasi.Errno {
	if m.manager == nil {
		return wasi.ENOTSUP
	}
	if id < 0 || id > int(stable.MaxMemoryID) {
		return wasi.EINVAL
	}
	for _, r := range m.reserved {
		if stable.MemoryID(id) == r {
			return wasi.EINVAL
		}
	}
	return m.system.MountMemoryFile(ctx, path, m.manager.Get(stable.MemoryID(id)))
}

func readPath(p Pointer[Uint8], length Int32) (string, bool) {
	if length < 0 {
		return "", false
	}
	b, ok := p.Memory().Read(p.Offset(), uint32(length))
	if !ok {
		return "", false
	}
	return string(b), true
}

func errno(e wasi.Errno) Int32 { return Int32(e) }
