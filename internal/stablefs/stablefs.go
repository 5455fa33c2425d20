// Package stablefs assembles the pieces of a stable file system: the storage
// persisted in stable memories, the sandbox exposing it to a guest, and the
// host modules importing the sandbox into a wazero runtime.
package stablefs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/benbjohnson/clock"
	hostfs "github.com/stealthrocket/stablefs/internal/imports/stablefs"
	"github.com/stealthrocket/stablefs/internal/sandbox"
	"github.com/stealthrocket/stablefs/internal/stable"
	"github.com/stealthrocket/stablefs/internal/storage"
	"github.com/stealthrocket/wasi-go/imports/wasi_snapshot_preview1"
	"github.com/stealthrocket/wazergo"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// DefaultMemoryIDs are the virtual memories holding the file system when
// none are specified. The first two hold the metadata and data logs, the
// others are reserved and cannot be mounted by guests.
var DefaultMemoryIDs = stable.MemoryIDRange{First: 1, Last: 4}

// ErrTooFewMemories is returned when fewer than two memory ids are given to
// hold a file system.
var ErrTooFewMemories = errors.New("a file system needs at least two memories")

var rootRights = storage.WithRootRights(
	storage.Rights(sandbox.DefaultRights),
	storage.Rights(sandbox.DefaultRights),
)

// Option configures the instances created by Init and its variants.
type Option func(*options)

type options struct {
	args    []string
	logger  *zap.Logger
	clock   clock.Clock
	debug   io.Writer
	strict  bool
	storage []storage.Option
}

// WithArgs sets the command line arguments of the guest.
func WithArgs(args ...string) Option {
	args = slices.Clone(args)
	return func(o *options) { o.args = args }
}

// WithLogger sets the logger of the storage and the sandbox.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the clock of the guest and of the file timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithDebug sets the writer receiving the output of the guest to its
// standard streams.
func WithDebug(w io.Writer) Option {
	return func(o *options) { o.debug = w }
}

// WithStrict sets whether unsupported system calls abort the guest.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithStorageOptions appends options applied when opening the storage.
func WithStorageOptions(opts ...storage.Option) Option {
	return func(o *options) { o.storage = append(o.storage, opts...) }
}

// Instance is a file system opened for a guest.
type Instance struct {
	manager *stable.MemoryManager
	ids     []stable.MemoryID
	fsys    *storage.FileSystem
	system  *sandbox.System
	logger  *zap.Logger
}

// Init creates an instance over a fresh memory living in RAM.
func Init(seed []byte, env []string, opts ...Option) (*Instance, error) {
	return InitWithMemory(seed, env, stable.NewVectorMemory(0), opts...)
}

// InitWithMemory creates an instance over mem, which is partitioned by a
// memory manager. The file system is held by DefaultMemoryIDs.
func InitWithMemory(seed []byte, env []string, mem stable.Memory, opts ...Option) (*Instance, error) {
	manager, err := stable.NewMemoryManager(mem, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]stable.MemoryID, 0, DefaultMemoryIDs.Len())
	for id := DefaultMemoryIDs.First; id <= DefaultMemoryIDs.Last; id++ {
		ids = append(ids, id)
	}
	return InitWithMemoryManager(seed, env, manager, ids, opts...)
}

// InitWithMemoryManager creates an instance whose file system is held by the
// virtual memories ids of manager.
//
// When the memories already hold a file system, it is resumed with its
// files and the descriptors open at the last checkpoint; otherwise a new
// file system is formatted.
func InitWithMemoryManager(seed []byte, env []string, manager *stable.MemoryManager, ids []stable.MemoryID, opts ...Option) (*Instance, error) {
	if len(ids) < 2 {
		return nil, ErrTooFewMemories
	}
	o := options{
		logger: zap.NewNop(),
		clock:  clock.New(),
		debug:  io.Discard,
		strict: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	meta, data := manager.Get(ids[0]), manager.Get(ids[1])
	fresh := meta.Size() == 0

	storageOptions := append([]storage.Option{
		storage.WithLogger(o.logger),
		storage.WithClock(o.clock),
		rootRights,
	}, o.storage...)

	fsys, err := storage.New(meta, data, storageOptions...)
	if err != nil {
		return nil, fmt.Errorf("opening file system: %w", err)
	}
	if fresh {
		o.logger.Info("formatted file system",
			zap.Stringer("id", fsys.ID()),
			zap.Uint32("version", fsys.StorageVersion()))
	} else {
		o.logger.Info("resumed file system",
			zap.Stringer("id", fsys.ID()),
			zap.Uint32("version", fsys.StorageVersion()))
	}

	system, err := sandbox.New(
		sandbox.FileSystem(fsys),
		sandbox.Args(o.args...),
		sandbox.Environ(env...),
		sandbox.Seed(seed),
		sandbox.Clock(o.clock),
		sandbox.Debug(o.debug),
		sandbox.Logger(o.logger),
		sandbox.Strict(o.strict),
	)
	if err != nil {
		return nil, err
	}
	return &Instance{
		manager: manager,
		ids:     slices.Clone(ids),
		fsys:    fsys,
		system:  system,
		logger:  o.logger,
	}, nil
}

// System returns the system exposing the file system to the guest.
func (i *Instance) System() *sandbox.System { return i.system }

// FileSystem returns the file system of the instance.
func (i *Instance) FileSystem() *storage.FileSystem { return i.fsys }

// MemoryManager returns the manager of the memories holding the file system.
func (i *Instance) MemoryManager() *stable.MemoryManager { return i.manager }

// Instantiate registers the wasi_snapshot_preview1 and stablefs host modules
// in runtime. The returned context carries the stablefs module instance and
// must be used to call the guest.
func (i *Instance) Instantiate(ctx context.Context, runtime wazero.Runtime) (context.Context, error) {
	hostModule := wasi_snapshot_preview1.NewHostModule()
	hostModuleInstance, err := wazergo.Instantiate(ctx, runtime, hostModule, wasi_snapshot_preview1.WithWASI(i.system))
	if err != nil {
		return ctx, fmt.Errorf("instantiating %s: %w", wasi_snapshot_preview1.HostModuleName, err)
	}
	ctx = wazergo.WithModuleInstance(ctx, hostModuleInstance)

	ctx, _, err = hostfs.Instantiate(ctx, runtime,
		hostfs.WithSystem(i.system),
		hostfs.WithMemoryManager(i.manager),
		hostfs.WithReservedMemories(i.ids...),
	)
	if err != nil {
		return ctx, fmt.Errorf("instantiating %s: %w", hostfs.HostModuleName, err)
	}
	return ctx, nil
}

// Close checkpoints the file system. The instance must not be used after
// Close, but a new instance over the same memories resumes its state.
func (i *Instance) Close(ctx context.Context) error {
	if err := i.system.Close(ctx); err != nil {
		i.logger.Error("checkpoint failed", zap.Error(err))
		return err
	}
	return nil
}
