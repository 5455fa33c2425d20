package sandbox

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stealthrocket/stablefs/internal/storage"
	"github.com/stealthrocket/wasi-go"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// DefaultRights are the rights granted to the root directory, and inherited
// by the files opened under it.
const DefaultRights = wasi.FDReadRight |
	wasi.FDSeekRight |
	wasi.FDStatSetFlagsRight |
	wasi.FDSyncRight |
	wasi.FDTellRight |
	wasi.FDWriteRight |
	wasi.FDAdviseRight |
	wasi.FDAllocateRight |
	wasi.PathOpenRight |
	wasi.PathFileStatGetRight |
	wasi.PathFileStatSetSizeRight |
	wasi.PathFileStatSetTimesRight |
	wasi.FDFileStatGetRight |
	wasi.FDFileStatSetSizeRight |
	wasi.FDFileStatSetTimesRight |
	wasi.PathUnlinkFileRight

// Option represents configuration options that can be set when instantiating a
// System.
type Option func(*System)

// Args configures the list of arguments passed to the guest module.
func Args(args ...string) Option {
	args = slices.Clone(args)
	return func(s *System) { s.args = args }
}

// Environ configures the list of environment variables exposed to the guest
// module.
func Environ(environ ...string) Option {
	environ = slices.Clone(environ)
	return func(s *System) { s.environ = environ }
}

// Seed configures the seed of the random number generator exposed to the
// guest module.
func Seed(seed []byte) Option {
	seed = slices.Clone(seed)
	return func(s *System) { s.seed = seed }
}

// Clock configures the clock read by the guest module.
//
// Default to the wall clock of the host.
func Clock(c clock.Clock) Option {
	return func(s *System) { s.clock = c }
}

// Debug configures the writer receiving the output written by the guest to
// its standard streams.
//
// Default to discarding the output.
func Debug(w io.Writer) Option {
	return func(s *System) { s.debug = w }
}

// Logger configures the logger of the system.
func Logger(logger *zap.Logger) Option {
	return func(s *System) { s.logger = logger }
}

// Strict configures whether calls to unsupported functions abort the guest
// instead of failing with ENOTSUP.
//
// Default to true.
func Strict(strict bool) Option {
	return func(s *System) { s.strict = strict }
}

// FileSystem configures the file system exposed to the guest module.
func FileSystem(fsys *storage.FileSystem) Option {
	return func(s *System) { s.fsys = fsys }
}

// System implements the WASI preview 1 system calls on top of a stable file
// system.
//
// The standard streams are not backed by the file system: the output written
// to them is sent to the debug writer, and reading from them fails.
//
// A System is owned by a single guest. Calling its methods concurrently, or
// from a method of the same system, panics.
type System struct {
	args    []string
	environ []string
	env     Environment
	seed    []byte
	random  *Random
	clock   clock.Clock
	epoch   time.Time
	debug   io.Writer
	logger  *zap.Logger
	strict  bool
	fsys    *storage.FileSystem
	busy    atomic.Bool
}

// New creates a new System instance, applying the list of options passed as
// arguments.
func New(opts ...Option) (*System, error) {
	s := &System{
		clock:  clock.New(),
		debug:  io.Discard,
		logger: zap.NewNop(),
		strict: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fsys == nil {
		return nil, errors.New("sandbox: no file system configured")
	}
	env, err := MakeEnvironment(s.environ...)
	if err != nil {
		return nil, err
	}
	s.env = env
	s.random = NewRandom(s.seed)
	s.epoch = s.clock.Now()
	return s, nil
}

// FileSystem returns the file system exposed to the guest.
func (s *System) FileSystem() *storage.FileSystem { return s.fsys }

// Environment returns the environment exposed to the guest.
func (s *System) Environment() Environment { return s.env }

// Reseed restarts the random number generator from a new seed.
func (s *System) Reseed(seed []byte) {
	defer s.borrow()()
	s.random.Reseed(seed)
}

// Close writes the descriptor table of the guest to its file system, so that
// the descriptors are restored when the file system is reopened.
func (s *System) Close(ctx context.Context) error {
	defer s.borrow()()
	return s.fsys.Checkpoint()
}

// borrow marks the system as in use until the returned function is called.
func (s *System) borrow() func() {
	if !s.busy.CompareAndSwap(false, true) {
		panic("sandbox: system used by concurrent or re-entrant calls")
	}
	return s.release
}

func (s *System) release() { s.busy.Store(false) }

func (s *System) ArgsSizesGet(ctx context.Context) (argCount, stringBytes int, errno wasi.Errno) {
	argCount, stringBytes = wasi.SizesGet(s.args)
	return
}

func (s *System) ArgsGet(ctx context.Context) ([]string, wasi.Errno) {
	return s.args, wasi.ESUCCESS
}

func (s *System) EnvironSizesGet(ctx context.Context) (envCount, stringBytes int, errno wasi.Errno) {
	envCount, stringBytes = s.env.Sizes()
	return
}

func (s *System) EnvironGet(ctx context.Context) ([]string, wasi.Errno) {
	return s.env, wasi.ESUCCESS
}

func (s *System) ClockResGet(ctx context.Context, id wasi.ClockID) (wasi.Timestamp, wasi.Errno) {
	switch id {
	case wasi.Realtime, wasi.Monotonic:
		return ClockResolution, wasi.ESUCCESS
	case wasi.ProcessCPUTimeID, wasi.ThreadCPUTimeID:
		return 0, wasi.ENOTSUP
	default:
		return 0, wasi.EINVAL
	}
}

func (s *System) ClockTimeGet(ctx context.Context, id wasi.ClockID, precision wasi.Timestamp) (wasi.Timestamp, wasi.Errno) {
	now := s.clock.Now()
	switch id {
	case wasi.Realtime:
		return wasi.Timestamp(now.UnixNano()), wasi.ESUCCESS
	case wasi.Monotonic:
		return wasi.Timestamp(now.Sub(s.epoch)), wasi.ESUCCESS
	case wasi.ProcessCPUTimeID, wasi.ThreadCPUTimeID:
		return 0, wasi.ENOTSUP
	default:
		return 0, wasi.EINVAL
	}
}

func (s *System) ProcExit(ctx context.Context, code wasi.ExitCode) wasi.Errno {
	s.logger.Debug("guest exited", zap.Uint32("code", uint32(code)))
	panic(sys.NewExitError(uint32(code)))
}

func (s *System) ProcRaise(ctx context.Context, signal wasi.Signal) wasi.Errno {
	return s.unsupported("proc_raise")
}

func (s *System) SchedYield(ctx context.Context) wasi.Errno {
	return wasi.ESUCCESS
}

func (s *System) RandomGet(ctx context.Context, b []byte) wasi.Errno {
	defer s.borrow()()
	_, _ = s.random.Read(b)
	return wasi.ESUCCESS
}

// PollOneOff is not supported: the system has no blocking operation to wait
// on, so the call always fails with EIO.
func (s *System) PollOneOff(ctx context.Context, subscriptions []wasi.Subscription, events []wasi.Event) (int, wasi.Errno) {
	return 0, wasi.EIO
}
