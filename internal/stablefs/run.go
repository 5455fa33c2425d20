package stablefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
)

// Run executes the WebAssembly program wasm over the file system of the
// store configured by cfg. args[0] is the name of the program.
//
// The file system is checkpointed when the guest returns, even when it
// fails. A guest exiting with a non-zero code returns a *sys.ExitError.
func Run(ctx context.Context, cfg *Config, wasm []byte, args []string, opts ...Option) error {
	seed, err := cfg.Seed()
	if err != nil {
		return err
	}
	manager, closer, err := cfg.OpenMemoryManager()
	if err != nil {
		return err
	}
	defer closer.Close()

	opts = append([]Option{
		WithArgs(args...),
		WithStrict(cfg.Runtime.Strict.Or(true)),
		WithStorageOptions(cfg.StorageOptions()...),
	}, opts...)

	instance, err := InitWithMemoryManager(seed, cfg.Runtime.Env, manager, cfg.MemoryIDs(), opts...)
	if err != nil {
		return err
	}
	defer instance.Close(ctx)

	runtime, err := cfg.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer runtime.Close(ctx)

	ctx, err = instance.Instantiate(ctx, runtime)
	if err != nil {
		return err
	}

	compiled, err := runtime.CompileModule(ctx, wasm)
	if err != nil {
		return fmt.Errorf("compiling module: %w", err)
	}
	defer compiled.Close(ctx)

	name := "main"
	if len(args) > 0 {
		name = args[0]
	}
	instance.logger.Debug("starting guest", zap.String("name", name), zap.Strings("args", args))

	module, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
			return nil
		}
		return err
	}
	if module != nil {
		return module.Close(ctx)
	}
	return nil
}
