package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/stealthrocket/stablefs/internal/stablefs"
	"github.com/tetratelabs/wazero/sys"
)

const runUsage = `
Usage:	stablefs run [options] [--] <module> [args...]

   Run a WebAssembly module over the stable file system. The module sees the
   file system as its preopened root directory "/", resumed in the state it
   had at the end of the previous run.

   The output of the module to its standard streams is written to the
   standard output, and the exit code of the module becomes the exit code
   of the program.

Options:
   -c, --config path     Path to the stablefs configuration file (overrides STABLEFSCONFIG)
   -e, --env name=value  Pass an environment variable to the module
   -h, --help            Show usage information
       --seed hex        Seed of the random number generator (overrides runtime.seed)
`

func run(ctx context.Context, args []string) error {
	var (
		envs stringList
		seed string
	)

	flagSet := newFlagSet("stablefs run", runUsage)
	customVar(flagSet, &envs, "e", "env")
	flagSet.StringVar(&seed, "seed", "", "")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return usageError(`Expected at least the WebAssembly module path as argument`)
	}

	config, err := stablefs.LoadConfig()
	if err != nil {
		return err
	}
	config.Runtime.Env = append(config.Runtime.Env, envs...)
	if seed != "" {
		config.Runtime.Seed = stablefs.NullableValue(seed)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	wasmPath := args[0]
	wasmCode, err := os.ReadFile(wasmPath)
	if err != nil {
		return err
	}
	args[0] = filepath.Base(wasmPath)

	err = stablefs.Run(ctx, config, wasmCode, args,
		stablefs.WithLogger(logger),
		stablefs.WithDebug(stdout),
	)
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		return exitCode(exitErr.ExitCode())
	}
	return err
}
