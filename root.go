package main

// Notes on program structure
// --------------------------
//
// stablefs uses subcommands to invoke specific functionalities of the program.
// Each subcommand is implemented by a function named after the command, in a
// file of the same name (e.g. the "help" command is implemented by the help
// function in help.go).
//
// The usage message for each command is declared by a constant starting with
// the command name and followed by the suffix "Usage". For example, the usage
// message for the "help" command is declared by the constant helpUsage.
//
// The usage message contains a "Usage:	stablefs <command>" section presenting
// the structure of the command. Note the tabulation separating "Usage:" and
// "stablefs".
//
// Commands write to the package level stdout and stderr writers rather than
// the os package variables so they can be invoked in-process.

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/stealthrocket/stablefs/internal/print/human"
	"github.com/stealthrocket/stablefs/internal/stablefs"
	"github.com/stealthrocket/stablefs/internal/storage"
	"golang.org/x/exp/slices"
)

const rootUsage = `stablefs - Persistent file systems for WebAssembly

   stablefs runs WebAssembly programs over a file system kept in a stable
   memory. Files, directories and open descriptors survive restarts and
   upgrades of the program.

Example:

   $ stablefs run -- app.wasm
   ...

   $ stablefs ls /
   ...

For a list of commands available, run 'stablefs help'.`

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// root is the stablefs entrypoint.
func root(ctx context.Context, args ...string) int {
	var (
		// Secret options, we don't document them since they are only used for
		// development. Since they are not part of the public interface we may
		// remove or change the syntax at any time.
		cpuProfile human.Path
		memProfile human.Path
	)

	flagSet := newFlagSet("stablefs", helpUsage)
	customVar(flagSet, &cpuProfile, "cpuprofile")
	customVar(flagSet, &memProfile, "memprofile")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "%s\n", err)
		return 2
	}

	if args = flagSet.Args(); len(args) == 0 {
		fmt.Fprintln(stdout, rootUsage)
		return 0
	}

	if cpuProfile != "" {
		path, _ := cpuProfile.Resolve()
		f, err := os.Create(path)
		if err != nil {
			fmt.Fprintf(stderr, "WARN: could not create CPU profile: %s\n", err)
		} else {
			defer f.Close()
			_ = pprof.StartCPUProfile(f)
			defer pprof.StopCPUProfile()
		}
	}

	if memProfile != "" {
		path, _ := memProfile.Resolve()
		defer func() {
			f, err := os.Create(path)
			if err != nil {
				fmt.Fprintf(stderr, "WARN: could not create memory profile: %s\n", err)
				return
			}
			defer f.Close()
			runtime.GC()
			_ = pprof.WriteHeapProfile(f)
		}()
	}

	cmd, args := args[0], args[1:]

	var err error
	switch cmd {
	case "cat":
		err = cat(ctx, args)
	case "compact":
		err = compact(ctx, args)
	case "config":
		err = config(ctx, args)
	case "help":
		err = help(ctx, args)
	case "ls":
		err = ls(ctx, args)
	case "put":
		err = put(ctx, args)
	case "run":
		err = run(ctx, args)
	case "stat":
		err = stat(ctx, args)
	case "version":
		err = version(ctx, args)
	default:
		err = unknown(ctx, cmd)
	}

	switch e := err.(type) {
	case nil:
		return 0
	case exitCode:
		return int(e)
	case usage:
		fmt.Fprintf(stderr, "%s\n", e)
		return 2
	default:
		fmt.Fprintf(stderr, "ERR: stablefs %s: %s\n", cmd, err)
		return 1
	}
}

// exitCode is an error type returned from command functions to indicate the
// exit code that should be returned by the program.
type exitCode int

func (e exitCode) Error() string {
	return fmt.Sprintf("exit: %d", e)
}

// usage is an error type returned from command functions to indicate a usage
// error.
//
// Usage errors cause the program to exit with status code 2.
type usage string

func usageError(msg string, args ...any) error {
	return usage(fmt.Sprintf(msg, args...))
}

func (e usage) Error() string {
	return string(e)
}

func setEnum[T ~string](enum *T, typ string, value string, options ...string) error {
	for _, option := range options {
		if option == value {
			*enum = T(option)
			return nil
		}
	}
	return fmt.Errorf("unsupported %s: %q (not one of %s)", typ, value, strings.Join(options, ", "))
}

type outputFormat string

func (o outputFormat) String() string {
	return string(o)
}

func (o *outputFormat) Set(value string) error {
	return setEnum(o, "output format", value, "text", "json", "yaml")
}

type stringList []string

func (s stringList) String() string {
	return fmt.Sprintf("%v", []string(s))
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func newFlagSet(cmd, usage string) *flag.FlagSet {
	flagSet := flag.NewFlagSet(cmd, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.Usage = func() { printUsage(usage) }
	customVar(flagSet, &stablefs.ConfigPath, "c", "config")
	return flagSet
}

func printUsage(usage string) {
	fmt.Fprintln(stdout, strings.TrimSpace(usage))
}

// parseFlags is a greedy parser which consumes all options known to f and
// returns the remaining arguments.
//
// Asking for help prints the usage message and returns exitCode(0); other
// parsing errors are returned as usage errors.
func parseFlags(f *flag.FlagSet, args []string) ([]string, error) {
	var unknownArgs []string
	for {
		if err := f.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, exitCode(0)
			}
			return nil, usageError("%s: %s", f.Name(), err)
		}
		rest := f.Args()
		if consumed := args[:len(args)-len(rest)]; len(consumed) > 0 && consumed[len(consumed)-1] == "--" {
			return append(unknownArgs, rest...), nil
		}
		if args = rest; len(args) == 0 {
			return unknownArgs, nil
		}
		i := slices.IndexFunc(args, func(s string) bool {
			return strings.HasPrefix(s, "-")
		})
		if i < 0 {
			i = len(args)
		} else if args[i] == "-" {
			i++
		}
		if i == 0 {
			panic("parsing command line arguments did not error on " + args[0])
		}
		unknownArgs = append(unknownArgs, args[:i]...)
		args = args[i:]
	}
}

func boolVar(f *flag.FlagSet, dst *bool, name string, alias ...string) {
	f.BoolVar(dst, name, *dst, "")
	for _, name := range alias {
		f.BoolVar(dst, name, *dst, "")
	}
}

func customVar(f *flag.FlagSet, dst flag.Value, name string, alias ...string) {
	f.Var(dst, name, "")
	for _, name := range alias {
		f.Var(dst, name, "")
	}
}

// openFileSystem opens the file system of the store configured for the
// program. The returned closer releases the underlying memory.
func openFileSystem() (*storage.FileSystem, io.Closer, error) {
	config, err := stablefs.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	return config.OpenFileSystem(logger)
}

// fsPath converts a path of the command line to a path relative to the root
// of the file system. "/a/b" and "a/b" designate the same file.
func fsPath(p string) string {
	p = strings.TrimLeft(path.Clean("/"+p), "/")
	if p == "" {
		return "."
	}
	return p
}

// fileReader adapts a descriptor of the file system to io.Reader.
type fileReader struct {
	fsys *storage.FileSystem
	fd   storage.Fd
}

func (r fileReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	n, err := r.fsys.Read(r.fd, b)
	if n == 0 && err == nil {
		err = io.EOF
	}
	return n, err
}

// fileWriter adapts a descriptor of the file system to io.Writer.
type fileWriter struct {
	fsys *storage.FileSystem
	fd   storage.Fd
}

func (w fileWriter) Write(b []byte) (int, error) {
	return w.fsys.Write(w.fd, b)
}

// timestamp is a file time in nanoseconds since the epoch.
type timestamp uint64

func (t timestamp) Time() time.Time {
	return time.Unix(0, int64(t)).UTC()
}

func (t timestamp) String() string {
	return t.Time().Format("2006-01-02 15:04:05")
}

func (t timestamp) MarshalJSON() ([]byte, error) {
	return t.Time().MarshalJSON()
}

func (t timestamp) MarshalYAML() (any, error) {
	return t.Time().Format(time.RFC3339Nano), nil
}
