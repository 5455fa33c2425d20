package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/stealthrocket/stablefs/internal/print/human"
	"github.com/stealthrocket/stablefs/internal/storage"
)

const putUsage = `
Usage:	stablefs put [options] <source> <path>

   Copy a local file into the file system. The missing parent directories
   of path are created, and an existing file is replaced. When the source
   is "-", the content is read from the standard input.

Options:
   -a, --append       Append to the file instead of replacing it
   -c, --config path  Path to the stablefs configuration file (overrides STABLEFSCONFIG)
   -h, --help         Show usage information
   -q, --quiet        Do not print the number of bytes copied
`

func put(ctx context.Context, args []string) error {
	var (
		appendMode = false
		quiet      = false
	)

	flagSet := newFlagSet("stablefs put", putUsage)
	boolVar(flagSet, &appendMode, "a", "append")
	boolVar(flagSet, &quiet, "q", "quiet")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return usageError(`Expected exactly two arguments: <source> <path>`)
	}
	source, target := args[0], fsPath(args[1])

	var r io.Reader = os.Stdin
	if source != "-" {
		f, err := os.Open(source)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	fsys, closer, err := openFileSystem()
	if err != nil {
		return err
	}
	defer closer.Close()

	stat := storage.FdStat{RightsBase: storage.AllRights}
	flags := storage.Create
	if appendMode {
		stat.Flags |= storage.Append
	} else {
		flags |= storage.Truncate
	}

	fd, err := fsys.Open(storage.RootFd, target, stat, flags)
	if err != nil {
		return err
	}
	n, err := io.Copy(fileWriter{fsys, fd}, r)
	if err != nil {
		fsys.Close(fd)
		return err
	}
	if err := fsys.Close(fd); err != nil {
		return err
	}
	if err := fsys.Checkpoint(); err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(stdout, "%s: %v copied\n", args[1], human.Bytes(n))
	}
	return nil
}
