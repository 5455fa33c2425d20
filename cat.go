package main

import (
	"context"
	"io"

	"github.com/stealthrocket/stablefs/internal/print/textprint"
	"github.com/stealthrocket/stablefs/internal/storage"
)

const catUsage = `
Usage:	stablefs cat [options] <path>...

   Print the content of files of the file system to the standard output.

Options:
   -c, --config path     Path to the stablefs configuration file (overrides STABLEFSCONFIG)
   -h, --help            Show usage information
   -H, --with-filename   Prefix each line with the path of its file
       --quote           Indent the content of each file in a quoted block
`

func cat(ctx context.Context, args []string) error {
	var (
		withFilename = false
		quote        = false
	)

	flagSet := newFlagSet("stablefs cat", catUsage)
	boolVar(flagSet, &withFilename, "H", "with-filename")
	boolVar(flagSet, &quote, "quote")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return usageError(`Expected at least one file path as argument`)
	}

	fsys, closer, err := openFileSystem()
	if err != nil {
		return err
	}
	defer closer.Close()

	for _, arg := range args {
		w := stdout
		if quote {
			w = textprint.QuoteBytes(w)
		}
		if withFilename {
			w = textprint.Prefixlines(w, []byte(arg+": "))
		}
		if err := catFile(fsys, w, fsPath(arg)); err != nil {
			return err
		}
		if quote {
			io.WriteString(stdout, "\n")
		}
	}
	return nil
}

func catFile(fsys *storage.FileSystem, w io.Writer, path string) error {
	fd, err := fsys.Open(storage.RootFd, path, storage.FdStat{RightsBase: storage.AllRights}, 0)
	if err != nil {
		return err
	}
	defer fsys.Close(fd)

	md, err := fsys.Metadata(fd)
	if err != nil {
		return err
	}
	if md.FileType == storage.DirectoryType {
		return storage.ErrIsDirectory
	}
	_, err = io.Copy(w, fileReader{fsys, fd})
	return err
}
