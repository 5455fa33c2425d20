package main

import (
	"context"
	"io"
	"path"

	"github.com/stealthrocket/stablefs/internal/print/human"
	"github.com/stealthrocket/stablefs/internal/print/document"
	"github.com/stealthrocket/stablefs/internal/print/textprint"
	"github.com/stealthrocket/stablefs/internal/storage"
	"github.com/stealthrocket/stablefs/internal/stream"
)

const lsUsage = `
Usage:	stablefs ls [options] [path...]

   List the entries of directories of the file system. Without arguments,
   the root directory is listed. Listing a file shows the file itself.

Options:
   -c, --config path    Path to the stablefs configuration file (overrides STABLEFSCONFIG)
   -h, --help           Show usage information
   -o, --output format  Output format, one of: text, json, yaml
   -q, --quiet          Only display the names of entries
`

type dirEntry struct {
	Name     string      `json:"name"     yaml:"name"     text:"NAME"`
	Type     string      `json:"type"     yaml:"type"     text:"TYPE"`
	Size     human.Bytes `json:"size"     yaml:"size"     text:"SIZE"`
	Links    uint64      `json:"links"    yaml:"links"    text:"-"`
	Node     uint64      `json:"node"     yaml:"node"     text:"-"`
	Modified timestamp   `json:"modified" yaml:"modified" text:"MODIFIED"`
}

func ls(ctx context.Context, args []string) error {
	var (
		output = outputFormat("text")
		quiet  = false
	)

	flagSet := newFlagSet("stablefs ls", lsUsage)
	customVar(flagSet, &output, "o", "output")
	boolVar(flagSet, &quiet, "q", "quiet")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{"."}
	}

	fsys, closer, err := openFileSystem()
	if err != nil {
		return err
	}
	defer closer.Close()

	readers := make([]stream.Reader[dirEntry], 0, len(args))
	for _, arg := range args {
		dir := fsPath(arg)
		md, err := fsys.PathMetadata(storage.RootFd, dir)
		if err != nil {
			return err
		}
		if md.FileType != storage.DirectoryType {
			readers = append(readers, stream.NewReader(makeDirEntry(path.Base(dir), md)))
			continue
		}
		prefix := ""
		if len(args) > 1 {
			prefix = dir
		}
		entries := &dirReader{fsys: fsys, dir: dir}
		readers = append(readers, stream.ConvertReader[dirEntry, storage.DirEntry](entries, func(e storage.DirEntry) (dirEntry, error) {
			md, err := fsys.PathMetadata(storage.RootFd, path.Join(dir, e.Name))
			if err != nil {
				return dirEntry{}, err
			}
			return makeDirEntry(path.Join(prefix, e.Name), md), nil
		}))
	}

	var writer stream.WriteCloser[dirEntry]
	switch output {
	case "json", "yaml":
		writer = document.NewWriter[dirEntry](stdout, document.Format(output))
	default:
		writer = textprint.NewTableWriter[dirEntry](stdout,
			textprint.Header[dirEntry](!quiet),
			textprint.List[dirEntry](quiet),
		)
	}

	for _, r := range readers {
		if _, err := stream.Copy[dirEntry](writer, r); err != nil {
			writer.Close()
			return err
		}
	}
	return writer.Close()
}

func makeDirEntry(name string, md storage.Metadata) dirEntry {
	return dirEntry{
		Name:     name,
		Type:     md.FileType.String(),
		Size:     human.Bytes(md.Size),
		Links:    md.Links,
		Node:     uint64(md.Node),
		Modified: timestamp(md.ModifyTime),
	}
}

// dirReader is a stream of the entries of a directory, "." and ".."
// excluded. The directory is opened on the first read and closed when the
// end of the stream is reached.
type dirReader struct {
	fsys   *storage.FileSystem
	dir    string
	fd     storage.Fd
	open   bool
	done   bool
	cookie uint64
}

func (r *dirReader) Read(entries []storage.DirEntry) (n int, err error) {
	if r.done {
		return 0, io.EOF
	}
	if !r.open {
		r.fd, err = r.fsys.Open(storage.RootFd, r.dir, storage.FdStat{}, storage.Directory)
		if err != nil {
			r.done = true
			return 0, err
		}
		r.open = true
	}

	err = r.fsys.DirEntries(r.fd, r.cookie, func(e storage.DirEntry) bool {
		if n == len(entries) {
			return false
		}
		r.cookie = e.Next
		if e.Name != "." && e.Name != ".." {
			entries[n] = e
			n++
		}
		return true
	})
	if err == nil && n == len(entries) {
		return n, nil
	}
	r.done = true
	if closeErr := r.fsys.Close(r.fd); err == nil {
		err = closeErr
	}
	if err == nil {
		err = io.EOF
	}
	return n, err
}
