package main

import (
	"context"
	"fmt"
	"time"

	"github.com/stealthrocket/stablefs/internal/print/human"
	"github.com/stealthrocket/stablefs/internal/print/document"
	"github.com/stealthrocket/stablefs/internal/print/textprint"
	"github.com/stealthrocket/stablefs/internal/storage"
	"github.com/stealthrocket/stablefs/internal/stream"
)

const statUsage = `
Usage:	stablefs stat [options] [path...]

   Show the metadata of files of the file system. Without arguments, the
   state of the file system itself is shown.

Options:
   -c, --config path    Path to the stablefs configuration file (overrides STABLEFSCONFIG)
   -h, --help           Show usage information
   -o, --output format  Output format, one of: text, json, yaml
`

type fileStat struct {
	Path   string           `json:"path"   yaml:"path"`
	Node   storage.Node     `json:"node"   yaml:"node"`
	Type   string           `json:"type"   yaml:"type"`
	Links  uint64           `json:"links"  yaml:"links"`
	Size   human.Bytes      `json:"size"   yaml:"size"`
	Access timestamp        `json:"access" yaml:"access"`
	Modify timestamp        `json:"modify" yaml:"modify"`
	Change timestamp        `json:"change" yaml:"change"`
	Meta   storage.Metadata `json:"-"      yaml:"-"`
}

func (s *fileStat) Format(w fmt.State, _ rune) {
	fmt.Fprintf(w, "  File: %s\n", s.Path)
	fmt.Fprintf(w, "  Type: %s\n", s.Type)
	fmt.Fprintf(w, "  Node: %d\n", s.Node)
	fmt.Fprintf(w, " Links: %d\n", s.Links)
	fmt.Fprintf(w, "  Size: %d (%v)\n", s.Meta.Size, s.Size)
	fmt.Fprintf(w, "Access: %s\n", s.Access.Time().Format(time.RFC3339Nano))
	fmt.Fprintf(w, "Modify: %s\n", s.Modify.Time().Format(time.RFC3339Nano))
	fmt.Fprintf(w, "Change: %s\n", s.Change.Time().Format(time.RFC3339Nano))
}

type logStat struct {
	Log        string      `text:"LOG"`
	Keys       int         `text:"KEYS"`
	LiveBytes  human.Bytes `text:"LIVE"`
	TotalBytes human.Bytes `text:"TOTAL"`
	Generation uint64      `text:"GENERATION"`
}

func stat(ctx context.Context, args []string) error {
	output := outputFormat("text")

	flagSet := newFlagSet("stablefs stat", statUsage)
	customVar(flagSet, &output, "o", "output")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}

	fsys, closer, err := openFileSystem()
	if err != nil {
		return err
	}
	defer closer.Close()

	if len(args) == 0 {
		return statFileSystem(fsys, output)
	}

	stats := make([]*fileStat, 0, len(args))
	for _, arg := range args {
		md, err := fsys.PathMetadata(storage.RootFd, fsPath(arg))
		if err != nil {
			return err
		}
		stats = append(stats, &fileStat{
			Path:   arg,
			Node:   md.Node,
			Type:   md.FileType.String(),
			Links:  md.Links,
			Size:   human.Bytes(md.Size),
			Access: timestamp(md.AccessTime),
			Modify: timestamp(md.ModifyTime),
			Change: timestamp(md.ChangeTime),
			Meta:   md,
		})
	}

	var writer stream.WriteCloser[*fileStat]
	switch output {
	case "json", "yaml":
		writer = document.NewWriter[*fileStat](stdout, document.Format(output))
	default:
		writer = textprint.NewWriter[*fileStat](stdout, "\n")
	}
	return writeValues(writer, stats...)
}

func statFileSystem(fsys *storage.FileSystem, output outputFormat) error {
	stats := fsys.Stats()

	switch output {
	case "json", "yaml":
		return writeValues(document.NewWriter[storage.Stats](stdout, document.Format(output)), stats)
	}

	fmt.Fprintf(stdout, "ID:         %s\n", stats.ID)
	fmt.Fprintf(stdout, "Version:    %d\n", stats.Version)
	fmt.Fprintf(stdout, "Nodes:      %d\n", stats.Nodes)
	fmt.Fprintf(stdout, "Open files: %d\n", stats.OpenFiles)
	fmt.Fprintf(stdout, "Mounts:     %d\n", stats.Mounts)
	fmt.Fprintln(stdout)

	return writeValues(textprint.NewTableWriter[logStat](stdout),
		makeLogStat("metadata", stats.Metadata),
		makeLogStat("data", stats.Data),
	)
}

func makeLogStat(name string, stats storage.LogStats) logStat {
	return logStat{
		Log:        name,
		Keys:       stats.Keys,
		LiveBytes:  human.Bytes(stats.LiveBytes),
		TotalBytes: human.Bytes(stats.TotalBytes),
		Generation: stats.Generation,
	}
}

// writeValues writes values to w and closes it.
func writeValues[T any](w stream.WriteCloser[T], values ...T) error {
	if _, err := w.Write(values); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
