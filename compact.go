package main

import (
	"context"
	"fmt"

	"github.com/stealthrocket/stablefs/internal/print/human"
)

const compactUsage = `
Usage:	stablefs compact [options]

   Rewrite the logs of the file system to reclaim the space held by stale
   records. Compaction also runs automatically when the space held by stale
   records exceeds the store.compact_threshold configuration.

Options:
   -c, --config path  Path to the stablefs configuration file (overrides STABLEFSCONFIG)
   -h, --help         Show usage information
   -q, --quiet        Do not print the space reclaimed
`

func compact(ctx context.Context, args []string) error {
	quiet := false

	flagSet := newFlagSet("stablefs compact", compactUsage)
	boolVar(flagSet, &quiet, "q", "quiet")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return usageError("stablefs compact: unexpected arguments: %q", args)
	}

	fsys, closer, err := openFileSystem()
	if err != nil {
		return err
	}
	defer closer.Close()

	before := fsys.Stats()
	if err := fsys.Compact(); err != nil {
		return err
	}
	if err := fsys.Checkpoint(); err != nil {
		return err
	}
	after := fsys.Stats()

	if !quiet {
		fmt.Fprintf(stdout, "metadata: %v -> %v\n",
			human.Bytes(before.Metadata.TotalBytes), human.Bytes(after.Metadata.TotalBytes))
		fmt.Fprintf(stdout, "data:     %v -> %v\n",
			human.Bytes(before.Data.TotalBytes), human.Bytes(after.Data.TotalBytes))
	}
	return nil
}
