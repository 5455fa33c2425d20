package main

import (
	"context"
)

const helpUsage = `
Usage:	stablefs <command> [options]

Runtime Commands:
   run      Run a WebAssembly module over the stable file system

File System Commands:
   cat      Print the content of files
   compact  Reclaim the space of the file system logs
   ls       List the entries of directories
   put      Copy a local file into the file system
   stat     Show the metadata of files or of the file system

Other Commands:
   config   View or edit the stablefs configuration
   help     Show usage information about stablefs commands
   version  Show the stablefs version information

Global Options:
   -c, --config  Path to the stablefs configuration file (overrides STABLEFSCONFIG)
   -h, --help    Show usage information

For a description of each command, run 'stablefs help <command>'.`

func help(ctx context.Context, args []string) error {
	flagSet := newFlagSet("stablefs help", helpUsage)
	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}

	var cmd string
	var msg string

	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "cat":
		msg = catUsage
	case "compact":
		msg = compactUsage
	case "config":
		msg = configUsage
	case "help", "":
		msg = helpUsage
	case "ls":
		msg = lsUsage
	case "put":
		msg = putUsage
	case "run":
		msg = runUsage
	case "stat":
		msg = statUsage
	case "version":
		msg = versionUsage
	default:
		return usageError("stablefs help %s: unknown command", cmd)
	}

	printUsage(msg)
	return nil
}
