package main

import (
	"context"
)

const unknownCommand = `stablefs %s: unknown command
For a list of commands available, run 'stablefs help'.`

func unknown(ctx context.Context, cmd string) error {
	return usageError(unknownCommand, cmd)
}
