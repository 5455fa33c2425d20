package main

import (
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
)

var helpTests = tests{
	"calling help with an unknown command causes an error": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "help", "whatever")
		assert.Equal(t, exitCode, 2)
		assert.Equal(t, stdout, "")
		assert.Equal(t, stderr, "stablefs help whatever: unknown command\n")
	},

	"passing an unsupported flag to the command causes an error": func(t *testing.T) {
		_, _, exitCode := runStablefs(t, "help", "-_")
		assert.Equal(t, exitCode, 2)
	},

	"show the help command help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "help", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs <command> ")
		assert.Equal(t, stderr, "")
	},

	"show the help command help with the long option": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "help", "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs <command> ")
		assert.Equal(t, stderr, "")
	},

	"show the help command help after a command name": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "help", "ls", "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs <command> ")
		assert.Equal(t, stderr, "")
	},

	"stablefs help help": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "help", "help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs <command> ")
		assert.Equal(t, stderr, "")
	},

	"stablefs help version": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "help", "version")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs version\n")
		assert.Equal(t, stderr, "")
	},

	"stablefs help cat": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "help", "cat")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs cat ")
		assert.Equal(t, stderr, "")
	},

	"stablefs help compact": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "help", "compact")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs compact ")
		assert.Equal(t, stderr, "")
	},

	"stablefs help config": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "help", "config")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs config ")
		assert.Equal(t, stderr, "")
	},

	"stablefs help ls": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "help", "ls")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs ls ")
		assert.Equal(t, stderr, "")
	},

	"stablefs help put": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "help", "put")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs put ")
		assert.Equal(t, stderr, "")
	},

	"stablefs help run": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "help", "run")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs run ")
		assert.Equal(t, stderr, "")
	},

	"stablefs help stat": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "help", "stat")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs stat ")
		assert.Equal(t, stderr, "")
	},
}
