package main

import (
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
)

var rootTests = tests{
	"invoking stablefs without a command prints the introduction message": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t)
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "stablefs - Persistent file systems for WebAssembly\n")
		assert.Equal(t, stderr, "")
	},

	"show the stablefs help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs <command> ")
		assert.Equal(t, stderr, "")
	},

	"show the stablefs help with the long option": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs <command> ")
		assert.Equal(t, stderr, "")
	},

	"passing an unsupported flag before the command causes an error": func(t *testing.T) {
		_, _, exitCode := runStablefs(t, "-_", "ls")
		assert.Equal(t, exitCode, 2)
	},
}
