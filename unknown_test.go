package main

import (
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
)

var unknownTests = tests{
	"an error is reported when invoking an unknown command": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "whatever")
		assert.Equal(t, exitCode, 2)
		assert.Equal(t, stdout, "")
		assert.HasPrefix(t, stderr, "stablefs whatever: unknown command\n")
	},
}
