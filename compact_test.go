package main

import (
	"strings"
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
)

var compactTests = tests{
	"compacting reports the size of the logs": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "compact")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "metadata: ")
		assert.True(t, strings.Contains(stdout, "\ndata:     "))
		assert.Equal(t, stderr, "")
	},

	"files are preserved by compaction": func(t *testing.T) {
		content := strings.Repeat("stale", 1000)
		for i := 0; i < 5; i++ {
			runStablefs(t, "put", "-q", writeFile(t, content), "f")
		}
		runStablefs(t, "put", "-q", writeFile(t, "fresh"), "f")

		_, _, exitCode := runStablefs(t, "compact", "-q")
		assert.Equal(t, exitCode, 0)

		stdout, _, exitCode := runStablefs(t, "cat", "f")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "fresh")
	},

	"passing arguments causes an error": func(t *testing.T) {
		_, _, exitCode := runStablefs(t, "compact", "now")
		assert.Equal(t, exitCode, 2)
	},
}
