package main

import (
	"strings"
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
)

var versionTests = tests{
	"show the version command help with the short option": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "version", "-h")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs version\n")
		assert.Equal(t, stderr, "")
	},

	"show the version command help with the long option": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "version", "--help")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "Usage:\tstablefs version\n")
		assert.Equal(t, stderr, "")
	},

	"the version starts with the prefix stablefs": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "version")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "stablefs ")
		assert.Equal(t, stderr, "")
	},

	"the version number is not empty": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "version")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stderr, "")

		_, version, _ := strings.Cut(stdout, " ")
		assert.NotEqual(t, strings.TrimSpace(version), "")
	},

	"passing an unsupported flag to the command causes an error": func(t *testing.T) {
		_, _, exitCode := runStablefs(t, "version", "-_")
		assert.Equal(t, exitCode, 2)
	},
}
