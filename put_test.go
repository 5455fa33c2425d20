package main

import (
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
)

var putTests = tests{
	"copying a file makes its content readable": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "put", writeFile(t, "hello"), "/notes.txt")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "/notes.txt: 5 B copied\n")
		assert.Equal(t, stderr, "")

		stdout, _, exitCode = runStablefs(t, "cat", "notes.txt")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "hello")
	},

	"copying a file creates its parent directories": func(t *testing.T) {
		_, _, exitCode := runStablefs(t, "put", "-q", writeFile(t, "x"), "a/b/c.txt")
		assert.Equal(t, exitCode, 0)

		stdout, _, exitCode := runStablefs(t, "ls", "-q", "a/b")
		assert.Equal(t, exitCode, 0)
		assert.EqualAll(t, lines(stdout), []string{"c.txt"})
	},

	"copying a file replaces the existing content": func(t *testing.T) {
		_, _, exitCode := runStablefs(t, "put", "-q", writeFile(t, "a longer content"), "f")
		assert.Equal(t, exitCode, 0)
		_, _, exitCode = runStablefs(t, "put", "-q", writeFile(t, "short"), "f")
		assert.Equal(t, exitCode, 0)

		stdout, _, _ := runStablefs(t, "cat", "f")
		assert.Equal(t, stdout, "short")
	},

	"appending to a file keeps the existing content": func(t *testing.T) {
		_, _, exitCode := runStablefs(t, "put", "-q", writeFile(t, "one,"), "log")
		assert.Equal(t, exitCode, 0)
		_, _, exitCode = runStablefs(t, "put", "-q", "--append", writeFile(t, "two"), "log")
		assert.Equal(t, exitCode, 0)

		stdout, _, _ := runStablefs(t, "cat", "log")
		assert.Equal(t, stdout, "one,two")
	},

	"the content is read from the standard input with the source -": func(t *testing.T) {
		_, _, exitCode := runStablefsWithInput(t, "from stdin", "put", "-q", "-", "in.txt")
		assert.Equal(t, exitCode, 0)

		stdout, _, _ := runStablefs(t, "cat", "in.txt")
		assert.Equal(t, stdout, "from stdin")
	},

	"a missing local file causes an error": func(t *testing.T) {
		_, stderr, exitCode := runStablefs(t, "put", "/does/not/exist", "f")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: stablefs put: ")
	},

	"passing a single argument causes an error": func(t *testing.T) {
		_, _, exitCode := runStablefs(t, "put", "f")
		assert.Equal(t, exitCode, 2)
	},
}
