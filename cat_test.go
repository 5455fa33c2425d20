package main

import (
	"strings"
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
)

var catTests = tests{
	"files are printed in the order of the arguments": func(t *testing.T) {
		runStablefs(t, "put", "-q", writeFile(t, "one\n"), "1.txt")
		runStablefs(t, "put", "-q", writeFile(t, "two\n"), "2.txt")

		stdout, stderr, exitCode := runStablefs(t, "cat", "2.txt", "/1.txt")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "two\none\n")
		assert.Equal(t, stderr, "")
	},

	"lines are prefixed with the file name": func(t *testing.T) {
		runStablefs(t, "put", "-q", writeFile(t, "a\nb\n"), "f")

		stdout, _, exitCode := runStablefs(t, "cat", "-H", "f")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "f: a\nf: b\n")
	},

	"the content is quoted": func(t *testing.T) {
		runStablefs(t, "put", "-q", writeFile(t, "a\nb\n"), "f")

		stdout, _, exitCode := runStablefs(t, "cat", "--quote", "f")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "    | a\n    | b\n")
	},

	"large files are printed entirely": func(t *testing.T) {
		content := strings.Repeat("0123456789abcdef", 10000)
		runStablefs(t, "put", "-q", writeFile(t, content), "large")

		stdout, _, exitCode := runStablefs(t, "cat", "large")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, len(stdout), len(content))
		assert.True(t, stdout == content)
	},

	"a missing file causes an error": func(t *testing.T) {
		_, stderr, exitCode := runStablefs(t, "cat", "missing")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: stablefs cat: ")
	},

	"a directory causes an error": func(t *testing.T) {
		runStablefs(t, "put", "-q", writeFile(t, "x"), "dir/f")

		_, stderr, exitCode := runStablefs(t, "cat", "dir")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: stablefs cat: ")
	},

	"calling cat without arguments causes an error": func(t *testing.T) {
		_, _, exitCode := runStablefs(t, "cat")
		assert.Equal(t, exitCode, 2)
	},
}
