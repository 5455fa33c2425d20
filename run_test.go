package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
)

// helloWasm writes "hello\n" to stdout and exits with code 7.
var helloWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (i32 i32 i32 i32) -> i32, (i32) -> (), () -> ()
	0x01, 0x10, 0x03,
	0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x00,
	0x60, 0x00, 0x00,
	// import section: fd_write, proc_exit
	0x02, 0x46, 0x02,
	0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
	0x08, 'f', 'd', '_', 'w', 'r', 'i', 't', 'e', 0x00, 0x00,
	0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
	0x09, 'p', 'r', 'o', 'c', '_', 'e', 'x', 'i', 't', 0x00, 0x01,
	// function section
	0x03, 0x02, 0x01, 0x02,
	// memory section: 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export section: memory, _start
	0x07, 0x13, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x02,
	// code section
	0x0a, 0x13, 0x01, 0x11, 0x00,
	0x41, 0x01, // i32.const 1 (stdout)
	0x41, 0x00, // i32.const 0 (iovs)
	0x41, 0x01, // i32.const 1 (iovs_len)
	0x41, 0x08, // i32.const 8 (nwritten)
	0x10, 0x00, // call fd_write
	0x1a,       // drop
	0x41, 0x07, // i32.const 7
	0x10, 0x01, // call proc_exit
	0x0b,
	// data section: iovec {16, 6} at 0, "hello\n" at 16
	0x0b, 0x1c, 0x01, 0x00, 0x41, 0x00, 0x0b, 0x16,
	0x10, 0x00, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	'h', 'e', 'l', 'l', 'o', '\n',
}

func writeModule(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hello.wasm")
	if err := os.WriteFile(path, helloWasm, 0666); err != nil {
		t.Fatal(err)
	}
	return path
}

var runTests = tests{
	"the output and exit code of the module are forwarded": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "run", writeModule(t))
		assert.Equal(t, exitCode, 7)
		assert.Equal(t, stdout, "hello\n")
		assert.Equal(t, stderr, "")
	},

	"arguments after -- are passed to the module": func(t *testing.T) {
		stdout, _, exitCode := runStablefs(t, "run", "-e", "A=1", "--", writeModule(t), "-v", "--flag")
		assert.Equal(t, exitCode, 7)
		assert.Equal(t, stdout, "hello\n")
	},

	"the file system is formatted by the first run": func(t *testing.T) {
		_, _, exitCode := runStablefs(t, "run", writeModule(t))
		assert.Equal(t, exitCode, 7)

		stdout, _, exitCode := runStablefs(t, "stat")
		assert.Equal(t, exitCode, 0)
		assert.True(t, strings.Contains(stdout, "\nNodes:      1\n"))
	},

	"files put before a run are kept": func(t *testing.T) {
		runStablefs(t, "put", "-q", writeFile(t, "state"), "state.txt")
		_, _, exitCode := runStablefs(t, "run", writeModule(t))
		assert.Equal(t, exitCode, 7)

		stdout, _, exitCode := runStablefs(t, "cat", "state.txt")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "state")
	},

	"an invalid environment variable causes an error": func(t *testing.T) {
		_, stderr, exitCode := runStablefs(t, "run", "-e", "NOEQUALSIGN", writeModule(t))
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: stablefs run: ")
	},

	"a missing module causes an error": func(t *testing.T) {
		_, stderr, exitCode := runStablefs(t, "run", filepath.Join(t.TempDir(), "missing.wasm"))
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: stablefs run: ")
	},

	"calling run without a module causes an error": func(t *testing.T) {
		_, _, exitCode := runStablefs(t, "run")
		assert.Equal(t, exitCode, 2)
	},
}
