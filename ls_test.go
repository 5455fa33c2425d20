package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
)

var lsTests = tests{
	"listing an empty file system prints only the header": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "ls")
		assert.Equal(t, exitCode, 0)
		assert.EqualAll(t, strings.Fields(stdout), []string{"NAME", "TYPE", "SIZE", "MODIFIED"})
		assert.Equal(t, stderr, "")
	},

	"listing an empty file system in quiet mode prints nothing": func(t *testing.T) {
		stdout, _, exitCode := runStablefs(t, "ls", "-q")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, "")
	},

	"the table is printed once": func(t *testing.T) {
		runStablefs(t, "put", "-q", writeFile(t, "12345"), "f.txt")

		stdout, _, exitCode := runStablefs(t, "ls")
		assert.Equal(t, exitCode, 0)
		rows := lines(stdout)
		assert.Equal(t, len(rows), 2)
		assert.HasPrefix(t, rows[0], "NAME")
		assert.HasPrefix(t, rows[1], "f.txt")
		assert.Equal(t, strings.Count(stdout, "NAME"), 1)
	},

	"entries are listed with their type and size": func(t *testing.T) {
		runStablefs(t, "put", "-q", writeFile(t, "12345"), "data/f.txt")
		runStablefs(t, "put", "-q", writeFile(t, "1234567890"), "g.txt")

		stdout, _, exitCode := runStablefs(t, "ls", "-o", "json")
		assert.Equal(t, exitCode, 0)

		entries := decodeEntries(t, stdout)
		assert.Equal(t, len(entries), 2)
		assert.Equal(t, entries[0].Name, "data")
		assert.Equal(t, entries[0].Type, "directory")
		assert.Equal(t, entries[1].Name, "g.txt")
		assert.Equal(t, entries[1].Type, "file")
		assert.Equal(t, entries[1].Size, uint64(10))
	},

	"listing a file shows the file itself": func(t *testing.T) {
		runStablefs(t, "put", "-q", writeFile(t, "12345"), "data/f.txt")

		stdout, _, exitCode := runStablefs(t, "ls", "-o", "json", "/data/f.txt")
		assert.Equal(t, exitCode, 0)

		entries := decodeEntries(t, stdout)
		assert.Equal(t, len(entries), 1)
		assert.Equal(t, entries[0].Name, "f.txt")
		assert.Equal(t, entries[0].Size, uint64(5))
	},

	"entries of multiple directories are prefixed by their directory": func(t *testing.T) {
		runStablefs(t, "put", "-q", writeFile(t, "a"), "x/a")
		runStablefs(t, "put", "-q", writeFile(t, "b"), "y/b")

		stdout, _, exitCode := runStablefs(t, "ls", "-q", "x", "y")
		assert.Equal(t, exitCode, 0)
		assert.EqualAll(t, lines(stdout), []string{"x/a", "y/b"})
	},

	"directories with many entries are listed entirely": func(t *testing.T) {
		source := writeFile(t, "")
		names := make([]string, 50)
		for i := range names {
			names[i] = "file" + string(rune('A'+i/26)) + string(rune('a'+i%26))
			runStablefs(t, "put", "-q", source, "many/"+names[i])
		}

		stdout, _, exitCode := runStablefs(t, "ls", "-q", "many")
		assert.Equal(t, exitCode, 0)
		assert.EqualAll(t, lines(stdout), names)
	},

	"listing a missing path causes an error": func(t *testing.T) {
		_, stderr, exitCode := runStablefs(t, "ls", "missing")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: stablefs ls: ")
	},

	"passing an unsupported output format causes an error": func(t *testing.T) {
		_, _, exitCode := runStablefs(t, "ls", "-o", "xml")
		assert.Equal(t, exitCode, 2)
	},
}

type listedEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size uint64 `json:"size"`
}

func decodeEntries(t *testing.T, s string) []listedEntry {
	t.Helper()
	var entries []listedEntry
	d := json.NewDecoder(strings.NewReader(s))
	for d.More() {
		var entry listedEntry
		assert.OK(t, d.Decode(&entry))
		entries = append(entries, entry)
	}
	return entries
}

func lines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
