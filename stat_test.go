package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
)

var statTests = tests{
	"the state of the file system is shown without arguments": func(t *testing.T) {
		stdout, stderr, exitCode := runStablefs(t, "stat")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "ID:")
		assert.True(t, strings.Contains(stdout, "\nNodes:      1\n"))
		assert.Equal(t, stderr, "")
	},

	"the file system keeps its identity across invocations": func(t *testing.T) {
		stdout1, _, exitCode := runStablefs(t, "stat", "-o", "json")
		assert.Equal(t, exitCode, 0)
		stdout2, _, exitCode := runStablefs(t, "stat", "-o", "json")
		assert.Equal(t, exitCode, 0)

		var stats1, stats2 struct {
			ID    string `json:"id"`
			Nodes uint64 `json:"nodes"`
		}
		assert.OK(t, json.Unmarshal([]byte(stdout1), &stats1))
		assert.OK(t, json.Unmarshal([]byte(stdout2), &stats2))
		assert.NotEqual(t, stats1.ID, "")
		assert.Equal(t, stats1.ID, stats2.ID)
		assert.Equal(t, stats1.Nodes, uint64(1))
	},

	"the metadata of files is shown": func(t *testing.T) {
		runStablefs(t, "put", "-q", writeFile(t, "12345"), "notes.txt")

		stdout, _, exitCode := runStablefs(t, "stat", "-o", "json", "notes.txt")
		assert.Equal(t, exitCode, 0)

		var stat struct {
			Path  string `json:"path"`
			Type  string `json:"type"`
			Links uint64 `json:"links"`
			Size  uint64 `json:"size"`
		}
		assert.OK(t, json.Unmarshal([]byte(stdout), &stat))
		assert.Equal(t, stat.Path, "notes.txt")
		assert.Equal(t, stat.Type, "file")
		assert.Equal(t, stat.Links, uint64(1))
		assert.Equal(t, stat.Size, uint64(5))
	},

	"the metadata of files is shown as text": func(t *testing.T) {
		runStablefs(t, "put", "-q", writeFile(t, "12345"), "notes.txt")

		stdout, _, exitCode := runStablefs(t, "stat", "notes.txt", "/")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "  File: notes.txt\n  Type: file\n")
		assert.True(t, strings.Contains(stdout, "\n\n  File: /\n  Type: directory\n"))
	},

	"the metadata of a missing file causes an error": func(t *testing.T) {
		_, stderr, exitCode := runStablefs(t, "stat", "missing")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: stablefs stat: ")
	},
}
