package main

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
)

var configTests = tests{
	"the configuration file is printed as is": func(t *testing.T) {
		b, err := os.ReadFile(os.Getenv("STABLEFS_TEST_CONFIG"))
		assert.OK(t, err)

		stdout, stderr, exitCode := runStablefs(t, "config")
		assert.Equal(t, exitCode, 0)
		assert.Equal(t, stdout, string(b))
		assert.Equal(t, stderr, "")
	},

	"the configuration is completed with default values": func(t *testing.T) {
		stdout, _, exitCode := runStablefs(t, "config", "-o", "json")
		assert.Equal(t, exitCode, 0)

		var config struct {
			Store struct {
				Location  string `json:"location"`
				MemoryIDs string `json:"memory_ids"`
			} `json:"store"`
			Log struct {
				Level string `json:"level"`
			} `json:"log"`
		}
		assert.OK(t, json.Unmarshal([]byte(stdout), &config))
		assert.True(t, strings.HasSuffix(config.Store.Location, "store.mem"))
		assert.Equal(t, config.Store.MemoryIDs, "1-4")
		assert.Equal(t, config.Log.Level, "error")
	},

	"the configuration is printed as yaml": func(t *testing.T) {
		stdout, _, exitCode := runStablefs(t, "config", "-o", "yaml")
		assert.Equal(t, exitCode, 0)
		assert.HasPrefix(t, stdout, "store:\n")
	},

	"an invalid configuration causes an error": func(t *testing.T) {
		assert.OK(t, os.WriteFile(os.Getenv("STABLEFS_TEST_CONFIG"), []byte("store:\n  size: 1\n"), 0666))

		_, stderr, exitCode := runStablefs(t, "config", "-o", "json")
		assert.Equal(t, exitCode, 1)
		assert.HasPrefix(t, stderr, "ERR: stablefs config: ")
	},

	"passing arguments causes an error": func(t *testing.T) {
		_, _, exitCode := runStablefs(t, "config", "now")
		assert.Equal(t, exitCode, 2)
	},
}
