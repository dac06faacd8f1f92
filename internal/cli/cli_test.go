package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validArgs() []string {
	return []string{
		"--config", "tileexport.hcl",
		"--grid", "webmercator",
		"--source", "osm",
		"--dest", "./out",
		"--levels", "0..4",
	}
}

func TestParse(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse(validArgs(), &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "tileexport.hcl", cfg.ConfigPath)
	assert.Equal(t, "webmercator", cfg.Grid)
	assert.Equal(t, "0..4", cfg.Levels)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestParsePositionalConfig(t *testing.T) {
	var out bytes.Buffer
	args := append([]string{
		"--grid", "webmercator",
		"--source", "osm",
		"--dest", "./out",
		"--levels", "1",
	}, "tileexport.hcl")

	cfg, _, err := Parse(args, &out)
	require.NoError(t, err)
	assert.Equal(t, "tileexport.hcl", cfg.ConfigPath)
}

func TestParseMissingRequired(t *testing.T) {
	var out bytes.Buffer
	args := []string{"--config", "tileexport.hcl", "--grid", "g", "--source", "s", "--dest", "d"}

	_, _, err := Parse(args, &out)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, exitErr.Message, "--levels")
	assert.Contains(t, out.String(), "Usage", "missing options print the usage text")
}

func TestParseFlagVariants(t *testing.T) {
	var out bytes.Buffer
	args := append(validArgs(),
		"--dry-run",
		"--concurrency", "8",
		"--type", "mbtile",
		"--coverage", "5,50,10,60",
	)

	cfg, _, err := Parse(args, &out)
	require.NoError(t, err)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, "mbtile", cfg.Format)
	assert.Equal(t, "5,50,10,60", cfg.Coverage)
}

func TestParseInvalidLogSettings(t *testing.T) {
	var out bytes.Buffer

	_, _, err := Parse(append(validArgs(), "--log-level", "verbose"), &out)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)

	_, _, err = Parse(append(validArgs(), "--log-format", "xml"), &out)
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParseEnvDefaults(t *testing.T) {
	t.Setenv("TILEEXPORT_LOG_LEVEL", "debug")
	t.Setenv("TILEEXPORT_LOG_FORMAT", "json")

	var out bytes.Buffer
	cfg, _, err := Parse(validArgs(), &out)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	t.Run("flags override", func(t *testing.T) {
		cfg, _, err := Parse(append(validArgs(), "--log-level", "warn"), &out)
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.LogLevel)
	})
}

func TestParseHelp(t *testing.T) {
	var out bytes.Buffer
	_, exit, err := Parse([]string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.True(t, strings.Contains(out.String(), "tileexport"))
}
