package app

import "fmt"

// Config holds all inputs of one export invocation, translated from CLI
// flags and environment defaults.
type Config struct {
	ConfigPath string

	Source string
	Grid   string
	Dest   string
	Format string
	Levels string

	Coverage string
	SRS      string
	Where    string

	FetchMissingTiles bool
	Force             bool
	DryRun            bool
	Concurrency       int

	LogFormat string
	LogLevel  string
}

// requiredOption pairs a Config field that must be set with its flag name.
type requiredOption struct {
	value string
	flag  string
}

// NewConfig validates a Config. The error names the first missing required
// option the way it is spelled on the command line.
func NewConfig(cfg Config) (*Config, error) {
	required := []requiredOption{
		{cfg.ConfigPath, "--config"},
		{cfg.Grid, "--grid"},
		{cfg.Source, "--source"},
		{cfg.Dest, "--dest"},
		{cfg.Levels, "--levels"},
	}
	for _, opt := range required {
		if opt.value == "" {
			return nil, fmt.Errorf("missing required option %s", opt.flag)
		}
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &cfg, nil
}
