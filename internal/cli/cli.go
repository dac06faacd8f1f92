package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/tileexport/tileexportgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// envDefaults are ambient settings read from the environment; flags override
// them.
type envDefaults struct {
	LogLevel  string `env:"TILEEXPORT_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"TILEEXPORT_LOG_FORMAT" envDefault:"text"`
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// A missing required option exits with code 1, every other input problem
// with code 2.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	var defaults envDefaults
	if err := env.Parse(&defaults); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	flagSet := flag.NewFlagSet("tileexport", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
tileexport - export tiles from a cache into a new grid, format or location.

Usage:
  tileexport [options] CONFIG_FILE

Arguments:
  CONFIG_FILE
    Path to the service configuration (grids, sources, caches).

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the service configuration.")
	fFlag := flagSet.String("f", "", "Path to the service configuration (shorthand).")
	sourceFlag := flagSet.String("source", "", "Source to export (source or cache name).")
	gridFlag := flagSet.String("grid", "", "Grid for the export: the name of an existing grid or an inline grid definition.")
	destFlag := flagSet.String("dest", "", "Destination of the export (directory or filename).")
	typeFlag := flagSet.String("type", "", "Export format: mbtile, tc, mapproxy or tms. Defaults to tms.")
	levelsFlag := flagSet.String("levels", "", "Levels to export, e.g. 1,2,3 or 1..10.")
	fetchFlag := flagSet.Bool("fetch-missing-tiles", false, "Fetch missing tiles from the sources.")
	forceFlag := flagSet.Bool("force", false, "Overwrite/append to an existing destination.")
	dryRunFlag := flagSet.Bool("n", false, "Do not export, just print what would be done.")
	dryRunLongFlag := flagSet.Bool("dry-run", false, "Do not export, just print what would be done.")
	concurrencyFlag := flagSet.Int("c", 1, "Number of parallel export workers.")
	concurrencyLongFlag := flagSet.Int("concurrency", 0, "Number of parallel export workers.")
	coverageFlag := flagSet.String("coverage", "", "Coverage for the export: a BBOX string or a WKT datasource.")
	srsFlag := flagSet.String("srs", "", "SRS of the coverage.")
	whereFlag := flagSet.String("where", "", "Attribute filter for OGR coverages.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	configPath := *configFlag
	if configPath == "" {
		configPath = *fFlag
	}
	if configPath == "" && flagSet.NArg() > 0 {
		configPath = flagSet.Arg(0)
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	concurrency := *concurrencyFlag
	if *concurrencyLongFlag > 0 {
		concurrency = *concurrencyLongFlag
	}

	config, err := app.NewConfig(app.Config{
		ConfigPath:        configPath,
		Source:            *sourceFlag,
		Grid:              *gridFlag,
		Dest:              *destFlag,
		Format:            *typeFlag,
		Levels:            *levelsFlag,
		Coverage:          *coverageFlag,
		SRS:               *srsFlag,
		Where:             *whereFlag,
		FetchMissingTiles: *fetchFlag,
		Force:             *forceFlag,
		DryRun:            *dryRunFlag || *dryRunLongFlag,
		Concurrency:       concurrency,
		LogFormat:         logFormat,
		LogLevel:          logLevel,
	})
	if err != nil {
		// A missing required option gets the usage text and its own exit code.
		fmt.Fprintf(output, "ERROR: %v\n", err)
		flagSet.Usage()
		return nil, false, &ExitError{Code: 1, Message: err.Error()}
	}

	return config, false, nil
}
