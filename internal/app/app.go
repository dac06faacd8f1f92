// Package app wires an export invocation together: it owns the logger, loads
// the configuration, assembles the export job and dispatches it to the
// seeding engine.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tileexport/tileexportgo/internal/conf"
	"github.com/tileexport/tileexportgo/internal/coverage"
	"github.com/tileexport/tileexportgo/internal/ctxlog"
	"github.com/tileexport/tileexportgo/internal/export"
	"github.com/tileexport/tileexportgo/internal/seed"
)

// App encapsulates the application's dependencies and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	engine seed.Engine
	loader coverage.GeometryLoader
}

// New is the constructor for the application. A nil engine selects the
// built-in walk engine; a nil loader selects the WKT file loader.
func New(outW io.Writer, cfg *Config, engine seed.Engine, loader coverage.GeometryLoader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	if loader == nil {
		loader = coverage.FileLoader{}
	}
	return &App{
		outW:   outW,
		logger: logger,
		engine: engine,
		loader: loader,
	}
}

// Run executes one export invocation end to end.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("loading configuration", "path", cfg.ConfigPath)

	loaded, err := conf.Load(cfg.ConfigPath)
	if err != nil {
		return err
	}

	assembler := &export.Assembler{
		Config:   loaded,
		Resolver: &coverage.Resolver{Loader: a.loader},
	}

	job, err := assembler.Assemble(ctx, export.Request{
		Source:            cfg.Source,
		GridSpec:          cfg.Grid,
		Dest:              cfg.Dest,
		Format:            cfg.Format,
		Levels:            cfg.Levels,
		Coverage:          cfg.Coverage,
		SRS:               cfg.SRS,
		Where:             cfg.Where,
		FetchMissingTiles: cfg.FetchMissingTiles,
		Force:             cfg.Force,
		DryRun:            cfg.DryRun,
		Concurrency:       cfg.Concurrency,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(a.outW, job.Summary())

	engine := a.engine
	if engine == nil {
		engine = seed.NewWalkEngine(seed.NewProgressLog(a.logger))
	}
	a.logger.Debug("dispatching export job",
		"grid", job.GridName, "levels", job.Levels.String(), "dry_run", job.DryRun)
	return job.Dispatch(ctx, engine)
}
