// Package seed is the boundary to the tile-seeding engine. The export
// pipeline fully resolves and validates a Task before anything here runs;
// the engine owns traversal order, concurrency and in-flight teardown.
package seed

import (
	"context"

	"github.com/tileexport/tileexportgo/internal/coverage"
	"github.com/tileexport/tileexportgo/internal/grid"
	"github.com/tileexport/tileexportgo/internal/levels"
)

// TileCopier copies one tile from the cache into the destination backend.
type TileCopier interface {
	CopyTile(ctx context.Context, level, x, y int) error
}

// Task is the fully resolved unit of work handed to an engine. It is built
// once by the export assembler and only read here.
type Task struct {
	Name   string
	Grid   *grid.TileGrid
	Levels levels.LevelSet
	// Coverage comes from the resolver, so its extent is already in the
	// grid's reference system.
	Coverage *coverage.Coverage
	Copier   TileCopier
}

// Options is opaque pass-through configuration from the command line.
type Options struct {
	DryRun      bool
	Concurrency int
}

// Engine performs the tile traversal for a task.
type Engine interface {
	Seed(ctx context.Context, task *Task, opts Options) error
}
