// Package export resolves a user export request into a validated, immutable
// export job and dispatches it to the seeding engine.
//
// Resolution runs strictly forward: grid spec, levels, backend, destination
// check, cache build, level validation, coverage, compatibility, job. Every
// failure is fatal to the invocation; a job is either fully resolved or
// nothing is dispatched.
package export

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-spatial/geom"

	"github.com/tileexport/tileexportgo/internal/backend"
	"github.com/tileexport/tileexportgo/internal/cache"
	"github.com/tileexport/tileexportgo/internal/compat"
	"github.com/tileexport/tileexportgo/internal/conf"
	"github.com/tileexport/tileexportgo/internal/coverage"
	"github.com/tileexport/tileexportgo/internal/ctxlog"
	"github.com/tileexport/tileexportgo/internal/grid"
	"github.com/tileexport/tileexportgo/internal/gridspec"
	"github.com/tileexport/tileexportgo/internal/levels"
	"github.com/tileexport/tileexportgo/internal/seed"
	"github.com/tileexport/tileexportgo/internal/srs"
)

// cacheName is the name of the per-invocation cache fragment.
const cacheName = "export"

// Request carries the raw user inputs of one export invocation.
type Request struct {
	Source   string
	GridSpec string
	Dest     string
	Format   string
	Levels   string

	// Coverage restriction; Coverage is a BBOX string or a datasource path.
	Coverage string
	SRS      string
	Where    string

	FetchMissingTiles bool
	Force             bool
	DryRun            bool
	Concurrency       int
}

// Job is the terminal artifact: a fully validated export. Built once per
// invocation, never mutated, consumed exactly once by the seeding engine.
type Job struct {
	CacheName   string
	Dest        string
	Grid        *grid.TileGrid
	GridName    string
	CustomGrid  bool
	Manager     *cache.Manager
	Levels      levels.LevelSet
	Coverage    *coverage.Coverage
	Restricted  bool
	Backend     backend.Config
	DryRun      bool
	Concurrency int
}

// LevelOutOfRangeError reports a requested level beyond the grid's depth.
type LevelOutOfRangeError struct {
	Level      int
	GridLevels int
}

func (e *LevelOutOfRangeError) Error() string {
	return fmt.Sprintf("level %d out of range: destination grid only has %d levels", e.Level, e.GridLevels)
}

// DestinationExistsError reports an existing destination without --force.
type DestinationExistsError struct {
	Dest string
}

func (e *DestinationExistsError) Error() string {
	return fmt.Sprintf("destination %q exists, remove it first or use --force", e.Dest)
}

// Assembler resolves requests against a loaded configuration.
type Assembler struct {
	Config   *conf.Config
	Resolver *coverage.Resolver
}

// Assemble resolves and validates a request into a Job.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Job, error) {
	logger := ctxlog.FromContext(ctx)

	spec, err := gridspec.Parse(req.GridSpec)
	if err != nil {
		return nil, err
	}

	working := a.Config
	gridName := spec.Name()
	customGrid := spec.Kind() == gridspec.KindInline
	if customGrid {
		gridName = conf.SyntheticGridName()
		opts, err := spec.GridOptions(gridName)
		if err != nil {
			return nil, err
		}
		working = working.WithGrid(gridName, opts)
		logger.Debug("registered inline grid", "name", gridName)
	}

	levelSet, err := levels.Parse(req.Levels)
	if err != nil {
		return nil, err
	}

	backendCfg, err := backend.Select(req.Format, req.Dest)
	if err != nil {
		return nil, err
	}

	// Before anything may write: an existing destination without --force
	// aborts the whole invocation.
	if _, err := os.Stat(req.Dest); err == nil && !req.Force {
		return nil, &DestinationExistsError{Dest: req.Dest}
	}

	if !req.FetchMissingTiles {
		working = working.WithSeedOnlySources()
	}

	tileGrid, _, mgr, err := cache.Build(working, cache.Fragment{
		Name:    cacheName,
		Grid:    gridName,
		Sources: []string{req.Source},
		Backend: backendCfg,
	})
	if err != nil {
		return nil, err
	}

	if levelSet.Max() >= tileGrid.Levels() {
		return nil, &LevelOutOfRangeError{Level: levelSet.Max(), GridLevels: tileGrid.Levels()}
	}

	covSpec, err := coverageSpec(req, tileGrid)
	if err != nil {
		return nil, err
	}
	cov, err := a.Resolver.Resolve(ctx, covSpec, tileGrid)
	if err != nil {
		return nil, err
	}

	if !compat.SupportsTiledAccess(mgr.Sources()) {
		logger.Warn("grids are incompatible: needs to scale/reproject tiles for export")
	}

	return &Job{
		CacheName:   cacheName,
		Dest:        req.Dest,
		Grid:        tileGrid,
		GridName:    gridName,
		CustomGrid:  customGrid,
		Manager:     mgr,
		Levels:      levelSet,
		Coverage:    cov,
		Restricted:  covSpec.Restricted(),
		Backend:     backendCfg,
		DryRun:      req.DryRun,
		Concurrency: req.Concurrency,
	}, nil
}

// coverageSpec derives the coverage choice from the request: a parseable
// BBOX string is an explicit bounding box, anything else names a datasource,
// and no value at all means the full grid extent.
func coverageSpec(req Request, g *grid.TileGrid) (coverage.Spec, error) {
	if req.Coverage == "" {
		return coverage.None(), nil
	}

	reference := g.SRS
	declared := false
	if req.SRS != "" {
		var err error
		reference, err = srs.Parse(req.SRS)
		if err != nil {
			return coverage.Spec{}, err
		}
		declared = true
	}

	if bbox, err := gridspec.ParseBBoxString(req.Coverage); err == nil {
		return coverage.BBox(geom.Extent{bbox[0], bbox[1], bbox[2], bbox[3]}, reference), nil
	}
	return coverage.Datasource(req.Coverage, req.Where, reference, declared), nil
}

// Summary renders the one-paragraph human-readable description printed
// before dispatch.
func (j *Job) Summary() string {
	gridDesc := "custom grid"
	if !j.CustomGrid {
		gridDesc = fmt.Sprintf("grid '%s'", j.GridName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Exporting cache '%s' to '%s' with %s in %s\n",
		j.CacheName, j.Dest, gridDesc, j.Grid.SRS.Code())
	if j.Restricted {
		fmt.Fprintf(&b, "  Limited to: %s (EPSG:4326)\n", srs.FormatBBox(j.Coverage.ExtentIn4326()))
	}
	fmt.Fprintf(&b, "  Levels: %v", []int(j.Levels))
	return b.String()
}

// Dispatch hands the job to the seeding engine.
func (j *Job) Dispatch(ctx context.Context, engine seed.Engine) error {
	task := &seed.Task{
		Name:     j.CacheName,
		Grid:     j.Grid,
		Levels:   j.Levels,
		Coverage: j.Coverage,
		Copier:   j.Manager,
	}
	return engine.Seed(ctx, task, seed.Options{
		DryRun:      j.DryRun,
		Concurrency: j.Concurrency,
	})
}
