package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileexport/tileexportgo/internal/coverage"
	"github.com/tileexport/tileexportgo/internal/grid"
	"github.com/tileexport/tileexportgo/internal/levels"
	"github.com/tileexport/tileexportgo/internal/srs"
)

type countingCopier struct {
	calls atomic.Int64
	fail  error
}

func (c *countingCopier) CopyTile(ctx context.Context, level, x, y int) error {
	c.calls.Add(1)
	return c.fail
}

func testTask(t *testing.T, copier TileCopier, spec string) *Task {
	t.Helper()
	g, err := grid.New(grid.Options{Name: "geo", NumLevels: 4})
	require.NoError(t, err)
	ls, err := levels.Parse(spec)
	require.NoError(t, err)
	return &Task{
		Name:     "export",
		Grid:     g,
		Levels:   ls,
		Coverage: &coverage.Coverage{Extent: g.Extent(), SRS: g.SRS},
		Copier:   copier,
	}
}

func TestSeedCopiesEveryTile(t *testing.T) {
	copier := &countingCopier{}
	engine := NewWalkEngine(NewProgressLog(slog.Default()))

	// Levels 0..2 of the geographic grid: 1 + 2 + 8 tiles.
	err := engine.Seed(context.Background(), testTask(t, copier, "0..2"), Options{Concurrency: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(11), copier.calls.Load())
	assert.Equal(t, int64(11), engine.Progress.Tiles())
}

type recordingCopier struct {
	mu    sync.Mutex
	tiles [][3]int
}

func (c *recordingCopier) CopyTile(ctx context.Context, level, x, y int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tiles = append(c.tiles, [3]int{level, x, y})
	return nil
}

func TestSeedGeographicCoverageOnMercatorGrid(t *testing.T) {
	g, err := grid.New(grid.Options{Name: "merc", SRS: "EPSG:3857", NumLevels: 8})
	require.NoError(t, err)

	resolver := &coverage.Resolver{}
	cov, err := resolver.Resolve(context.Background(), coverage.BBox(geom.Extent{5, 50, 10, 60}, srs.WGS84), g)
	require.NoError(t, err)

	copier := &recordingCopier{}
	engine := NewWalkEngine(NewProgressLog(slog.Default()))
	task := &Task{Name: "export", Grid: g, Levels: levels.LevelSet{5}, Coverage: cov, Copier: copier}
	require.NoError(t, engine.Seed(context.Background(), task, Options{Concurrency: 2}))

	// At level 5 the box spans tile column 16, rows 21..22 of the
	// mercator grid. Degree coordinates read as meters would collapse
	// everything onto the center tile (16,16).
	require.Len(t, copier.tiles, 2)
	for _, tile := range copier.tiles {
		assert.Equal(t, 16, tile[1])
		assert.GreaterOrEqual(t, tile[2], 21)
		assert.LessOrEqual(t, tile[2], 22)
	}
}

func TestSeedDryRun(t *testing.T) {
	copier := &countingCopier{}
	engine := NewWalkEngine(NewProgressLog(slog.Default()))

	err := engine.Seed(context.Background(), testTask(t, copier, "0..2"), Options{DryRun: true})
	require.NoError(t, err)
	assert.Zero(t, copier.calls.Load(), "dry run must not copy tiles")
}

func TestSeedStopsOnError(t *testing.T) {
	copier := &countingCopier{fail: fmt.Errorf("backend full")}
	engine := NewWalkEngine(NewProgressLog(slog.Default()))

	err := engine.Seed(context.Background(), testTask(t, copier, "2"), Options{Concurrency: 2})
	require.Error(t, err)
	assert.ErrorContains(t, err, "backend full")
	assert.Less(t, copier.calls.Load(), int64(8), "the first failure should cancel the rest")
}

func TestSeedCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	copier := &countingCopier{}
	engine := NewWalkEngine(NewProgressLog(slog.Default()))

	err := engine.Seed(ctx, testTask(t, copier, "0..3"), Options{Concurrency: 1})
	assert.True(t, errors.Is(err, context.Canceled))
}
