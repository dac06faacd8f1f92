package seed

import (
	"log/slog"
	"sync/atomic"

	"github.com/tileexport/tileexportgo/internal/grid"
	"github.com/tileexport/tileexportgo/internal/srs"
)

// ProgressLog is the progress-reporting sink the engine feeds while it walks
// a task. Safe for concurrent use.
type ProgressLog struct {
	logger *slog.Logger
	tiles  atomic.Int64
}

// NewProgressLog builds a sink reporting through the given logger.
func NewProgressLog(logger *slog.Logger) *ProgressLog {
	return &ProgressLog{logger: logger}
}

// LevelStart reports that a level's tile range is about to be processed.
func (p *ProgressLog) LevelStart(tr grid.TileRange, dryRun bool) {
	msg := "seeding level"
	if dryRun {
		msg = "would seed level"
	}
	p.logger.Info(msg, "level", tr.Level, "tiles", tr.Count())
}

// TileDone counts one finished tile.
func (p *ProgressLog) TileDone() {
	p.tiles.Add(1)
}

// Finish reports the final tile count for a task.
func (p *ProgressLog) Finish(task *Task) {
	p.logger.Info("export finished",
		"task", task.Name,
		"tiles", p.tiles.Load(),
		"bbox", srs.FormatBBox(task.Coverage.ExtentIn4326()))
}

// Tiles returns the number of tiles processed so far.
func (p *ProgressLog) Tiles() int64 {
	return p.tiles.Load()
}
