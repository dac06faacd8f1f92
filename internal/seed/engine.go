package seed

import (
	"context"
	"fmt"
	"sync"

	"github.com/tileexport/tileexportgo/internal/ctxlog"
	"github.com/tileexport/tileexportgo/internal/grid"
)

// WalkEngine is the in-process Engine. Per level it computes the tile range
// the coverage touches and fans the tiles out to a bounded worker pool; the
// per-tile work stays behind the task's TileCopier.
type WalkEngine struct {
	Progress *ProgressLog
}

// NewWalkEngine builds an engine reporting to the given progress sink.
func NewWalkEngine(progress *ProgressLog) *WalkEngine {
	return &WalkEngine{Progress: progress}
}

// Seed walks the task level by level. In dry-run mode it only reports what
// would be exported. The first tile error cancels the remaining work; a
// canceled context is returned as context.Canceled so callers can tell
// interruption from failure.
func (e *WalkEngine) Seed(ctx context.Context, task *Task, opts Options) error {
	logger := ctxlog.FromContext(ctx)

	for _, level := range task.Levels {
		tr, err := task.Grid.TileRange(task.Coverage.Extent, level)
		if err != nil {
			return fmt.Errorf("seed task %q: %w", task.Name, err)
		}
		e.Progress.LevelStart(tr, opts.DryRun)
		if opts.DryRun {
			continue
		}
		if err := e.seedLevel(ctx, task, tr, opts.Concurrency); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("seed task %q level %d: %w", task.Name, level, err)
		}
		logger.Debug("level finished", "task", task.Name, "level", level)
	}

	e.Progress.Finish(task)
	return nil
}

func (e *WalkEngine) seedLevel(ctx context.Context, task *Task, tr grid.TileRange, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tiles := make(chan [2]int)
	errs := make(chan error, concurrency)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tile := range tiles {
				if err := task.Copier.CopyTile(ctx, tr.Level, tile[0], tile[1]); err != nil {
					select {
					case errs <- err:
					default:
					}
					cancel()
					return
				}
				e.Progress.TileDone()
			}
		}()
	}

feed:
	for y := tr.MinY; y <= tr.MaxY; y++ {
		for x := tr.MinX; x <= tr.MaxX; x++ {
			select {
			case tiles <- [2]int{x, y}:
			case <-ctx.Done():
				break feed
			}
		}
	}
	close(tiles)
	wg.Wait()

	select {
	case err := <-errs:
		return err
	default:
	}
	return ctx.Err()
}
