// Package conf loads the exporter's service configuration: the named grids,
// sources and caches an export request resolves against.
//
// The configuration file is HCL:
//
//	grid "webmercator" {
//	  srs        = "EPSG:3857"
//	  num_levels = 19
//	}
//
//	source "osm" {
//	  type                = "tile"
//	  supports_meta_tiles = false
//	}
//
//	cache "osm_cache" {
//	  grids   = ["webmercator"]
//	  sources = ["osm"]
//	}
//
// A loaded Config is treated as immutable. Request-scoped additions (an
// inline grid, seed-only marking) go through WithGrid and WithSeedOnlySources,
// which return working copies and never touch the parent registries.
package conf

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/tileexport/tileexportgo/internal/grid"
)

// Source declares an upstream tile source. Only the attributes the export
// pipeline inspects are modeled; SupportsMetaTiles is a tri-state because the
// compatibility check distinguishes "declared false" from "absent".
type Source struct {
	Name              string
	Type              string
	SupportsMetaTiles *bool
	SeedOnly          bool
}

// Cache binds grids and sources under a name.
type Cache struct {
	Name    string
	Grids   []string
	Sources []string
}

// Config is the loaded configuration: name-keyed registries of grids,
// sources and caches.
type Config struct {
	Path    string
	Grids   map[string]grid.Options
	Sources map[string]*Source
	Caches  map[string]*Cache
}

// file is the gohcl decoding target for a configuration file.
type file struct {
	Grids   []*gridBlock   `hcl:"grid,block"`
	Sources []*sourceBlock `hcl:"source,block"`
	Caches  []*cacheBlock  `hcl:"cache,block"`
}

type gridBlock struct {
	Name      string    `hcl:"name,label"`
	SRS       string    `hcl:"srs,optional"`
	BBox      []float64 `hcl:"bbox,optional"`
	BBoxSRS   string    `hcl:"bbox_srs,optional"`
	Res       []float64 `hcl:"res,optional"`
	TileSize  []int     `hcl:"tile_size,optional"`
	Origin    string    `hcl:"origin,optional"`
	NumLevels int       `hcl:"num_levels,optional"`
	MinRes    float64   `hcl:"min_res,optional"`
	MaxRes    float64   `hcl:"max_res,optional"`
}

type sourceBlock struct {
	Name              string `hcl:"name,label"`
	Type              string `hcl:"type,optional"`
	SupportsMetaTiles *bool  `hcl:"supports_meta_tiles,optional"`
	SeedOnly          bool   `hcl:"seed_only,optional"`
}

type cacheBlock struct {
	Name    string   `hcl:"name,label"`
	Grids   []string `hcl:"grids,optional"`
	Sources []string `hcl:"sources"`
}

// Load reads and decodes a configuration file.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("configuration %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	parsed, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("configuration %s: %s", path, diags.Error())
	}

	var f file
	if diags := gohcl.DecodeBody(parsed.Body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("configuration %s: %s", path, diags.Error())
	}

	cfg := &Config{
		Path:    path,
		Grids:   map[string]grid.Options{},
		Sources: map[string]*Source{},
		Caches:  map[string]*Cache{},
	}

	for _, g := range f.Grids {
		if _, exists := cfg.Grids[g.Name]; exists {
			return nil, fmt.Errorf("configuration %s: duplicate grid %q", path, g.Name)
		}
		cfg.Grids[g.Name] = grid.Options{
			Name:      g.Name,
			SRS:       g.SRS,
			BBox:      g.BBox,
			BBoxSRS:   g.BBoxSRS,
			Res:       g.Res,
			TileSize:  g.TileSize,
			Origin:    g.Origin,
			NumLevels: g.NumLevels,
			MinRes:    g.MinRes,
			MaxRes:    g.MaxRes,
		}
	}
	for _, s := range f.Sources {
		if _, exists := cfg.Sources[s.Name]; exists {
			return nil, fmt.Errorf("configuration %s: duplicate source %q", path, s.Name)
		}
		cfg.Sources[s.Name] = &Source{
			Name:              s.Name,
			Type:              s.Type,
			SupportsMetaTiles: s.SupportsMetaTiles,
			SeedOnly:          s.SeedOnly,
		}
	}
	for _, c := range f.Caches {
		if _, exists := cfg.Caches[c.Name]; exists {
			return nil, fmt.Errorf("configuration %s: duplicate cache %q", path, c.Name)
		}
		cfg.Caches[c.Name] = &Cache{Name: c.Name, Grids: c.Grids, Sources: c.Sources}
	}

	return cfg, nil
}

// SyntheticGridName returns a grid name for a single invocation's inline
// definition. The uuid suffix keeps it from ever shadowing a configured grid.
func SyntheticGridName() string {
	return "export-grid-" + uuid.NewString()[:8]
}

// WithGrid returns a working copy of the configuration with one grid added.
// The receiver is not modified.
func (c *Config) WithGrid(name string, opts grid.Options) *Config {
	working := c.shallowCopy()
	working.Grids[name] = opts
	return working
}

// WithSeedOnlySources returns a working copy in which every source is marked
// seed-only, so an export never fetches missing tiles upstream. The receiver
// is not modified.
func (c *Config) WithSeedOnlySources() *Config {
	working := c.shallowCopy()
	for name, src := range working.Sources {
		seedOnly := *src
		seedOnly.SeedOnly = true
		working.Sources[name] = &seedOnly
	}
	return working
}

func (c *Config) shallowCopy() *Config {
	working := &Config{
		Path:    c.Path,
		Grids:   make(map[string]grid.Options, len(c.Grids)+1),
		Sources: make(map[string]*Source, len(c.Sources)),
		Caches:  make(map[string]*Cache, len(c.Caches)),
	}
	for name, g := range c.Grids {
		working.Grids[name] = g
	}
	for name, s := range c.Sources {
		working.Sources[name] = s
	}
	for name, cache := range c.Caches {
		working.Caches[name] = cache
	}
	return working
}
