package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileexport/tileexportgo/internal/backend"
	"github.com/tileexport/tileexportgo/internal/conf"
)

func testConfig(t *testing.T) *conf.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tileexport.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
grid "regional" {
  srs  = "EPSG:4326"
  bbox = [5, 50, 10, 60]
  res  = [0.1, 0.05]
}

source "tiles" {
  supports_meta_tiles = false
}

source "overlay" {
  supports_meta_tiles = true
}

cache "osm" {
  grids   = ["regional"]
  sources = ["tiles", "overlay"]
}

cache "loop" {
  sources = ["loop"]
}
`), 0o644))
	cfg, err := conf.Load(path)
	require.NoError(t, err)
	return cfg
}

func testFragment() Fragment {
	return Fragment{
		Name:    "export",
		Grid:    "regional",
		Sources: []string{"tiles"},
		Backend: backend.TileDirectory{Directory: "./out", Layout: backend.LayoutTMS},
	}
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t)

	tileGrid, extent, mgr, err := Build(cfg, testFragment())
	require.NoError(t, err)

	assert.Equal(t, "regional", tileGrid.Name)
	assert.Equal(t, tileGrid.Extent(), extent)
	require.Len(t, mgr.Sources(), 1)
	assert.Equal(t, "tiles", mgr.Sources()[0].Name)
	assert.Equal(t, "file", mgr.Backend().Kind())
}

func TestBuildFromCache(t *testing.T) {
	cfg := testConfig(t)
	frag := testFragment()
	frag.Sources = []string{"osm"}

	_, _, mgr, err := Build(cfg, frag)
	require.NoError(t, err)

	require.Len(t, mgr.Sources(), 2, "a cache name expands to its sources")
	assert.Equal(t, "tiles", mgr.Sources()[0].Name)
	assert.Equal(t, "overlay", mgr.Sources()[1].Name)
}

func TestBuildErrors(t *testing.T) {
	cfg := testConfig(t)

	t.Run("unknown grid", func(t *testing.T) {
		frag := testFragment()
		frag.Grid = "nope"
		_, _, _, err := Build(cfg, frag)
		assert.ErrorContains(t, err, `unknown grid "nope"`)
	})

	t.Run("unknown source", func(t *testing.T) {
		frag := testFragment()
		frag.Sources = []string{"nope"}
		_, _, _, err := Build(cfg, frag)
		assert.ErrorContains(t, err, `unknown source or cache "nope"`)
	})

	t.Run("self-referencing cache", func(t *testing.T) {
		frag := testFragment()
		frag.Sources = []string{"loop"}
		_, _, _, err := Build(cfg, frag)
		assert.ErrorContains(t, err, `cache "loop" references itself`)
	})

	t.Run("no sources", func(t *testing.T) {
		frag := testFragment()
		frag.Sources = nil
		_, _, _, err := Build(cfg, frag)
		assert.ErrorContains(t, err, "no sources")
	})
}

func TestCopyTileHonorsContext(t *testing.T) {
	cfg := testConfig(t)
	_, _, mgr, err := Build(cfg, testFragment())
	require.NoError(t, err)

	require.NoError(t, mgr.CopyTile(context.Background(), 1, 0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, mgr.CopyTile(ctx, 1, 0, 0))
}
