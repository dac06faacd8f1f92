// Package grid builds tile grids from grid options and answers the geometric
// questions the export pipeline asks of them: how many levels exist, what the
// full extent is, and which tile range a coverage touches at a given level.
package grid

import (
	"fmt"
	"math"

	"github.com/go-spatial/geom"

	"github.com/tileexport/tileexportgo/internal/srs"
)

// defaultNumLevels is used when a grid declares neither an explicit
// resolution list nor a level count.
const defaultNumLevels = 20

// Origin names the grid corner tile (0,0) is anchored to.
type Origin int

const (
	// OriginSW anchors tile rows at the south-west corner (TMS style).
	OriginSW Origin = iota
	// OriginNW anchors tile rows at the north-west corner (slippy-map style).
	OriginNW
)

// ParseOrigin recognizes the origin spellings accepted in grid options.
func ParseOrigin(s string) (Origin, error) {
	switch s {
	case "", "sw", "ll":
		return OriginSW, nil
	case "nw", "ul":
		return OriginNW, nil
	}
	return 0, fmt.Errorf("unknown grid origin %q", s)
}

// Options is the format-agnostic grid definition shared by configuration-file
// grids and inline command-line grids. Zero values mean "not set".
type Options struct {
	Name      string
	SRS       string
	BBox      []float64 // minx, miny, maxx, maxy
	BBoxSRS   string
	Res       []float64 // descending
	TileSize  []int     // width, height
	Origin    string
	NumLevels int
	MinRes    float64
	MaxRes    float64
}

// TileGrid is a fully resolved tiling scheme. Immutable after New.
type TileGrid struct {
	Name        string
	SRS         srs.SRS
	BBox        geom.Extent
	Resolutions []float64
	TileSize    [2]int
	Origin      Origin
}

// New resolves grid options into a TileGrid. The SRS defaults to EPSG:4326,
// the bbox to the full extent of the SRS, and the tile size to 256x256.
// Resolutions come from the explicit res list when given, otherwise they are
// derived by halving from max_res (or the bbox) until num_levels or min_res
// is reached.
func New(opts Options) (*TileGrid, error) {
	reference := srs.WGS84
	if opts.SRS != "" {
		var err error
		reference, err = srs.Parse(opts.SRS)
		if err != nil {
			return nil, fmt.Errorf("grid %q: %w", opts.Name, err)
		}
	}

	bbox, err := resolveBBox(opts, reference)
	if err != nil {
		return nil, fmt.Errorf("grid %q: %w", opts.Name, err)
	}

	tileSize := [2]int{256, 256}
	switch len(opts.TileSize) {
	case 0:
	case 2:
		if opts.TileSize[0] <= 0 || opts.TileSize[1] <= 0 {
			return nil, fmt.Errorf("grid %q: tile_size must be positive", opts.Name)
		}
		tileSize = [2]int{opts.TileSize[0], opts.TileSize[1]}
	default:
		return nil, fmt.Errorf("grid %q: tile_size needs width and height", opts.Name)
	}

	origin, err := ParseOrigin(opts.Origin)
	if err != nil {
		return nil, fmt.Errorf("grid %q: %w", opts.Name, err)
	}

	resolutions, err := resolveResolutions(opts, bbox, tileSize)
	if err != nil {
		return nil, fmt.Errorf("grid %q: %w", opts.Name, err)
	}

	return &TileGrid{
		Name:        opts.Name,
		SRS:         reference,
		BBox:        bbox,
		Resolutions: resolutions,
		TileSize:    tileSize,
		Origin:      origin,
	}, nil
}

func resolveBBox(opts Options, reference srs.SRS) (geom.Extent, error) {
	if len(opts.BBox) == 0 {
		return reference.DefaultExtent(), nil
	}
	if len(opts.BBox) != 4 {
		return geom.Extent{}, fmt.Errorf("bbox needs four values, got %d", len(opts.BBox))
	}
	ext := geom.Extent{opts.BBox[0], opts.BBox[1], opts.BBox[2], opts.BBox[3]}
	if ext.MinX() >= ext.MaxX() || ext.MinY() >= ext.MaxY() {
		return geom.Extent{}, fmt.Errorf("bbox %v is empty", opts.BBox)
	}
	if opts.BBoxSRS != "" {
		from, err := srs.Parse(opts.BBoxSRS)
		if err != nil {
			return geom.Extent{}, err
		}
		ext = srs.ExtentFrom4326(srs.ExtentTo4326(ext, from), reference)
	}
	return ext, nil
}

func resolveResolutions(opts Options, bbox geom.Extent, tileSize [2]int) ([]float64, error) {
	if len(opts.Res) > 0 {
		resolutions := make([]float64, len(opts.Res))
		copy(resolutions, opts.Res)
		for i, r := range resolutions {
			if r <= 0 {
				return nil, fmt.Errorf("res[%d] must be positive", i)
			}
			if i > 0 && r >= resolutions[i-1] {
				return nil, fmt.Errorf("res must be in descending order")
			}
		}
		return resolutions, nil
	}

	res := opts.MaxRes
	if res <= 0 {
		res = math.Max(bbox.XSpan()/float64(tileSize[0]), bbox.YSpan()/float64(tileSize[1]))
	}

	num := opts.NumLevels
	if num <= 0 {
		num = defaultNumLevels
	}

	var resolutions []float64
	for level := 0; level < num; level++ {
		if opts.MinRes > 0 && res < opts.MinRes {
			break
		}
		resolutions = append(resolutions, res)
		res /= 2
	}
	if len(resolutions) == 0 {
		return nil, fmt.Errorf("no resolutions between max_res and min_res")
	}
	return resolutions, nil
}

// Levels returns the number of zoom levels, i.e. valid level indices are
// 0..Levels()-1.
func (g *TileGrid) Levels() int {
	return len(g.Resolutions)
}

// Extent returns the full extent of the grid in its own SRS.
func (g *TileGrid) Extent() geom.Extent {
	return g.BBox
}

// Resolution returns the units-per-pixel resolution of a level.
func (g *TileGrid) Resolution(level int) (float64, error) {
	if level < 0 || level >= len(g.Resolutions) {
		return 0, fmt.Errorf("grid %q has no level %d", g.Name, level)
	}
	return g.Resolutions[level], nil
}

// GridSize returns the tile columns and rows of a level.
func (g *TileGrid) GridSize(level int) (w, h int, err error) {
	res, err := g.Resolution(level)
	if err != nil {
		return 0, 0, err
	}
	w = int(math.Ceil(g.BBox.XSpan() / (res * float64(g.TileSize[0]))))
	h = int(math.Ceil(g.BBox.YSpan() / (res * float64(g.TileSize[1]))))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h, nil
}

// TileRange is an inclusive rectangle of tile coordinates at one level.
type TileRange struct {
	Level                  int
	MinX, MinY, MaxX, MaxY int
}

// Count returns the number of tiles in the range.
func (tr TileRange) Count() int64 {
	return int64(tr.MaxX-tr.MinX+1) * int64(tr.MaxY-tr.MinY+1)
}

// TileRange returns the tiles of a level intersecting ext, clamped to the
// grid. The extent must be in the grid's SRS.
func (g *TileGrid) TileRange(ext geom.Extent, level int) (TileRange, error) {
	res, err := g.Resolution(level)
	if err != nil {
		return TileRange{}, err
	}
	w, h, err := g.GridSize(level)
	if err != nil {
		return TileRange{}, err
	}

	tileW := res * float64(g.TileSize[0])
	tileH := res * float64(g.TileSize[1])

	minX := int(math.Floor((ext.MinX() - g.BBox.MinX()) / tileW))
	maxX := int(math.Floor((ext.MaxX() - g.BBox.MinX()) / tileW))
	minY := int(math.Floor((ext.MinY() - g.BBox.MinY()) / tileH))
	maxY := int(math.Floor((ext.MaxY() - g.BBox.MinY()) / tileH))

	if g.Origin == OriginNW {
		minY, maxY = h-1-maxY, h-1-minY
	}

	tr := TileRange{
		Level: level,
		MinX:  clamp(minX, 0, w-1),
		MaxX:  clamp(maxX, 0, w-1),
		MinY:  clamp(minY, 0, h-1),
		MaxY:  clamp(maxY, 0, h-1),
	}
	return tr, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
