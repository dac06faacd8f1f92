// Package coverage resolves the spatial restriction of an export. A request
// names at most one coverage source: an explicit bounding box, an external
// geometry datasource, or nothing, which means the full extent of the
// destination grid. Resolution always yields a usable Coverage or an explicit
// error, never an empty region.
package coverage

import (
	"context"
	"fmt"

	"github.com/go-spatial/geom"

	"github.com/tileexport/tileexportgo/internal/grid"
	"github.com/tileexport/tileexportgo/internal/srs"
)

// Coverage is a resolved closed region: an extent in some reference system.
type Coverage struct {
	Extent geom.Extent
	SRS    srs.SRS
	// Geometry is the source polygon when the coverage came from a
	// datasource; nil for plain bounding boxes and grid extents.
	Geometry geom.Geometry
}

// ExtentIn4326 reports the bounding extent in geographic WGS84 coordinates,
// the reference all human-readable output uses.
func (c *Coverage) ExtentIn4326() geom.Extent {
	return srs.ExtentTo4326(c.Extent, c.SRS)
}

type kind int

const (
	kindNone kind = iota
	kindBBox
	kindDatasource
)

// Spec is the declared coverage source of a request. Construct with BBox,
// Datasource or None; the zero value equals None().
type Spec struct {
	kind       kind
	extent     geom.Extent
	srs        srs.SRS
	hasSRS     bool
	datasource string
	where      string
}

// BBox declares an explicit bounding-box coverage in the given reference.
func BBox(extent geom.Extent, reference srs.SRS) Spec {
	return Spec{kind: kindBBox, extent: extent, srs: reference, hasSRS: true}
}

// Datasource declares a coverage loaded from an external geometry datasource,
// optionally filtered by a where expression. A zero SRS defers to the
// destination grid's reference.
func Datasource(path, where string, reference srs.SRS, hasSRS bool) Spec {
	return Spec{kind: kindDatasource, datasource: path, where: where, srs: reference, hasSRS: hasSRS}
}

// None declares no restriction: the full extent of the destination grid.
func None() Spec {
	return Spec{kind: kindNone}
}

// Restricted reports whether the spec actually limits the export area.
func (s Spec) Restricted() bool {
	return s.kind != kindNone
}

// ResolutionError wraps a failure of the external geometry loader. The cause
// is surfaced unmodified.
type ResolutionError struct {
	Datasource string
	Err        error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve coverage from %q: %v", e.Datasource, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// GeometryLoader loads a coverage geometry from an external datasource.
type GeometryLoader interface {
	Load(ctx context.Context, datasource, where string, target srs.SRS) (*Coverage, error)
}

// Resolver turns coverage specs into coverages.
type Resolver struct {
	Loader GeometryLoader
}

// Resolve produces the Coverage for a spec against the destination grid. The
// returned coverage is always expressed in the grid's reference system, so
// tile ranges can be computed from its extent without further transformation.
func (r *Resolver) Resolve(ctx context.Context, spec Spec, g *grid.TileGrid) (*Coverage, error) {
	switch spec.kind {
	case kindNone:
		return &Coverage{Extent: g.Extent(), SRS: g.SRS}, nil
	case kindBBox:
		return &Coverage{Extent: srs.TransformExtent(spec.extent, spec.srs, g.SRS), SRS: g.SRS}, nil
	case kindDatasource:
		target := g.SRS
		if spec.hasSRS {
			target = spec.srs
		}
		cov, err := r.Loader.Load(ctx, spec.datasource, spec.where, target)
		if err != nil {
			return nil, &ResolutionError{Datasource: spec.datasource, Err: err}
		}
		cov.Extent = srs.TransformExtent(cov.Extent, cov.SRS, g.SRS)
		cov.SRS = g.SRS
		return cov, nil
	}
	return nil, fmt.Errorf("unknown coverage spec kind %d", spec.kind)
}
