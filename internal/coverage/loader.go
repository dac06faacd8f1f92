package coverage

import (
	"context"
	"fmt"
	"os"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"

	"github.com/tileexport/tileexportgo/internal/ctxlog"
	"github.com/tileexport/tileexportgo/internal/srs"
)

// FileLoader is the built-in GeometryLoader. It reads WKT geometry files;
// attribute-filtered OGR datasources need an external loader.
type FileLoader struct{}

// Load reads a WKT file and returns its coverage in the target reference.
// The geometry is assumed to be in the target reference already; the loader
// performs no reprojection.
func (FileLoader) Load(ctx context.Context, datasource, where string, target srs.SRS) (*Coverage, error) {
	if where != "" {
		return nil, fmt.Errorf("attribute filter %q needs an OGR datasource, %q is a WKT file", where, datasource)
	}

	raw, err := os.ReadFile(datasource)
	if err != nil {
		return nil, err
	}

	geometry, err := wkt.DecodeBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid WKT in %s: %w", datasource, err)
	}

	extent, err := geom.NewExtentFromGeometry(geometry)
	if err != nil {
		return nil, fmt.Errorf("no extent for geometry in %s: %w", datasource, err)
	}

	ctxlog.FromContext(ctx).Debug("loaded coverage geometry",
		"datasource", datasource, "srs", target.Code(), "bbox", srs.FormatBBox(*extent))
	return &Coverage{Extent: *extent, SRS: target, Geometry: geometry}, nil
}
