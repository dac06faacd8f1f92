// Package srs models the spatial reference systems the exporter understands.
//
// Only the geographic WGS84 family and the spherical-mercator family are
// supported. That covers every grid the exporter ships with and keeps the
// transform math closed-form; anything else fails loudly at parse time
// instead of producing silently wrong extents.
package srs

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-spatial/geom"
)

// equatorial radius of the WGS84 spheroid, meters.
const earthRadius = 6378137.0

type family int

const (
	geographic family = iota
	sphericalMercator
)

// codes maps normalized SRS codes to their projection family.
var codes = map[string]family{
	"EPSG:4326":   geographic,
	"EPSG:4258":   geographic,
	"CRS:84":      geographic,
	"EPSG:3857":   sphericalMercator,
	"EPSG:900913": sphericalMercator,
	"EPSG:102100": sphericalMercator,
	"EPSG:102113": sphericalMercator,
}

// SRS identifies a supported spatial reference system.
type SRS struct {
	code   string
	family family
}

// WGS84 is the geographic reference used for all human-readable reporting.
var WGS84 = SRS{code: "EPSG:4326", family: geographic}

// Parse resolves an SRS code like "EPSG:3857". Codes are case-insensitive; a
// bare number is treated as an EPSG code.
func Parse(code string) (SRS, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return SRS{}, fmt.Errorf("empty SRS code")
	}
	if !strings.Contains(normalized, ":") {
		normalized = "EPSG:" + normalized
	}
	fam, ok := codes[normalized]
	if !ok {
		return SRS{}, fmt.Errorf("unsupported SRS %q", code)
	}
	return SRS{code: normalized, family: fam}, nil
}

// Code returns the normalized code, e.g. "EPSG:4326".
func (s SRS) Code() string { return s.code }

// IsGeographic reports whether coordinates are degrees.
func (s SRS) IsGeographic() bool { return s.family == geographic }

func (s SRS) String() string { return s.code }

// DefaultExtent returns the full valid extent of the reference system, used
// as the bbox default for grids that declare none.
func (s SRS) DefaultExtent() geom.Extent {
	if s.family == sphericalMercator {
		max := math.Pi * earthRadius
		return geom.Extent{-max, -max, max, max}
	}
	return geom.Extent{-180, -90, 180, 90}
}

// ExtentTo4326 transforms ext from s into geographic WGS84 coordinates.
func ExtentTo4326(ext geom.Extent, from SRS) geom.Extent {
	if from.family == geographic {
		return ext
	}
	minX, minY := mercatorToGeographic(ext.MinX(), ext.MinY())
	maxX, maxY := mercatorToGeographic(ext.MaxX(), ext.MaxY())
	return geom.Extent{minX, minY, maxX, maxY}
}

// ExtentFrom4326 transforms a geographic extent into s.
func ExtentFrom4326(ext geom.Extent, to SRS) geom.Extent {
	if to.family == geographic {
		return ext
	}
	minX, minY := geographicToMercator(ext.MinX(), ext.MinY())
	maxX, maxY := geographicToMercator(ext.MaxX(), ext.MaxY())
	return geom.Extent{minX, minY, maxX, maxY}
}

// TransformExtent transforms ext between two reference systems, routing
// through geographic WGS84 when the families differ.
func TransformExtent(ext geom.Extent, from, to SRS) geom.Extent {
	if from.family == to.family {
		return ext
	}
	return ExtentFrom4326(ExtentTo4326(ext, from), to)
}

func mercatorToGeographic(x, y float64) (lon, lat float64) {
	lon = x / earthRadius * 180 / math.Pi
	lat = (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

func geographicToMercator(lon, lat float64) (x, y float64) {
	x = lon * math.Pi / 180 * earthRadius
	y = math.Log(math.Tan(math.Pi/4+lat*math.Pi/360)) * earthRadius
	return x, y
}

// FormatBBox renders an extent the way the export summary reports coverages.
func FormatBBox(ext geom.Extent) string {
	return fmt.Sprintf("%.5f,%.5f,%.5f,%.5f", ext.MinX(), ext.MinY(), ext.MaxX(), ext.MaxY())
}
