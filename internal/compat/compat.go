// Package compat decides whether a cache can serve an export tile-for-tile.
package compat

import "github.com/tileexport/tileexportgo/internal/cache"

// SupportsTiledAccess reports whether the cache's tiles align one-to-one
// with the destination grid, so the export can copy tiles verbatim.
//
// The heuristic is deliberately conservative: it is true only for a cache
// with exactly one source that explicitly declares it does not meta-tile,
// i.e. it serves single tiles matching the grid. Multi-source caches,
// meta-tiling sources and sources that leave the capability undeclared all
// report false, which costs a rescale pass but never a wrong copy.
func SupportsTiledAccess(sources []cache.SourceInfo) bool {
	if len(sources) != 1 {
		return false
	}
	flag := sources[0].SupportsMetaTiles
	return flag != nil && !*flag
}
