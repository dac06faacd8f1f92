// Package backend maps the --type format token onto a destination storage
// backend configuration. The token set is closed; selection never touches the
// filesystem, so an unsupported token is rejected before anything could be
// written.
package backend

import "fmt"

// Layout names a tile-path layout of a directory backend.
type Layout string

const (
	// LayoutTC is the nested TileCache directory layout.
	LayoutTC Layout = "tc"
	// LayoutTMS is the flat z/x/y TMS directory layout.
	LayoutTMS Layout = "tms"
)

// Config describes the selected destination backend. It is a closed sum:
// MBTiles or TileDirectory.
type Config interface {
	// Kind returns a short identifier for logging.
	Kind() string

	sealed()
}

// MBTiles is the single-file sqlite container backend.
type MBTiles struct {
	Filename string
}

func (MBTiles) Kind() string { return "mbtiles" }
func (MBTiles) sealed()      {}

// TileDirectory is the directory backend with a named internal layout.
type TileDirectory struct {
	Directory string
	Layout    Layout
}

func (TileDirectory) Kind() string { return "file" }
func (TileDirectory) sealed()      {}

// UnsupportedFormatError reports a --type token outside the known set.
type UnsupportedFormatError struct {
	Token string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format %q", e.Token)
}

// Select resolves a format token and destination path into a backend
// configuration. An empty token defaults to the TMS directory layout; "tc"
// and "mapproxy" are aliases for the TileCache layout.
func Select(token, dest string) (Config, error) {
	switch token {
	case "mbtile":
		return MBTiles{Filename: dest}, nil
	case "tc", "mapproxy":
		return TileDirectory{Directory: dest, Layout: LayoutTC}, nil
	case "tms", "":
		return TileDirectory{Directory: dest, Layout: LayoutTMS}, nil
	}
	return nil, &UnsupportedFormatError{Token: token}
}
