package stac

import (
	"context"
	"time"

	"github.com/go-spatial/geom"
)

// RasterInfo is the metadata derived from a raster file
type RasterInfo struct {
	// Footprint in geographic coordinates (EPSG:4326)
	Footprint geom.Geometry
	EPSG      int
	WKT2      string
	// Shape is [rows, cols]
	Shape     []int
	Transform []float64
	// ProjBBox is the extent in the native projection
	ProjBBox []float64
	Bands    []map[string]any
}

// Deriver derives the metadata of a raster file
type Deriver interface {
	// Derive reads the raster at url. Options are the GDAL configuration options
	Derive(ctx context.Context, url string, options map[string]string) (*RasterInfo, error)
}

// GranuleLink is a link of a granule
type GranuleLink struct {
	Href  string
	Title string
	Rel   string
}

// Granule is the metadata of a granule from an external catalog
type Granule struct {
	ID        string
	TimeStart time.Time
	TimeEnd   *time.Time
	// Polygons are lists of rings in the order of the catalog ([first, second] coordinates)
	Polygons   [][][][2]float64
	Links      []GranuleLink
	Properties map[string]any
}

// GranuleCatalog retrieves granules by their identifier
type GranuleCatalog interface {
	Granule(ctx context.Context, id string) (*Granule, error)
}

// LinkChecker checks that an asset is reachable
type LinkChecker interface {
	Check(ctx context.Context, href string) error
}

// LinkCheckerFunc is a function implementing LinkChecker
type LinkCheckerFunc func(ctx context.Context, href string) error

// Check implements LinkChecker
func (f LinkCheckerFunc) Check(ctx context.Context, href string) error {
	return f(ctx, href)
}
