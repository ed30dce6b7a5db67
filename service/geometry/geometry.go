// Package geometry merges the polygons of a footprint with geos.
package geometry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-spatial/geom"
	geomwkt "github.com/go-spatial/geom/encoding/wkt"
	"github.com/paulsmith/gogeos/geos"
)

// Tolerance of the simplification of geographic footprints (degrees)
const Tolerance = 0.000001

// Point is a pair of coordinates, in the order given by the catalog
type Point [2]float64

// PolygonWKT encodes the rings of a polygon. If latLon, the points are [lat, lon] and are swapped to x=lon, y=lat.
func PolygonWKT(rings [][]Point, latLon bool) string {
	srings := make([]string, 0, len(rings))
	for _, ring := range rings {
		points := make([]string, 0, len(ring))
		for _, p := range ring {
			x, y := p[0], p[1]
			if latLon {
				x, y = y, x
			}
			points = append(points, formatFloat(x)+" "+formatFloat(y))
		}
		srings = append(srings, "("+strings.Join(points, ", ")+")")
	}
	return "POLYGON (" + strings.Join(srings, ", ") + ")"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Footprint returns the union of the polygons, simplified with the given tolerance
func Footprint(wkts []string, tolerance float64) (geom.Geometry, error) {
	if len(wkts) == 0 {
		return nil, fmt.Errorf("Footprint: no polygon")
	}
	geoms := make([]*geos.Geometry, 0, len(wkts))
	for _, wkt := range wkts {
		g, err := geos.FromWKT(wkt)
		if err != nil {
			return nil, fmt.Errorf("Footprint.FromWKT: %w", err)
		}
		geoms = append(geoms, g)
	}
	union, err := union(geoms, tolerance)
	if err != nil {
		return nil, fmt.Errorf("Footprint.%w", err)
	}
	return geosToGeom(union)
}

func geosToGeom(g *geos.Geometry) (geom.Geometry, error) {
	wkt, err := g.ToWKT()
	if err != nil {
		return nil, fmt.Errorf("geosToGeom.ToWKT: %w", err)
	}
	geometry, err := geomwkt.DecodeString(wkt)
	if err != nil {
		return nil, fmt.Errorf("geosToGeom.DecodeString: %w", err)
	}
	return geometry, nil
}

func union(geoms []*geos.Geometry, tolerance float64) (*geos.Geometry, error) {
	if len(geoms) == 1 {
		return geoms[0].Simplify(tolerance)
	}
	u, err := geos.NewCollection(geos.MULTIPOLYGON, geoms...)
	if err == nil {
		u, err = u.UnaryUnion()
	}
	if err == nil {
		if u, err = u.Simplify(tolerance); err != nil {
			return nil, fmt.Errorf("union.Simplify: %w", err)
		}
		return u, nil
	}

	// Invalid polygons may break the unary union: simplify them and merge one by one
	for i, g := range geoms {
		if g, err = g.Simplify(tolerance); err != nil {
			return nil, fmt.Errorf("union.Simplify: %w", err)
		}
		if i == 0 {
			u = g
		} else if u, err = u.Union(g); err != nil {
			return nil, fmt.Errorf("union: %w", err)
		}
	}
	return u, nil
}
