package stac

import (
	"fmt"

	"github.com/airbusgeo/stac-ingester/service/geometry"
	"github.com/go-spatial/geom"
)

// footprint merges the polygons of a granule.
// The catalog gives [lat, lon] pairs, unless reverse is true ([lon, lat]).
func footprint(polygons [][][][2]float64, reverse bool) (geom.Geometry, error) {
	if len(polygons) == 0 {
		return nil, fmt.Errorf("footprint: granule has no polygon")
	}
	wkts := make([]string, 0, len(polygons))
	for _, p := range polygons {
		rings := make([][]geometry.Point, len(p))
		for i, ring := range p {
			rings[i] = make([]geometry.Point, len(ring))
			for j, pt := range ring {
				rings[i][j] = geometry.Point(pt)
			}
		}
		wkts = append(wkts, geometry.PolygonWKT(rings, !reverse))
	}
	g, err := geometry.Footprint(wkts, geometry.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("footprint.%w", err)
	}
	return g, nil
}
