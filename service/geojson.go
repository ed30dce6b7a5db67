package service

import (
	"fmt"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
)

// DecodeFootprint decodes a GeoJSON footprint (geometry, feature or feature collection).
// The polygons of collections are merged into a single multipolygon.
func DecodeFootprint(data []byte) (geom.Geometry, error) {
	var g geojson.Geometry
	if err := g.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("DecodeFootprint: %w", err)
	}
	var footprint geom.Geometry
	switch v := g.Geometry.(type) {
	case geojson.Feature:
		footprint = v.Geometry.Geometry
	case geojson.FeatureCollection:
		var mp geom.MultiPolygon
		for _, f := range v.Features {
			appendPolygons(&mp, f.Geometry.Geometry)
		}
		footprint = mp
	case geom.Collection:
		var mp geom.MultiPolygon
		appendPolygons(&mp, v)
		footprint = mp
	default:
		footprint = v
	}
	switch footprint.(type) {
	case geom.Polygon, geom.MultiPolygon:
		return footprint, nil
	}
	return nil, fmt.Errorf("DecodeFootprint: expecting a polygonal footprint, got %T", footprint)
}

func appendPolygons(mp *geom.MultiPolygon, g geom.Geometry) {
	switch g := g.(type) {
	case geom.Polygon:
		*mp = append(*mp, g.LinearRings())
	case geom.MultiPolygon:
		*mp = append(*mp, g.Polygons()...)
	case geom.Collection:
		for _, sub := range g.Geometries() {
			appendPolygons(mp, sub)
		}
	}
}
