// Package stac builds the catalog items (STAC items) from the events
// and decides whether they are returned inline or written to a storage.
package stac

import (
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
)

// Version of the STAC specification of the items
const Version = "1.0.0"

// Extensions used by the items built from a raster
const (
	ExtensionProjection = "https://stac-extensions.github.io/projection/v1.0.0/schema.json"
	ExtensionRaster     = "https://stac-extensions.github.io/raster/v1.1.0/schema.json"
)

// Asset is a file referenced by an item
type Asset struct {
	Href  string   `json:"href"`
	Type  string   `json:"type,omitempty"`
	Title string   `json:"title,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Link is a relation of an item
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// Item is a STAC item
type Item struct {
	Type           string            `json:"type"`
	StacVersion    string            `json:"stac_version"`
	StacExtensions []string          `json:"stac_extensions"`
	ID             string            `json:"id"`
	Geometry       *geojson.Geometry `json:"geometry"`
	BBox           []float64         `json:"bbox,omitempty"`
	Properties     map[string]any    `json:"properties"`
	Links          []Link            `json:"links"`
	Assets         map[string]Asset  `json:"assets"`
	Collection     string            `json:"collection,omitempty"`
}

// NewItem returns an empty item of the collection
func NewItem(id, collection string) *Item {
	return &Item{
		Type:           "Feature",
		StacVersion:    Version,
		StacExtensions: []string{},
		ID:             id,
		Properties:     map[string]any{},
		Links:          []Link{},
		Assets:         map[string]Asset{},
		Collection:     collection,
	}
}

// SetGeometry sets the geometry and the bbox of the item
func (it *Item) SetGeometry(g geom.Geometry) error {
	if g == nil {
		it.Geometry, it.BBox = nil, nil
		return nil
	}
	ext, err := geom.NewExtentFromGeometry(g)
	if err != nil {
		return err
	}
	it.Geometry = &geojson.Geometry{Geometry: g}
	it.BBox = []float64{ext.MinX(), ext.MinY(), ext.MaxX(), ext.MaxY()}
	return nil
}

func (it *Item) addExtension(ext string) {
	for _, e := range it.StacExtensions {
		if e == ext {
			return
		}
	}
	it.StacExtensions = append(it.StacExtensions, ext)
}
