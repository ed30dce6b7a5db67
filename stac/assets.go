package stac

import (
	"strings"

	"github.com/airbusgeo/stac-ingester/common"
	"github.com/airbusgeo/stac-ingester/events"
)

// DefaultAssetName is the name of the asset of the remote file when the event does not define one
const DefaultAssetName = "cog"

// eventAssets returns the assets defined by the event: the assets map if any, the remote file otherwise
func eventAssets(b *events.Base) map[string]Asset {
	assets := map[string]Asset{}
	if len(b.Assets) > 0 {
		for name, href := range b.Assets {
			assets[name] = newAsset(b, name, href)
		}
		return assets
	}
	name := b.AssetName
	if name == "" {
		name = DefaultAssetName
	}
	assets[name] = newAsset(b, name, b.RemoteFileURL)
	return assets
}

func newAsset(b *events.Base, title, href string) Asset {
	ext := common.FileExt(href)
	a := Asset{
		Href:  href,
		Title: title,
		Roles: b.AssetRoles.For(ext),
		Type:  b.AssetMediaType.For(ext),
	}
	if !b.AssetRoles.IsSet() {
		a.Roles = defaultRoles(ext)
	}
	if a.Type == "" {
		a.Type = guessMediaType(ext)
	}
	return a
}

// defaultRoles: sidecar json/xml files are metadata, everything else is data
func defaultRoles(ext string) []string {
	switch strings.ToLower(ext) {
	case "json", "xml":
		return []string{common.RoleMetadata}
	}
	return []string{common.RoleData}
}

func guessMediaType(ext string) string {
	switch strings.ToLower(ext) {
	case "tif", "tiff":
		return common.MediaTypeCOG
	case "h5", "he5":
		return common.MediaTypeHDF5
	case "json":
		return common.MediaTypeJSON
	}
	return ""
}

// addGranuleAssets adds the hdf5 files linked by the granule
func addGranuleAssets(assets map[string]Asset, g *Granule) {
	for _, link := range g.Links {
		if !strings.Contains(link.Href, ".he5") && !strings.Contains(link.Href, ".h5") {
			continue
		}
		name := link.Title
		if name == "" {
			name = link.Href
		}
		if _, ok := assets[name]; ok {
			continue
		}
		assets[name] = Asset{
			Href:  link.Href,
			Type:  common.MediaTypeHDF5,
			Title: "hdf image",
			Roles: []string{common.RoleData},
		}
	}
}
