package stac

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/airbusgeo/stac-ingester/common"
	"github.com/airbusgeo/stac-ingester/events"
	"github.com/airbusgeo/stac-ingester/service"
	"github.com/airbusgeo/stac-ingester/service/log"
)

// Builder builds the items, delegating the metadata derivation to its collaborators
type Builder struct {
	Deriver  Deriver
	Granules GranuleCatalog
	// LinkChecker is used when the event requires the assets to be tested (default: HEAD request)
	LinkChecker LinkChecker
}

// Build builds the item described by the event.
// Any failure of the collaborators is returned as a service.ErrMetadataDerivation
func (b *Builder) Build(ctx context.Context, ev events.Event) (*Item, error) {
	id, err := events.ItemID(ev)
	if err != nil {
		return nil, err
	}
	base := events.Common(ev)
	ctx = log.With(ctx, "item", id)
	item := NewItem(id, base.Collection)

	switch ev := ev.(type) {
	case *events.CmrEvent:
		err = b.buildFromGranule(ctx, item, ev)
	case *events.RegexEvent:
		err = b.buildFromRaster(ctx, item, ev)
	default:
		err = fmt.Errorf("unsupported event %T", ev)
	}
	if err != nil {
		return nil, service.ErrMetadataDerivation{URL: base.RemoteFileURL, Err: err}
	}

	if base.TestLinks {
		if err := b.checkLinks(ctx, item); err != nil {
			return nil, service.ErrMetadataDerivation{URL: base.RemoteFileURL, Err: err}
		}
	}
	log.Logger(ctx).Sugar().Debugf("item built with %d assets", len(item.Assets))
	return item, nil
}

func (b *Builder) buildFromGranule(ctx context.Context, item *Item, ev *events.CmrEvent) error {
	if b.Granules == nil {
		return fmt.Errorf("no granule catalog to look up %s", ev.GranuleID)
	}
	g, err := b.Granules.Granule(ctx, ev.GranuleID)
	if err != nil {
		return fmt.Errorf("Granule(%s): %w", ev.GranuleID, err)
	}
	for k, v := range g.Properties {
		item.Properties[k] = v
	}
	item.Properties[common.PropDatetime] = formatDatetime(g.TimeStart)
	if g.TimeEnd != nil {
		item.Properties[common.PropStartDatetime] = formatDatetime(g.TimeStart)
		item.Properties[common.PropEndDatetime] = formatDatetime(*g.TimeEnd)
	}

	item.Assets = eventAssets(&ev.Base)
	addGranuleAssets(item.Assets, g)

	if ev.Mode == events.ModeCMR {
		fp, err := footprint(g.Polygons, ev.ReverseCoords)
		if err != nil {
			return err
		}
		return item.SetGeometry(fp)
	}
	return b.derive(ctx, item, &ev.Base)
}

func (b *Builder) buildFromRaster(ctx context.Context, item *Item, ev *events.RegexEvent) error {
	dts, err := eventDatetimes(ev)
	if err != nil {
		return fmt.Errorf("datetime: %w", err)
	}
	item.Assets = eventAssets(&ev.Base)
	if err := b.derive(ctx, item, &ev.Base); err != nil {
		return err
	}
	for k, v := range ev.Properties {
		item.Properties[k] = v
	}
	dts.apply(item.Properties)
	return nil
}

// derive sets the geometry and the projection of the item from the raster
func (b *Builder) derive(ctx context.Context, item *Item, base *events.Base) error {
	if b.Deriver == nil {
		return fmt.Errorf("no raster deriver to read %s", base.RemoteFileURL)
	}
	info, err := b.Deriver.Derive(ctx, base.RemoteFileURL, base.GdalConfigOptions)
	if err != nil {
		return fmt.Errorf("Derive: %w", err)
	}
	if err := item.SetGeometry(info.Footprint); err != nil {
		return fmt.Errorf("SetGeometry: %w", err)
	}

	item.addExtension(ExtensionProjection)
	if info.EPSG != 0 {
		item.Properties[common.PropProjEPSG] = info.EPSG
	} else {
		item.Properties[common.PropProjEPSG] = nil
		if info.WKT2 != "" {
			item.Properties[common.PropProjWKT2] = info.WKT2
		}
	}
	if len(info.Shape) > 0 {
		item.Properties[common.PropProjShape] = info.Shape
	}
	if len(info.Transform) > 0 {
		item.Properties[common.PropProjTransform] = info.Transform
	}
	if len(info.ProjBBox) > 0 {
		item.Properties[common.PropProjBBox] = info.ProjBBox
	}
	if len(info.Bands) > 0 {
		item.addExtension(ExtensionRaster)
		item.Properties[common.PropRasterBands] = info.Bands
	}
	return nil
}

// checkLinks checks that the http(s) assets are reachable, each href once
func (b *Builder) checkLinks(ctx context.Context, item *Item) error {
	checker := b.LinkChecker
	if checker == nil {
		checker = LinkCheckerFunc(func(ctx context.Context, href string) error {
			return service.HTTPHead(ctx, nil, href)
		})
	}
	names := make([]string, 0, len(item.Assets))
	for name := range item.Assets {
		names = append(names, name)
	}
	sort.Strings(names)
	checked := service.StringSet{}
	for _, name := range names {
		href := item.Assets[name].Href
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") || !checked.Add(href) {
			continue
		}
		if err := checker.Check(ctx, href); err != nil {
			return fmt.Errorf("asset %s: %w", name, err)
		}
	}
	return nil
}
