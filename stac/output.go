package stac

import (
	"context"
	"fmt"

	"github.com/airbusgeo/stac-ingester/common"
)

// InlineThreshold is the size of the payloads that can be returned inline
const InlineThreshold = 256 * 1024

// Output is the result of DecideOutput: *InlineItem or *PointerItem
type Output interface {
	output()
}

// InlineItem is an item small enough to be returned in the payload
type InlineItem struct {
	Item *Item `json:"stac_item"`
}

// PointerItem is the address of an item written to a storage
type PointerItem struct {
	URL string `json:"stac_file_url"`
}

func (*InlineItem) output()  {}
func (*PointerItem) output() {}

// Offloader writes a document and returns its url
type Offloader interface {
	Store(ctx context.Context, v any) (string, error)
}

// DecideOutput returns the item inline if the serialized payload {"stac_item": item}
// is strictly smaller than InlineThreshold. Otherwise, the item is written by the offloader.
func DecideOutput(ctx context.Context, item *Item, offloader Offloader) (Output, error) {
	inline := &InlineItem{Item: item}
	size, err := common.JSONSize(inline)
	if err != nil {
		return nil, fmt.Errorf("DecideOutput.%w", err)
	}
	if size < InlineThreshold {
		return inline, nil
	}
	if offloader == nil {
		return nil, fmt.Errorf("DecideOutput: item %s is too large (%d bytes) and no storage is configured", item.ID, size)
	}
	url, err := offloader.Store(ctx, item)
	if err != nil {
		return nil, err
	}
	return &PointerItem{URL: url}, nil
}
