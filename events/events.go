// Package events parses the requests to build a catalog item.
//
// An event is either a CmrEvent (metadata looked up in the CMR with its
// granule_id) or a RegexEvent (metadata derived from the file and its name).
// The variant is chosen by Parse, on the presence of the granule_id field only.
package events

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/airbusgeo/stac-ingester/common"
	"github.com/airbusgeo/stac-ingester/service"
	"github.com/araddon/dateparse"
)

// ModeCMR is the mode of the events whose geometry is the footprint of the granule
const ModeCMR = "cmr"

// Event is a parsed request. It is implemented by *CmrEvent and *RegexEvent only.
type Event interface {
	event()
}

// Base holds the fields common to all the events
type Base struct {
	Collection     string            `json:"collection"`
	RemoteFileURL  string            `json:"remote_fileurl"`
	ProductID      string            `json:"product_id,omitempty"`
	IDRegex        string            `json:"id_regex,omitempty"`
	AssetName      string            `json:"asset_name,omitempty"`
	AssetRoles     Roles             `json:"asset_roles,omitzero"`
	AssetMediaType MediaTypes        `json:"asset_media_type,omitzero"`
	Assets         map[string]string `json:"assets,omitempty"`
	Mode           string            `json:"mode,omitempty"`
	TestLinks      bool              `json:"test_links,omitempty"`
	ReverseCoords  bool              `json:"reverse_coords,omitempty"`

	GdalConfigOptions map[string]string `json:"gdal_config_options,omitempty"`
}

// CmrEvent is an event whose metadata is retrieved from the CMR
type CmrEvent struct {
	Base
	GranuleID string `json:"granule_id"`
}

// RegexEvent is an event whose datetime is given or parsed from the filename
type RegexEvent struct {
	Base
	FilenameRegex string         `json:"filename_regex,omitempty"`
	DatetimeRegex *DatetimeRegex `json:"datetime_regex,omitempty"`

	StartDatetime  *time.Time            `json:"start_datetime,omitempty"`
	EndDatetime    *time.Time            `json:"end_datetime,omitempty"`
	SingleDatetime *time.Time            `json:"single_datetime,omitempty"`
	DatetimeRange  *common.DatetimeRange `json:"datetime_range,omitempty"`

	Properties map[string]any `json:"properties,omitempty"`
}

func (*CmrEvent) event()   {}
func (*RegexEvent) event() {}

// Common returns the fields shared by all the events
func Common(ev Event) *Base {
	switch ev := ev.(type) {
	case *CmrEvent:
		return &ev.Base
	case *RegexEvent:
		return &ev.Base
	}
	panic(fmt.Sprintf("unexpected event %T", ev))
}

// rawEvent is the union of all the fields, to validate the request before choosing the variant
type rawEvent struct {
	Base
	GranuleID      string                `json:"granule_id"`
	FilenameRegex  string                `json:"filename_regex"`
	DatetimeRegex  *DatetimeRegex        `json:"datetime_regex"`
	StartDatetime  *string               `json:"start_datetime"`
	EndDatetime    *string               `json:"end_datetime"`
	SingleDatetime *string               `json:"single_datetime"`
	DatetimeRange  *common.DatetimeRange `json:"datetime_range"`
	Properties     map[string]any        `json:"properties"`
}

// Parse decodes a request into a *CmrEvent if it has a granule_id, a *RegexEvent otherwise.
// It returns service.ErrConflictingStrategy, service.ErrMissingStrategy or service.ErrInvalidInput
func Parse(data []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, service.ErrInvalidInput{Field: "event", Reason: err.Error()}
	}
	if err := raw.validateBase(); err != nil {
		return nil, err
	}

	if raw.GranuleID != "" {
		var conflicts []string
		if raw.FilenameRegex != "" {
			conflicts = append(conflicts, "filename_regex")
		}
		if raw.DatetimeRegex != nil {
			conflicts = append(conflicts, "datetime_regex")
		}
		if len(conflicts) > 0 {
			return nil, service.ErrConflictingStrategy{Fields: conflicts}
		}
		return &CmrEvent{Base: raw.Base, GranuleID: raw.GranuleID}, nil
	}

	ev := &RegexEvent{
		Base:          raw.Base,
		FilenameRegex: raw.FilenameRegex,
		DatetimeRegex: raw.DatetimeRegex,
		DatetimeRange: raw.DatetimeRange,
		Properties:    raw.Properties,
	}
	var err error
	if ev.SingleDatetime, err = parseDatetime("single_datetime", raw.SingleDatetime); err != nil {
		return nil, err
	}
	if ev.StartDatetime, err = parseDatetime("start_datetime", raw.StartDatetime); err != nil {
		return nil, err
	}
	if ev.EndDatetime, err = parseDatetime("end_datetime", raw.EndDatetime); err != nil {
		return nil, err
	}
	if (ev.StartDatetime == nil) != (ev.EndDatetime == nil) {
		return nil, service.ErrInvalidInput{Field: "start_datetime/end_datetime", Reason: "both must be provided"}
	}
	if ev.FilenameRegex == "" && ev.DatetimeRegex == nil && ev.SingleDatetime == nil && ev.StartDatetime == nil {
		return nil, service.ErrMissingStrategy{}
	}
	if ev.FilenameRegex != "" {
		if _, err := regexp.Compile(ev.FilenameRegex); err != nil {
			return nil, service.ErrInvalidInput{Field: "filename_regex", Reason: err.Error()}
		}
	}
	if ev.DatetimeRegex != nil {
		if _, err := regexp.Compile(ev.DatetimeRegex.Regex); err != nil {
			return nil, service.ErrInvalidInput{Field: "datetime_regex", Reason: err.Error()}
		}
		if len(ev.DatetimeRegex.TargetGroup) == 0 {
			return nil, service.ErrInvalidInput{Field: "datetime_regex.target_group", Reason: "required"}
		}
	}
	return ev, nil
}

func (raw *rawEvent) validateBase() error {
	if raw.Collection == "" {
		return service.ErrInvalidInput{Field: "collection", Reason: "required"}
	}
	if raw.RemoteFileURL == "" {
		return service.ErrInvalidInput{Field: "remote_fileurl", Reason: "required"}
	}
	if raw.IDRegex != "" {
		if _, err := regexp.Compile(raw.IDRegex); err != nil {
			return service.ErrInvalidInput{Field: "id_regex", Reason: err.Error()}
		}
	}
	return nil
}

func parseDatetime(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := dateparse.ParseIn(*value, time.UTC)
	if err != nil {
		return nil, service.ErrInvalidInput{Field: field, Reason: err.Error()}
	}
	return &t, nil
}

// ItemID returns the identifier of the item built from the event:
// the groups matched by id_regex, or the product_id, or the stem of the file name
func ItemID(ev Event) (string, error) {
	b := Common(ev)
	switch {
	case b.IDRegex != "":
		re, err := regexp.Compile(b.IDRegex)
		if err != nil {
			return "", service.ErrInvalidInput{Field: "id_regex", Reason: err.Error()}
		}
		matches := re.FindAllStringSubmatch(b.RemoteFileURL, -1)
		if len(matches) != 1 {
			return "", service.ErrIdentifierExtraction{Pattern: b.IDRegex, URL: b.RemoteFileURL, Matches: len(matches)}
		}
		if len(matches[0]) == 1 {
			return matches[0][0], nil
		}
		return strings.Join(matches[0][1:], "-"), nil
	case b.ProductID != "":
		return b.ProductID, nil
	default:
		return common.FileStem(b.RemoteFileURL), nil
	}
}

// String implements fmt.Stringer
func (ev *CmrEvent) String() string {
	return fmt.Sprintf("CmrEvent(%s, %s)", ev.GranuleID, ev.RemoteFileURL)
}

// String implements fmt.Stringer
func (ev *RegexEvent) String() string {
	return fmt.Sprintf("RegexEvent(%s)", ev.RemoteFileURL)
}
