package common

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DateFields are the optional datetime arguments propagated from a discovery request to its file descriptors
type DateFields struct {
	SingleDatetime *string        `json:"single_datetime,omitempty"`
	StartDatetime  *string        `json:"start_datetime,omitempty"`
	EndDatetime    *string        `json:"end_datetime,omitempty"`
	DatetimeRange  *DatetimeRange `json:"datetime_range,omitempty"`
}

// DiscoveryRequest is the input of a discovery invocation
type DiscoveryRequest struct {
	Bucket            string            `json:"bucket"`
	Prefix            string            `json:"prefix"`
	FilenameRegex     string            `json:"filename_regex,omitempty"`
	Collection        string            `json:"collection,omitempty"`
	Properties        map[string]any    `json:"properties,omitempty"`
	Upload            bool              `json:"upload"`
	UserShared        bool              `json:"user_shared"`
	Ingest            *bool             `json:"ingest,omitempty"`
	GdalConfigOptions map[string]string `json:"gdal_config_options,omitempty"`
	StartAfter        string            `json:"start_after,omitempty"`
	Cogify            bool              `json:"cogify"`
	DateFields

	// Extra holds the fields that are not interpreted by the discovery but must be echoed
	Extra map[string]json.RawMessage `json:"-"`
}

// FileDescriptor is one discovered object, ready to be turned into a catalog item
type FileDescriptor struct {
	Collection        string            `json:"collection"`
	RemoteFileURL     string            `json:"remote_fileurl"`
	Upload            bool              `json:"upload"`
	UserShared        bool              `json:"user_shared"`
	Ingest            bool              `json:"ingest"`
	Properties        map[string]any    `json:"properties"`
	GdalConfigOptions map[string]string `json:"gdal_config_options,omitempty"`
	DateFields
}

// DiscoveryBatch is the output of a discovery invocation: the request is echoed, StartAfter is set iff more objects remain
type DiscoveryBatch struct {
	DiscoveryRequest
	Objects []FileDescriptor `json:"objects"`
}

// More returns true if the discovery must be invoked again with the batch as request
func (b *DiscoveryBatch) More() bool {
	return b.StartAfter != ""
}

// Next returns the request that resumes the discovery after this batch
func (b *DiscoveryBatch) Next() *DiscoveryRequest {
	req := b.DiscoveryRequest
	return &req
}

// GetCollection returns the collection, defaulting to the prefix without its trailing separators
func (r *DiscoveryRequest) GetCollection() string {
	if r.Collection != "" {
		return r.Collection
	}
	return trimRightSlashes(r.Prefix)
}

// GetIngest returns the ingest flag (default: true)
func (r *DiscoveryRequest) GetIngest() bool {
	return r.Ingest == nil || *r.Ingest
}

type discoveryRequestAlias DiscoveryRequest

// UnmarshalJSON implements json.Unmarshaler, keeping the unknown fields in Extra
func (r *DiscoveryRequest) UnmarshalJSON(data []byte) error {
	var alias discoveryRequestAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, k := range discoveryRequestFields {
		delete(fields, k)
	}
	if len(fields) == 0 {
		fields = nil
	}
	*r = DiscoveryRequest(alias)
	r.Extra = fields
	return nil
}

// MarshalJSON implements json.Marshaler, echoing the unknown fields
func (r DiscoveryRequest) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(discoveryRequestAlias(r), r.Extra)
}

type discoveryBatchAlias struct {
	discoveryRequestAlias
	Objects []FileDescriptor `json:"objects"`
}

// MarshalJSON implements json.Marshaler
func (b DiscoveryBatch) MarshalJSON() ([]byte, error) {
	objects := b.Objects
	if objects == nil {
		objects = []FileDescriptor{}
	}
	return marshalWithExtra(discoveryBatchAlias{discoveryRequestAlias(b.DiscoveryRequest), objects}, b.Extra)
}

// UnmarshalJSON implements json.Unmarshaler
func (b *DiscoveryBatch) UnmarshalJSON(data []byte) error {
	var objects struct {
		Objects []FileDescriptor `json:"objects"`
	}
	if err := json.Unmarshal(data, &objects); err != nil {
		return err
	}
	if err := b.DiscoveryRequest.UnmarshalJSON(data); err != nil {
		return err
	}
	delete(b.Extra, "objects")
	if len(b.Extra) == 0 {
		b.Extra = nil
	}
	b.Objects = objects.Objects
	return nil
}

var discoveryRequestFields = []string{
	"bucket", "prefix", "filename_regex", "collection", "properties", "upload", "user_shared", "ingest",
	"gdal_config_options", "start_after", "cogify", "single_datetime", "start_datetime", "end_datetime", "datetime_range",
}

func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	b, err := MarshalJSON(v)
	if err != nil || len(extra) == 0 {
		return b, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}
	return MarshalJSON(fields)
}

// MarshalJSON returns the compact JSON encoding of v, without HTML escaping.
// It is the canonical serialization used to measure payload sizes.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("MarshalJSON: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// JSONSize returns the size in bytes of the canonical serialization of v
func JSONSize(v any) (int, error) {
	b, err := MarshalJSON(v)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

const (
	ResultTypeItem = "item"
)

// Result is published by the item builder for each handled file
type Result struct {
	Type          string `json:"type"`
	Collection    string `json:"collection"`
	RemoteFileURL string `json:"remote_fileurl"`
	Status        Status `json:"status"`
	Message       string `json:"message,omitempty"`
	Output        any    `json:"output,omitempty"`
}
