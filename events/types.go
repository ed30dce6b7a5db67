package events

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Roles are the roles of the assets: either the same list for all the assets,
// or a list per file extension
type Roles struct {
	All         []string
	ByExtension map[string][]string
}

// For returns the roles of an asset given its file extension
func (r Roles) For(ext string) []string {
	if r.ByExtension != nil {
		return r.ByExtension[ext]
	}
	return r.All
}

// IsSet returns true if some roles are defined
func (r Roles) IsSet() bool {
	return r.All != nil || r.ByExtension != nil
}

// IsZero reports whether no role is defined (omitzero)
func (r Roles) IsZero() bool {
	return !r.IsSet()
}

func (r *Roles) UnmarshalJSON(data []byte) error {
	switch firstByte(data) {
	case '[':
		return json.Unmarshal(data, &r.All)
	case '{':
		return json.Unmarshal(data, &r.ByExtension)
	case 'n':
		return nil
	}
	return fmt.Errorf("asset_roles must be a list or a map of lists, got %s", data)
}

func (r Roles) MarshalJSON() ([]byte, error) {
	if r.ByExtension != nil {
		return json.Marshal(r.ByExtension)
	}
	return json.Marshal(r.All)
}

// MediaTypes are the media types of the assets: either the same for all the assets,
// or one per file extension
type MediaTypes struct {
	All         string
	ByExtension map[string]string
}

// For returns the media type of an asset given its file extension
func (m MediaTypes) For(ext string) string {
	if m.ByExtension != nil {
		return m.ByExtension[ext]
	}
	return m.All
}

// IsZero reports whether no media type is defined (omitzero)
func (m MediaTypes) IsZero() bool {
	return m.All == "" && m.ByExtension == nil
}

func (m *MediaTypes) UnmarshalJSON(data []byte) error {
	switch firstByte(data) {
	case '"':
		return json.Unmarshal(data, &m.All)
	case '{':
		return json.Unmarshal(data, &m.ByExtension)
	case 'n':
		return nil
	}
	return fmt.Errorf("asset_media_type must be a string or a map of strings, got %s", data)
}

func (m MediaTypes) MarshalJSON() ([]byte, error) {
	if m.ByExtension != nil {
		return json.Marshal(m.ByExtension)
	}
	return json.Marshal(m.All)
}

// TargetGroups are the indices of the regex groups holding the datetime (one or several)
type TargetGroups []int

func (t *TargetGroups) UnmarshalJSON(data []byte) error {
	switch firstByte(data) {
	case '[':
		var groups []int
		if err := json.Unmarshal(data, &groups); err != nil {
			return err
		}
		*t = groups
		return nil
	default:
		var group int
		if err := json.Unmarshal(data, &group); err != nil {
			return fmt.Errorf("target_group must be an integer or a list of integers, got %s", data)
		}
		*t = TargetGroups{group}
		return nil
	}
}

// DatetimeRegex extracts a datetime from the groups of a regex applied to the file url
type DatetimeRegex struct {
	Regex       string       `json:"regex"`
	TargetGroup TargetGroups `json:"target_group"`
}

func firstByte(data []byte) byte {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0
	}
	return data[0]
}
