// clip.go — Clip record as persisted to the remote object store (spec section 3, 6).
package model

// TabFilterType selects which tabs a clip request covers.
type TabFilterType string

const (
	TabFilterAll  TabFilterType = "all"
	TabFilterTabs TabFilterType = "tabs"
)

// TabFilter selects the tab set a clip is scoped to.
type TabFilter struct {
	Type TabFilterType `json:"type"`
	Tabs []int         `json:"tabs,omitempty"`
}

// Matches reports whether tabID is included by the filter.
func (f TabFilter) Matches(tabID int) bool {
	if f.Type == TabFilterAll || len(f.Tabs) == 0 {
		return true
	}
	for _, t := range f.Tabs {
		if t == tabID {
			return true
		}
	}
	return false
}

// ClipRecord is the row written to the remote store's clips table. Exactly
// one of HARData and StoragePath is non-null.
type ClipRecord struct {
	ClipName       string          `json:"clip_name,omitempty"`
	TimeRangeStart string          `json:"time_range_start"` // ISO 8601
	TimeRangeEnd   string          `json:"time_range_end"`   // ISO 8601
	DurationSec    float64         `json:"duration_seconds"`
	TabFilter      TabFilter       `json:"tab_filter"`
	EntryCount     int             `json:"entry_count"`
	TotalSizeBytes int64           `json:"total_size_bytes"`
	HARData        interface{}     `json:"har_data"`
	StoragePath    *string         `json:"storage_path"`
}
