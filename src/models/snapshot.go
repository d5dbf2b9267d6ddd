package models

import "encoding/json"

// MSnapshot is one dataset fetched for one symbol at a point in time.
// Data is the extracted payload; "null" when the field was absent upstream.
type MSnapshot struct {
	Symbol    string          `json:"symbol"`
	Dataset   string          `json:"dataset"`
	Data      json.RawMessage `json:"data"`
	FetchedAt int64           `json:"fetched_at"`
}

// IsEmpty reports whether the upstream field was missing when fetched
func (s MSnapshot) IsEmpty() bool {
	return len(s.Data) == 0 || string(s.Data) == "null"
}

// MSnapshotBatch is what a source emits after one polling cycle.
type MSnapshotBatch struct {
	Source    string       `json:"source"`
	Snapshots []MSnapshot  `json:"snapshots"`
	Metrics   MPollMetrics `json:"metrics"`
}
