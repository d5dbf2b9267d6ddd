package models

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

type MLatestData struct {
	Type      string                          `json:"type"` // "INITIAL" or "UPDATE"
	Snapshots map[string]map[string]MSnapshot `json:"snapshots"` // symbol -> dataset -> snapshot
	Timestamp int64                           `json:"timestamp"`
	Metrics   MPollMetrics                    `json:"metrics"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command  string   `json:"command"`
	Symbols  []string `json:"symbols"`
	Datasets []string `json:"datasets"`
}
