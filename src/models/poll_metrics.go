package models

// MPollMetrics describes the outcome of one poller cycle.
type MPollMetrics struct {
	FetchTimeSeconds float64 `json:"fetch_time_seconds"`
	SnapshotsSaved   int     `json:"snapshots_saved"`
	FailedFetches    int     `json:"failed_fetches"`
}
