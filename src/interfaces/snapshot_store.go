package interfaces

import (
	"time"

	"yfinance-go/src/models"
)

// -----------------------------------------------------------------------------
// ISnapshotStore defines the contract for storing fetched datasets.
// -----------------------------------------------------------------------------

type ISnapshotStore interface {

	// -----------------------------------------------------------------------------

	// Initialize opens the connection and creates the schema.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveSnapshots inserts a batch of snapshots.
	SaveSnapshots(snapshots []models.MSnapshot) error

	// -----------------------------------------------------------------------------

	// LatestSnapshot returns the newest snapshot for symbol/dataset, if any.
	LatestSnapshot(symbol, dataset string) (models.MSnapshot, bool, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes snapshots older than retention.
	CleanupOldData(retention time.Duration) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
