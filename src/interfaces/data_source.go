package interfaces

import (
	"context"
	"sync"

	"yfinance-go/src/models"
)

// -----------------------------------------------------------------------------
// IDataSource periodically fetches datasets and pushes the snapshots out.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchOnce runs a single cycle over every symbol and dataset.
	FetchOnce(ctx context.Context) ([]models.MSnapshot, error)

	// -----------------------------------------------------------------------------

	// UpdateSymbols updates the list of symbols being monitored
	UpdateSymbols(symbols []string) error

	// -----------------------------------------------------------------------------

	// Start begins the data fetching process
	// ctx: controls the lifecycle (cancellation stops the source)
	// outputChan: channel to push data to
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, outputChan chan<- models.MSnapshotBatch, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop terminates the data fetching process
	Stop() error
}
