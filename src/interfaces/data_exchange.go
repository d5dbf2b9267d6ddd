package interfaces

import "yfinance-go/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for sharing data with external systems (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes a poll result to live listeners.
	Broadcast(update *models.MLatestData)

	// -----------------------------------------------------------------------------
	// UpdateAllDatas merges into the internal state without broadcasting
	UpdateAllDatas(update *models.MLatestData)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
