package interfaces

import (
	"context"

	"yfinance-go/src/extract"
	"yfinance-go/src/models"
)

// -----------------------------------------------------------------------------
// ITransport is one HTTP backend round trip. Implementations report network
// failures as errors and hand back every response, whatever its status.
// -----------------------------------------------------------------------------

type ITransport interface {

	// -----------------------------------------------------------------------------

	// Do performs req and returns the status, decoded body and cookies seen.
	Do(ctx context.Context, req *models.MRequest) (*models.MResponse, error)

	// -----------------------------------------------------------------------------

	// CloseIdleConnections releases pooled connections.
	CloseIdleConnections()
}

// -----------------------------------------------------------------------------
// INetworkClient defines the contract for retry-wrapped requests that also
// accumulate cookies.
// -----------------------------------------------------------------------------

type INetworkClient interface {

	// -----------------------------------------------------------------------------

	// GetText performs a GET and returns the raw body.
	GetText(ctx context.Context, url string, headers, params map[string]string) (string, error)

	// -----------------------------------------------------------------------------

	// GetJSON performs a GET and parses the body as JSON.
	GetJSON(ctx context.Context, url string, headers, params map[string]string) (extract.Node, error)

	// -----------------------------------------------------------------------------

	// PostJSON posts body and parses the response as JSON.
	PostJSON(ctx context.Context, url string, body string, headers map[string]string) (extract.Node, error)

	// -----------------------------------------------------------------------------

	// Cookies returns the accumulated "name=value; name=value" cookie string.
	Cookies() string
}
