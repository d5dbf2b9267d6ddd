package network

import (
	"net/http"
	"sync"
	"time"

	"yfinance-go/src/interfaces"
)

var (
	initOnce sync.Once
	shared   *http.Transport

	registryMu sync.Mutex
	registry   []interfaces.ITransport
)

// Initialize prepares the process-wide transport template. Calling it again
// does nothing.
func Initialize() {
	initOnce.Do(func() {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.MaxIdleConns = 100
		t.MaxIdleConnsPerHost = 10
		t.IdleConnTimeout = 90 * time.Second
		shared = t
	})
}

// -----------------------------------------------------------------------------

// Cleanup drops idle connections held by every backend built so far.
func Cleanup() {
	registryMu.Lock()
	transports := registry
	registry = nil
	registryMu.Unlock()

	for _, t := range transports {
		t.CloseIdleConnections()
	}
	if shared != nil {
		shared.CloseIdleConnections()
	}
}

// -----------------------------------------------------------------------------

func baseTransport() *http.Transport {
	Initialize()
	return shared
}

func register(t interfaces.ITransport) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, t)
}
