package yahoo

import (
	"sync"
	"time"

	"yfinance-go/src/session"
)

// TickerCache keeps one Ticker, and so one session, per symbol. A session
// whose handshake failed stays failed, so Release drops its Ticker and the
// next Get builds a fresh one.
type TickerCache struct {
	// MaxSize bounds the cache; the least recently used entry goes first.
	// Zero means unbounded.
	MaxSize int

	entries map[string]*cachedTicker
	mu      sync.Mutex
}

type cachedTicker struct {
	ticker   *Ticker
	lastUsed time.Time
}

// -----------------------------------------------------------------------------

func NewTickerCache(maxSize int) *TickerCache {
	return &TickerCache{
		MaxSize: maxSize,
		entries: make(map[string]*cachedTicker),
	}
}

// -----------------------------------------------------------------------------

// Get returns the cached Ticker for symbol or builds one with build.
func (c *TickerCache) Get(symbol string, build func(symbol string) (*Ticker, error)) (*Ticker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[symbol]; ok {
		e.lastUsed = time.Now()
		return e.ticker, nil
	}

	t, err := build(symbol)
	if err != nil {
		return nil, err
	}
	if c.MaxSize > 0 && len(c.entries) >= c.MaxSize {
		c.evictOldest()
	}
	c.entries[symbol] = &cachedTicker{ticker: t, lastUsed: time.Now()}
	return t, nil
}

// -----------------------------------------------------------------------------

func (c *TickerCache) evictOldest() {
	var (
		oldest string
		at     time.Time
	)
	for symbol, e := range c.entries {
		if oldest == "" || e.lastUsed.Before(at) {
			oldest, at = symbol, e.lastUsed
		}
	}
	delete(c.entries, oldest)
}

// -----------------------------------------------------------------------------

// Release is called once a caller is done with t. It drops t when its
// session ended in AuthenticationFailed and reports whether it did.
func (c *TickerCache) Release(t *Ticker) bool {
	if t == nil || t.Session.State() != session.AuthenticationFailed {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[t.Symbol]; ok && e.ticker == t {
		delete(c.entries, t.Symbol)
		return true
	}
	return false
}

// -----------------------------------------------------------------------------

// Retain drops every entry whose symbol is not in symbols.
func (c *TickerCache) Retain(symbols []string) {
	keep := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		keep[symbol] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for symbol := range c.entries {
		if _, ok := keep[symbol]; !ok {
			delete(c.entries, symbol)
		}
	}
}

// -----------------------------------------------------------------------------

func (c *TickerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
