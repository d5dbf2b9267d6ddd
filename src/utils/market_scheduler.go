package utils

import (
	"sync"
	"time"

	"yfinance-go/src/logger"
)

// MarketScheduler tracks the calendars of the polled symbols so the poller
// can idle while every market is closed.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []string, l *logger.Logger) *MarketScheduler {
	if l == nil {
		l = logger.NewLogger(nil, "MarketScheduler")
	}
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
	}
	ms.UpdateSymbols(symbols)
	return ms
}

// -----------------------------------------------------------------------------

// UpdateSymbols replaces the tracked symbols. Calendars are shared between
// symbols on the same exchange.
func (ms *MarketScheduler) UpdateSymbols(symbols []string) {
	byMIC := make(map[string]*TradingCalendar)
	calendars := make(map[string]*TradingCalendar, len(symbols))

	for _, symbol := range symbols {
		mic := MICForSymbol(symbol)
		cal, ok := byMIC[mic]
		if !ok {
			cal = GetCalendar(symbol)
			byMIC[mic] = cal
		}
		calendars[symbol] = cal
	}

	ms.mu.Lock()
	ms.Calendars = calendars
	ms.mu.Unlock()

	ms.Logger.Info("Mapped %d symbols to %d exchanges", len(symbols), len(byMIC))
}

// -----------------------------------------------------------------------------

// AnyMarketOpen reports whether any tracked exchange is open now.
func (ms *MarketScheduler) AnyMarketOpen() bool {
	return ms.AnyMarketOpenAt(time.Now().UTC())
}

// -----------------------------------------------------------------------------

func (ms *MarketScheduler) AnyMarketOpenAt(t time.Time) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	seen := make(map[*TradingCalendar]struct{}, len(ms.Calendars))
	for _, cal := range ms.Calendars {
		if _, ok := seen[cal]; ok {
			continue
		}
		seen[cal] = struct{}{}
		if cal.IsOpenOnMinute(t) {
			return true
		}
	}
	return false
}
