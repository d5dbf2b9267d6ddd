package yahoo

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"yfinance-go/src/helpers"
	"yfinance-go/src/logger"
	"yfinance-go/src/models"
	"yfinance-go/src/utils"
)

const DefaultUpdateInterval = 300 // seconds

// YahooSource polls a set of datasets for a set of symbols. Every symbol
// gets its own Ticker, and therefore its own session, created on first use.
type YahooSource struct {
	Config          *models.MConfig
	Datasets        []Dataset
	Logger          *logger.Logger
	MarketScheduler *utils.MarketScheduler
	ErrorHandler    *helpers.ErrorHandler

	// TickerFactory builds the Ticker for a symbol. Tests swap it out.
	TickerFactory func(symbol string) (*Ticker, error)

	symbols atomic.Value // []string
	tickers *TickerCache

	lastDigests   map[string]uint64
	lastDigestsMu sync.Mutex

	cancelFunc context.CancelFunc
	ctx        context.Context
	outputChan chan<- models.MSnapshotBatch
	isRunning  atomic.Bool
	mu         sync.Mutex
}

// -----------------------------------------------------------------------------

func NewYahooSource(cfg *models.MConfig) (*YahooSource, error) {
	datasets := make([]Dataset, 0, len(cfg.Poller.Datasets))
	for _, name := range cfg.Poller.Datasets {
		d, ok := LookupDataset(name)
		if !ok {
			return nil, helpers.NewValidationError("unknown dataset %q", name)
		}
		datasets = append(datasets, d)
	}

	for _, symbol := range cfg.Poller.Symbols {
		if err := helpers.ValidateSymbol(symbol); err != nil {
			return nil, err
		}
	}

	s := &YahooSource{
		Config:          cfg,
		Datasets:        datasets,
		Logger:          logger.NewLogger(cfg, "YahooSource"),
		MarketScheduler: utils.NewMarketScheduler(cfg.Poller.Symbols, logger.NewLogger(cfg, "MarketScheduler")),
		ErrorHandler:    helpers.NewErrorHandler(),
		tickers:         NewTickerCache(0),
		lastDigests:     make(map[string]uint64),
	}
	s.TickerFactory = func(symbol string) (*Ticker, error) {
		return NewTickerFromConfig(symbol, cfg)
	}
	s.symbols.Store(append([]string(nil), cfg.Poller.Symbols...))
	return s, nil
}

// -----------------------------------------------------------------------------

func (s *YahooSource) Name() string {
	return "yahoo"
}

// -----------------------------------------------------------------------------

// FetchOnce runs one cycle and returns every snapshot it produced, changed or
// not.
func (s *YahooSource) FetchOnce(ctx context.Context) ([]models.MSnapshot, error) {
	batch, err := s.fetchCycle(ctx)
	return batch.Snapshots, err
}

// -----------------------------------------------------------------------------

// fetchCycle fetches all symbols concurrently, bounded by ConcurrentRequests.
// One goroutine walks all datasets of a symbol so a Ticker is never used from
// two goroutines at once.
func (s *YahooSource) fetchCycle(ctx context.Context) (models.MSnapshotBatch, error) {
	start := time.Now()
	symbols := s.getSymbols()
	batch := models.MSnapshotBatch{Source: s.Name()}

	if len(symbols) == 0 || len(s.Datasets) == 0 {
		return batch, nil
	}

	limit := s.Config.Poller.ConcurrentRequests
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
		firstErr error
	)

	for _, symbol := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			snaps, failed, err := s.fetchSymbol(ctx, sym)

			mu.Lock()
			defer mu.Unlock()
			batch.Snapshots = append(batch.Snapshots, snaps...)
			failures += failed
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}(symbol)
	}
	wg.Wait()

	batch.Metrics = models.MPollMetrics{
		FetchTimeSeconds: time.Since(start).Seconds(),
		SnapshotsSaved:   len(batch.Snapshots),
		FailedFetches:    failures,
	}
	s.Logger.Info("Fetched %d snapshots for %d symbols (%d failed)", len(batch.Snapshots), len(symbols), failures)

	if len(batch.Snapshots) == 0 && firstErr != nil {
		return batch, fmt.Errorf("all fetches failed: %w", firstErr)
	}
	if err := ctx.Err(); err != nil {
		return batch, err
	}
	return batch, nil
}

// -----------------------------------------------------------------------------

func (s *YahooSource) fetchSymbol(ctx context.Context, symbol string) ([]models.MSnapshot, int, error) {
	ticker, err := s.tickers.Get(symbol, s.TickerFactory)
	if err != nil {
		return nil, len(s.Datasets), err
	}
	defer func() {
		if s.tickers.Release(ticker) {
			s.Logger.Warning("Session for %s failed to authenticate, a new one is built next cycle", symbol)
		}
	}()

	var (
		snaps    []models.MSnapshot
		failed   int
		firstErr error
	)
	for _, d := range s.Datasets {
		if ctx.Err() != nil {
			return snaps, failed, ctx.Err()
		}

		node, err := d.Fetch(ctx, ticker)
		if err != nil {
			s.Logger.Warning("Error fetching %s for %s [%s]: %v", d.Name, symbol, helpers.Kind(err), err)
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		data, err := node.MarshalJSON()
		if err != nil {
			failed++
			continue
		}
		snaps = append(snaps, models.MSnapshot{
			Symbol:    symbol,
			Dataset:   d.Name,
			Data:      data,
			FetchedAt: time.Now().UTC().Unix(),
		})
	}
	return snaps, failed, firstErr
}

// -----------------------------------------------------------------------------

// Start begins the polling loop
func (s *YahooSource) Start(parentCtx context.Context, outputChan chan<- models.MSnapshotBatch, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning.Load() {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel
	s.ctx = ctx
	s.outputChan = outputChan
	s.isRunning.Store(true)

	wg.Add(1)
	go s.runLoop(ctx, wg)
	s.Logger.Info("Started YahooSource for %d symbols", len(s.getSymbols()))
	return nil
}

// -----------------------------------------------------------------------------

// Stop signals the run loop to exit
func (s *YahooSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.Load() {
		return fmt.Errorf("source %s is not running", s.Name())
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning.Store(false)
	s.Logger.Info("Stopped YahooSource")
	return nil
}

// -----------------------------------------------------------------------------

func (s *YahooSource) push(batch models.MSnapshotBatch) error {
	if s.outputChan == nil {
		return fmt.Errorf("output channel is nil")
	}

	select {
	case s.outputChan <- batch:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// -----------------------------------------------------------------------------

func (s *YahooSource) runLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer s.isRunning.Store(false)

	interval := s.Config.Poller.UpdateIntervalSeconds
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for {
		if !s.cycle(ctx) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// -----------------------------------------------------------------------------

// cycle runs one poll and pushes what changed. Returns false once the loop
// should stop.
func (s *YahooSource) cycle(ctx context.Context) bool {
	if s.Config.Poller.RespectMarketHours && !s.MarketScheduler.AnyMarketOpen() {
		s.Logger.Info("All markets are closed. Skipping cycle")
		return true
	}

	batch, err := s.fetchCycle(ctx)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		if s.ErrorHandler.Handle(err, "poll cycle") {
			s.Logger.Error("%d consecutive poll cycles failed", s.ErrorHandler.ErrorCount)
			s.ErrorHandler.ResetErrorCount()
		}
		return true
	}
	s.ErrorHandler.Handle(nil, "poll cycle")

	batch.Snapshots = s.changedOnly(batch.Snapshots)
	if len(batch.Snapshots) == 0 {
		return true
	}
	return s.push(batch) == nil
}

// -----------------------------------------------------------------------------

// changedOnly drops snapshots whose payload matches the last one pushed for
// the same symbol and dataset.
func (s *YahooSource) changedOnly(snaps []models.MSnapshot) []models.MSnapshot {
	s.lastDigestsMu.Lock()
	defer s.lastDigestsMu.Unlock()

	out := snaps[:0]
	for _, snap := range snaps {
		h := fnv.New64a()
		_, _ = h.Write(snap.Data)
		digest := h.Sum64()

		key := snap.Symbol + "/" + snap.Dataset
		if last, ok := s.lastDigests[key]; ok && last == digest {
			continue
		}
		s.lastDigests[key] = digest
		out = append(out, snap)
	}
	return out
}

// -----------------------------------------------------------------------------

func (s *YahooSource) UpdateSymbols(symbols []string) error {
	for _, symbol := range symbols {
		if err := helpers.ValidateSymbol(symbol); err != nil {
			return err
		}
	}

	s.symbols.Store(append([]string(nil), symbols...))
	s.MarketScheduler.UpdateSymbols(symbols)

	s.tickers.Retain(symbols)

	s.Logger.Info("Updated symbol list. New count: %d", len(symbols))
	return nil
}

// -----------------------------------------------------------------------------

func (s *YahooSource) getSymbols() []string {
	return s.symbols.Load().([]string)
}
