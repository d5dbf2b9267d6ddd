package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"yfinance-go/src/interfaces"
	"yfinance-go/src/logger"
	"yfinance-go/src/models"
)

const batchBufferSize = 16

// MultiSourceManager runs a set of IDataSource pollers and drains what they
// emit into the snapshot store and the data exchanger.
type MultiSourceManager struct {
	Sources   map[string]interfaces.IDataSource
	Store     interfaces.ISnapshotStore
	Exchanger interfaces.IDataExchanger // optional
	Retention time.Duration             // zero keeps everything
	Logger    *logger.Logger

	mu         sync.RWMutex
	batchChan  chan models.MSnapshotBatch
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         *sync.WaitGroup
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(sources []interfaces.IDataSource, store interfaces.ISnapshotStore, log *logger.Logger) *MultiSourceManager {
	m := &MultiSourceManager{
		Sources: make(map[string]interfaces.IDataSource),
		Store:   store,
		Logger:  log,
	}

	for _, s := range sources {
		m.Sources[s.Name()] = s
	}

	return m
}

// -----------------------------------------------------------------------------

// AddSource adds a new source and starts it if the manager is running
func (m *MultiSourceManager) AddSource(source interfaces.IDataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := source.Name()
	if _, exists := m.Sources[name]; exists {
		return fmt.Errorf("source %s already exists", name)
	}

	m.Sources[name] = source
	m.Logger.Info("Added source: %s", name)

	if m.ctx != nil {
		if err := source.Start(m.ctx, m.batchChan, m.wg); err != nil {
			return fmt.Errorf("failed to start source %s: %w", name, err)
		}
		m.Logger.Info("Started source: %s", name)
	}

	return nil
}

// -----------------------------------------------------------------------------

// RemoveSource stops and removes a source
func (m *MultiSourceManager) RemoveSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, exists := m.Sources[name]
	if !exists {
		return fmt.Errorf("source %s not found", name)
	}

	if m.ctx != nil {
		if err := source.Stop(); err != nil {
			m.Logger.Error("Error stopping source %s: %v", name, err)
		}
	}

	delete(m.Sources, name)
	m.Logger.Info("Removed source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// GetSource retrieves a source by name
func (m *MultiSourceManager) GetSource(name string) (interfaces.IDataSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source, exists := m.Sources[name]
	if !exists {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return source, nil
}

// -----------------------------------------------------------------------------

// GetAllSources returns every source, ordered by name
func (m *MultiSourceManager) GetAllSources() []interfaces.IDataSource {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]interfaces.IDataSource, 0, len(m.Sources))
	for _, s := range m.Sources {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// -----------------------------------------------------------------------------

// Start starts all sources and the loop that consumes their batches. wg is
// released once every source and the consumer have exited.
func (m *MultiSourceManager) Start(parentCtx context.Context, wg *sync.WaitGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		return fmt.Errorf("MultiSourceManager is already running")
	}

	ctx, cancel := context.WithCancel(parentCtx)
	m.ctx = ctx
	m.cancelFunc = cancel
	m.batchChan = make(chan models.MSnapshotBatch, batchBufferSize)
	m.wg = wg

	wg.Add(1)
	go m.consume(ctx, m.batchChan, wg)

	for _, src := range m.Sources {
		if err := src.Start(ctx, m.batchChan, wg); err != nil {
			m.Logger.Error("Failed to start source %s: %v", src.Name(), err)
			cancel()
			m.ctx = nil
			m.cancelFunc = nil
			return err
		}
	}

	m.Logger.Info("Started %d sources", len(m.Sources))
	return nil
}

// -----------------------------------------------------------------------------

// Stop stops all sources gracefully by cancelling the internal context
func (m *MultiSourceManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return nil
	}

	m.Logger.Info("Stopping MultiSourceManager...")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	m.cancelFunc = nil
	m.ctx = nil

	m.Logger.Info("MultiSourceManager Stopped.")
	return nil
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) consume(ctx context.Context, batches <-chan models.MSnapshotBatch, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-batches:
			m.Process(batch)
		}
	}
}

// -----------------------------------------------------------------------------

// Process persists a batch, hands it to the exchanger and prunes old rows.
func (m *MultiSourceManager) Process(batch models.MSnapshotBatch) {
	m.Logger.Info("Received %d snapshots from %s", len(batch.Snapshots), batch.Source)

	if err := m.Store.SaveSnapshots(batch.Snapshots); err != nil {
		m.Logger.Error("Failed to save snapshots from %s: %v", batch.Source, err)
	}

	if m.Exchanger != nil {
		update := LatestData("UPDATE", batch.Snapshots, batch.Metrics)
		m.Exchanger.UpdateAllDatas(update)
		m.Exchanger.Broadcast(update)
	}

	if err := m.Store.CleanupOldData(m.Retention); err != nil {
		m.Logger.Error("Cleanup failed: %v", err)
	}
}

// -----------------------------------------------------------------------------

// LatestData indexes snapshots by symbol then dataset. Later entries win.
func LatestData(kind string, snaps []models.MSnapshot, metrics models.MPollMetrics) *models.MLatestData {
	out := &models.MLatestData{
		Type:      kind,
		Snapshots: make(map[string]map[string]models.MSnapshot),
		Timestamp: time.Now().UTC().Unix(),
		Metrics:   metrics,
	}
	for _, s := range snaps {
		if out.Snapshots[s.Symbol] == nil {
			out.Snapshots[s.Symbol] = make(map[string]models.MSnapshot)
		}
		out.Snapshots[s.Symbol][s.Dataset] = s
	}
	return out
}

// -----------------------------------------------------------------------------

// Name returns "MultiSourceManager"
func (m *MultiSourceManager) Name() string {
	return "MultiSourceManager"
}

// -----------------------------------------------------------------------------

// FetchOnce fans out a single cycle to all sources, then processes the merged
// result like a polled batch. A failing source does not fail the others.
func (m *MultiSourceManager) FetchOnce(ctx context.Context) ([]models.MSnapshot, error) {
	var (
		results  []models.MSnapshot
		mu       sync.Mutex
		wg       sync.WaitGroup
		failures int
	)

	sources := m.GetAllSources()
	start := time.Now()

	for _, src := range sources {
		wg.Add(1)
		go func(s interfaces.IDataSource) {
			defer wg.Done()
			data, err := s.FetchOnce(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				m.Logger.Error("Source %s failed fetch: %v", s.Name(), err)
				failures++
			}
			results = append(results, data...)
		}(src)
	}
	wg.Wait()

	if len(sources) > 0 && failures == len(sources) && len(results) == 0 {
		return nil, fmt.Errorf("all %d sources failed", failures)
	}

	m.Process(models.MSnapshotBatch{
		Source:    m.Name(),
		Snapshots: results,
		Metrics: models.MPollMetrics{
			FetchTimeSeconds: time.Since(start).Seconds(),
			SnapshotsSaved:   len(results),
			FailedFetches:    failures,
		},
	})
	return results, nil
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) UpdateSymbols(symbols []string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, src := range m.Sources {
		if err := src.UpdateSymbols(symbols); err != nil {
			m.Logger.Error("Failed to update symbols for source %s: %v", src.Name(), err)
			return err
		}
	}
	return nil
}
