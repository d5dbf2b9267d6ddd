package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"yfinance-go/src/interfaces"
	"yfinance-go/src/logger"
	"yfinance-go/src/models"
)

// NewStore picks the snapshot store named by cfg.Storage.DBType. The store
// is returned uninitialized.
func NewStore(cfg *models.MConfig, log *logger.Logger) (interfaces.ISnapshotStore, error) {
	switch strings.ToLower(cfg.Storage.DBType) {
	case "", "none":
		return NoopStore{}, nil
	case "sqlite":
		return NewSQLiteStore(cfg, log), nil
	case "postgres", "postgresql":
		return NewPostgresStore(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage db_type %q", cfg.Storage.DBType)
	}
}

// -----------------------------------------------------------------------------

// Retention converts the configured retention days. Zero keeps everything.
func Retention(cfg *models.MConfig) time.Duration {
	if cfg.Storage.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(cfg.Storage.RetentionDays) * 24 * time.Hour
}

// -----------------------------------------------------------------------------

// NoopStore discards everything. Used when persistence is disabled.
type NoopStore struct{}

func (NoopStore) Initialize() error { return nil }

func (NoopStore) SaveSnapshots(_ []models.MSnapshot) error { return nil }

func (NoopStore) CleanupOldData(_ time.Duration) error { return nil }

func (NoopStore) Close() error { return nil }

func (NoopStore) LatestSnapshot(_, _ string) (models.MSnapshot, bool, error) {
	return models.MSnapshot{}, false, nil
}

// -----------------------------------------------------------------------------

func snapshotData(s models.MSnapshot) string {
	if len(s.Data) == 0 {
		return "null"
	}
	return string(s.Data)
}

// -----------------------------------------------------------------------------

func scanSnapshot(row *sql.Row, symbol, dataset string) (models.MSnapshot, bool, error) {
	var (
		data      string
		fetchedAt int64
	)
	if err := row.Scan(&data, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MSnapshot{}, false, nil
		}
		return models.MSnapshot{}, false, err
	}
	return models.MSnapshot{
		Symbol:    symbol,
		Dataset:   dataset,
		Data:      []byte(data),
		FetchedAt: fetchedAt,
	}, true, nil
}
