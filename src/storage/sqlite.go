package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"yfinance-go/src/logger"
	"yfinance-go/src/models"
)

// -----------------------------------------------------------------------------

type SQLiteStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteStore(cfg *models.MConfig, log *logger.Logger) *SQLiteStore {
	return &SQLiteStore{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Initialize() error {
	dsn := d.Config.Storage.DBPath
	if dsn == "" {
		return fmt.Errorf("sqlite: db_path is empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	// A pool would hand out fresh, empty connections for ":memory:".
	db.SetMaxOpenConns(1)
	d.DB = db

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if err := d.createTables(); err != nil {
		return err
	}
	d.Logger.Info("SQLite store ready at %s", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS snapshots (
			symbol TEXT NOT NULL,
			dataset TEXT NOT NULL,
			data TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		)
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create snapshots: %w", err)
	}

	index := `CREATE INDEX IF NOT EXISTS idx_snapshots_key ON snapshots (symbol, dataset, fetched_at)`
	if _, err := d.DB.Exec(index); err != nil {
		return fmt.Errorf("failed to create snapshots index: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) SaveSnapshots(snapshots []models.MSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO snapshots (symbol, dataset, data, fetched_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range snapshots {
		if _, err := stmt.Exec(s.Symbol, s.Dataset, snapshotData(s), s.FetchedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) LatestSnapshot(symbol, dataset string) (models.MSnapshot, bool, error) {
	row := d.DB.QueryRow(`
		SELECT data, fetched_at FROM snapshots
		WHERE symbol = ? AND dataset = ?
		ORDER BY fetched_at DESC, rowid DESC
		LIMIT 1
	`, symbol, dataset)
	return scanSnapshot(row, symbol, dataset)
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) CleanupOldData(retention time.Duration) error {
	if retention <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-retention).Unix()

	res, err := d.DB.Exec("DELETE FROM snapshots WHERE fetched_at < ?", cutoff)
	if err != nil {
		d.Logger.Error("Cleanup snapshots error: %v", err)
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		d.Logger.Info("Removed %d snapshots older than %d", n, cutoff)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
