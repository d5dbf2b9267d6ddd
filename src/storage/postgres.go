package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"yfinance-go/src/logger"
	"yfinance-go/src/models"
)

// -----------------------------------------------------------------------------

type PostgresStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresStore keeps each binary in its own schema, named after the
// executable.
func NewPostgresStore(cfg *models.MConfig, log *logger.Logger) (*PostgresStore, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresStore{
		Config: cfg,
		Schema: schemaName(name),
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

// schemaName strips characters that would break the quoted identifier.
func schemaName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 {
			return -1
		}
		return r
	}, name)
	if name == "" {
		return "yfinance"
	}
	return name
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}
	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."snapshots" (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			dataset TEXT NOT NULL,
			data JSONB NOT NULL,
			fetched_at BIGINT NOT NULL
		)
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create snapshots: %w", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_snapshots_key ON "%s"."snapshots" (symbol, dataset, fetched_at)`, d.Schema)
	if _, err := d.DB.Exec(index); err != nil {
		return fmt.Errorf("failed to create snapshots index: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) SaveSnapshots(snapshots []models.MSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."snapshots" (symbol, dataset, data, fetched_at)
		VALUES ($1, $2, $3, $4)
	`, d.Schema)
	stmt, err := tx.Prepare(query)
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

func (d *PostgresStore) LatestSnapshot(symbol, dataset string) (models.MSnapshot, bool, error) {
	query := fmt.Sprintf(`
		SELECT data::text, fetched_at FROM "%s"."snapshots"
		WHERE symbol = $1 AND dataset = $2
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`, d.Schema)
	return scanSnapshot(d.DB.QueryRow(query, symbol, dataset), symbol, dataset)
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) CleanupOldData(retention time.Duration) error {
	if retention <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-retention).Unix()

	d.Logger.Info("Cleaning up snapshots older than %s (fetched_at < %d)...", retention, cutoff)
	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."snapshots" WHERE fetched_at < $1`, d.Schema), cutoff); err != nil {
		d.Logger.Error("Cleanup snapshots error: %v", err)
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
