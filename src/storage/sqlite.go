package storage

import (
	"database/sql"
	"fmt"
	"time"

	"product-filter/src/logger"
	"product-filter/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteStore struct {
	sqlStore
	Config *models.MConfig
}

// -----------------------------------------------------------------------------

func NewSQLiteStore(cfg *models.MConfig, log *logger.Logger) (*SQLiteStore, error) {
	return &SQLiteStore{
		sqlStore: sqlStore{
			Logger: log,
			table:  func(name string) string { return name },
			bind:   func(query string) string { return query },
			now:    time.Now,
		},
		Config: cfg,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) Initialize() error {
	dsn := d.Config.Storage.DBPath
	if dsn == "" {
		dsn = ":memory:"
	}

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if err := d.createTables(); err != nil {
		return err
	}
	d.Logger.Info("SQLite store initialized (%s)", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteStore) createTables() error {
	// SQLite types: INTEGER for int64 and unix millis, REAL for float64, TEXT for string
	tables := map[string]string{
		"products": `
			CREATE TABLE IF NOT EXISTS products (
				id TEXT,
				source TEXT,
				category TEXT,
				query TEXT,
				name TEXT,
				price INTEGER,
				image_url TEXT,
				product_url TEXT,
				is_valid BOOLEAN,
				validation_reason TEXT,
				confidence REAL,
				created_at INTEGER,
				updated_at INTEGER,
				PRIMARY KEY (source, id)
			);`,
		"price_history": `
			CREATE TABLE IF NOT EXISTS price_history (
				product_id TEXT,
				source TEXT,
				category TEXT,
				query TEXT,
				price REAL,
				recorded_at INTEGER
			);`,
		"market_stats": `
			CREATE TABLE IF NOT EXISTS market_stats (
				category TEXT,
				query TEXT,
				min REAL,
				max REAL,
				mean REAL,
				median REAL,
				iqr_low REAL,
				iqr_high REAL,
				source_count INTEGER,
				created_at INTEGER
			);`,
		"recommended_prices": `
			CREATE TABLE IF NOT EXISTS recommended_prices (
				category TEXT,
				query TEXT,
				price REAL,
				updated_at INTEGER,
				PRIMARY KEY (category, query)
			);`,
	}

	for _, name := range []string{"products", "price_history", "market_stats", "recommended_prices"} {
		if _, err := d.DB.Exec(tables[name]); err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
	}

	if _, err := d.DB.Exec("CREATE INDEX IF NOT EXISTS idx_price_history_query ON price_history (query, recorded_at)"); err != nil {
		return fmt.Errorf("failed to create price_history index: %w", err)
	}
	return nil
}
