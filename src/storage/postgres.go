package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"product-filter/src/logger"
	"product-filter/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresStore struct {
	sqlStore
	Config *models.MConfig
	Schema string
}

// -----------------------------------------------------------------------------

func NewPostgresStore(cfg *models.MConfig, log *logger.Logger) (*PostgresStore, error) {
	// Schema is named after the executable
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return newPostgresStore(cfg, name, log), nil
}

func newPostgresStore(cfg *models.MConfig, schema string, log *logger.Logger) *PostgresStore {
	return &PostgresStore{
		sqlStore: sqlStore{
			Logger: log,
			table:  func(name string) string { return qualify(schema, name) },
			bind:   rebindDollar,
			now:    time.Now,
		},
		Config: cfg,
		Schema: schema,
	}
}

func qualify(schema, table string) string {
	return fmt.Sprintf(`"%s"."%s"`, strings.ReplaceAll(schema, `"`, ""), table)
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// Create Schema
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
	ddl := []struct{ name, query string }{
		{"products", `
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT,
				source TEXT,
				category TEXT,
				query TEXT,
				name TEXT,
				price BIGINT,
				image_url TEXT,
				product_url TEXT,
				is_valid BOOLEAN,
				validation_reason TEXT,
				confidence DOUBLE PRECISION,
				created_at BIGINT,
				updated_at BIGINT,
				PRIMARY KEY (source, id)
			);`},
		{"price_history", `
			CREATE TABLE IF NOT EXISTS %s (
				product_id TEXT,
				source TEXT,
				category TEXT,
				query TEXT,
				price DOUBLE PRECISION,
				recorded_at BIGINT
			);`},
		{"market_stats", `
			CREATE TABLE IF NOT EXISTS %s (
				category TEXT,
				query TEXT,
				min DOUBLE PRECISION,
				max DOUBLE PRECISION,
				mean DOUBLE PRECISION,
				median DOUBLE PRECISION,
				iqr_low DOUBLE PRECISION,
				iqr_high DOUBLE PRECISION,
				source_count INTEGER,
				created_at BIGINT
			);`},
		{"recommended_prices", `
			CREATE TABLE IF NOT EXISTS %s (
				category TEXT,
				query TEXT,
				price DOUBLE PRECISION,
				updated_at BIGINT,
				PRIMARY KEY (category, query)
			);`},
	}

	for _, t := range ddl {
		if _, err := d.DB.Exec(fmt.Sprintf(t.query, d.table(t.name))); err != nil {
			return fmt.Errorf("failed to create %s: %w", t.name, err)
		}
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_price_history_query ON %s (query, recorded_at)`, d.table("price_history"))
	if _, err := d.DB.Exec(index); err != nil {
		return fmt.Errorf("failed to create price_history index: %w", err)
	}
	return nil
}
