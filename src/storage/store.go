package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"product-filter/src/helpers"
	"product-filter/src/logger"
	"product-filter/src/models"
)

// sqlStore holds the queries shared by the SQLite and Postgres stores.
// Queries are written with "?" placeholders and rebound per dialect.
type sqlStore struct {
	DB     *sql.DB
	Logger *logger.Logger

	table func(name string) string
	bind  func(query string) string
	now   func() time.Time
}

// -----------------------------------------------------------------------------

// rebindDollar rewrites "?" placeholders to "$1", "$2", ...
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) q(format string, tables ...string) string {
	args := make([]interface{}, len(tables))
	for i, t := range tables {
		args[i] = s.table(t)
	}
	return s.bind(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// BatchUpsert inserts unseen listings and updates those whose price moved.
// Every listing appends a price_history point, so stable prices still build
// history. Only inserted and updated listings are counted.
func (s *sqlStore) BatchUpsert(ctx context.Context, listings []models.MListing, stats *models.MMarketStatistics) (int, error) {
	if len(listings) == 0 && stats == nil {
		return 0, nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, helpers.NewDatabaseError("begin batch upsert", err)
	}
	defer tx.Rollback()

	now := s.now().UTC().UnixMilli()
	written := 0

	selectPrice := s.q(`SELECT price FROM %s WHERE source = ? AND id = ?`, "products")
	insert := s.q(`
		INSERT INTO %s (id, source, category, query, name, price, image_url, product_url, is_valid, validation_reason, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, "products")
	update := s.q(`
		UPDATE %s SET name = ?, price = ?, image_url = ?, product_url = ?, validation_reason = ?, confidence = ?, updated_at = ?
		WHERE source = ? AND id = ?
	`, "products")
	history := s.q(`INSERT INTO %s (product_id, source, category, query, price, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`, "price_history")

	for _, l := range listings {
		var existing int64
		err := tx.QueryRowContext(ctx, selectPrice, l.Source, l.ID).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			created := l.CreatedAt.UTC().UnixMilli()
			if l.CreatedAt.IsZero() {
				created = now
			}
			if _, err := tx.ExecContext(ctx, insert, l.ID, l.Source, l.Category, l.Query, l.Name, l.Price,
				l.ImageURL, l.ProductURL, l.IsValid, l.ValidationReason, l.Confidence, created, now); err != nil {
				return 0, helpers.NewDatabaseError("insert listing "+l.ID, err)
			}
			written++
		case err != nil:
			return 0, helpers.NewDatabaseError("read listing "+l.ID, err)
		case existing != l.Price:
			if _, err := tx.ExecContext(ctx, update, l.Name, l.Price, l.ImageURL, l.ProductURL,
				l.ValidationReason, l.Confidence, now, l.Source, l.ID); err != nil {
				return 0, helpers.NewDatabaseError("update listing "+l.ID, err)
			}
			written++
		}

		if _, err := tx.ExecContext(ctx, history, l.ID, l.Source, l.Category, l.Query, float64(l.Price), now); err != nil {
			return 0, helpers.NewDatabaseError("append price history", err)
		}
	}

	if stats != nil {
		if _, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO %s (category, query, min, max, mean, median, iqr_low, iqr_high, source_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, "market_stats"), stats.Category, stats.QueryText, stats.Min, stats.Max, stats.Mean, stats.Median,
			stats.IQR[0], stats.IQR[1], stats.SourceCount, now); err != nil {
			return 0, helpers.NewDatabaseError("insert market stats", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, helpers.NewDatabaseError("commit batch upsert", err)
	}
	return written, nil
}

// -----------------------------------------------------------------------------

// GetPriceHistory returns the newest points first.
func (s *sqlStore) GetPriceHistory(ctx context.Context, query string, limit int) ([]models.MPriceHistoryPoint, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, s.q(`SELECT price, recorded_at FROM %s WHERE query = ? ORDER BY recorded_at DESC LIMIT ?`, "price_history"), query, limit)
	if err != nil {
		return nil, helpers.NewDatabaseError("query price history", err)
	}
	defer rows.Close()

	var points []models.MPriceHistoryPoint
	for rows.Next() {
		var (
			price sql.NullFloat64
			ts    int64
		)
		if err := rows.Scan(&price, &ts); err != nil {
			return nil, helpers.NewDatabaseError("scan price history", err)
		}
		p := models.MPriceHistoryPoint{Timestamp: time.UnixMilli(ts).UTC()}
		if price.Valid {
			v := price.Float64
			p.Price = &v
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate price history", err)
	}
	return points, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) UpdateRecommendedPrice(ctx context.Context, category, query string, price float64) error {
	_, err := s.DB.ExecContext(ctx, s.q(`
		INSERT INTO %s (category, query, price, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (category, query) DO UPDATE SET
			price = excluded.price,
			updated_at = excluded.updated_at
	`, "recommended_prices"), category, query, price, s.now().UTC().UnixMilli())
	if err != nil {
		return helpers.NewDatabaseError("update recommended price", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) GetRecommendedPrice(ctx context.Context, category, query string) (float64, bool, error) {
	var price float64
	err := s.DB.QueryRowContext(ctx, s.q(`SELECT price FROM %s WHERE category = ? AND query = ?`, "recommended_prices"), category, query).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, helpers.NewDatabaseError("read recommended price", err)
	}
	return price, true, nil
}

// -----------------------------------------------------------------------------

// GetQueryStats summarises stored listings per query, sorted by query.
func (s *sqlStore) GetQueryStats(ctx context.Context, category string) ([]models.MQueryStats, error) {
	rows, err := s.DB.QueryContext(ctx, s.q(`
		SELECT query, source, COUNT(*), MIN(price), MAX(price), MAX(updated_at)
		FROM %s WHERE category = ?
		GROUP BY query, source
	`, "products"), category)
	if err != nil {
		return nil, helpers.NewDatabaseError("query stats", err)
	}
	defer rows.Close()

	byQuery := make(map[string]*models.MQueryStats)
	for rows.Next() {
		var (
			query, source   string
			count           int
			minP, maxP, upd int64
		)
		if err := rows.Scan(&query, &source, &count, &minP, &maxP, &upd); err != nil {
			return nil, helpers.NewDatabaseError("scan query stats", err)
		}
		st, ok := byQuery[query]
		if !ok {
			st = &models.MQueryStats{Category: category, Query: query, ListingsBySource: map[string]int{}, MinPrice: minP, MaxPrice: maxP}
			byQuery[query] = st
		}
		st.ListingsBySource[source] = count
		if minP < st.MinPrice {
			st.MinPrice = minP
		}
		if maxP > st.MaxPrice {
			st.MaxPrice = maxP
		}
		if t := time.UnixMilli(upd).UTC(); t.After(st.UpdatedAt) {
			st.UpdatedAt = t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate query stats", err)
	}
	rows.Close()

	for query, st := range byQuery {
		price, ok, err := s.GetRecommendedPrice(ctx, category, query)
		if err != nil {
			return nil, err
		}
		if ok {
			st.RecommendedPrice = price
		}
	}

	out := make([]models.MQueryStats, 0, len(byQuery))
	for _, st := range byQuery {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Query < out[j].Query })
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
