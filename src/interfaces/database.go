package interfaces

import (
	"context"
	"product-filter/src/models"
)

// -----------------------------------------------------------------------------
// IProductStore defines the contract for persistence operations.
// -----------------------------------------------------------------------------

type IProductStore interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// BatchUpsert stores the selected listings and, when given, the market
	// statistics of their query. Returns the number of rows written.
	BatchUpsert(ctx context.Context, listings []models.MListing, stats *models.MMarketStatistics) (int, error)

	// -----------------------------------------------------------------------------

	// GetPriceHistory returns up to limit most recent points for a query.
	GetPriceHistory(ctx context.Context, query string, limit int) ([]models.MPriceHistoryPoint, error)

	// -----------------------------------------------------------------------------

	// UpdateRecommendedPrice stores the baseline price for a query.
	UpdateRecommendedPrice(ctx context.Context, category, query string, price float64) error

	// -----------------------------------------------------------------------------

	// GetRecommendedPrice returns the stored baseline, ok=false if none.
	GetRecommendedPrice(ctx context.Context, category, query string) (float64, bool, error)

	// -----------------------------------------------------------------------------

	// GetQueryStats summarises stored listings per query of a category.
	GetQueryStats(ctx context.Context, category string) ([]models.MQueryStats, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
