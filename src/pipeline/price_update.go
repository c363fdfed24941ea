package pipeline

import (
	"context"

	"product-filter/src/analysis"
	"product-filter/src/interfaces"
	"product-filter/src/logger"
	"product-filter/src/metrics"
	"product-filter/src/models"
)

// QueryLister enumerates the tracked queries per category.
type QueryLister interface {
	Categories() []string
	TrackedQueries(category string) []string
}

// PriceUpdater moves stored recommended prices along confident trends.
type PriceUpdater struct {
	store   interfaces.IProductStore
	trend   *analysis.TrendAnalyzer
	queries QueryLister
	metrics *metrics.Registry
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPriceUpdater(store interfaces.IProductStore, trend *analysis.TrendAnalyzer, queries QueryLister, m *metrics.Registry, log *logger.Logger) *PriceUpdater {
	return &PriceUpdater{store: store, trend: trend, queries: queries, metrics: m, Logger: log}
}

// -----------------------------------------------------------------------------

// RunOnce updates every category. Per-query failures are logged and skipped.
func (p *PriceUpdater) RunOnce(ctx context.Context) []models.MPriceUpdateResult {
	var all []models.MPriceUpdateResult
	for _, category := range p.queries.Categories() {
		all = append(all, p.UpdateCategory(ctx, category)...)
	}
	applied := 0
	for _, r := range all {
		if r.Applied {
			applied++
		}
	}
	p.Logger.Info("Price update finished: %d queries checked, %d updated", len(all), applied)
	return all
}

// -----------------------------------------------------------------------------

// UpdateCategory adapts the recommended price of each tracked query that has
// one stored.
func (p *PriceUpdater) UpdateCategory(ctx context.Context, category string) []models.MPriceUpdateResult {
	var results []models.MPriceUpdateResult
	for _, query := range p.queries.TrackedQueries(category) {
		if ctx.Err() != nil {
			break
		}
		base, ok, err := p.store.GetRecommendedPrice(ctx, category, query)
		if err != nil {
			p.Logger.Error("Reading recommended price of %q failed: %v", query, err)
			continue
		}
		if !ok || base <= 0 {
			continue
		}

		adaptation := p.trend.AdaptRecommendedPrice(ctx, query, base, category)
		result := models.MPriceUpdateResult{Category: category, Query: query, MPriceAdaptation: adaptation}

		if adaptation.ShouldUpdate {
			if err := p.store.UpdateRecommendedPrice(ctx, category, query, adaptation.AdaptedPrice); err != nil {
				p.Logger.Error("Updating recommended price of %q failed: %v", query, err)
			} else {
				result.Applied = true
				p.metrics.ObservePriceUpdate(category)
				p.Logger.Info("Recommended price of %q: %.0f -> %.0f", query, base, adaptation.AdaptedPrice)
			}
		}
		results = append(results, result)
	}
	return results
}
