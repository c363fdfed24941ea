// Package pipeline wires fetch, validation, grouping and the output stages
// into one search run.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"product-filter/src/analysis"
	"product-filter/src/grouping"
	"product-filter/src/helpers"
	"product-filter/src/interfaces"
	"product-filter/src/logger"
	"product-filter/src/metrics"
	"product-filter/src/models"
	"product-filter/src/normalizer"
	"product-filter/src/validation"
)

const (
	defaultResultLimit = 1000
	defaultMaxPrice    = 1000000

	// Anomalies at least this confident send their listing to the classifier.
	hintConfidence = 0.8
)

// Fetcher is the aggregator side of a run.
type Fetcher interface {
	FetchAllWithReport(ctx context.Context, queries []string, category string) ([]models.MListing, models.MFetchReport)
}

// Dependencies groups what an Orchestrator needs. Store, Cache and Exchanger
// are optional.
type Dependencies struct {
	Fetcher    Fetcher
	Engine     *validation.Engine
	Registry   *validation.Registry
	Detector   *analysis.AnomalyDetector
	Grouper    *grouping.Grouper
	Normalizer *normalizer.Normalizer
	Store      interfaces.IProductStore
	Cache      interfaces.IPriceCache
	Exchanger  interfaces.IDataExchanger
	Metrics    *metrics.Registry
	Settings   models.MPipelineConfig
	Logger     *logger.Logger
}

// Orchestrator runs the search pipeline for one category at a time.
type Orchestrator struct {
	deps Dependencies
	now  func() time.Time
}

// -----------------------------------------------------------------------------

func NewOrchestrator(deps Dependencies) *Orchestrator {
	if deps.Normalizer == nil {
		deps.Normalizer = normalizer.NewNormalizer()
	}
	if deps.Settings.MaxPrice <= 0 {
		deps.Settings.MaxPrice = defaultMaxPrice
	}
	if deps.Settings.ResultLimit <= 0 {
		deps.Settings.ResultLimit = defaultResultLimit
	}
	return &Orchestrator{deps: deps, now: time.Now}
}

// -----------------------------------------------------------------------------

// Search fetches, validates and groups listings for the requested queries
// and returns one listing per model, cheapest first.
func (o *Orchestrator) Search(ctx context.Context, req models.MSearchRequest) (*models.MSearchResponse, error) {
	start := o.now()
	log := o.deps.Logger

	queries := o.cleanQueries(req.Queries)
	if len(queries) == 0 {
		return nil, helpers.NewClientError("queries must not be empty")
	}
	category := strings.TrimSpace(req.Category)
	if _, ok := o.deps.Registry.Lookup(category); !ok {
		return nil, helpers.NewClientError(fmt.Sprintf("unknown category %q", req.Category))
	}

	log.Info("Search %s: %d queries", category, len(queries))
	run := models.MProcessingMetrics{}

	// 1. Fetch
	fetched, report := o.deps.Fetcher.FetchAllWithReport(ctx, queries, category)
	for query, failed := range report.Failures {
		log.Warning("Query %q: no data from %s", query, strings.Join(failed, ", "))
	}
	run.Fetched = len(fetched)

	// 2. Price bounds
	bounded := o.withinBounds(fetched)

	// 3. Validation
	hinted := o.hintAnomalies(bounded, category)
	outcome, err := o.deps.Engine.Validate(ctx, hinted, category)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", category, err)
	}
	run.Escalated = outcome.Escalated

	var valid []models.MListing
	for i, l := range hinted {
		l.EscalationHint = false
		annotated := l.WithVerdict(outcome.Results[i])
		if annotated.IsValid {
			valid = append(valid, annotated)
		}
	}
	run.Validated = len(valid)

	// 4. Statistics per query
	stats := o.statistics(valid, queries, category)

	// 5. Grouping
	selected := o.deps.Grouper.GroupAndSelect(valid, o.deps.Normalizer.ListingKey, category)
	run.Selected = len(selected)

	// 6. Persistence
	o.persist(ctx, selected, stats)

	// 7. Price cache
	final := selected
	if o.deps.Cache != nil {
		filtered, err := o.deps.Cache.FilterChanged(ctx, selected)
		if err != nil {
			log.Warning("Price cache unavailable: %v", err)
		}
		final = filtered
	}
	run.Suppressed = len(selected) - len(final)

	// 8. Response shaping
	sort.SliceStable(final, func(i, j int) bool { return final[i].Price < final[j].Price })
	limit := o.deps.Settings.ResultLimit
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}
	if len(final) > limit {
		final = final[:limit]
	}
	if final == nil {
		final = []models.MListing{}
	}

	took := o.now().Sub(start)
	run.ProcessingTimeMs = took.Milliseconds()
	o.deps.Metrics.ObserveSearch(category, took)

	if o.deps.Exchanger != nil {
		o.deps.Exchanger.Broadcast(&models.MPipelineEvent{
			Type:              "UPDATE",
			Category:          category,
			Listings:          final,
			Statistics:        stats,
			Timestamp:         o.now().UnixMilli(),
			ProcessingMetrics: run,
		})
	}

	log.Info("Search %s done in %dms: fetched %d, valid %d, escalated %d, selected %d, returned %d",
		category, run.ProcessingTimeMs, run.Fetched, run.Validated, run.Escalated, run.Selected, len(final))

	return &models.MSearchResponse{
		Listings:         final,
		TotalQueries:     len(queries),
		TotalListings:    len(final),
		ProcessingTimeMs: run.ProcessingTimeMs,
	}, nil
}

// -----------------------------------------------------------------------------

// cleanQueries trims queries and drops blanks and spelling variants of a
// query already seen. The first spelling is kept.
func (o *Orchestrator) cleanQueries(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, q := range in {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := o.deps.Normalizer.NormalizeQuery(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}
	return out
}

// -----------------------------------------------------------------------------

func (o *Orchestrator) withinBounds(listings []models.MListing) []models.MListing {
	minPrice, maxPrice := o.deps.Settings.MinPrice, o.deps.Settings.MaxPrice
	out := make([]models.MListing, 0, len(listings))
	for _, l := range listings {
		if l.Price <= 0 || l.Price < minPrice || l.Price > maxPrice {
			continue
		}
		out = append(out, l)
	}
	if dropped := len(listings) - len(out); dropped > 0 {
		o.deps.Logger.Debug("Dropped %d listings outside price bounds [%d, %d]", dropped, minPrice, maxPrice)
	}
	return out
}

// -----------------------------------------------------------------------------

// hintAnomalies marks listings whose price is a confident outlier within
// their query so the engine escalates them even when the rules pass.
func (o *Orchestrator) hintAnomalies(listings []models.MListing, category string) []models.MListing {
	out := make([]models.MListing, len(listings))
	copy(out, listings)
	if o.deps.Detector == nil {
		return out
	}

	byQuery := make(map[string][]models.MListing)
	for _, l := range out {
		byQuery[l.Query] = append(byQuery[l.Query], l)
	}
	suspicious := make(map[string]bool)
	for _, group := range byQuery {
		report := o.deps.Detector.DetectAnomalies(group, category)
		for _, a := range report.Anomalies {
			if a.Confidence >= hintConfidence {
				suspicious[a.ListingID] = true
			}
		}
	}
	for i := range out {
		if suspicious[out[i].ID] {
			out[i].EscalationHint = true
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func (o *Orchestrator) statistics(valid []models.MListing, queries []string, category string) map[string]models.MMarketStatistics {
	byQuery := make(map[string][]models.MListing)
	for _, l := range valid {
		byQuery[l.Query] = append(byQuery[l.Query], l)
	}
	stats := make(map[string]models.MMarketStatistics)
	for _, q := range queries {
		if s, ok := analysis.ComputeMarketStatistics(byQuery[q], q, category); ok {
			stats[q] = s
		}
	}
	return stats
}

// -----------------------------------------------------------------------------

// persist stores selected listings per query. Store failures are logged and
// do not fail the search.
func (o *Orchestrator) persist(ctx context.Context, selected []models.MListing, stats map[string]models.MMarketStatistics) {
	if o.deps.Store == nil {
		return
	}
	byQuery := make(map[string][]models.MListing)
	var order []string
	for _, l := range selected {
		if _, ok := byQuery[l.Query]; !ok {
			order = append(order, l.Query)
		}
		byQuery[l.Query] = append(byQuery[l.Query], l)
	}
	for _, q := range order {
		var st *models.MMarketStatistics
		if s, ok := stats[q]; ok {
			st = &s
		}
		n, err := o.deps.Store.BatchUpsert(ctx, byQuery[q], st)
		if err != nil {
			o.deps.Logger.Error("Failed to persist %q: %v", q, err)
			continue
		}
		o.deps.Logger.Debug("Persisted %d changed listings for %q", n, q)
		if st != nil {
			o.seedRecommendedPrice(ctx, st)
		}
	}
}

// seedRecommendedPrice gives a query its first recommended price, the median
// of the run. The price updater moves it from there.
func (o *Orchestrator) seedRecommendedPrice(ctx context.Context, st *models.MMarketStatistics) {
	if st.Median <= 0 {
		return
	}
	_, ok, err := o.deps.Store.GetRecommendedPrice(ctx, st.Category, st.QueryText)
	if err != nil {
		o.deps.Logger.Error("Reading recommended price of %q failed: %v", st.QueryText, err)
		return
	}
	if ok {
		return
	}
	if err := o.deps.Store.UpdateRecommendedPrice(ctx, st.Category, st.QueryText, st.Median); err != nil {
		o.deps.Logger.Error("Seeding recommended price of %q failed: %v", st.QueryText, err)
		return
	}
	o.deps.Logger.Info("Recommended price of %q seeded at %.0f", st.QueryText, st.Median)
}
