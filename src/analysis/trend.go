package analysis

import (
	"context"
	"math"
	"sort"
	"time"

	"product-filter/src/analysis/core"
	"product-filter/src/interfaces"
	"product-filter/src/logger"
	"product-filter/src/models"
)

const (
	DefaultTrendWindowDays = 30

	minHistoryPoints  = 5
	minWindowPoints   = 3
	stableThresholdPc = 2.0

	adaptMinConfidence  = 0.5
	updateMinConfidence = 0.7
	updateMinChangePc   = 5.0
	updateMinPoints     = 10

	baseTolerance = 0.30
	minTolerance  = 0.15
	maxTolerance  = 0.60
)

// -----------------------------------------------------------------------------

// TrendAnalyzer fits price trends over persisted history and adapts the
// recommended price of a query.
type TrendAnalyzer struct {
	store  interfaces.IProductStore
	now    func() time.Time
	Logger *logger.Logger

	// WindowDays is the history window used when adapting prices.
	WindowDays int
}

func NewTrendAnalyzer(store interfaces.IProductStore, log *logger.Logger) *TrendAnalyzer {
	return &TrendAnalyzer{store: store, now: time.Now, Logger: log, WindowDays: DefaultTrendWindowDays}
}

// -----------------------------------------------------------------------------

func neutralTrend(confidence float64, volatility float64, points int) models.MTrendResult {
	return models.MTrendResult{
		Direction:  models.TrendStable,
		Percentage: 0,
		Confidence: confidence,
		Volatility: volatility,
		DataPoints: points,
	}
}

// -----------------------------------------------------------------------------

// AnalyzeTrend regresses the windowed price history of a query. Missing or
// sparse history gives a stable, low-confidence result rather than an error.
func (t *TrendAnalyzer) AnalyzeTrend(ctx context.Context, query string, windowDays int) models.MTrendResult {
	if windowDays <= 0 {
		windowDays = DefaultTrendWindowDays
	}

	history, err := t.store.GetPriceHistory(ctx, query, windowDays*2)
	if err != nil {
		t.Logger.Error("Trend analysis for %q failed: %v", query, err)
		return neutralTrend(0.1, 0, 0)
	}

	points := make([]models.MPriceHistoryPoint, 0, len(history))
	for _, p := range history {
		if p.Price != nil {
			points = append(points, p)
		}
	}
	if len(points) < minHistoryPoints {
		t.Logger.Warning("Not enough history for %q: %d points", query, len(points))
		return neutralTrend(0.1, 0, len(points))
	}

	cutoff := t.now().AddDate(0, 0, -windowDays)
	var recent []models.MPriceHistoryPoint
	for _, p := range points {
		if !p.Timestamp.Before(cutoff) {
			recent = append(recent, p)
		}
	}
	sort.Slice(recent, func(i, j int) bool { return recent[i].Timestamp.Before(recent[j].Timestamp) })

	prices := make([]float64, len(recent))
	for i, p := range recent {
		prices[i] = *p.Price
	}
	_, volatility := core.CalculateMeanStd(prices)

	if len(recent) < minWindowPoints {
		t.Logger.Warning("Not enough recent history for %q: %d points", query, len(recent))
		return neutralTrend(0.2, volatility, len(recent))
	}

	slope, intercept, r2 := core.LinearRegression(prices)
	start := intercept
	end := slope*float64(len(prices)-1) + intercept
	change := core.CalculateChangePercent(end, start)

	direction := models.TrendStable
	switch {
	case math.Abs(change) < stableThresholdPc:
	case change > 0:
		direction = models.TrendUp
	default:
		direction = models.TrendDown
	}

	result := models.MTrendResult{
		Direction:  direction,
		Percentage: math.Abs(change),
		Confidence: r2,
		Volatility: volatility,
		DataPoints: len(recent),
	}
	t.Logger.Info("Trend for %q: %s %.2f%% (confidence %.2f)", query, result.Direction, result.Percentage, result.Confidence)
	return result
}

// -----------------------------------------------------------------------------

// AdaptRecommendedPrice shifts basePrice along a confident trend and derives
// the tolerance band used to judge listing prices.
func (t *TrendAnalyzer) AdaptRecommendedPrice(ctx context.Context, query string, basePrice float64, category string) models.MPriceAdaptation {
	trend := t.AnalyzeTrend(ctx, query, t.WindowDays)

	adapted := AdaptedPrice(basePrice, trend)
	result := models.MPriceAdaptation{
		MTrendResult:     trend,
		OriginalPrice:    basePrice,
		AdaptedPrice:     adapted,
		DynamicTolerance: DynamicTolerance(trend),
		ShouldUpdate:     ShouldUpdate(trend, basePrice, adapted),
	}
	t.Logger.Info("Adapted price for %q (%s): %.0f -> %.0f, update=%v", query, category, basePrice, adapted, result.ShouldUpdate)
	return result
}

// -----------------------------------------------------------------------------

// AdaptedPrice returns basePrice unchanged below the confidence floor.
func AdaptedPrice(basePrice float64, trend models.MTrendResult) float64 {
	if trend.Confidence < adaptMinConfidence {
		return basePrice
	}
	adjustment := basePrice * trend.Percentage / 100
	switch trend.Direction {
	case models.TrendUp:
		return basePrice + adjustment
	case models.TrendDown:
		return basePrice - adjustment
	}
	return basePrice
}

// DynamicTolerance widens with volatility and uncertainty, narrows for a
// confident stable trend.
func DynamicTolerance(trend models.MTrendResult) float64 {
	tol := baseTolerance + math.Min(trend.Volatility/10000, 0.20)
	if trend.Confidence < 0.7 {
		tol += 0.10
	}
	if trend.Direction == models.TrendStable && trend.Confidence > 0.8 {
		tol -= 0.05
	}
	return math.Max(minTolerance, math.Min(maxTolerance, tol))
}

// ShouldUpdate requires a confident trend, a change above 5% and enough data.
func ShouldUpdate(trend models.MTrendResult, basePrice, adapted float64) bool {
	if basePrice == 0 {
		return false
	}
	change := math.Abs(core.CalculateChangePercent(adapted, basePrice))
	return trend.Confidence > updateMinConfidence && change > updateMinChangePc && trend.DataPoints > updateMinPoints
}
