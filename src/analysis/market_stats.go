package analysis

import (
	"product-filter/src/analysis/core"
	"product-filter/src/models"
)

// -----------------------------------------------------------------------------

// ComputeMarketStatistics summarises the priced listings of one query. Mean
// and median are plain (not robust) so min <= q1 <= median <= q3 <= max holds
// on the same set. Returns ok=false when nothing is priced.
func ComputeMarketStatistics(listings []models.MListing, query, category string) (models.MMarketStatistics, bool) {
	prices := make([]float64, 0, len(listings))
	sources := make(map[string]struct{})
	for _, l := range listings {
		if l.Price <= 0 {
			continue
		}
		prices = append(prices, float64(l.Price))
		sources[l.Source] = struct{}{}
	}
	if len(prices) == 0 {
		return models.MMarketStatistics{QueryText: query, Category: category}, false
	}

	sorted := core.Sorted(prices)
	mean, _ := core.CalculateMeanStd(prices)
	q1, q3 := core.Quartiles(sorted)
	low, high := core.PriceRange(prices)

	return models.MMarketStatistics{
		Min:         low,
		Max:         high,
		Mean:        core.Round2(mean),
		Median:      core.Median(sorted),
		IQR:         [2]float64{q1, q3},
		SourceCount: len(sources),
		QueryText:   query,
		Category:    category,
	}, true
}
