package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"product-filter/src/analysis/core"
	"product-filter/src/logger"
	"product-filter/src/models"
)

const (
	defaultIQRMultiplier = 1.5
	robustTrim           = 0.1
	minPricedListings    = 2
	suspicionFlagLevel   = 0.6
	partsSuspicion       = 0.2
)

var defaultThresholds = models.MAnomalyThresholds{
	MinPercentageDiff:  0.3,
	MaxSuspiciousPrice: 1000,
	ZScoreThreshold:    2.0,
	IQRMultiplier:      defaultIQRMultiplier,
	BasePrice:          5000,
}

// Hand-tuned per category; entries from the YAML anomaly section take
// precedence field by field.
var categoryThresholds = map[string]models.MAnomalyThresholds{
	"videocards":      {MinPercentageDiff: 0.4, MaxSuspiciousPrice: 5000, ZScoreThreshold: 2.5, BasePrice: 15000},
	"processors":      {MinPercentageDiff: 0.35, MaxSuspiciousPrice: 3000, ZScoreThreshold: 2.0, BasePrice: 8000},
	"motherboards":    {MinPercentageDiff: 0.3, MaxSuspiciousPrice: 2000, ZScoreThreshold: 2.0, BasePrice: 5000},
	"playstation":     {MinPercentageDiff: 0.25, MaxSuspiciousPrice: 10000, ZScoreThreshold: 1.8, BasePrice: 40000},
	"nintendo_switch": {MinPercentageDiff: 0.25, MaxSuspiciousPrice: 8000, ZScoreThreshold: 1.8, BasePrice: 25000},
}

// Words explaining a low price honestly: parts, repair, used goods.
var partsWords = []string{
	"запчасть", "деталь", "ремонт", "б/у", "поломанный", "нерабочий",
	"for parts", "broken", "repair", "spare", "used",
}

// -----------------------------------------------------------------------------

// AnomalyDetector flags listing prices that do not fit their model group.
type AnomalyDetector struct {
	thresholds map[string]models.MAnomalyThresholds
	Logger     *logger.Logger
}

// NewAnomalyDetector merges configured thresholds over the built-in table.
func NewAnomalyDetector(cfg models.MAnomalyConfig, log *logger.Logger) *AnomalyDetector {
	merged := make(map[string]models.MAnomalyThresholds, len(categoryThresholds)+len(cfg.Categories))
	for k, v := range categoryThresholds {
		merged[k] = v
	}
	for k, override := range cfg.Categories {
		merged[k] = overlay(merged[k], override)
	}
	return &AnomalyDetector{thresholds: merged, Logger: log}
}

func overlay(base, o models.MAnomalyThresholds) models.MAnomalyThresholds {
	if o.MinPercentageDiff > 0 {
		base.MinPercentageDiff = o.MinPercentageDiff
	}
	if o.MaxSuspiciousPrice > 0 {
		base.MaxSuspiciousPrice = o.MaxSuspiciousPrice
	}
	if o.ZScoreThreshold > 0 {
		base.ZScoreThreshold = o.ZScoreThreshold
	}
	if o.IQRMultiplier > 0 {
		base.IQRMultiplier = o.IQRMultiplier
	}
	if o.BasePrice > 0 {
		base.BasePrice = o.BasePrice
	}
	return base
}

// -----------------------------------------------------------------------------

// Thresholds returns the effective settings for a category.
func (d *AnomalyDetector) Thresholds(category string) models.MAnomalyThresholds {
	t, ok := d.thresholds[category]
	if !ok {
		return defaultThresholds
	}
	return overlay(defaultThresholds, t)
}

// -----------------------------------------------------------------------------

// DetectAnomalies runs the z-score, IQR, percentage-gap and too-cheap
// detectors over one model group. Fewer than two positively priced listings
// yield an empty report.
func (d *AnomalyDetector) DetectAnomalies(listings []models.MListing, category string) models.MAnomalyReport {
	priced := make([]models.MListing, 0, len(listings))
	prices := make([]float64, 0, len(listings))
	for _, l := range listings {
		if l.Price > 0 {
			priced = append(priced, l)
			prices = append(prices, float64(l.Price))
		}
	}
	if len(priced) < minPricedListings {
		return models.MAnomalyReport{Anomalies: []models.MAnomaly{}}
	}

	th := d.Thresholds(category)
	stats := ComputePriceStatistics(prices, th.IQRMultiplier)

	var found []models.MAnomaly
	found = append(found, d.zScoreAnomalies(priced, stats, th)...)
	found = append(found, d.iqrAnomalies(priced, stats, th)...)
	found = append(found, d.percentageGapAnomalies(priced, th)...)
	found = append(found, d.tooCheapAnomalies(priced, th, category)...)

	anomalies := dedupeByConfidence(found)

	if d.Logger != nil {
		d.Logger.Debug("Category %s: %d listings, %d anomalies, robust mean %.0f, robust median %.0f, IQR [%.0f, %.0f]",
			category, len(listings), len(anomalies), stats.Mean, stats.Median, stats.Q1, stats.Q3)
	}

	return models.MAnomalyReport{Anomalies: anomalies, Statistics: stats}
}

// -----------------------------------------------------------------------------

// ComputePriceStatistics returns raw min/max/std/quartiles plus the robust
// mean and median computed over the IQR-fenced subset.
func ComputePriceStatistics(prices []float64, k float64) models.MPriceStatistics {
	if len(prices) == 0 {
		return models.MPriceStatistics{}
	}
	if k <= 0 {
		k = defaultIQRMultiplier
	}

	sorted := core.Sorted(prices)
	_, std := core.CalculateMeanStd(prices)
	q1, q3 := core.Quartiles(sorted)

	fenced := core.FilterIQR(prices, q1, q3, k)
	robustMean := core.TrimmedMean(fenced, robustTrim)
	robustMedian := core.Median(fenced)

	return models.MPriceStatistics{
		Count:  len(prices),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   robustMean,
		Median: robustMedian,
		StdDev: std,
		Q1:     q1,
		Q3:     q3,
		IQR:    q3 - q1,
	}
}

// -----------------------------------------------------------------------------

func (d *AnomalyDetector) zScoreAnomalies(listings []models.MListing, s models.MPriceStatistics, th models.MAnomalyThresholds) []models.MAnomaly {
	var out []models.MAnomaly
	for _, l := range listings {
		z := math.Abs(core.CalculateZScore(float64(l.Price), s.Mean, s.StdDev))
		if z <= th.ZScoreThreshold {
			continue
		}
		out = append(out, models.MAnomaly{
			ListingID:  l.ID,
			Price:      l.Price,
			Kind:       models.AnomalyZScore,
			Reason:     fmt.Sprintf("z-score %.2f exceeds %.2f", z, th.ZScoreThreshold),
			Confidence: math.Min(0.95, z/th.ZScoreThreshold*0.7),
		})
	}
	return out
}

func (d *AnomalyDetector) iqrAnomalies(listings []models.MListing, s models.MPriceStatistics, th models.MAnomalyThresholds) []models.MAnomaly {
	lower := s.Q1 - th.IQRMultiplier*s.IQR
	upper := s.Q3 + th.IQRMultiplier*s.IQR

	var out []models.MAnomaly
	for _, l := range listings {
		p := float64(l.Price)
		var dist float64
		var side string
		switch {
		case p < lower:
			dist, side = lower-p, "below"
		case p > upper:
			dist, side = p-upper, "above"
		default:
			continue
		}
		conf := 0.9
		if s.IQR > 0 {
			conf = math.Min(0.9, dist/s.IQR*0.5)
		}
		out = append(out, models.MAnomaly{
			ListingID:  l.ID,
			Price:      l.Price,
			Kind:       models.AnomalyIQR,
			Reason:     fmt.Sprintf("price %s IQR fence [%.0f, %.0f]", side, lower, upper),
			Confidence: conf,
		})
	}
	return out
}

func (d *AnomalyDetector) percentageGapAnomalies(listings []models.MListing, th models.MAnomalyThresholds) []models.MAnomaly {
	sorted := make([]models.MListing, len(listings))
	copy(sorted, listings)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	cheapest, second := sorted[0], sorted[1]
	if second.Price <= 0 {
		return nil
	}
	diff := float64(second.Price-cheapest.Price) / float64(second.Price)
	if diff <= th.MinPercentageDiff {
		return nil
	}
	return []models.MAnomaly{{
		ListingID:  cheapest.ID,
		Price:      cheapest.Price,
		Kind:       models.AnomalyPercentageGap,
		Reason:     fmt.Sprintf("%.1f%% cheaper than next listing (%d)", diff*100, second.Price),
		Confidence: math.Min(0.9, diff*1.5),
	}}
}

func (d *AnomalyDetector) tooCheapAnomalies(listings []models.MListing, th models.MAnomalyThresholds, category string) []models.MAnomaly {
	var out []models.MAnomaly
	for _, l := range listings {
		if float64(l.Price) >= th.MaxSuspiciousPrice {
			continue
		}
		level := SuspicionLevel(l.Name, float64(l.Price), th.BasePrice)
		if level <= suspicionFlagLevel {
			continue
		}
		out = append(out, models.MAnomaly{
			ListingID:  l.ID,
			Price:      l.Price,
			Kind:       models.AnomalyTooCheap,
			Reason:     fmt.Sprintf("suspiciously low price for %s: %d", category, l.Price),
			Confidence: level,
		})
	}
	return out
}

// -----------------------------------------------------------------------------

// SuspicionLevel scores how implausible a low price is relative to the
// category base price. Names admitting parts or damage score low.
func SuspicionLevel(name string, price, basePrice float64) float64 {
	lower := strings.ToLower(name)
	for _, w := range partsWords {
		if strings.Contains(lower, w) {
			return partsSuspicion
		}
	}
	if basePrice <= 0 {
		return 0
	}
	ratio := price / basePrice
	switch {
	case ratio < 0.1:
		return 0.8
	case ratio < 0.2:
		return 0.6
	case ratio < 0.3:
		return 0.4
	}
	return 0
}

// -----------------------------------------------------------------------------

// dedupeByConfidence keeps the most confident explanation per listing and
// orders the result by descending confidence.
func dedupeByConfidence(found []models.MAnomaly) []models.MAnomaly {
	best := make(map[string]int, len(found))
	out := make([]models.MAnomaly, 0, len(found))
	for _, a := range found {
		if i, ok := best[a.ListingID]; ok {
			if a.Confidence > out[i].Confidence {
				out[i] = a
			}
			continue
		}
		best[a.ListingID] = len(out)
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}
