package core

import "math"

// -----------------------------------------------------------------------------

// PriceRange returns the lowest and highest price.
func PriceRange(prices []float64) (float64, float64) {
	if len(prices) == 0 {
		return 0, 0
	}

	low := math.MaxFloat64
	high := -math.MaxFloat64
	for _, p := range prices {
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
	}
	return low, high
}

// -----------------------------------------------------------------------------

// CalculateChangePercent calculates percentage change.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous * 100
}

// -----------------------------------------------------------------------------

// Round2 rounds to two decimals for reporting.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
