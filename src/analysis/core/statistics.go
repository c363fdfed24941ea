package core

import (
	"math"
	"sort"
)

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	// Calculate mean
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	if len(data) == 1 {
		return mean, 0
	}

	// Calculate standard deviation with N denominator (population std)
	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	std := math.Sqrt(varianceSum / float64(len(data)))
	return mean, std
}

// -----------------------------------------------------------------------------

// CalculateZScore calculates Z-Score (Standard Score).
func CalculateZScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0.0
	}
	return (value - mean) / std
}

// -----------------------------------------------------------------------------

// Sorted returns an ascending copy of data.
func Sorted(data []float64) []float64 {
	out := make([]float64, len(data))
	copy(out, data)
	sort.Float64s(out)
	return out
}

// -----------------------------------------------------------------------------

// Quartiles returns nearest-rank q1 and q3 of an ascending slice:
// sorted[floor(n*0.25)] and sorted[floor(n*0.75)].
func Quartiles(sorted []float64) (float64, float64) {
	n := len(sorted)
	if n == 0 {
		return 0, 0
	}
	return sorted[int(math.Floor(float64(n)*0.25))], sorted[int(math.Floor(float64(n)*0.75))]
}

// -----------------------------------------------------------------------------

// Median of data; the mean of the two middle values for even lengths.
func Median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	s := Sorted(data)
	mid := n / 2
	if n%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}

// -----------------------------------------------------------------------------

// TrimmedMean drops floor(n*trim) values from each end before averaging.
// When trimming leaves nothing the median is returned.
func TrimmedMean(data []float64, trim float64) float64 {
	if len(data) == 0 {
		return 0
	}
	s := Sorted(data)
	cut := int(math.Floor(float64(len(s)) * trim))
	kept := s[cut : len(s)-cut]
	if len(kept) == 0 {
		return Median(s)
	}
	mean, _ := CalculateMeanStd(kept)
	return mean
}

// -----------------------------------------------------------------------------

// FilterIQR keeps values inside [q1 - k*iqr, q3 + k*iqr].
func FilterIQR(data []float64, q1, q3, k float64) []float64 {
	iqr := q3 - q1
	lower, upper := q1-k*iqr, q3+k*iqr
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if v >= lower && v <= upper {
			out = append(out, v)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// LinearRegression fits y against its index 0..n-1 with ordinary least
// squares. r2 is the coefficient of determination clamped to [0, 1]; a flat
// series is a perfect fit.
func LinearRegression(y []float64) (slope, intercept, r2 float64) {
	n := len(y)
	if n == 0 {
		return 0, 0, 0
	}
	if n == 1 {
		return 0, y[0], 0
	}

	sumX, sumY, sumXY, sumXX := 0.0, 0.0, 0.0, 0.0
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	fn := float64(n)
	slope = (fn*sumXY - sumX*sumY) / (fn*sumXX - sumX*sumX)
	intercept = (sumY - slope*sumX) / fn

	meanY := sumY / fn
	ssRes, ssTot := 0.0, 0.0
	for i, v := range y {
		fit := intercept + slope*float64(i)
		ssRes += (v - fit) * (v - fit)
		ssTot += (v - meanY) * (v - meanY)
	}
	if ssTot == 0 {
		return slope, intercept, 1
	}
	r2 = math.Max(0, math.Min(1, 1-ssRes/ssTot))
	return slope, intercept, r2
}
