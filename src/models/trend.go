package models

import "time"

// Trend directions.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// MPriceHistoryPoint is one persisted price observation. Price is nil when
// the store recorded no price for the timestamp.
type MPriceHistoryPoint struct {
	Price     *float64  `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// MTrendResult is the regression summary for a query's price history.
type MTrendResult struct {
	Direction  string  `json:"direction"`
	Percentage float64 `json:"percentage"`
	Confidence float64 `json:"confidence"`
	Volatility float64 `json:"volatility"`
	DataPoints int     `json:"data_points"`
}

// MPriceAdaptation is a trend result applied to a recommended price.
type MPriceAdaptation struct {
	MTrendResult
	OriginalPrice    float64 `json:"original_price"`
	AdaptedPrice     float64 `json:"adapted_price"`
	DynamicTolerance float64 `json:"dynamic_tolerance"`
	ShouldUpdate     bool    `json:"should_update"`
}

// MPriceUpdateResult records one run of the recommended-price job for a query.
type MPriceUpdateResult struct {
	Category string `json:"category"`
	Query    string `json:"query"`
	Applied  bool   `json:"applied"`
	MPriceAdaptation
}
