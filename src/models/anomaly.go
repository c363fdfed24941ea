package models

// Anomaly detector kinds.
const (
	AnomalyZScore        = "zscore"
	AnomalyIQR           = "iqr"
	AnomalyPercentageGap = "percentage_gap"
	AnomalyTooCheap      = "too_cheap"
)

// MPriceStatistics describes a price set. Mean and Median hold the robust
// (fence-filtered, trimmed) estimates; the remaining fields are raw.
type MPriceStatistics struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	IQR    float64 `json:"iqr"`
}

// MAnomaly explains why one listing price looks wrong.
type MAnomaly struct {
	ListingID  string  `json:"listing_id"`
	Price      int64   `json:"price"`
	Kind       string  `json:"kind"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// MAnomalyReport is the outcome of anomaly detection for one model group.
type MAnomalyReport struct {
	Anomalies  []MAnomaly       `json:"anomalies"`
	Statistics MPriceStatistics `json:"statistics"`
}

// IsFlagged reports whether the listing id appears among the anomalies.
func (r MAnomalyReport) IsFlagged(id string) (MAnomaly, bool) {
	for _, a := range r.Anomalies {
		if a.ListingID == id {
			return a, true
		}
	}
	return MAnomaly{}, false
}
