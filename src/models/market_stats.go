package models

// MMarketStatistics summarises the valid listings of one query in one run.
type MMarketStatistics struct {
	Min         float64    `json:"min"`
	Max         float64    `json:"max"`
	Mean        float64    `json:"mean"`
	Median      float64    `json:"median"`
	IQR         [2]float64 `json:"iqr"`
	SourceCount int        `json:"source_count"`
	QueryText   string     `json:"query_text"`
	Category    string     `json:"category"`
}
