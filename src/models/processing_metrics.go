package models

// MProcessingMetrics represents the counters of one pipeline run.
type MProcessingMetrics struct {
	ProcessingTimeMs int64 `json:"processing_time_ms"`
	Fetched          int   `json:"fetched"`
	Validated        int   `json:"validated"`
	Escalated        int   `json:"escalated"`
	Selected         int   `json:"selected"`
	Suppressed       int   `json:"suppressed"`
}
