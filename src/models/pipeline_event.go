package models

// -----------------------------------------------------------------------------
// Push Event Structure
// -----------------------------------------------------------------------------

type MPipelineEvent struct {
	Type              string                       `json:"type"` // "INITIAL" or "UPDATE"
	Category          string                       `json:"category"`
	Listings          []MListing                   `json:"listings"`
	Statistics        map[string]MMarketStatistics `json:"statistics"`
	Timestamp         int64                        `json:"timestamp"`
	ProcessingMetrics MProcessingMetrics           `json:"processing_metrics"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command    string   `json:"command"`
	Categories []string `json:"categories"`
}
