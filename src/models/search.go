package models

import "time"

// MSearchRequest is the pipeline entry point input.
type MSearchRequest struct {
	Queries  []string `json:"queries"`
	Category string   `json:"category"`
	Limit    int      `json:"limit,omitempty"`
}

// MSearchResponse is what the pipeline returns for a valid request.
type MSearchResponse struct {
	Listings         []MListing `json:"listings"`
	TotalQueries     int        `json:"total_queries"`
	TotalListings    int        `json:"total_listings"`
	ProcessingTimeMs int64      `json:"processing_time_ms"`
}

// MFetchReport records per query, per source fetch outcomes.
type MFetchReport struct {
	Counts   map[string]map[string]int `json:"counts"`
	Failures map[string][]string       `json:"failures"`
}

// MQueryStats is the stored summary for one tracked query.
type MQueryStats struct {
	Category         string         `json:"category"`
	Query            string         `json:"query"`
	ListingsBySource map[string]int `json:"listings_by_source"`
	MinPrice         int64          `json:"min_price"`
	MaxPrice         int64          `json:"max_price"`
	RecommendedPrice float64        `json:"recommended_price"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
