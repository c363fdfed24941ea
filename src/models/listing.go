package models

import "time"

// MRawListing is a search-result item as returned by a marketplace client.
type MRawListing struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	ImageURL   string `json:"image_url"`
	ProductURL string `json:"product_url"`
	Category   string `json:"category"`
}

// -----------------------------------------------------------------------------

// MListing represents one marketplace listing flowing through a pipeline run.
// Fetch fields are fixed once the aggregator tags them; verdict and anomaly
// annotations are applied to copies.
type MListing struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Price      int64     `json:"price"`
	ImageURL   string    `json:"image_url"`
	ProductURL string    `json:"product_url"`
	Source     string    `json:"source"`
	Category   string    `json:"category"`
	Query      string    `json:"query"`
	CreatedAt  time.Time `json:"created_at"`

	IsValid          bool    `json:"is_valid"`
	ValidationReason string  `json:"validation_reason,omitempty"`
	Confidence       float64 `json:"confidence"`
	FlaggedAnomalous bool    `json:"flagged_anomalous,omitempty"`
	AnomalyReason    string  `json:"anomaly_reason,omitempty"`

	// Set by the caller before validation to force escalation.
	EscalationHint bool `json:"-"`

	IsNew           bool    `json:"is_new,omitempty"`
	DiscountPercent float64 `json:"discount_percent,omitempty"`
	PreviousPrice   int64   `json:"previous_price,omitempty"`
}

// -----------------------------------------------------------------------------

// WithVerdict returns a copy of the listing carrying the validation result.
func (l MListing) WithVerdict(v MValidationResult) MListing {
	l.IsValid = v.IsValid
	l.ValidationReason = v.Reason
	l.Confidence = v.Confidence
	return l
}

// -----------------------------------------------------------------------------

// WithAnomaly returns a copy of the listing flagged as a price outlier.
func (l MListing) WithAnomaly(reason string) MListing {
	l.FlaggedAnomalous = true
	l.AnomalyReason = reason
	return l
}

// -----------------------------------------------------------------------------

// ClearAnomaly returns a copy with anomaly flags removed.
func (l MListing) ClearAnomaly() MListing {
	l.FlaggedAnomalous = false
	l.AnomalyReason = ""
	return l
}

// -----------------------------------------------------------------------------

// MModelGroup holds the listings sharing one model key within a run.
type MModelGroup struct {
	Key      string
	Listings []MListing
}
