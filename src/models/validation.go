package models

// Validation reasons shared by the rule engine and the classifier merge.
const (
	ReasonAccessory            = "accessory"
	ReasonCodeValidated        = "code-validated"
	ReasonInsufficientFeatures = "insufficient-features"
	ReasonTooShort             = "too-short-for-auto-validation"
	ReasonPriceAnomaly         = "price-anomaly"
	ReasonAIValidated          = "ai-validated"
	ReasonAIRejected           = "ai-rejected"
	ReasonUnknownCategory      = "unknown-category"
)

// MValidationResult is the verdict for one (query, listing name) pair.
type MValidationResult struct {
	IsValid    bool    `json:"is_valid"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// MClassifierItem is one entry of an escalation batch.
type MClassifierItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Query string `json:"query"`
}

// MClassifierVerdict is the external classifier answer for one item.
type MClassifierVerdict struct {
	ID      string `json:"id"`
	IsValid bool   `json:"isValid"`
	Reason  string `json:"reason"`
}
