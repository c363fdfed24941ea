package models

// MCategoryConfig describes one product category and its tracked queries.
type MCategoryConfig struct {
	Key         string            `yaml:"key" json:"key"`
	DisplayName string            `yaml:"display_name" json:"display_name"`
	PlatformIDs map[string]string `yaml:"platform_ids" json:"platform_ids"`
	Queries     []MQueryEntry     `yaml:"queries" json:"queries"`
}

// MQueryEntry is a tracked query with optional per-platform overrides.
// RecommendedPrice seeds the stored recommended price of the query.
type MQueryEntry struct {
	Text             string            `yaml:"text" json:"text"`
	RecommendedPrice float64           `yaml:"recommended_price" json:"recommended_price,omitempty"`
	Platforms        []MPlatformTarget `yaml:"platforms" json:"platforms"`
}

type MPlatformTarget struct {
	Platform    string `yaml:"platform" json:"platform"`
	PlatformID  string `yaml:"platform_id" json:"platform_id"`
	ModelFilter string `yaml:"model_filter" json:"model_filter"`
}

// MQueryConfig is one (query, platform) fetch target.
type MQueryConfig struct {
	Query       string `json:"query"`
	Platform    string `json:"platform"`
	PlatformID  string `json:"platform_id"`
	ModelFilter string `json:"model_filter"`
}

// MSourceRequest is what a source client receives for one fetch.
type MSourceRequest struct {
	Query       string `json:"query"`
	Category    string `json:"category"`
	PlatformID  string `json:"platform_id"`
	ModelFilter string `json:"model_filter"`
}
