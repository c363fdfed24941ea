package config

import (
	"strings"

	"product-filter/src/models"
)

// -----------------------------------------------------------------------------

// category returns the configured category by key
func (c *Config) category(key string) (*models.MCategoryConfig, bool) {
	for i := range c.MConfig.Categories {
		if c.MConfig.Categories[i].Key == key {
			return &c.MConfig.Categories[i], true
		}
	}
	return nil, false
}

// -----------------------------------------------------------------------------

// HasCategory reports whether key is a configured category
func (c *Config) HasCategory(key string) bool {
	_, ok := c.category(key)
	return ok
}

// -----------------------------------------------------------------------------

// Categories lists configured category keys in file order
func (c *Config) Categories() []string {
	keys := make([]string, 0, len(c.MConfig.Categories))
	for _, cat := range c.MConfig.Categories {
		keys = append(keys, cat.Key)
	}
	return keys
}

// -----------------------------------------------------------------------------

// GetQueryConfigs expands per-platform overrides of every query. Queries with
// no platform entry produce nothing here; the aggregator falls back to all
// platforms for them.
func (c *Config) GetQueryConfigs(category string) []models.MQueryConfig {
	cat, ok := c.category(category)
	if !ok {
		return nil
	}

	var out []models.MQueryConfig
	for _, q := range cat.Queries {
		for _, p := range q.Platforms {
			id := p.PlatformID
			if id == "" {
				id = cat.PlatformIDs[p.Platform]
			}
			out = append(out, models.MQueryConfig{
				Query:       q.Text,
				Platform:    p.Platform,
				PlatformID:  id,
				ModelFilter: p.ModelFilter,
			})
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// GetCategoryIDs returns marketplace category ids keyed by platform
func (c *Config) GetCategoryIDs(category string) (map[string]string, bool) {
	cat, ok := c.category(category)
	if !ok {
		return nil, false
	}
	ids := make(map[string]string, len(cat.PlatformIDs))
	for k, v := range cat.PlatformIDs {
		ids[k] = v
	}
	return ids, true
}

// -----------------------------------------------------------------------------

// TrackedQueries returns the query texts of a category
func (c *Config) TrackedQueries(category string) []string {
	cat, ok := c.category(category)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(cat.Queries))
	for _, q := range cat.Queries {
		out = append(out, strings.TrimSpace(q.Text))
	}
	return out
}

// RecommendedPrices returns the configured starting prices of a category,
// keyed by query text.
func (c *Config) RecommendedPrices(category string) map[string]float64 {
	cat, ok := c.category(category)
	if !ok {
		return nil
	}
	out := make(map[string]float64)
	for _, q := range cat.Queries {
		if q.RecommendedPrice > 0 {
			out[strings.TrimSpace(q.Text)] = q.RecommendedPrice
		}
	}
	return out
}
