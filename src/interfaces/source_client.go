package interfaces

import (
	"context"
	"product-filter/src/models"
)

// -----------------------------------------------------------------------------
// ISourceClient fetches raw listings from one marketplace.
// -----------------------------------------------------------------------------

type ISourceClient interface {

	// Name returns the platform identifier used to tag listings (e.g. "wb").
	Name() string

	// -----------------------------------------------------------------------------

	// Fetch runs one search. Timeouts, transport errors and empty results are
	// all reported as errors so the caller can retry them uniformly.
	Fetch(ctx context.Context, req models.MSourceRequest) ([]models.MRawListing, error)
}

// -----------------------------------------------------------------------------
// IQueryConfigProvider resolves fetch targets per category.
// -----------------------------------------------------------------------------

type IQueryConfigProvider interface {

	// GetQueryConfigs returns every (query, platform) target of a category.
	GetQueryConfigs(category string) []models.MQueryConfig

	// -----------------------------------------------------------------------------

	// GetCategoryIDs returns the marketplace-specific category ids.
	GetCategoryIDs(category string) (map[string]string, bool)

	// -----------------------------------------------------------------------------

	// Categories lists the configured category keys.
	Categories() []string
}
