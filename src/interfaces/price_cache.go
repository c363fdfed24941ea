package interfaces

import (
	"context"
	"product-filter/src/models"
)

// -----------------------------------------------------------------------------
// IPriceCache suppresses listings whose price did not drop since last seen.
// -----------------------------------------------------------------------------

type IPriceCache interface {

	// FilterChanged returns the listings that are new or cheaper than the
	// cached price, annotated with IsNew / DiscountPercent.
	FilterChanged(ctx context.Context, listings []models.MListing) ([]models.MListing, error)

	// -----------------------------------------------------------------------------

	// ClearCategory drops every cached price of a category.
	ClearCategory(ctx context.Context, category string) (int, error)
}
