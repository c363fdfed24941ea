package interfaces

import (
	"context"
	"product-filter/src/models"
)

// -----------------------------------------------------------------------------
// IExternalClassifier validates ambiguous listings with a language model.
// -----------------------------------------------------------------------------

type IExternalClassifier interface {

	// Classify returns one verdict per item, in input order. An error means
	// the whole batch has no verdict.
	Classify(ctx context.Context, items []models.MClassifierItem, category string) ([]models.MClassifierVerdict, error)
}
