package validation

import (
	"context"
	"fmt"

	"product-filter/src/helpers"
	"product-filter/src/interfaces"
	"product-filter/src/logger"
	"product-filter/src/metrics"
	"product-filter/src/models"
)

// Confidence levels of the deterministic phases.
const (
	accessoryConfidence  = 0.95
	codeValidConfidence  = 0.9
	tooShortConfidence   = 0.7
	unresolvedConfidence = 0.5
	classifierConfidence = 0.8
	maxTokensForTooShort = 2
)

// -----------------------------------------------------------------------------

// BatchOutcome carries the per-listing verdicts, aligned with the input.
type BatchOutcome struct {
	Results   []models.MValidationResult
	Escalated int
}

// -----------------------------------------------------------------------------

// Engine runs the validation cascade: accessory prefilter, category rules,
// then escalation of what the rules could not settle.
type Engine struct {
	registry   *Registry
	classifier interfaces.IExternalClassifier
	metrics    *metrics.Registry
	Logger     *logger.Logger
}

// -----------------------------------------------------------------------------

// NewEngine builds an engine. classifier may be nil, in which case
// inconclusive listings are rejected as insufficient-features.
func NewEngine(registry *Registry, classifier interfaces.IExternalClassifier, m *metrics.Registry, log *logger.Logger) *Engine {
	return &Engine{
		registry:   registry,
		classifier: classifier,
		metrics:    m,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// ValidateBatch returns one verdict per listing.
func (e *Engine) ValidateBatch(ctx context.Context, listings []models.MListing, category string) ([]models.MValidationResult, error) {
	out, err := e.Validate(ctx, listings, category)
	if err != nil {
		return nil, err
	}
	return out.Results, nil
}

// -----------------------------------------------------------------------------

// Validate runs the cascade over listings of one category. A classifier
// failure fails the whole batch.
func (e *Engine) Validate(ctx context.Context, listings []models.MListing, category string) (BatchOutcome, error) {
	rules, ok := e.registry.Lookup(category)
	if !ok {
		return BatchOutcome{}, helpers.NewConfigurationError(fmt.Sprintf("no validation rules for category %q", category), nil)
	}

	results := make([]models.MValidationResult, len(listings))
	pending := make(map[string][]int)
	var order []string

	for i, l := range listings {
		r, escalate := e.evaluate(rules, l)
		if !escalate {
			results[i] = r
			continue
		}
		if _, seen := pending[l.Query]; !seen {
			order = append(order, l.Query)
		}
		pending[l.Query] = append(pending[l.Query], i)
	}

	escalated := 0
	for _, query := range order {
		idxs := pending[query]
		if e.classifier == nil {
			e.Logger.Warning("No classifier configured, rejecting %d inconclusive listings for %q", len(idxs), query)
			for _, i := range idxs {
				results[i] = models.MValidationResult{IsValid: false, Reason: models.ReasonInsufficientFeatures, Confidence: unresolvedConfidence}
			}
			continue
		}
		if err := e.escalate(ctx, category, listings, idxs, results); err != nil {
			return BatchOutcome{}, err
		}
		escalated += len(idxs)
	}

	for _, r := range results {
		e.metrics.ObserveValidation(category, r.Reason)
	}
	e.metrics.ObserveEscalations(category, escalated)
	e.Logger.Debug("Validated %d listings for %s (%d escalated)", len(listings), category, escalated)

	return BatchOutcome{Results: results, Escalated: escalated}, nil
}

// -----------------------------------------------------------------------------

// evaluate runs the deterministic phases. escalate=true means the listing
// needs the classifier.
func (e *Engine) evaluate(rules *CategoryRuleSet, l models.MListing) (models.MValidationResult, bool) {
	if IsAccessory(rules, l.Name) {
		return models.MValidationResult{IsValid: false, Reason: models.ReasonAccessory, Confidence: accessoryConfidence}, false
	}
	if l.EscalationHint && e.classifier != nil {
		return models.MValidationResult{}, true
	}
	r, decided := ApplyRules(rules, l.Query, l.Name)
	return r, !decided
}

// -----------------------------------------------------------------------------

// ApplyRules is phase two: the custom validator, then feature counting.
// decided=false means the listing is inconclusive.
func ApplyRules(rules *CategoryRuleSet, query, name string) (models.MValidationResult, bool) {
	if rules.Custom != nil {
		if r, decided := rules.Custom(query, name, rules); decided {
			return r, true
		}
	}

	if CountFeatures(rules, query, name) >= rules.minFeatures() {
		return models.MValidationResult{IsValid: true, Reason: models.ReasonCodeValidated, Confidence: codeValidConfidence}, true
	}
	if len(Tokenize(name)) <= maxTokensForTooShort {
		return models.MValidationResult{IsValid: false, Reason: models.ReasonTooShort, Confidence: tooShortConfidence}, true
	}
	return models.MValidationResult{}, false
}

// -----------------------------------------------------------------------------

// escalate sends one query's inconclusive listings to the classifier and
// merges the verdicts into results.
func (e *Engine) escalate(ctx context.Context, category string, listings []models.MListing, idxs []int, results []models.MValidationResult) error {
	items := make([]models.MClassifierItem, len(idxs))
	for j, i := range idxs {
		l := listings[i]
		items[j] = models.MClassifierItem{ID: l.ID, Name: l.Name, Price: l.Price, Query: l.Query}
	}

	verdicts, err := e.classifier.Classify(ctx, items, category)
	if err != nil {
		return helpers.NewClassifierError(fmt.Sprintf("classification of %d %s listings failed", len(items), category), err)
	}
	if len(verdicts) != len(items) {
		return helpers.NewClassifierError(fmt.Sprintf("classifier returned %d verdicts for %d listings", len(verdicts), len(items)), nil)
	}

	for j, v := range verdicts {
		if v.ID != items[j].ID {
			return helpers.NewClassifierError(fmt.Sprintf("classifier verdict %d has id %q, want %q", j, v.ID, items[j].ID), nil)
		}
	}

	for j, v := range verdicts {
		i := idxs[j]
		switch {
		case IsUniversalAccessory(items[j].Name):
			results[i] = models.MValidationResult{IsValid: false, Reason: models.ReasonAccessory, Confidence: accessoryConfidence}
		case v.IsValid:
			results[i] = models.MValidationResult{IsValid: true, Reason: models.ReasonAIValidated, Confidence: classifierConfidence}
		default:
			results[i] = models.MValidationResult{IsValid: false, Reason: models.ReasonAIRejected, Confidence: classifierConfidence}
		}
	}
	return nil
}
