// Package grouping partitions validated listings by model and picks one
// representative per model.
package grouping

import (
	"sort"

	"product-filter/src/analysis"
	"product-filter/src/logger"
	"product-filter/src/metrics"
	"product-filter/src/models"
	"product-filter/src/validation"
)

// KeyFunc maps a listing to its model key. An empty key drops the listing.
type KeyFunc func(models.MListing) string

// Grouper selects the cheapest trustworthy listing of each model group.
type Grouper struct {
	detector *analysis.AnomalyDetector
	registry *validation.Registry
	metrics  *metrics.Registry
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewGrouper(detector *analysis.AnomalyDetector, registry *validation.Registry, m *metrics.Registry, log *logger.Logger) *Grouper {
	return &Grouper{detector: detector, registry: registry, metrics: m, Logger: log}
}

// -----------------------------------------------------------------------------

// Partition groups listings by key in first-seen order.
func Partition(listings []models.MListing, keyFn KeyFunc) []models.MModelGroup {
	index := make(map[string]int)
	var groups []models.MModelGroup
	for _, l := range listings {
		key := keyFn(l)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, models.MModelGroup{Key: key})
		}
		groups[i].Listings = append(groups[i].Listings, l)
	}
	return groups
}

// -----------------------------------------------------------------------------

// GroupAndSelect returns exactly one listing per non-empty model key.
func (g *Grouper) GroupAndSelect(listings []models.MListing, keyFn KeyFunc, category string) []models.MListing {
	groups := Partition(listings, keyFn)
	selected := make([]models.MListing, 0, len(groups))

	for _, group := range groups {
		pick := g.selectFrom(group, category)
		g.Logger.Debug("Group %s: %d listings, selected %s at %d (%s)", group.Key, len(group.Listings), pick.ID, pick.Price, pick.Source)
		selected = append(selected, pick)
	}

	g.Logger.Info("Grouped %d listings of %s into %d models", len(listings), category, len(selected))
	return selected
}

// -----------------------------------------------------------------------------

// selectFrom applies the selection policy to one group:
//  1. the cheapest listing wins when it is not an accessory and passed
//     validation with a recorded reason; its anomaly flag is cleared
//  2. otherwise the cheapest listing that was not flagged
//  3. otherwise the cheapest flagged listing
func (g *Grouper) selectFrom(group models.MModelGroup, category string) models.MListing {
	report := g.detector.DetectAnomalies(group.Listings, category)

	annotated := make([]models.MListing, len(group.Listings))
	for i, l := range group.Listings {
		if a, flagged := report.IsFlagged(l.ID); flagged {
			l = l.WithAnomaly(a.Reason)
			g.metrics.ObserveAnomaly(category, a.Kind)
		}
		annotated[i] = l
	}
	sort.SliceStable(annotated, func(i, j int) bool { return annotated[i].Price < annotated[j].Price })

	cheapest := annotated[0]
	if cheapest.IsValid && cheapest.ValidationReason != "" && !g.isAccessory(category, cheapest.Name) {
		if cheapest.FlaggedAnomalous {
			g.Logger.Debug("Keeping validated price leader %s despite anomaly: %s", cheapest.ID, cheapest.AnomalyReason)
		}
		return cheapest.ClearAnomaly()
	}

	for _, l := range annotated {
		if !l.FlaggedAnomalous {
			return l
		}
	}
	return cheapest
}

func (g *Grouper) isAccessory(category, name string) bool {
	if g.registry != nil {
		if rules, ok := g.registry.Lookup(category); ok {
			return validation.IsAccessory(rules, name)
		}
	}
	return validation.IsUniversalAccessory(name)
}
