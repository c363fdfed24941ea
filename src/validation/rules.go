// Package validation decides whether a marketplace listing really is the
// product its search query asked for.
package validation

import (
	"regexp"
	"sort"
	"sync"

	"product-filter/src/models"
)

const DefaultMinFeatures = 2

// CustomValidator runs category-specific logic before feature counting.
// decided=false hands the listing to the generic feature count.
type CustomValidator func(query, name string, rules *CategoryRuleSet) (result models.MValidationResult, decided bool)

// -----------------------------------------------------------------------------

// CategoryRuleSet is the read-only rule data of one category.
type CategoryRuleSet struct {
	Key string

	// Vocabulary entries match whole tokens; a trailing "*" matches any
	// token with that prefix, and entries with spaces match phrases.
	AccessoryWords    []string
	AccessoryPatterns []*regexp.Regexp
	// AccessoryExempt lets a listing skip the accessory prefilter.
	AccessoryExempt func(name string) bool

	Names         []string
	Brands        []string
	Series        []string
	Features      []string
	ModelPatterns []*regexp.Regexp
	MinFeatures   int

	// StrictTokens requires the query to appear as an isolated token.
	StrictTokens bool

	Chipsets  []string
	Platforms []string

	Custom CustomValidator
}

// minFeatures falls back to DefaultMinFeatures when unset
func (r *CategoryRuleSet) minFeatures() int {
	if r.MinFeatures <= 0 {
		return DefaultMinFeatures
	}
	return r.MinFeatures
}

// -----------------------------------------------------------------------------

// Registry maps category keys to rule sets. It is filled once at startup and
// only read afterwards.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]*CategoryRuleSet
}

// NewRegistry returns a registry preloaded with the built-in categories.
func NewRegistry() *Registry {
	r := &Registry{rules: make(map[string]*CategoryRuleSet)}
	for _, set := range builtinRuleSets() {
		r.Register(set)
	}
	return r
}

// Register adds or replaces a rule set
func (r *Registry) Register(set *CategoryRuleSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[set.Key] = set
}

// Lookup returns the rule set for a category
func (r *Registry) Lookup(category string) (*CategoryRuleSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.rules[category]
	return set, ok
}

// Categories lists the registered keys in sorted order
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.rules))
	for k := range r.rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
