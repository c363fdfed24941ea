package validation

import (
	"strings"
)

// CountFeatures scores how much of the category vocabulary a listing name
// carries. Each group counts at most once.
func CountFeatures(rules *CategoryRuleSet, query, name string) int {
	tokens := Tokenize(name)
	lower := strings.ToLower(name)

	count := 0
	for _, vocab := range [][]string{rules.Names, rules.Brands, rules.Series, rules.Features} {
		if _, ok := matchVocabulary(tokens, vocab); ok {
			count++
		}
	}

	for _, re := range rules.ModelPatterns {
		if re.MatchString(lower) {
			count++
			break
		}
	}

	if containsQuery(rules, query, name) {
		count++
	}
	return count
}

// -----------------------------------------------------------------------------

// containsQuery checks the normalized query against the name. Strict
// categories need the query as a whole token.
func containsQuery(rules *CategoryRuleSet, query, name string) bool {
	q := Compact(query)
	if q == "" {
		return false
	}
	if !rules.StrictTokens {
		return strings.Contains(Compact(name), q)
	}
	for _, t := range subTokens(name) {
		if t == q {
			return true
		}
	}
	return false
}
