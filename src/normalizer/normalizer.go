// Package normalizer derives canonical model keys from query strings.
package normalizer

import (
	"regexp"
	"strings"
	"unicode"

	"product-filter/src/models"
)

var (
	spaceRun   = regexp.MustCompile(`\s+`)
	rtxJoin    = regexp.MustCompile(`rtx\s*(\d+)`)
	kSuffix    = regexp.MustCompile(`\b(\d+)\s*(kf|ks|k)\b`)
	xJoin      = regexp.MustCompile(`(\d+)\s*x\s*(\d+)`)
	letterJoin = regexp.MustCompile(`([a-z])\s*(\d+)`)
)

// Normalizer is stateless; the zero value is ready to use.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// ModelKey lower-cases s and removes all whitespace. Listings whose queries
// share a key describe the same physical product.
func (n *Normalizer) ModelKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ListingKey is the grouping key function used by the pipeline.
func (n *Normalizer) ListingKey(l models.MListing) string {
	return n.ModelKey(l.Query)
}

// NormalizeQuery canonicalises common spelling variants of hardware model
// names: "RTX 5080" -> "rtx5080", "14900 KF" -> "14900kf", "3 x 8" -> "3x8".
func (n *Normalizer) NormalizeQuery(q string) string {
	s := strings.ToLower(strings.TrimSpace(q))
	s = spaceRun.ReplaceAllString(s, " ")
	s = rtxJoin.ReplaceAllString(s, "rtx$1")
	s = kSuffix.ReplaceAllString(s, "$1$2")
	s = xJoin.ReplaceAllString(s, "${1}x$2")
	s = letterJoin.ReplaceAllString(s, "$1$2")
	return s
}
