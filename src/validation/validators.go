package validation

import (
	"regexp"
	"slices"
	"strings"

	"product-filter/src/models"
)

func valid(reason string, confidence float64) (models.MValidationResult, bool) {
	return models.MValidationResult{IsValid: true, Reason: reason, Confidence: confidence}, true
}

func invalid(reason string, confidence float64) (models.MValidationResult, bool) {
	return models.MValidationResult{IsValid: false, Reason: reason, Confidence: confidence}, true
}

func undecided() (models.MValidationResult, bool) {
	return models.MValidationResult{}, false
}

// -----------------------------------------------------------------------------
// Videocards
// -----------------------------------------------------------------------------

// Suffixes that mark a board edition rather than a different GPU.
var editionSuffixes = map[string]bool{"oc": true, "g": true, "plus": true}

// extractGPUModels returns the distinct compact GPU models named in s, e.g.
// "rtx5070ti", "rx7900xtx".
func extractGPUModels(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range gpuModelPattern.FindAllStringSubmatch(strings.ToLower(s), -1) {
		model := m[1] + m[2]
		if suffix := m[4]; suffix != "" && !editionSuffixes[suffix] {
			model += suffix
		}
		if !seen[model] {
			seen[model] = true
			out = append(out, model)
		}
	}
	return out
}

// validateVideocard accepts a name only when every GPU model it mentions is
// the queried one (or a prefix of it).
func validateVideocard(query, name string, _ *CategoryRuleSet) (models.MValidationResult, bool) {
	found := extractGPUModels(name)
	if len(found) == 0 {
		return undecided()
	}
	q := strings.ReplaceAll(Compact(query), "-", "")

	hasQuery := false
	for _, m := range found {
		if m == q {
			hasQuery = true
			continue
		}
		if !strings.HasPrefix(q, m) {
			return invalid("multi-or-no-model-match", 0.9)
		}
	}
	if !hasQuery {
		return invalid("multi-or-no-model-match", 0.9)
	}
	return valid("strict-model-match", 0.95)
}

// -----------------------------------------------------------------------------
// Processors
// -----------------------------------------------------------------------------

// subTokens splits tokens further on hyphens: "i9-14900kf" -> "i9", "14900kf".
func subTokens(name string) []string {
	var out []string
	for _, t := range Tokenize(name) {
		out = append(out, t)
		if strings.Contains(t, "-") {
			out = append(out, strings.Split(t, "-")...)
		}
	}
	return out
}

var (
	cpuNamedModelPattern = regexp.MustCompile(`(?:ryzen\s*(?:\d\s+)?(?:pro\s*)?|(?:core\s*)?i[3579]\s*-?\s*)(\d{4,5})(?:\s*(x\s*3d)|(3d|xt|x|ks|kf|k|f|ge|g|t)\b)?`)
	cpuBareModelPattern  = regexp.MustCompile(`^(\d{4,5})(x3d|3d|xt|x|ks|kf|k|f|ge|g|t)?$`)
)

// cpuModels returns the compact CPU models named after a Ryzen or Core
// marker, e.g. "7800x3d", "14900kf".
func cpuModels(s string) []string {
	s = strings.ReplaceAll(strings.ToLower(s), "х", "x")
	var out []string
	for _, m := range cpuNamedModelPattern.FindAllStringSubmatch(s, -1) {
		model := m[1] + Compact(m[2]) + m[3]
		if !slices.Contains(out, model) {
			out = append(out, model)
		}
	}
	return out
}

// queryCPUModel reads the model from a query, which may be a bare number
// like "7800X3D".
func queryCPUModel(query string) string {
	if found := cpuModels(query); len(found) > 0 {
		return found[0]
	}
	q := strings.ReplaceAll(Compact(query), "х", "x")
	if m := cpuBareModelPattern.FindStringSubmatch(q); m != nil {
		return m[1] + m[2]
	}
	return ""
}

// validateProcessor requires the model number as an isolated token: query
// "7600" must not accept "7600X". A name naming another model is rejected.
func validateProcessor(query, name string, _ *CategoryRuleSet) (models.MValidationResult, bool) {
	q := Compact(query)
	if q == "" {
		return undecided()
	}
	longer := false
	for _, t := range subTokens(name) {
		if t == q {
			return valid("model-match", 0.95)
		}
		if strings.Contains(t, q) {
			longer = true
		}
	}
	if longer {
		return invalid("model-mismatch", 0.9)
	}

	qModel := queryCPUModel(query)
	if qModel == "" {
		return undecided()
	}
	found := cpuModels(name)
	if slices.Contains(found, qModel) {
		return valid("model-match", 0.9)
	}
	if len(found) > 0 {
		return invalid("no-query-match", 0.9)
	}
	return undecided()
}

// -----------------------------------------------------------------------------
// Motherboards
// -----------------------------------------------------------------------------

// resolveChipset maps a name token to a chipset of the vocabulary. "b760m-a"
// resolves to "b760m" and "b760ma" is not a chipset. The family groups a
// chipset with its micro-ATX "m" variant; hyphenated vocabulary entries such
// as "b760m-k" form their own family.
func resolveChipset(token string, vocab map[string]bool) (chipset, family string, ok bool) {
	family = func(c string) string {
		if strings.Contains(c, "-") {
			return c
		}
		if base, cut := strings.CutSuffix(c, "m"); cut && vocab[base] {
			return base
		}
		return c
	}(token)

	if vocab[token] {
		return token, family, true
	}
	base := token
	if i := strings.IndexByte(token, '-'); i > 0 {
		base = token[:i]
	}
	if vocab[base] {
		return resolveChipset(base, vocab)
	}
	if trimmed, cut := strings.CutSuffix(base, "m"); cut && vocab[trimmed] {
		return base, trimmed, true
	}
	return "", "", false
}

// validateMotherboard matches the queried chipset against the chipsets named
// in the listing. Platform and socket tokens are ignored.
func validateMotherboard(query, name string, rules *CategoryRuleSet) (models.MValidationResult, bool) {
	vocab := make(map[string]bool, len(rules.Chipsets))
	for _, c := range rules.Chipsets {
		vocab[strings.ToLower(c)] = true
	}
	q := Compact(query)
	if !vocab[q] {
		return undecided()
	}
	_, qFamily, _ := resolveChipset(q, vocab)
	qIsVariant := q != qFamily

	families := map[string]bool{}
	matched := false
	for _, t := range Tokenize(name) {
		chipset, family, ok := resolveChipset(t, vocab)
		if !ok {
			continue
		}
		families[family] = true
		if family == qFamily && (!qIsVariant || chipset == q) {
			matched = true
		}
	}

	if len(families) > 1 {
		return invalid("conflicting-chipsets", 0.9)
	}
	if matched {
		return valid("chipset-match", 0.95)
	}
	return invalid("no-query-chipset-in-name", 0.8)
}

// -----------------------------------------------------------------------------
// PlayStation
// -----------------------------------------------------------------------------

var (
	ps5ProPattern = regexp.MustCompile(`ps\s*5\s*pro|playstation\s*5\s*pro`)
	ps5Pattern    = regexp.MustCompile(`ps\s*5|playstation\s*5`)
)

// validatePlaystation separates the Pro console from the base model.
func validatePlaystation(query, name string, _ *CategoryRuleSet) (models.MValidationResult, bool) {
	n := strings.ToLower(name)
	wantPro := strings.Contains(strings.ToLower(query), "pro")
	isPro := ps5ProPattern.MatchString(n)
	isPS5 := ps5Pattern.MatchString(n)

	switch {
	case wantPro && isPro:
		return valid("ps5-pro-match", 0.95)
	case wantPro && isPS5:
		return invalid("not-ps5-pro", 0.7)
	case isPro:
		return invalid("is-ps5-pro", 0.9)
	case isPS5:
		return valid("ps5-match", 0.95)
	}
	return undecided()
}

// -----------------------------------------------------------------------------
// Nintendo Switch
// -----------------------------------------------------------------------------

var (
	switch2Pattern       = regexp.MustCompile(`switch\s*2\b`)
	switchMentionPattern = regexp.MustCompile(`switch|свитч`)
)

// switchVariant names the console generation or edition in s: "2", "oled",
// "lite" or "" for the original model.
func switchVariant(s string) string {
	n := strings.ToLower(s)
	switch {
	case switch2Pattern.MatchString(n):
		return "2"
	case strings.Contains(n, "oled"):
		return "oled"
	case strings.Contains(n, "lite"):
		return "lite"
	}
	return ""
}

// validateNintendoSwitch requires the listing to name the queried console
// variant.
func validateNintendoSwitch(query, name string, _ *CategoryRuleSet) (models.MValidationResult, bool) {
	qv, nv := switchVariant(query), switchVariant(name)
	switch {
	case nv != "" && nv != qv:
		return invalid("model-mismatch", 0.8)
	case nv != qv:
		return invalid("no-query-match", 0.8)
	}
	if q := Compact(query); q != "" && strings.Contains(Compact(name), q) {
		return valid("query-match", 0.95)
	}
	if switchMentionPattern.MatchString(strings.ToLower(name)) {
		return valid("model-match", 0.9)
	}
	return undecided()
}

// -----------------------------------------------------------------------------
// Steam Deck
// -----------------------------------------------------------------------------

var (
	steamDeckOLEDPattern = regexp.MustCompile(`steam\s*deck\s*oled`)
	steamDeckScamPattern = regexp.MustCompile(`steam\s*deck.*(clone|клон|копия|pro|plus|ultra|new|новый|версия|rev|рев|рем|ремонт|ремкомплект)`)
	screenWordPattern    = regexp.MustCompile(`экран|дисплей`)
	consoleWordPattern   = regexp.MustCompile(`консоль|игровая|приставка`)
	bigMemoryPattern     = regexp.MustCompile(`512\s*гб|512gb|1\s*тб|1tb`)
)

// isSteamDeckOLEDConsole recognises the console listed with its OLED screen,
// which the accessory patterns would otherwise reject.
func isSteamDeckOLEDConsole(name string) bool {
	n := strings.ToLower(name)
	return steamDeckPattern.MatchString(n) &&
		strings.Contains(n, "oled") &&
		screenWordPattern.MatchString(n) &&
		(consoleWordPattern.MatchString(n) || bigMemoryPattern.MatchString(n))
}

func validateSteamDeck(_, name string, _ *CategoryRuleSet) (models.MValidationResult, bool) {
	n := strings.ToLower(name)
	switch {
	case isSteamDeckOLEDConsole(name):
		return valid("steam-deck-oled-match", 0.95)
	case steamDeckScamPattern.MatchString(n):
		return invalid("scam-revision", 0.95)
	case steamDeckOLEDPattern.MatchString(n):
		return valid("steam-deck-oled-match", 0.95)
	case steamDeckPattern.MatchString(n):
		return valid("steam-deck-match", 0.9)
	}
	return undecided()
}

// -----------------------------------------------------------------------------
// iPhone
// -----------------------------------------------------------------------------

var (
	iphoneLegacyPattern  = regexp.MustCompile(`iphone\s?(xs\s?max|xr|xs|x|8|7)\b`)
	restyledPattern      = regexp.MustCompile(`в\s+корпусе|в\s+стиле|style`)
	iphoneModelPattern   = regexp.MustCompile(`iphone\s?(1[1-6])(\s?(pro|plus|mini))?(\s?max)?`)
	iphoneSEPattern      = regexp.MustCompile(`iphone\s?se`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
)

func iphoneModel(s string) string {
	m := iphoneModelPattern.FindString(strings.ToLower(s))
	return whitespacePattern.ReplaceAllString(m, "")
}

// validateIphone rejects old models sold in a new model's housing and
// compares the model generation with the query.
func validateIphone(query, name string, _ *CategoryRuleSet) (models.MValidationResult, bool) {
	n := strings.ToLower(name)
	if iphoneLegacyPattern.MatchString(n) && restyledPattern.MatchString(n) {
		return invalid("legacy-restyled", 0.95)
	}
	if nm := iphoneModel(n); nm != "" {
		if qm := iphoneModel(query); qm != "" && qm != nm {
			return invalid("model-mismatch", 0.85)
		}
		return valid("iphone-model-match", 0.95)
	}
	if iphoneSEPattern.MatchString(n) {
		return valid("iphone-se-match", 0.95)
	}
	return undecided()
}
