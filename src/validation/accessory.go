package validation

import (
	"strings"
	"unicode"
)

// Accessory stems the classifier tends to miss. Applied to every category
// after escalation.
var universalAccessoryWords = []string{
	"кабел*", "подставк*", "вентилятор*", "чехол", "чехл*", "наклейк*", "сумк*",
	"сетк*", "кулер*", "переходник*", "креплени*", "пылезащитн*", "displayport",
	"hdmi", "usb-c",
}

// -----------------------------------------------------------------------------

// Tokenize lower-cases s and splits it into tokens of letters, digits and the
// joiners '-', '.', '+'. Joiners at token edges are trimmed.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.' || r == '+')
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "-.+")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Compact lower-cases s and drops whitespace.
func Compact(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// -----------------------------------------------------------------------------

// matchVocabulary reports the first vocabulary entry present in tokens.
func matchVocabulary(tokens []string, vocabulary []string) (string, bool) {
	var joined string
	for _, entry := range vocabulary {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.Contains(entry, " ") {
			if joined == "" {
				joined = " " + strings.Join(tokens, " ") + " "
			}
			phrase := strings.TrimSuffix(entry, "*")
			if strings.HasSuffix(entry, "*") {
				if strings.Contains(joined, " "+phrase) {
					return entry, true
				}
			} else if strings.Contains(joined, " "+phrase+" ") {
				return entry, true
			}
			continue
		}
		if prefix, ok := strings.CutSuffix(entry, "*"); ok {
			for _, t := range tokens {
				if strings.HasPrefix(t, prefix) {
					return entry, true
				}
			}
			continue
		}
		for _, t := range tokens {
			if t == entry {
				return entry, true
			}
		}
	}
	return "", false
}

// -----------------------------------------------------------------------------

// IsAccessory applies the category accessory vocabulary and patterns.
func IsAccessory(rules *CategoryRuleSet, name string) bool {
	if rules.AccessoryExempt != nil && rules.AccessoryExempt(name) {
		return false
	}
	if _, ok := matchVocabulary(Tokenize(name), rules.AccessoryWords); ok {
		return true
	}
	lower := strings.ToLower(name)
	for _, re := range rules.AccessoryPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// IsUniversalAccessory checks the cross-category accessory vocabulary.
func IsUniversalAccessory(name string) bool {
	_, ok := matchVocabulary(Tokenize(name), universalAccessoryWords)
	return ok
}
