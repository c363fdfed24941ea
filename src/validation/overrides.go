package validation

import (
	"fmt"
	"os"
	"regexp"

	"product-filter/src/helpers"

	"gopkg.in/yaml.v3"
)

// RuleOverride extends one category's vocabulary. Unknown categories get a
// new rule set built from the override alone.
type RuleOverride struct {
	AccessoryWords    []string `yaml:"accessory_words"`
	AccessoryPatterns []string `yaml:"accessory_patterns"`
	Names             []string `yaml:"names"`
	Brands            []string `yaml:"brands"`
	Series            []string `yaml:"series"`
	Features          []string `yaml:"features"`
	ModelPatterns     []string `yaml:"model_patterns"`
	MinFeatures       int      `yaml:"min_features"`
	StrictTokens      *bool    `yaml:"strict_tokens"`
}

type RuleOverrides struct {
	Categories map[string]RuleOverride `yaml:"categories"`
}

// -----------------------------------------------------------------------------

// LoadOverrides reads a rule overrides YAML file.
func LoadOverrides(path string) (*RuleOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helpers.NewConfigurationError(fmt.Sprintf("failed to read rule overrides '%s'", path), err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes rule overrides from YAML bytes.
func ParseOverrides(data []byte) (*RuleOverrides, error) {
	var o RuleOverrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, helpers.NewConfigurationError("failed to parse rule overrides", err)
	}
	return &o, nil
}

// -----------------------------------------------------------------------------

// ApplyOverrides registers extended copies of the affected rule sets. The
// rule sets already handed out are left untouched.
func (r *Registry) ApplyOverrides(o *RuleOverrides) error {
	if o == nil {
		return nil
	}
	for key, ov := range o.Categories {
		accessoryPatterns, err := compileAll(key, ov.AccessoryPatterns)
		if err != nil {
			return err
		}
		modelPatterns, err := compileAll(key, ov.ModelPatterns)
		if err != nil {
			return err
		}

		set := &CategoryRuleSet{Key: key}
		if existing, ok := r.Lookup(key); ok {
			clone := *existing
			set = &clone
		}

		set.AccessoryWords = extend(set.AccessoryWords, ov.AccessoryWords)
		set.AccessoryPatterns = append(append([]*regexp.Regexp(nil), set.AccessoryPatterns...), accessoryPatterns...)
		set.Names = extend(set.Names, ov.Names)
		set.Brands = extend(set.Brands, ov.Brands)
		set.Series = extend(set.Series, ov.Series)
		set.Features = extend(set.Features, ov.Features)
		set.ModelPatterns = append(append([]*regexp.Regexp(nil), set.ModelPatterns...), modelPatterns...)
		if ov.MinFeatures > 0 {
			set.MinFeatures = ov.MinFeatures
		}
		if ov.StrictTokens != nil {
			set.StrictTokens = *ov.StrictTokens
		}

		r.Register(set)
	}
	return nil
}

func extend(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func compileAll(category string, exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			return nil, helpers.NewConfigurationError(fmt.Sprintf("invalid pattern %q for category '%s'", e, category), err)
		}
		out = append(out, re)
	}
	return out, nil
}
