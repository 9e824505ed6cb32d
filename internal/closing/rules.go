package closing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule reclassifies the private-use share of one expense category.
// Ratio is the business-use percentage; the remainder moves to owner's
// drawings at year end.
type Rule struct {
	Category    string `json:"category" yaml:"category" validate:"required"`
	SubCategory string `json:"sub_category" yaml:"sub_category"`
	Ratio       int    `json:"ratio" yaml:"ratio" validate:"min=0,max=100"`
}

// Applicable reports whether the rule splits anything. A 0% or 100%
// business ratio leaves the expense untouched.
func (r Rule) Applicable() bool {
	return r.Ratio > 0 && r.Ratio < 100
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads apportionment rules from a YAML file:
//
//	rules:
//	  - category: 水道光熱費
//	    sub_category: 電気代
//	    ratio: 60
func LoadRules(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("closing: read rules: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("closing: parse rules: %w", err)
	}
	return f.Rules, nil
}
