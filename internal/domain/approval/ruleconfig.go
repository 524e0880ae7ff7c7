package approval

import "encoding/json"

// defaultRequiredPercentage applies when a PERCENTAGE/HYBRID workflow does not
// configure requiredPercentage.
const defaultRequiredPercentage = 50

// RuleConfig is the parsed form of a workflow's rule_config option bag.
// Unknown keys are ignored; missing keys fall back to zero values so a
// malformed bag degrades instead of failing the evaluation.
type RuleConfig struct {
	RequiredPercentage *int   `json:"requiredPercentage,omitempty"`
	SpecificApproverID string `json:"specificApproverId,omitempty"`
	UsePercentage      bool   `json:"usePercentage,omitempty"`
}

// ParseRuleConfig decodes the JSON option bag stored on a workflow. An empty
// or unparseable bag yields the zero config; rule evaluation must never be
// blocked by configuration noise.
func ParseRuleConfig(raw string) RuleConfig {
	var cfg RuleConfig
	if raw == "" {
		return cfg
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return RuleConfig{}
	}
	return cfg
}

// Threshold returns the configured required percentage, clamped to a sane
// value, or the default when unset.
func (c RuleConfig) Threshold() int {
	if c.RequiredPercentage == nil || *c.RequiredPercentage <= 0 {
		return defaultRequiredPercentage
	}
	if *c.RequiredPercentage > 100 {
		return 100
	}
	return *c.RequiredPercentage
}
