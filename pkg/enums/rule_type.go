package enums

import "fmt"

// RuleType distinguishes allocation rule payload shapes.
type RuleType string

const (
	RuleTypePercentage RuleType = "percentage"
	RuleTypeFixed      RuleType = "fixed"
	RuleTypePriority   RuleType = "priority"
	RuleTypeDynamic    RuleType = "dynamic"
)

var validRuleTypes = []RuleType{
	RuleTypePercentage,
	RuleTypeFixed,
	RuleTypePriority,
	RuleTypeDynamic,
}

// String implements fmt.Stringer.
func (r RuleType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RuleType.
func (r RuleType) IsValid() bool {
	for _, candidate := range validRuleTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRuleType converts raw input into a RuleType.
func ParseRuleType(value string) (RuleType, error) {
	for _, candidate := range validRuleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rule type %q", value)
}
