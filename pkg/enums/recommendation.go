package enums

import "fmt"

// RecommendationType names the advisory action derived from analytics.
type RecommendationType string

const (
	RecommendationIncreaseAllocation RecommendationType = "increase_allocation"
	RecommendationDecreaseAllocation RecommendationType = "decrease_allocation"
	RecommendationAdjustRates        RecommendationType = "adjust_rates"
	RecommendationChangeRestrictions RecommendationType = "change_restrictions"
)

var validRecommendationTypes = []RecommendationType{
	RecommendationIncreaseAllocation,
	RecommendationDecreaseAllocation,
	RecommendationAdjustRates,
	RecommendationChangeRestrictions,
}

// String implements fmt.Stringer.
func (r RecommendationType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RecommendationType.
func (r RecommendationType) IsValid() bool {
	for _, candidate := range validRecommendationTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// RecommendationPriority orders advisory output.
type RecommendationPriority string

const (
	RecommendationPriorityLow    RecommendationPriority = "low"
	RecommendationPriorityMedium RecommendationPriority = "medium"
	RecommendationPriorityHigh   RecommendationPriority = "high"
)

var validRecommendationPriorities = []RecommendationPriority{
	RecommendationPriorityLow,
	RecommendationPriorityMedium,
	RecommendationPriorityHigh,
}

// String implements fmt.Stringer.
func (r RecommendationPriority) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RecommendationPriority.
func (r RecommendationPriority) IsValid() bool {
	for _, candidate := range validRecommendationPriorities {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRecommendationType converts raw input into a RecommendationType.
func ParseRecommendationType(value string) (RecommendationType, error) {
	for _, candidate := range validRecommendationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recommendation type %q", value)
}
