package enums

import "fmt"

// FallbackStrategy is applied when a dynamic rule has no allocation function.
type FallbackStrategy string

const (
	FallbackEqualDistribution     FallbackStrategy = "equal_distribution"
	FallbackPriorityBased         FallbackStrategy = "priority_based"
	FallbackHistoricalPerformance FallbackStrategy = "historical_performance"
	FallbackRevenueOptimization   FallbackStrategy = "revenue_optimization"
)

var validFallbackStrategies = []FallbackStrategy{
	FallbackEqualDistribution,
	FallbackPriorityBased,
	FallbackHistoricalPerformance,
	FallbackRevenueOptimization,
}

// String implements fmt.Stringer.
func (f FallbackStrategy) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FallbackStrategy.
func (f FallbackStrategy) IsValid() bool {
	for _, candidate := range validFallbackStrategies {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFallbackStrategy converts raw input into a FallbackStrategy.
func ParseFallbackStrategy(value string) (FallbackStrategy, error) {
	for _, candidate := range validFallbackStrategies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fallback strategy %q", value)
}
