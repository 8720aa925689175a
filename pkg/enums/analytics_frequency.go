package enums

import (
	"fmt"
	"time"
)

// AnalyticsFrequency controls how often metrics are recomputed for a config.
type AnalyticsFrequency string

const (
	AnalyticsHourly AnalyticsFrequency = "hourly"
	AnalyticsDaily  AnalyticsFrequency = "daily"
	AnalyticsWeekly AnalyticsFrequency = "weekly"
)

var validAnalyticsFrequencies = []AnalyticsFrequency{
	AnalyticsHourly,
	AnalyticsDaily,
	AnalyticsWeekly,
}

// String implements fmt.Stringer.
func (a AnalyticsFrequency) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AnalyticsFrequency.
func (a AnalyticsFrequency) IsValid() bool {
	for _, candidate := range validAnalyticsFrequencies {
		if candidate == a {
			return true
		}
	}
	return false
}

// Interval returns the wall-clock duration between recalculations.
func (a AnalyticsFrequency) Interval() time.Duration {
	switch a {
	case AnalyticsHourly:
		return time.Hour
	case AnalyticsWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ParseAnalyticsFrequency converts raw input into an AnalyticsFrequency.
func ParseAnalyticsFrequency(value string) (AnalyticsFrequency, error) {
	for _, candidate := range validAnalyticsFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid analytics frequency %q", value)
}
