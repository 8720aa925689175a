package enums

import "fmt"

// ConfigStatus tracks the lifecycle of an allotment configuration.
type ConfigStatus string

const (
	ConfigStatusActive    ConfigStatus = "active"
	ConfigStatusInactive  ConfigStatus = "inactive"
	ConfigStatusSuspended ConfigStatus = "suspended"
)

var validConfigStatuses = []ConfigStatus{
	ConfigStatusActive,
	ConfigStatusInactive,
	ConfigStatusSuspended,
}

// String implements fmt.Stringer.
func (c ConfigStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConfigStatus.
func (c ConfigStatus) IsValid() bool {
	for _, candidate := range validConfigStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConfigStatus converts raw input into a ConfigStatus.
func ParseConfigStatus(value string) (ConfigStatus, error) {
	for _, candidate := range validConfigStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid config status %q", value)
}
