package enums

import "fmt"

// HoldStatus tracks the lifecycle of an unpaid reservation hold.
type HoldStatus string

const (
	HoldStatusPending   HoldStatus = "pending"
	HoldStatusConfirmed HoldStatus = "confirmed"
	HoldStatusReleased  HoldStatus = "released"
)

var validHoldStatuses = []HoldStatus{
	HoldStatusPending,
	HoldStatusConfirmed,
	HoldStatusReleased,
}

func (h HoldStatus) String() string {
	return string(h)
}

// IsValid reports whether the value is a known HoldStatus.
func (h HoldStatus) IsValid() bool {
	for _, valid := range validHoldStatuses {
		if h == valid {
			return true
		}
	}
	return false
}

// ParseHoldStatus converts raw input into a HoldStatus.
func ParseHoldStatus(value string) (HoldStatus, error) {
	status := HoldStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid hold status %q", value)
	}
	return status, nil
}
