package enums

import "fmt"

// SyncKind identifies what a channel-manager push carries.
type SyncKind string

const (
	SyncKindAllocation   SyncKind = "allocation"
	SyncKindRate         SyncKind = "rate"
	SyncKindRestrictions SyncKind = "restrictions"
)

var validSyncKinds = []SyncKind{
	SyncKindAllocation,
	SyncKindRate,
	SyncKindRestrictions,
}

// String implements fmt.Stringer.
func (s SyncKind) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncKind.
func (s SyncKind) IsValid() bool {
	for _, candidate := range validSyncKinds {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncKind converts raw input into a SyncKind.
func ParseSyncKind(value string) (SyncKind, error) {
	for _, candidate := range validSyncKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync kind %q", value)
}

// SyncStatus tracks the lifecycle of a queued channel-manager push.
type SyncStatus string

const (
	SyncStatusPending   SyncStatus = "pending"
	SyncStatusSucceeded SyncStatus = "succeeded"
	SyncStatusFailed    SyncStatus = "failed"
	SyncStatusAbandoned SyncStatus = "abandoned"
)

var validSyncStatuses = []SyncStatus{
	SyncStatusPending,
	SyncStatusSucceeded,
	SyncStatusFailed,
	SyncStatusAbandoned,
}

// String implements fmt.Stringer.
func (s SyncStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncStatus.
func (s SyncStatus) IsValid() bool {
	for _, candidate := range validSyncStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
