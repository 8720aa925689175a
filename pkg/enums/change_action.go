package enums

import "fmt"

// ChangeAction tags change-log entries with the mutation kind.
type ChangeAction string

const (
	ChangeActionCreated   ChangeAction = "created"
	ChangeActionUpdated   ChangeAction = "updated"
	ChangeActionDeleted   ChangeAction = "deleted"
	ChangeActionAllocated ChangeAction = "allocated"
	ChangeActionReleased  ChangeAction = "released"
	ChangeActionSynced    ChangeAction = "synced"
)

var validChangeActions = []ChangeAction{
	ChangeActionCreated,
	ChangeActionUpdated,
	ChangeActionDeleted,
	ChangeActionAllocated,
	ChangeActionReleased,
	ChangeActionSynced,
}

// String implements fmt.Stringer.
func (c ChangeAction) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ChangeAction.
func (c ChangeAction) IsValid() bool {
	for _, candidate := range validChangeActions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChangeAction converts raw input into a ChangeAction.
func ParseChangeAction(value string) (ChangeAction, error) {
	for _, candidate := range validChangeActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid change action %q", value)
}
