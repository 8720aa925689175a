package db

import "strings"

// ConstraintActiveConfig is the partial unique index guarding one active
// config per hotel + room type.
const ConstraintActiveConfig = "idx_allotment_configs_hotel_room_active"

// IsUniqueViolation reports whether err is a Postgres unique violation.
// When constraintName is given, the match is restricted to that constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	// Postgres and the sqlite test driver word this differently.
	if !strings.Contains(msg, "duplicate key value") &&
		!strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	if constraintName == "" {
		return true
	}
	return strings.Contains(msg, constraintName) ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
