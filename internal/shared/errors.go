package shared

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for a field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// LockedPeriodError reports a mutation dated in or before a locked fiscal year.
type LockedPeriodError struct {
	Year int
}

func (e *LockedPeriodError) Error() string {
	return fmt.Sprintf("fiscal year %d is locked", e.Year)
}
