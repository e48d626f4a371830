/*
errors.go - Error types for payroll calculation

PURPOSE:
  Validation failures surface BEFORE any arithmetic so a malformed
  input can never produce a partially-computed breakdown. Silent
  clamping of negative rates to zero is deliberately absent: it would
  misrepresent job cost.
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed or out-of-range input
	// (negative rate, negative hours). Surfaced before any state
	// change; never partially applied.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateAllowance is returned when attaching a second active
	// assignment for an already-assigned allowance type.
	ErrDuplicateAllowance = errors.New("duplicate allowance assignment")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports which input was malformed.
type ValidationError struct {
	Field   string
	Message string
	Value   string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s (got %s)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DuplicateAllowanceError reports the conflicting allowance type.
type DuplicateAllowanceError struct {
	TemplateConfigID TemplateConfigID
	AllowanceTypeID  AllowanceTypeID
	Name             string
}

func (e *DuplicateAllowanceError) Error() string {
	return fmt.Sprintf("allowance %q (%s) is already assigned to template config %s",
		e.Name, e.AllowanceTypeID, e.TemplateConfigID)
}

func (e *DuplicateAllowanceError) Unwrap() error { return ErrDuplicateAllowance }
