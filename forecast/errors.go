/*
errors.go - Forecast-level error types

PURPOSE:
  Mutation guards and lookup failures for forecast documents. The
  workflow and payroll packages carry their own error taxonomies;
  this file adds only what is specific to forecasts.
*/
package forecast

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrForecastLocked is returned when entries or template
	// configuration are mutated outside the draft state. The caller
	// must transition state first; there is no retry.
	ErrForecastLocked = errors.New("forecast is locked")

	// ErrForecastNotFound is returned when no forecast exists for the
	// requested key.
	ErrForecastNotFound = errors.New("forecast not found")

	// ErrTemplateNotFound is returned when a referenced template
	// config does not exist.
	ErrTemplateNotFound = errors.New("template config not found")

	// ErrEntryNotFound is returned when fill-right references an
	// empty source cell.
	ErrEntryNotFound = errors.New("forecast entry not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ForecastLockedError reports the state that blocked a mutation.
type ForecastLockedError struct {
	ForecastID ForecastID
	Status     string
}

func (e *ForecastLockedError) Error() string {
	return fmt.Sprintf("forecast %s is locked (status %s); only drafts may be edited", e.ForecastID, e.Status)
}

func (e *ForecastLockedError) Unwrap() error { return ErrForecastLocked }
