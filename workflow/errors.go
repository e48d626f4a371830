/*
errors.go - Error types for workflow transitions

PURPOSE:
  All workflow failure modes in one place. Domain packages wrap these
  with document context where useful.

ERROR CATEGORIES:
  1. Transition errors  - operation not legal from the current state
  2. Permission errors  - actor lacks the required capability
  3. Input errors       - missing required reason
  4. Commit errors      - compare-and-swap lost to a concurrent writer

USAGE:
  if errors.Is(err, workflow.ErrIllegalTransition) {
      // 409 to the client, status unchanged
  }
*/
package workflow

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrIllegalTransition is returned when a transition is invoked from
	// a state that does not permit it. Fatal to the single operation.
	ErrIllegalTransition = errors.New("illegal workflow transition")

	// ErrPermissionDenied is returned when the actor lacks the
	// permission a transition requires.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrReasonRequired is returned when a transition demands a
	// non-empty reason and none was supplied.
	ErrReasonRequired = errors.New("reason required")

	// ErrConcurrentModification is returned by stores when the status
	// observed at Resolve time no longer holds at commit time.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// IllegalTransitionError reports a transition attempted from a state
// that does not permit it.
type IllegalTransitionError struct {
	Machine    string
	Transition string
	State      string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from state %q", e.Machine, e.Transition, e.State)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// UnknownTransitionError reports an operation name the machine has no
// edge for at all.
type UnknownTransitionError struct {
	Machine    string
	Transition string
}

func (e *UnknownTransitionError) Error() string {
	return fmt.Sprintf("%s: unknown transition %q", e.Machine, e.Transition)
}

func (e *UnknownTransitionError) Unwrap() error { return ErrIllegalTransition }

// PermissionError reports an actor without the required capability.
type PermissionError struct {
	Machine    string
	Transition string
	ActorID    string
	Permission Permission
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: actor %q lacks %q permission for %s",
		e.Machine, e.ActorID, e.Permission, e.Transition)
}

func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }

// ReasonRequiredError reports a missing mandatory reason.
type ReasonRequiredError struct {
	Machine    string
	Transition string
}

func (e *ReasonRequiredError) Error() string {
	return fmt.Sprintf("%s: %s requires a non-empty reason", e.Machine, e.Transition)
}

func (e *ReasonRequiredError) Unwrap() error { return ErrReasonRequired }

// stateString renders a status value for error messages.
func stateString(v any) string { return fmt.Sprintf("%v", v) }
