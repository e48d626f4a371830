/*
Package workflow provides a generic approval workflow state machine.

PURPOSE:
  Several forecast documents in this system move through an approval
  lifecycle (draft, submitted, approved/finalized, ...). The transition
  rules differ per document, but the mechanics are identical: a named
  transition moves the document from one status to another, gated by an
  actor permission, sometimes requiring a reason, sometimes terminal.

  Rather than duplicating near-identical state machines per document
  type, this package defines ONE machine parameterized by its status
  type and transition table. Domain packages declare their own status
  enum and table, and get guard checks, permission enforcement, and
  reason validation for free.

KEY CONCEPTS:
  - Machine[S]:    A transition table over a status type S
  - Transition[S]: One edge: name, allowed source states, target state
  - Actor:         Explicit identity + permissions (no ambient user)
  - Outcome[S]:    Result of a resolved transition

ATOMICITY CONTRACT:
  Machine.Resolve validates the transition against an OBSERVED status.
  The caller must commit the resulting status with a compare-and-swap
  keyed on that observed status (e.g. UPDATE ... WHERE status = ?).
  A CAS failure surfaces as ErrConcurrentModification at the store
  layer; the machine itself holds no mutable state and is safe for
  concurrent use.

EXAMPLE:
  machine := workflow.Machine[MyStatus]{
      Name: "labour_forecast",
      Transitions: []workflow.Transition[MyStatus]{
          {Name: "submit", From: []MyStatus{Draft}, To: Submitted, Permission: workflow.PermSubmit},
      },
  }
  out, err := machine.Resolve("submit", current, actor, "")

SEE ALSO:
  - actor.go:  Actor and permission model
  - errors.go: IllegalTransitionError, PermissionError
  - forecast/types.go: the two machine instances used in this system
*/
package workflow

import "strings"

// =============================================================================
// TRANSITION TABLE
// =============================================================================

// Transition is a single edge in the workflow graph.
type Transition[S comparable] struct {
	// Name identifies the operation ("submit", "approve", ...).
	Name string

	// From lists the states this transition may be applied in.
	From []S

	// To is the resulting state.
	To S

	// Permission the acting user must hold.
	Permission Permission

	// RequiresReason rejects the transition when no reason is supplied
	// (e.g. rejecting a forecast without saying why).
	RequiresReason bool
}

func (t Transition[S]) allowsFrom(s S) bool {
	for _, f := range t.From {
		if f == s {
			return true
		}
	}
	return false
}

// Machine is an immutable transition table over status type S.
// Construct once per document type and share freely; Resolve performs
// no mutation.
type Machine[S comparable] struct {
	// Name labels the machine in errors ("labour_forecast", "job_forecast").
	Name string

	// Transitions is the full edge set.
	Transitions []Transition[S]

	// Terminal states admit no outgoing transitions. Listing a state
	// here is belt-and-braces: a state with no outgoing edges is
	// already terminal, but Terminal lets IsTerminal answer directly.
	Terminal []S
}

// Outcome is the resolved result of a transition.
type Outcome[S comparable] struct {
	From       S
	To         S
	Transition string
	Actor      Actor
	Reason     string
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve validates the named transition against the observed current
// status and the acting user. It returns the outcome to be committed by
// the caller, or one of:
//
//   - *UnknownTransitionError  - no such transition on this machine
//   - *IllegalTransitionError  - transition not allowed from current
//   - *PermissionError         - actor lacks the required permission
//   - *ReasonRequiredError     - transition requires a non-empty reason
//
// Validation order: existence, state, permission, reason. Nothing is
// mutated on failure.
func (m Machine[S]) Resolve(name string, current S, actor Actor, reason string) (Outcome[S], error) {
	tr, ok := m.lookup(name, current)
	if !ok {
		// Distinguish "no such operation" from "wrong state".
		if !m.hasTransition(name) {
			return Outcome[S]{}, &UnknownTransitionError{Machine: m.Name, Transition: name}
		}
		return Outcome[S]{}, &IllegalTransitionError{
			Machine:    m.Name,
			Transition: name,
			State:      stateString(current),
		}
	}

	if !actor.Can(tr.Permission) {
		return Outcome[S]{}, &PermissionError{
			Machine:    m.Name,
			Transition: name,
			ActorID:    actor.ID,
			Permission: tr.Permission,
		}
	}

	if tr.RequiresReason && strings.TrimSpace(reason) == "" {
		return Outcome[S]{}, &ReasonRequiredError{Machine: m.Name, Transition: name}
	}

	return Outcome[S]{
		From:       current,
		To:         tr.To,
		Transition: name,
		Actor:      actor,
		Reason:     strings.TrimSpace(reason),
	}, nil
}

// Can reports whether the named transition is legal from the given
// state for the given actor. Reason requirements are not considered.
func (m Machine[S]) Can(name string, current S, actor Actor) bool {
	tr, ok := m.lookup(name, current)
	return ok && actor.Can(tr.Permission)
}

// IsTerminal reports whether no transition leaves the given state.
func (m Machine[S]) IsTerminal(s S) bool {
	for _, t := range m.Terminal {
		if t == s {
			return true
		}
	}
	for _, tr := range m.Transitions {
		if tr.allowsFrom(s) {
			return false
		}
	}
	return true
}

// TransitionsFrom returns the names of transitions legal from a state.
// Used by the API layer to render available actions.
func (m Machine[S]) TransitionsFrom(s S, actor Actor) []string {
	var names []string
	for _, tr := range m.Transitions {
		if tr.allowsFrom(s) && actor.Can(tr.Permission) {
			names = append(names, tr.Name)
		}
	}
	return names
}

func (m Machine[S]) lookup(name string, current S) (Transition[S], bool) {
	for _, tr := range m.Transitions {
		if tr.Name == name && tr.allowsFrom(current) {
			return tr, true
		}
	}
	return Transition[S]{}, false
}

func (m Machine[S]) hasTransition(name string) bool {
	for _, tr := range m.Transitions {
		if tr.Name == name {
			return true
		}
	}
	return false
}
