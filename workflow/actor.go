package workflow

// =============================================================================
// ACTOR - Explicit identity passed into every mutating call
// =============================================================================

// Permission names a capability an actor may hold.
type Permission string

const (
	// PermEdit allows mutating forecast data while editable.
	PermEdit Permission = "edit"

	// PermSubmit allows submitting a forecast for review.
	PermSubmit Permission = "submit"

	// PermApprove allows approving, rejecting, reverting, and finalizing.
	PermApprove Permission = "approve"
)

// Actor identifies who is performing an operation and what they may do.
// There is deliberately no ambient "current user": every mutating call
// in this system takes an Actor so the engine is testable without a
// request context.
type Actor struct {
	ID          string
	Name        string
	Permissions []Permission
}

// Can reports whether the actor holds the given permission.
// The zero Permission is always granted (transition open to anyone).
func (a Actor) Can(p Permission) bool {
	if p == "" {
		return true
	}
	for _, held := range a.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

// System is the actor used for internally-triggered operations.
var System = Actor{
	ID:          "system",
	Name:        "system",
	Permissions: []Permission{PermEdit, PermSubmit, PermApprove},
}
