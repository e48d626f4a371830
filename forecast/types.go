/*
Package forecast implements labour cost forecasting for locations.

PURPOSE:
  A LabourForecast holds one month of weekly headcount/overtime/leave
  projections per pay-rate template at a location. Each saved entry
  snapshots its cost breakdown so historical forecasts stay stable
  when rates later change. An approval workflow gates when forecast
  data may be edited.

KEY CONCEPTS IN THIS FILE (types.go):
  - LabourForecast / Entry: The forecast document and its grid cells
  - JobForecast: The coarser per-job-number forecast document
  - LabourMachine / JobMachine: The two workflow instances

TWO WORKFLOWS, ONE MACHINE:
  Both documents use the generic workflow machine, but they are
  DISTINCT instances with different state sets and different terminal
  semantics: an approved LabourForecast can be reverted to draft, a
  finalized JobForecast can never leave finalized. Callers must not
  assume symmetry.

SEE ALSO:
  - service.go:  Entry aggregation, fill-right, workflow operations
  - calendar.go: Month and week-ending types
  - store.go:    Persistence interfaces
*/
package forecast

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/labour-engine/payroll"
	"github.com/warp/labour-engine/workflow"
)

// =============================================================================
// LABOUR FORECAST STATUSES AND MACHINE
// =============================================================================

// LabourStatus is the workflow state of a LabourForecast.
type LabourStatus string

const (
	LabourDraft     LabourStatus = "draft"
	LabourSubmitted LabourStatus = "submitted"
	LabourApproved  LabourStatus = "approved"
	LabourRejected  LabourStatus = "rejected"
)

// Transition names shared by both machines.
const (
	TransitionSubmit      = "submit"
	TransitionApprove     = "approve"
	TransitionReject      = "reject"
	TransitionRevert      = "revert_to_draft"
	TransitionMarkAsDraft = "mark_as_draft"
	TransitionFinalize    = "finalize"
)

// LabourMachine is the LabourForecast workflow:
//
//	draft --submit--> submitted --approve--> approved
//	                            --reject--> rejected
//	approved/rejected --revert_to_draft--> draft
//
// approve is revertible; there is no terminal state.
var LabourMachine = workflow.Machine[LabourStatus]{
	Name: "labour_forecast",
	Transitions: []workflow.Transition[LabourStatus]{
		{Name: TransitionSubmit, From: []LabourStatus{LabourDraft}, To: LabourSubmitted, Permission: workflow.PermSubmit},
		{Name: TransitionApprove, From: []LabourStatus{LabourSubmitted}, To: LabourApproved, Permission: workflow.PermApprove},
		{Name: TransitionReject, From: []LabourStatus{LabourSubmitted}, To: LabourRejected, Permission: workflow.PermApprove, RequiresReason: true},
		{Name: TransitionRevert, From: []LabourStatus{LabourApproved, LabourRejected}, To: LabourDraft, Permission: workflow.PermApprove},
	},
}

// =============================================================================
// JOB FORECAST STATUSES AND MACHINE
// =============================================================================

// JobStatus is the workflow state of a JobForecast. Distinct label set
// from LabourStatus, with an extra initial state and an irreversible
// terminal state.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobDraft     JobStatus = "draft"
	JobSubmitted JobStatus = "submitted"
	JobFinalized JobStatus = "finalized"
)

// JobMachine is the JobForecast workflow:
//
//	pending --mark_as_draft--> draft --submit--> submitted
//	submitted --finalize--> finalized        (terminal, locks)
//	submitted --reject--> draft
//	submitted --mark_as_draft--> draft
//
// finalized is terminal: no transition leaves it.
var JobMachine = workflow.Machine[JobStatus]{
	Name: "job_forecast",
	Transitions: []workflow.Transition[JobStatus]{
		{Name: TransitionMarkAsDraft, From: []JobStatus{JobPending, JobSubmitted}, To: JobDraft, Permission: workflow.PermSubmit},
		{Name: TransitionSubmit, From: []JobStatus{JobDraft}, To: JobSubmitted, Permission: workflow.PermSubmit},
		{Name: TransitionFinalize, From: []JobStatus{JobSubmitted}, To: JobFinalized, Permission: workflow.PermApprove},
		{Name: TransitionReject, From: []JobStatus{JobSubmitted}, To: JobDraft, Permission: workflow.PermApprove},
	},
	Terminal: []JobStatus{JobFinalized},
}

// =============================================================================
// LABOUR FORECAST - One document per (location, month)
// =============================================================================

type ForecastID string

// LabourForecast is the monthly forecast document for one location.
// Created implicitly when a location first opens a forecasting month;
// never destroyed.
type LabourForecast struct {
	ID         ForecastID
	LocationID string
	Month      Month
	Status     LabourStatus

	Notes string

	CreatedBy   string
	SubmittedBy string
	SubmittedAt *time.Time
	ApprovedBy  string
	ApprovedAt  *time.Time

	// RejectionReason survives a revert-to-draft so the submitter can
	// see why; it clears on resubmission.
	RejectionReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Editable reports whether entries and template configuration may be
// mutated. Only drafts are editable.
func (f *LabourForecast) Editable() bool {
	return f.Status == LabourDraft
}

// =============================================================================
// FORECAST ENTRY - One grid cell: (forecast, template, week)
// =============================================================================

type EntryID string

// EntryInput is the caller-supplied hours for one cell.
type EntryInput struct {
	Headcount          decimal.Decimal
	OvertimeHours      int
	LeaveHours         decimal.Decimal
	RDOHours           decimal.Decimal
	PublicHolidayHours decimal.Decimal
}

// IsZero reports whether the input clears the cell. Any nonzero hour
// kind materializes an entry.
func (in EntryInput) IsZero() bool {
	return in.Headcount.IsZero() && in.OvertimeHours == 0 &&
		in.LeaveHours.IsZero() && in.RDOHours.IsZero() &&
		in.PublicHolidayHours.IsZero()
}

// Entry is one saved forecast cell. HourlyRate, WeeklyCost and
// Snapshot are captured at save time and never silently recomputed:
// a later rate change affects only entries saved after it.
type Entry struct {
	ID               EntryID
	ForecastID       ForecastID
	TemplateConfigID payroll.TemplateConfigID
	WeekEnding       WeekEnding

	Headcount          decimal.Decimal
	OvertimeHours      int
	LeaveHours         decimal.Decimal
	RDOHours           decimal.Decimal
	PublicHolidayHours decimal.Decimal

	// Captured at save time.
	HourlyRate decimal.Decimal
	WeeklyCost decimal.Decimal
	Snapshot   payroll.CostBreakdown

	SavedAt time.Time
	SavedBy string
}

// OrdinaryHours is headcount x the snapshot's hours per week.
func (e *Entry) OrdinaryHours() decimal.Decimal {
	return e.Headcount.Mul(e.Snapshot.HoursPerWeek)
}

// WorkedHours is ordinary plus overtime hours.
func (e *Entry) WorkedHours() decimal.Decimal {
	return e.OrdinaryHours().Add(decimal.NewFromInt(int64(e.OvertimeHours)))
}

// TotalHours is worked plus leave, RDO and public holiday hours.
func (e *Entry) TotalHours() decimal.Decimal {
	return e.WorkedHours().Add(e.LeaveHours).Add(e.RDOHours).Add(e.PublicHolidayHours)
}

// =============================================================================
// JOB FORECAST - Coarser per-job-number document
// =============================================================================

type JobForecastID string

// JobForecast tracks the forecast review cycle for a job number and
// month. Finalizing locks it permanently.
type JobForecast struct {
	ID          JobForecastID
	JobNumber   string
	Month       Month
	Status      JobStatus
	IsLocked    bool

	SummaryComments string

	CreatedBy   string
	UpdatedBy   string
	SubmittedBy string
	SubmittedAt *time.Time
	FinalizedBy string
	FinalizedAt *time.Time

	RejectionNote string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Editable reports whether forecast data and comments may change.
// Pending and draft are editable; submitted and finalized are not.
func (jf *JobForecast) Editable() bool {
	return jf.Status == JobPending || jf.Status == JobDraft
}
