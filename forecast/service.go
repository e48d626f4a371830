/*
service.go - Forecast entry aggregation and workflow operations

PURPOSE:
  The Service is the single entry point for mutating forecasts. It
  enforces the editability guard (only drafts change), captures cost
  breakdown snapshots at save time, runs the fill-right batch
  operation, and mediates workflow transitions through the generic
  machine with compare-and-swap commits.

ENTRY SAVE FLOW:
  1. Load (or implicitly create) the forecast for (location, month)
  2. Guard: status must be draft, else ForecastLockedError
  3. Guard: week must be in the forecast schedule
  4. Validate hours (negative or over-bound input is rejected whole)
  5. Recompute the breakdown from CURRENT template state, freeze it
     onto the entry along with hourly rate and weekly cost
  6. Replace the cell (last-writer-wins per cell)

CONCURRENCY:
  Two actors editing different cells cannot corrupt totals: totals are
  pure reductions recomputed from entries on read. Two actors racing a
  transition are serialized by the store's compare-and-swap; the loser
  gets workflow.ErrConcurrentModification.

SEE ALSO:
  - types.go:  machines and documents
  - totals.go: monthly reductions
  - store.go:  persistence contract
*/
package forecast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/labour-engine/payroll"
	"github.com/warp/labour-engine/workflow"
)

// Per-week input bounds, matching the admin grid's validation.
var (
	maxHeadcount = decimal.NewFromInt(100)
	maxHours     = decimal.NewFromInt(200)
)

// =============================================================================
// SERVICE
// =============================================================================

// Service orchestrates forecast mutations. All mutating methods take
// an explicit workflow.Actor; there is no ambient current user.
type Service struct {
	Store     Store
	JobStore  JobStore
	Templates TemplateStore
	Calc      *payroll.Calculator

	// ProjectEnd returns the project end date for a location, used to
	// bound the week schedule. Nil (or a zero time) means the default
	// six-month horizon.
	ProjectEnd func(locationID string) time.Time

	Log zerolog.Logger

	now func() time.Time
}

// NewService wires a Service with the real clock.
func NewService(store Store, jobStore JobStore, templates TemplateStore, calc *payroll.Calculator, log zerolog.Logger) *Service {
	return &Service{
		Store:     store,
		JobStore:  jobStore,
		Templates: templates,
		Calc:      calc,
		Log:       log,
		now:       time.Now,
	}
}

// WithClock overrides the clock. Test use.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ScheduleFor returns the week columns for a location's forecast month.
func (s *Service) ScheduleFor(locationID string, month Month) Schedule {
	var end time.Time
	if s.ProjectEnd != nil {
		end = s.ProjectEnd(locationID)
	}
	return BuildSchedule(month, end)
}

// =============================================================================
// FORECAST LIFECYCLE
// =============================================================================

// OpenForecast returns the forecast for (location, month), creating a
// draft implicitly the first time the month is opened.
func (s *Service) OpenForecast(ctx context.Context, locationID string, month Month, actor workflow.Actor) (*LabourForecast, error) {
	f, err := s.Store.GetForecast(ctx, locationID, month)
	if err == nil {
		return f, nil
	}
	if err != ErrForecastNotFound {
		return nil, err
	}

	now := s.now()
	f = &LabourForecast{
		ID:         ForecastID(uuid.NewString()),
		LocationID: locationID,
		Month:      month,
		Status:     LabourDraft,
		CreatedBy:  actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Store.CreateForecast(ctx, f); err != nil {
		return nil, err
	}
	s.Log.Info().
		Str("forecast_id", string(f.ID)).
		Str("location_id", locationID).
		Str("month", month.String()).
		Msg("forecast created")
	return f, nil
}

// openEditable loads the forecast and enforces the edit permission
// and the draft-only guard.
func (s *Service) openEditable(ctx context.Context, locationID string, month Month, actor workflow.Actor) (*LabourForecast, error) {
	if !actor.Can(workflow.PermEdit) {
		return nil, &workflow.PermissionError{
			Machine:    LabourMachine.Name,
			Transition: "edit",
			ActorID:    actor.ID,
			Permission: workflow.PermEdit,
		}
	}
	f, err := s.OpenForecast(ctx, locationID, month, actor)
	if err != nil {
		return nil, err
	}
	if !f.Editable() {
		return nil, &ForecastLockedError{ForecastID: f.ID, Status: string(f.Status)}
	}
	return f, nil
}

// UpdateNotes sets free-text notes on a draft forecast.
func (s *Service) UpdateNotes(ctx context.Context, locationID string, month Month, notes string, actor workflow.Actor) error {
	f, err := s.openEditable(ctx, locationID, month, actor)
	if err != nil {
		return err
	}
	f.Notes = notes
	f.UpdatedAt = s.now()
	return s.Store.UpdateForecastMeta(ctx, f)
}

// =============================================================================
// ENTRY UPSERT
// =============================================================================

func validateInput(in EntryInput) error {
	if in.Headcount.IsNegative() {
		return &payroll.ValidationError{Field: "headcount", Message: "cannot be negative", Value: in.Headcount.String()}
	}
	if in.Headcount.GreaterThan(maxHeadcount) {
		return &payroll.ValidationError{Field: "headcount", Message: "exceeds maximum of 100", Value: in.Headcount.String()}
	}
	if in.OvertimeHours < 0 {
		return &payroll.ValidationError{Field: "overtime_hours", Message: "cannot be negative"}
	}
	if decimal.NewFromInt(int64(in.OvertimeHours)).GreaterThan(maxHours) {
		return &payroll.ValidationError{Field: "overtime_hours", Message: "exceeds maximum of 200"}
	}
	if in.LeaveHours.IsNegative() {
		return &payroll.ValidationError{Field: "leave_hours", Message: "cannot be negative", Value: in.LeaveHours.String()}
	}
	if in.LeaveHours.GreaterThan(maxHours) {
		return &payroll.ValidationError{Field: "leave_hours", Message: "exceeds maximum of 200", Value: in.LeaveHours.String()}
	}
	if in.RDOHours.IsNegative() {
		return &payroll.ValidationError{Field: "rdo_hours", Message: "cannot be negative", Value: in.RDOHours.String()}
	}
	if in.RDOHours.GreaterThan(maxHours) {
		return &payroll.ValidationError{Field: "rdo_hours", Message: "exceeds maximum of 200", Value: in.RDOHours.String()}
	}
	if in.PublicHolidayHours.IsNegative() {
		return &payroll.ValidationError{Field: "public_holiday_hours", Message: "cannot be negative", Value: in.PublicHolidayHours.String()}
	}
	if in.PublicHolidayHours.GreaterThan(maxHours) {
		return &payroll.ValidationError{Field: "public_holiday_hours", Message: "exceeds maximum of 200", Value: in.PublicHolidayHours.String()}
	}
	return nil
}

// UpsertEntry replaces the cell for (forecast, template, week) with a
// freshly snapshotted entry. An all-zero input clears the cell. The
// call is all-or-nothing: validation and the editability guard run
// before anything is written.
func (s *Service) UpsertEntry(ctx context.Context, locationID string, month Month, templateID payroll.TemplateConfigID, week WeekEnding, in EntryInput, actor workflow.Actor) (*Entry, error) {
	f, err := s.openEditable(ctx, locationID, month, actor)
	if err != nil {
		return nil, err
	}

	schedule := s.ScheduleFor(locationID, month)
	if !schedule.Contains(week) {
		return nil, &payroll.ValidationError{Field: "week_ending", Message: "week is outside the forecast schedule", Value: week.String()}
	}

	if err := validateInput(in); err != nil {
		return nil, err
	}

	if in.IsZero() {
		if err := s.Store.DeleteEntry(ctx, f.ID, templateID, week); err != nil {
			return nil, err
		}
		return nil, nil
	}

	entry, err := s.buildEntry(ctx, f, templateID, week, in, actor)
	if err != nil {
		return nil, err
	}
	if err := s.Store.PutEntry(ctx, *entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// buildEntry computes the snapshot and derived cost for one cell from
// the template's CURRENT state. The snapshot is frozen from here on.
func (s *Service) buildEntry(ctx context.Context, f *LabourForecast, templateID payroll.TemplateConfigID, week WeekEnding, in EntryInput, actor workflow.Actor) (*Entry, error) {
	tc, err := s.Templates.GetTemplateConfig(ctx, templateID)
	if err != nil {
		return nil, err
	}

	set, err := payroll.ResolveAllowances(tc)
	if err != nil {
		return nil, err
	}
	bd, err := s.Calc.ComputeBreakdown(tc, set)
	if err != nil {
		return nil, err
	}

	cost := in.Headcount.Mul(bd.TotalWeeklyCost)
	if in.OvertimeHours > 0 {
		premium, err := s.Calc.OvertimePremium(tc, decimal.NewFromInt(int64(in.OvertimeHours)))
		if err != nil {
			return nil, err
		}
		cost = cost.Add(premium)
	}
	if in.RDOHours.IsPositive() {
		rdo, err := s.Calc.RDOHourCost(tc, set, in.RDOHours)
		if err != nil {
			return nil, err
		}
		cost = cost.Add(rdo)
	}
	if in.PublicHolidayHours.IsPositive() {
		ph, err := s.Calc.PublicHolidayHourCost(tc, in.PublicHolidayHours)
		if err != nil {
			return nil, err
		}
		cost = cost.Add(ph)
	}

	return &Entry{
		ID:                 EntryID(uuid.NewString()),
		ForecastID:         f.ID,
		TemplateConfigID:   templateID,
		WeekEnding:         week,
		Headcount:          in.Headcount,
		OvertimeHours:      in.OvertimeHours,
		LeaveHours:         in.LeaveHours,
		RDOHours:           in.RDOHours,
		PublicHolidayHours: in.PublicHolidayHours,
		HourlyRate:         tc.HourlyRate,
		WeeklyCost:         cost,
		Snapshot:           bd,
		SavedAt:            s.now(),
		SavedBy:            actor.ID,
	}, nil
}

// =============================================================================
// FILL RIGHT - Copy a cell across subsequent weeks, atomically
// =============================================================================

// FillSpan selects how many weeks a fill-right covers.
type FillSpan int

const (
	Fill4     FillSpan = 4
	Fill8     FillSpan = 8
	Fill12    FillSpan = 12
	FillToEnd FillSpan = -1
)

// Valid reports whether the span is one of the allowed widths.
func (fs FillSpan) Valid() bool {
	switch fs {
	case Fill4, Fill8, Fill12, FillToEnd:
		return true
	}
	return false
}

// FillRight copies the source cell's hours across the next span weeks.
// Applied atomically: when any target week falls outside the schedule
// the whole batch aborts and no week is modified. Each target gets a
// fresh snapshot (a fill is a save).
func (s *Service) FillRight(ctx context.Context, locationID string, month Month, templateID payroll.TemplateConfigID, source WeekEnding, span FillSpan, actor workflow.Actor) ([]Entry, error) {
	if !span.Valid() {
		return nil, &payroll.ValidationError{Field: "span", Message: "span must be 4, 8, 12 or to-end"}
	}

	f, err := s.openEditable(ctx, locationID, month, actor)
	if err != nil {
		return nil, err
	}

	schedule := s.ScheduleFor(locationID, month)
	srcIdx := schedule.IndexOf(source)
	if srcIdx < 0 {
		return nil, &payroll.ValidationError{Field: "week_ending", Message: "source week is outside the forecast schedule", Value: source.String()}
	}

	// Resolve the target columns BEFORE writing anything.
	lastIdx := len(schedule.Weeks) - 1
	endIdx := lastIdx
	if span != FillToEnd {
		endIdx = srcIdx + int(span)
		if endIdx > lastIdx {
			return nil, &payroll.ValidationError{
				Field:   "span",
				Message: "fill extends past the final forecast week",
				Value:   schedule.Weeks[lastIdx].String(),
			}
		}
	}
	targets := schedule.Weeks[srcIdx+1 : endIdx+1]
	if len(targets) == 0 {
		return nil, nil
	}

	src, err := s.findEntry(ctx, f.ID, templateID, source)
	if err != nil {
		return nil, err
	}
	in := EntryInput{
		Headcount:          src.Headcount,
		OvertimeHours:      src.OvertimeHours,
		LeaveHours:         src.LeaveHours,
		RDOHours:           src.RDOHours,
		PublicHolidayHours: src.PublicHolidayHours,
	}

	entries := make([]Entry, 0, len(targets))
	for _, week := range targets {
		e, err := s.buildEntry(ctx, f, templateID, week, in, actor)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}

	// Single atomic write: all target weeks land or none do.
	if err := s.Store.PutEntries(ctx, entries); err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("forecast_id", string(f.ID)).
		Str("template_id", string(templateID)).
		Str("source_week", source.String()).
		Int("weeks_filled", len(entries)).
		Msg("fill-right applied")
	return entries, nil
}

func (s *Service) findEntry(ctx context.Context, forecastID ForecastID, templateID payroll.TemplateConfigID, week WeekEnding) (*Entry, error) {
	entries, err := s.Store.Entries(ctx, forecastID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].TemplateConfigID == templateID && entries[i].WeekEnding.Equal(week) {
			return &entries[i], nil
		}
	}
	return nil, ErrEntryNotFound
}

// =============================================================================
// COPY FROM PREVIOUS MONTH
// =============================================================================

// CopyFromPreviousMonth copies all entries of the nearest prior
// forecast month into the target month, re-snapshotting each cell at
// current rates. Weeks carry by absolute week-ending date; cells
// falling outside the target schedule are skipped. Returns the number
// of entries created.
func (s *Service) CopyFromPreviousMonth(ctx context.Context, locationID string, target Month, actor workflow.Actor) (int, error) {
	f, err := s.openEditable(ctx, locationID, target, actor)
	if err != nil {
		return 0, err
	}

	prior, err := s.latestPriorForecast(ctx, locationID, target)
	if err != nil {
		return 0, err
	}
	srcEntries, err := s.Store.Entries(ctx, prior.ID)
	if err != nil {
		return 0, err
	}

	schedule := s.ScheduleFor(locationID, target)
	var copied []Entry
	for _, src := range srcEntries {
		if !schedule.Contains(src.WeekEnding) {
			continue
		}
		in := EntryInput{
			Headcount:          src.Headcount,
			OvertimeHours:      src.OvertimeHours,
			LeaveHours:         src.LeaveHours,
			RDOHours:           src.RDOHours,
			PublicHolidayHours: src.PublicHolidayHours,
		}
		e, err := s.buildEntry(ctx, f, src.TemplateConfigID, src.WeekEnding, in, actor)
		if err != nil {
			return 0, err
		}
		copied = append(copied, *e)
	}
	if len(copied) == 0 {
		return 0, nil
	}
	if err := s.Store.PutEntries(ctx, copied); err != nil {
		return 0, err
	}
	return len(copied), nil
}

func (s *Service) latestPriorForecast(ctx context.Context, locationID string, target Month) (*LabourForecast, error) {
	forecasts, err := s.Store.ListForecasts(ctx, locationID)
	if err != nil {
		return nil, err
	}
	for _, f := range forecasts { // newest first
		if f.Month.Before(target) {
			return f, nil
		}
	}
	return nil, ErrForecastNotFound
}

// =============================================================================
// TEMPLATE CONFIGURATION - Gated on forecast editability
// =============================================================================

// UpdateTemplateConfig replaces a template config. Allowed only while
// the location's forecast for the given month is editable (or does
// not exist yet). Already-saved entries keep their snapshots; the new
// rates affect only entries saved afterwards.
func (s *Service) UpdateTemplateConfig(ctx context.Context, month Month, tc *payroll.TemplateConfig, actor workflow.Actor) error {
	if !actor.Can(workflow.PermEdit) {
		return &workflow.PermissionError{
			Machine:    LabourMachine.Name,
			Transition: "edit",
			ActorID:    actor.ID,
			Permission: workflow.PermEdit,
		}
	}
	f, err := s.Store.GetForecast(ctx, tc.LocationID, month)
	if err != nil && err != ErrForecastNotFound {
		return err
	}
	if f != nil && !f.Editable() {
		return &ForecastLockedError{ForecastID: f.ID, Status: string(f.Status)}
	}
	if tc.HourlyRate.IsNegative() {
		return &payroll.ValidationError{Field: "hourly_rate", Message: "hourly rate cannot be negative", Value: tc.HourlyRate.String()}
	}
	if tc.HoursPerWeek.IsNegative() {
		return &payroll.ValidationError{Field: "hours_per_week", Message: "hours per week cannot be negative", Value: tc.HoursPerWeek.String()}
	}
	return s.Templates.PutTemplateConfig(ctx, tc)
}

// =============================================================================
// LABOUR FORECAST WORKFLOW
// =============================================================================

// Submit moves a draft forecast into review. Clears any prior
// rejection reason (resubmission).
func (s *Service) Submit(ctx context.Context, locationID string, month Month, actor workflow.Actor) (*LabourForecast, error) {
	return s.transition(ctx, locationID, month, TransitionSubmit, actor, "", func(f *LabourForecast) {
		now := s.now()
		f.SubmittedBy = actor.ID
		f.SubmittedAt = &now
		f.RejectionReason = ""
	})
}

// Approve accepts a submitted forecast.
func (s *Service) Approve(ctx context.Context, locationID string, month Month, actor workflow.Actor) (*LabourForecast, error) {
	return s.transition(ctx, locationID, month, TransitionApprove, actor, "", func(f *LabourForecast) {
		now := s.now()
		f.ApprovedBy = actor.ID
		f.ApprovedAt = &now
	})
}

// Reject returns a submitted forecast with a mandatory reason.
func (s *Service) Reject(ctx context.Context, locationID string, month Month, reason string, actor workflow.Actor) (*LabourForecast, error) {
	reason = strings.TrimSpace(reason)
	return s.transition(ctx, locationID, month, TransitionReject, actor, reason, func(f *LabourForecast) {
		f.RejectionReason = reason
	})
}

// RevertToDraft reopens an approved or rejected forecast for editing.
// Submission/approval metadata clears; a rejection reason survives
// until resubmission.
func (s *Service) RevertToDraft(ctx context.Context, locationID string, month Month, actor workflow.Actor) (*LabourForecast, error) {
	return s.transition(ctx, locationID, month, TransitionRevert, actor, "", func(f *LabourForecast) {
		f.SubmittedBy = ""
		f.SubmittedAt = nil
		f.ApprovedBy = ""
		f.ApprovedAt = nil
	})
}

// reasonAsValidation folds a missing mandatory reason into the input
// validation taxonomy, so callers matching either sentinel catch it.
func reasonAsValidation(err error) error {
	if errors.Is(err, workflow.ErrReasonRequired) {
		return fmt.Errorf("%w: %w", payroll.ErrValidation, err)
	}
	return err
}

func (s *Service) transition(ctx context.Context, locationID string, month Month, name string, actor workflow.Actor, reason string, fn func(*LabourForecast)) (*LabourForecast, error) {
	f, err := s.Store.GetForecast(ctx, locationID, month)
	if err != nil {
		return nil, err
	}

	out, err := LabourMachine.Resolve(name, f.Status, actor, reason)
	if err != nil {
		return nil, reasonAsValidation(err)
	}

	// Commit with compare-and-swap on the observed status.
	updated, err := s.Store.TransitionForecast(ctx, f.ID, out.From, out.To, func(f *LabourForecast) {
		fn(f)
		f.UpdatedAt = s.now()
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("forecast_id", string(f.ID)).
		Str("transition", name).
		Str("from", string(out.From)).
		Str("to", string(out.To)).
		Str("actor", actor.ID).
		Msg("labour forecast transition")
	return updated, nil
}

// =============================================================================
// JOB FORECAST WORKFLOW
// =============================================================================

// OpenJobForecast returns the job forecast for (jobNumber, month),
// creating a pending document the first time.
func (s *Service) OpenJobForecast(ctx context.Context, jobNumber string, month Month, actor workflow.Actor) (*JobForecast, error) {
	jf, err := s.JobStore.GetJobForecast(ctx, jobNumber, month)
	if err == nil {
		return jf, nil
	}
	if err != ErrForecastNotFound {
		return nil, err
	}

	now := s.now()
	jf = &JobForecast{
		ID:        JobForecastID(uuid.NewString()),
		JobNumber: jobNumber,
		Month:     month,
		Status:    JobPending,
		CreatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.JobStore.CreateJobForecast(ctx, jf); err != nil {
		return nil, err
	}
	return jf, nil
}

// MarkJobAsDraft moves a pending or submitted job forecast to draft.
func (s *Service) MarkJobAsDraft(ctx context.Context, jobNumber string, month Month, actor workflow.Actor) (*JobForecast, error) {
	return s.jobTransition(ctx, jobNumber, month, TransitionMarkAsDraft, actor, "", func(jf *JobForecast) {
		jf.SubmittedBy = ""
		jf.SubmittedAt = nil
	})
}

// SubmitJob sends a draft job forecast for review.
func (s *Service) SubmitJob(ctx context.Context, jobNumber string, month Month, actor workflow.Actor) (*JobForecast, error) {
	return s.jobTransition(ctx, jobNumber, month, TransitionSubmit, actor, "", func(jf *JobForecast) {
		now := s.now()
		jf.SubmittedBy = actor.ID
		jf.SubmittedAt = &now
	})
}

// FinalizeJob locks a submitted job forecast permanently. finalized is
// terminal - unlike an approved LabourForecast, there is no way back.
func (s *Service) FinalizeJob(ctx context.Context, jobNumber string, month Month, actor workflow.Actor) (*JobForecast, error) {
	return s.jobTransition(ctx, jobNumber, month, TransitionFinalize, actor, "", func(jf *JobForecast) {
		now := s.now()
		jf.IsLocked = true
		jf.FinalizedBy = actor.ID
		jf.FinalizedAt = &now
	})
}

// RejectJob sends a submitted job forecast back to draft. The note is
// optional here, unlike the labour forecast's mandatory reason.
func (s *Service) RejectJob(ctx context.Context, jobNumber string, month Month, note string, actor workflow.Actor) (*JobForecast, error) {
	return s.jobTransition(ctx, jobNumber, month, TransitionReject, actor, note, func(jf *JobForecast) {
		jf.SubmittedBy = ""
		jf.SubmittedAt = nil
		jf.RejectionNote = note
	})
}

// UpdateJobSummary sets the summary comments on an editable job
// forecast.
func (s *Service) UpdateJobSummary(ctx context.Context, jobNumber string, month Month, comments string, actor workflow.Actor) error {
	if !actor.Can(workflow.PermEdit) {
		return &workflow.PermissionError{
			Machine:    JobMachine.Name,
			Transition: "edit",
			ActorID:    actor.ID,
			Permission: workflow.PermEdit,
		}
	}
	jf, err := s.OpenJobForecast(ctx, jobNumber, month, actor)
	if err != nil {
		return err
	}
	if !jf.Editable() {
		return &ForecastLockedError{ForecastID: ForecastID(jf.ID), Status: string(jf.Status)}
	}
	jf.SummaryComments = comments
	jf.UpdatedBy = actor.ID
	jf.UpdatedAt = s.now()
	return s.JobStore.UpdateJobForecastMeta(ctx, jf)
}

func (s *Service) jobTransition(ctx context.Context, jobNumber string, month Month, name string, actor workflow.Actor, reason string, fn func(*JobForecast)) (*JobForecast, error) {
	jf, err := s.JobStore.GetJobForecast(ctx, jobNumber, month)
	if err != nil {
		return nil, err
	}

	out, err := JobMachine.Resolve(name, jf.Status, actor, reason)
	if err != nil {
		return nil, reasonAsValidation(err)
	}

	updated, err := s.JobStore.TransitionJobForecast(ctx, jf.ID, out.From, out.To, func(jf *JobForecast) {
		fn(jf)
		jf.UpdatedBy = actor.ID
		jf.UpdatedAt = s.now()
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info().
		Str("job_forecast_id", string(jf.ID)).
		Str("transition", name).
		Str("from", string(out.From)).
		Str("to", string(out.To)).
		Str("actor", actor.ID).
		Msg("job forecast transition")
	return updated, nil
}
