/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DECIMALS:
  Money and hours cross the wire as decimal strings ("1866.40"), never
  floats. Clients that want numbers parse them; clients that display
  them pass them through.

VALIDATION:
  Structural validation (parseable month, parseable decimals) happens
  while mapping DTOs; business validation stays in the forecast and
  payroll packages.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/ratecard.go: RateCardJSON type reused for template payloads
*/
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/labour-engine/forecast"
	"github.com/warp/labour-engine/payroll"
	"github.com/warp/labour-engine/workflow"
)

// =============================================================================
// FORECASTS
// =============================================================================

// ForecastDTO represents a labour forecast document.
type ForecastDTO struct {
	ID              string  `json:"id"`
	LocationID      string  `json:"location_id"`
	Month           string  `json:"month"`
	Status          string  `json:"status"`
	Editable        bool    `json:"editable"`
	Notes           string  `json:"notes,omitempty"`
	CreatedBy       string  `json:"created_by"`
	SubmittedBy     string  `json:"submitted_by,omitempty"`
	SubmittedAt     *string `json:"submitted_at,omitempty"`
	ApprovedBy      string  `json:"approved_by,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	UpdatedAt       string  `json:"updated_at"`

	Weeks []string `json:"weeks,omitempty"`
}

func toForecastDTO(f *forecast.LabourForecast, schedule forecast.Schedule) ForecastDTO {
	dto := ForecastDTO{
		ID:              string(f.ID),
		LocationID:      f.LocationID,
		Month:           f.Month.String(),
		Status:          string(f.Status),
		Editable:        f.Editable(),
		Notes:           f.Notes,
		CreatedBy:       f.CreatedBy,
		SubmittedBy:     f.SubmittedBy,
		SubmittedAt:     fmtTimePtr(f.SubmittedAt),
		ApprovedBy:      f.ApprovedBy,
		ApprovedAt:      fmtTimePtr(f.ApprovedAt),
		RejectionReason: f.RejectionReason,
		UpdatedAt:       f.UpdatedAt.Format(time.RFC3339),
	}
	for _, w := range schedule.Weeks {
		dto.Weeks = append(dto.Weeks, w.String())
	}
	return dto
}

// EntryDTO represents one grid cell.
type EntryDTO struct {
	ID               string                `json:"id"`
	TemplateConfigID string                `json:"template_config_id"`
	WeekEnding       string                `json:"week_ending"`
	Headcount        string                `json:"headcount"`
	OvertimeHours    int                   `json:"overtime_hours"`
	LeaveHours       string                `json:"leave_hours"`
	RDOHours         string                `json:"rdo_hours"`
	PublicHolHours   string                `json:"public_holiday_hours"`
	HourlyRate       string                `json:"hourly_rate"`
	WeeklyCost       string                `json:"weekly_cost"`
	Snapshot         payroll.CostBreakdown `json:"snapshot"`
	SavedAt          string                `json:"saved_at"`
	SavedBy          string                `json:"saved_by"`
}

func toEntryDTO(e *forecast.Entry) EntryDTO {
	return EntryDTO{
		ID:               string(e.ID),
		TemplateConfigID: string(e.TemplateConfigID),
		WeekEnding:       e.WeekEnding.String(),
		Headcount:        e.Headcount.String(),
		OvertimeHours:    e.OvertimeHours,
		LeaveHours:       e.LeaveHours.String(),
		RDOHours:         e.RDOHours.String(),
		PublicHolHours:   e.PublicHolidayHours.String(),
		HourlyRate:       e.HourlyRate.String(),
		WeeklyCost:       e.WeeklyCost.String(),
		Snapshot:         e.Snapshot,
		SavedAt:          e.SavedAt.Format(time.RFC3339),
		SavedBy:          e.SavedBy,
	}
}

// SaveEntryRequest writes one cell. Zero values clear the cell.
type SaveEntryRequest struct {
	TemplateConfigID string `json:"template_config_id"`
	WeekEnding       string `json:"week_ending"`
	Headcount        string `json:"headcount,omitempty"`
	OvertimeHours    int    `json:"overtime_hours,omitempty"`
	LeaveHours       string `json:"leave_hours,omitempty"`
	RDOHours         string `json:"rdo_hours,omitempty"`
	PublicHolHours   string `json:"public_holiday_hours,omitempty"`
}

func (r SaveEntryRequest) toInput() (forecast.EntryInput, error) {
	var (
		in  forecast.EntryInput
		err error
	)
	if in.Headcount, err = parseOptionalDecimal(r.Headcount, "headcount"); err != nil {
		return in, err
	}
	if in.LeaveHours, err = parseOptionalDecimal(r.LeaveHours, "leave_hours"); err != nil {
		return in, err
	}
	if in.RDOHours, err = parseOptionalDecimal(r.RDOHours, "rdo_hours"); err != nil {
		return in, err
	}
	if in.PublicHolidayHours, err = parseOptionalDecimal(r.PublicHolHours, "public_holiday_hours"); err != nil {
		return in, err
	}
	in.OvertimeHours = r.OvertimeHours
	return in, nil
}

// FillRightRequest copies a cell across subsequent weeks.
type FillRightRequest struct {
	TemplateConfigID string `json:"template_config_id"`
	WeekEnding       string `json:"week_ending"`
	// Span is 4, 8, 12 or "to_end".
	Span string `json:"span"`
}

func (r FillRightRequest) span() (forecast.FillSpan, error) {
	switch r.Span {
	case "4":
		return forecast.Fill4, nil
	case "8":
		return forecast.Fill8, nil
	case "12":
		return forecast.Fill12, nil
	case "to_end":
		return forecast.FillToEnd, nil
	}
	return 0, fmt.Errorf("invalid span %q (expected 4, 8, 12 or to_end)", r.Span)
}

// TransitionRequest carries the optional reason for reject.
type TransitionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// NotesRequest updates forecast notes.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// =============================================================================
// JOB FORECASTS
// =============================================================================

// JobForecastDTO represents a job forecast document.
type JobForecastDTO struct {
	ID              string  `json:"id"`
	JobNumber       string  `json:"job_number"`
	Month           string  `json:"month"`
	Status          string  `json:"status"`
	IsLocked        bool    `json:"is_locked"`
	Editable        bool    `json:"editable"`
	SummaryComments string  `json:"summary_comments,omitempty"`
	SubmittedBy     string  `json:"submitted_by,omitempty"`
	SubmittedAt     *string `json:"submitted_at,omitempty"`
	FinalizedBy     string  `json:"finalized_by,omitempty"`
	FinalizedAt     *string `json:"finalized_at,omitempty"`
	RejectionNote   string  `json:"rejection_note,omitempty"`
	UpdatedAt       string  `json:"updated_at"`
}

func toJobForecastDTO(jf *forecast.JobForecast) JobForecastDTO {
	return JobForecastDTO{
		ID:              string(jf.ID),
		JobNumber:       jf.JobNumber,
		Month:           jf.Month.String(),
		Status:          string(jf.Status),
		IsLocked:        jf.IsLocked,
		Editable:        jf.Editable(),
		SummaryComments: jf.SummaryComments,
		SubmittedBy:     jf.SubmittedBy,
		SubmittedAt:     fmtTimePtr(jf.SubmittedAt),
		FinalizedBy:     jf.FinalizedBy,
		FinalizedAt:     fmtTimePtr(jf.FinalizedAt),
		RejectionNote:   jf.RejectionNote,
		UpdatedAt:       jf.UpdatedAt.Format(time.RFC3339),
	}
}

// SummaryCommentsRequest updates job forecast commentary.
type SummaryCommentsRequest struct {
	SummaryComments string `json:"summary_comments"`
}

// =============================================================================
// TEMPLATE CONFIGS
// =============================================================================

// TemplateConfigDTO represents a pay-rate template with its resolved
// allowances and a breakdown preview at current rates.
type TemplateConfigDTO struct {
	ID                    string                `json:"id"`
	LocationID            string                `json:"location_id"`
	Label                 string                `json:"label,omitempty"`
	HourlyRate            string                `json:"hourly_rate"`
	HoursPerWeek          string                `json:"hours_per_week"`
	CostCodePrefix        string                `json:"cost_code_prefix,omitempty"`
	OvertimeEnabled       bool                  `json:"overtime_enabled"`
	LeaveMarkupsJobCosted bool                  `json:"leave_markups_job_costed"`
	Allowances            payroll.AllowanceSet  `json:"allowances"`
	Breakdown             payroll.CostBreakdown `json:"breakdown"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// HELPERS
// =============================================================================

func fmtTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func parseOptionalDecimal(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q", field, s)
	}
	return v, nil
}

// actorFromHeaders builds the acting user from request headers. The
// gateway in front of this service resolves authentication and passes
// identity through; a missing header set means an anonymous actor with
// no permissions, which every transition rejects.
func actorFromHeaders(id, name, perms string) workflow.Actor {
	actor := workflow.Actor{ID: id, Name: name}
	for _, p := range strings.Split(perms, ",") {
		switch strings.TrimSpace(p) {
		case "edit":
			actor.Permissions = append(actor.Permissions, workflow.PermEdit)
		case "submit":
			actor.Permissions = append(actor.Permissions, workflow.PermSubmit)
		case "approve":
			actor.Permissions = append(actor.Permissions, workflow.PermApprove)
		}
	}
	return actor
}
