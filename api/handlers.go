/*
handlers.go - HTTP handlers for the labour forecasting API

PURPOSE:
  Maps HTTP requests onto the forecast service: grid reads and writes,
  fill-right, totals, workflow transitions, template configuration and
  job forecast operations.

ERROR MAPPING:
  Domain errors translate to status codes in one place (writeDomainError):
    validation            -> 422
    locked forecast       -> 409
    illegal transition    -> 409
    concurrent write      -> 409
    permission denied     -> 403
    missing reason        -> 422
    not found             -> 404
  Everything else is a 500 with the detail attached.

ACTOR IDENTITY:
  Handlers never assume an ambient current user. The acting user
  arrives in X-Actor-Id / X-Actor-Name / X-Actor-Permissions headers
  (set by the authenticating gateway) and is passed explicitly to
  every service call.

SEE ALSO:
  - server.go: Route wiring
  - dto.go: Payload shapes
  - forecast/service.go: The logic these handlers front
*/
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"github.com/warp/labour-engine/forecast"
	"github.com/warp/labour-engine/payroll"
	"github.com/warp/labour-engine/workflow"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Svc *forecast.Service
	Log zerolog.Logger
}

// NewHandler creates a new handler around the forecast service.
func NewHandler(svc *forecast.Service, log zerolog.Logger) *Handler {
	return &Handler{Svc: svc, Log: log}
}

func actorFromRequest(r *http.Request) workflow.Actor {
	return actorFromHeaders(
		r.Header.Get("X-Actor-Id"),
		r.Header.Get("X-Actor-Name"),
		r.Header.Get("X-Actor-Permissions"),
	)
}

func monthParam(r *http.Request) (forecast.Month, error) {
	return forecast.ParseMonth(chi.URLParam(r, "month"))
}

// =============================================================================
// FORECAST HANDLERS
// =============================================================================

// GetForecast returns the forecast document, its week columns and all
// saved entries. Opening an untouched month creates the draft.
// GET /api/locations/{locationID}/forecasts/{month}
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationID")
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	f, err := h.Svc.OpenForecast(r.Context(), locationID, month, actorFromRequest(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	entries, err := h.Svc.Store.Entries(r.Context(), f.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i := range entries {
		dtos[i] = toEntryDTO(&entries[i])
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, struct {
		Forecast ForecastDTO `json:"forecast"`
		Entries  []EntryDTO  `json:"entries"`
	}{
		Forecast: toForecastDTO(f, h.Svc.ScheduleFor(locationID, month)),
		Entries:  dtos,
	})
}

// SaveEntry writes one grid cell.
// PUT /api/locations/{locationID}/forecasts/{month}/entries
func (h *Handler) SaveEntry(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationID")
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	var req SaveEntryRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	week, err := forecast.ParseWeekEnding(req.WeekEnding)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid week_ending (use YYYY-MM-DD)", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid entry values", err)
		return
	}

	entry, err := h.Svc.UpsertEntry(r.Context(), locationID, month,
		payroll.TemplateConfigID(req.TemplateConfigID), week, in, actorFromRequest(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if entry == nil {
		// Zero input cleared the cell.
		render.NoContent(w, r)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, toEntryDTO(entry))
}

// FillRight copies a cell across the following weeks.
// POST /api/locations/{locationID}/forecasts/{month}/fill-right
func (h *Handler) FillRight(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationID")
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	var req FillRightRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	week, err := forecast.ParseWeekEnding(req.WeekEnding)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid week_ending (use YYYY-MM-DD)", err)
		return
	}
	span, err := req.span()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid span", err)
		return
	}

	filled, err := h.Svc.FillRight(r.Context(), locationID, month,
		payroll.TemplateConfigID(req.TemplateConfigID), week, span, actorFromRequest(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	dtos := make([]EntryDTO, len(filled))
	for i := range filled {
		dtos[i] = toEntryDTO(&filled[i])
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, dtos)
}

// GetTotals returns the recomputed aggregates.
// GET /api/locations/{locationID}/forecasts/{month}/totals
func (h *Handler) GetTotals(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationID")
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	totals, err := h.Svc.Totals(r.Context(), locationID, month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, totals)
}

// GetCostCodeRollup returns the general-ledger split of the forecast.
// GET /api/locations/{locationID}/forecasts/{month}/cost-codes
func (h *Handler) GetCostCodeRollup(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationID")
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	lines, err := h.Svc.CostCodeRollup(r.Context(), locationID, month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, lines)
}

// UpdateNotes replaces the forecast's notes.
// PUT /api/locations/{locationID}/forecasts/{month}/notes
func (h *Handler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationID")
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	var req NotesRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Svc.UpdateNotes(r.Context(), locationID, month, req.Notes, actorFromRequest(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// CopyFromPreviousMonth seeds the month from the latest prior one.
// POST /api/locations/{locationID}/forecasts/{month}/copy-previous
func (h *Handler) CopyFromPreviousMonth(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationID")
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	n, err := h.Svc.CopyFromPreviousMonth(r.Context(), locationID, month, actorFromRequest(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]int{"entries_copied": n})
}

// =============================================================================
// WORKFLOW HANDLERS
// =============================================================================

// Transition runs one named workflow transition.
// POST /api/locations/{locationID}/forecasts/{month}/{transition}
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationID")
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	var req TransitionRequest
	if r.ContentLength > 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	actor := actorFromRequest(r)
	ctx := r.Context()

	var f *forecast.LabourForecast
	switch chi.URLParam(r, "transition") {
	case forecast.TransitionSubmit:
		f, err = h.Svc.Submit(ctx, locationID, month, actor)
	case forecast.TransitionApprove:
		f, err = h.Svc.Approve(ctx, locationID, month, actor)
	case forecast.TransitionReject:
		f, err = h.Svc.Reject(ctx, locationID, month, req.Reason, actor)
	case forecast.TransitionRevert:
		f, err = h.Svc.RevertToDraft(ctx, locationID, month, actor)
	default:
		writeError(w, r, http.StatusNotFound, "Unknown transition", nil)
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, toForecastDTO(f, h.Svc.ScheduleFor(locationID, month)))
}

// =============================================================================
// TEMPLATE CONFIG HANDLERS
// =============================================================================

// ListTemplateConfigs returns all templates for a location with a
// breakdown preview at current rates.
// GET /api/locations/{locationID}/templates
func (h *Handler) ListTemplateConfigs(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationID")

	configs, err := h.Svc.Templates.ListTemplateConfigs(r.Context(), locationID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	dtos := make([]TemplateConfigDTO, 0, len(configs))
	for _, tc := range configs {
		dto, err := h.toTemplateDTO(tc)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		dtos = append(dtos, dto)
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, dtos)
}

// PreviewBreakdown computes the weekly breakdown for a template
// without saving anything.
// GET /api/templates/{templateID}/breakdown
func (h *Handler) PreviewBreakdown(w http.ResponseWriter, r *http.Request) {
	id := payroll.TemplateConfigID(chi.URLParam(r, "templateID"))

	tc, err := h.Svc.Templates.GetTemplateConfig(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	bd, err := h.Svc.Calc.Breakdown(tc)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, bd)
}

// UpdateTemplateAllowances replaces a template's rates and allowance
// assignments, gated on the month's forecast being editable.
// PUT /api/locations/{locationID}/forecasts/{month}/templates/{templateID}
func (h *Handler) UpdateTemplateAllowances(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}
	id := payroll.TemplateConfigID(chi.URLParam(r, "templateID"))

	tc, err := h.Svc.Templates.GetTemplateConfig(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req templateUpdateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := req.applyTo(tc); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid template values", err)
		return
	}

	if err := h.Svc.UpdateTemplateConfig(r.Context(), month, tc, actorFromRequest(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}

	dto, err := h.toTemplateDTO(tc)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, dto)
}

// templateUpdateRequest carries the mutable template fields. Absent
// fields keep their current value.
type templateUpdateRequest struct {
	Label                 *string `json:"label,omitempty"`
	HourlyRate            *string `json:"hourly_rate,omitempty"`
	HoursPerWeek          *string `json:"hours_per_week,omitempty"`
	CostCodePrefix        *string `json:"cost_code_prefix,omitempty"`
	OvertimeEnabled       *bool   `json:"overtime_enabled,omitempty"`
	LeaveMarkupsJobCosted *bool   `json:"leave_markups_job_costed,omitempty"`
	RDOFaresTravel        *bool   `json:"rdo_fares_travel,omitempty"`
	RDOSite               *bool   `json:"rdo_site,omitempty"`
	RDOMultistorey        *bool   `json:"rdo_multistorey,omitempty"`
}

func (req templateUpdateRequest) applyTo(tc *payroll.TemplateConfig) error {
	if req.Label != nil {
		tc.Label = *req.Label
	}
	if req.HourlyRate != nil {
		v, err := parseOptionalDecimal(*req.HourlyRate, "hourly_rate")
		if err != nil {
			return err
		}
		tc.HourlyRate = v
	}
	if req.HoursPerWeek != nil {
		v, err := parseOptionalDecimal(*req.HoursPerWeek, "hours_per_week")
		if err != nil {
			return err
		}
		tc.HoursPerWeek = v
	}
	if req.CostCodePrefix != nil {
		tc.CostCodePrefix = *req.CostCodePrefix
	}
	if req.OvertimeEnabled != nil {
		tc.OvertimeEnabled = *req.OvertimeEnabled
	}
	if req.LeaveMarkupsJobCosted != nil {
		tc.LeaveMarkupsJobCosted = *req.LeaveMarkupsJobCosted
	}
	if req.RDOFaresTravel != nil {
		tc.RDOFaresTravel = *req.RDOFaresTravel
	}
	if req.RDOSite != nil {
		tc.RDOSite = *req.RDOSite
	}
	if req.RDOMultistorey != nil {
		tc.RDOMultistorey = *req.RDOMultistorey
	}
	return nil
}

func (h *Handler) toTemplateDTO(tc *payroll.TemplateConfig) (TemplateConfigDTO, error) {
	set, err := payroll.ResolveAllowances(tc)
	if err != nil {
		return TemplateConfigDTO{}, err
	}
	bd, err := h.Svc.Calc.ComputeBreakdown(tc, set)
	if err != nil {
		return TemplateConfigDTO{}, err
	}
	return TemplateConfigDTO{
		ID:                    string(tc.ID),
		LocationID:            tc.LocationID,
		Label:                 tc.Label,
		HourlyRate:            tc.HourlyRate.String(),
		HoursPerWeek:          tc.HoursPerWeek.String(),
		CostCodePrefix:        tc.CostCodePrefix,
		OvertimeEnabled:       tc.OvertimeEnabled,
		LeaveMarkupsJobCosted: tc.LeaveMarkupsJobCosted,
		Allowances:            set,
		Breakdown:             bd,
	}, nil
}

// =============================================================================
// JOB FORECAST HANDLERS
// =============================================================================

// GetJobForecast returns (and implicitly creates) the job document.
// GET /api/jobs/{jobNumber}/forecasts/{month}
func (h *Handler) GetJobForecast(w http.ResponseWriter, r *http.Request) {
	jobNumber := chi.URLParam(r, "jobNumber")
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	jf, err := h.Svc.OpenJobForecast(r.Context(), jobNumber, month, actorFromRequest(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, toJobForecastDTO(jf))
}

// JobTransition runs one named job workflow transition.
// POST /api/jobs/{jobNumber}/forecasts/{month}/{transition}
func (h *Handler) JobTransition(w http.ResponseWriter, r *http.Request) {
	jobNumber := chi.URLParam(r, "jobNumber")
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	var req TransitionRequest
	if r.ContentLength > 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	actor := actorFromRequest(r)
	ctx := r.Context()

	var jf *forecast.JobForecast
	switch chi.URLParam(r, "transition") {
	case forecast.TransitionMarkAsDraft:
		jf, err = h.Svc.MarkJobAsDraft(ctx, jobNumber, month, actor)
	case forecast.TransitionSubmit:
		jf, err = h.Svc.SubmitJob(ctx, jobNumber, month, actor)
	case forecast.TransitionFinalize:
		jf, err = h.Svc.FinalizeJob(ctx, jobNumber, month, actor)
	case forecast.TransitionReject:
		jf, err = h.Svc.RejectJob(ctx, jobNumber, month, req.Reason, actor)
	default:
		writeError(w, r, http.StatusNotFound, "Unknown transition", nil)
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, toJobForecastDTO(jf))
}

// UpdateJobSummary replaces the job forecast's summary comments.
// PUT /api/jobs/{jobNumber}/forecasts/{month}/summary
func (h *Handler) UpdateJobSummary(w http.ResponseWriter, r *http.Request) {
	jobNumber := chi.URLParam(r, "jobNumber")
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	var req SummaryCommentsRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Svc.UpdateJobSummary(r.Context(), jobNumber, month, req.SummaryComments, actorFromRequest(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, r, status, resp)
}

// writeDomainError is the single mapping from domain errors to HTTP
// status codes.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, payroll.ErrValidation):
		writeError(w, r, http.StatusUnprocessableEntity, "Validation failed", err)
	case errors.Is(err, workflow.ErrReasonRequired):
		writeError(w, r, http.StatusUnprocessableEntity, "A reason is required", err)
	case errors.Is(err, forecast.ErrForecastLocked):
		writeError(w, r, http.StatusConflict, "Forecast is not editable", err)
	case errors.Is(err, workflow.ErrIllegalTransition):
		writeError(w, r, http.StatusConflict, "Transition not allowed from current status", err)
	case errors.Is(err, workflow.ErrConcurrentModification):
		writeError(w, r, http.StatusConflict, "Forecast was modified concurrently", err)
	case errors.Is(err, workflow.ErrPermissionDenied):
		writeError(w, r, http.StatusForbidden, "Permission denied", err)
	case errors.Is(err, forecast.ErrForecastNotFound),
		errors.Is(err, forecast.ErrTemplateNotFound),
		errors.Is(err, forecast.ErrEntryNotFound):
		writeError(w, r, http.StatusNotFound, "Not found", err)
	default:
		writeError(w, r, http.StatusInternalServerError, "Internal error", err)
	}
}
