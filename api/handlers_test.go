/*
handlers_test.go - HTTP-level tests

Exercises the full router with the in-memory store and the demo rate
card: entry saves, fill-right, totals, both approval workflows, and
the error-to-status mapping.
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/labour-engine/api"
	"github.com/warp/labour-engine/forecast"
	"github.com/warp/labour-engine/forecast/store"
	"github.com/warp/labour-engine/payroll"
)

const (
	demoSite     = "site-demo"
	demoTemplate = "tpl-carpenter"
	demoMonth    = "2025-06"
	demoBase     = "/api/locations/" + demoSite + "/forecasts/" + demoMonth
)

type apiFixture struct {
	router *chi.Mux
	store  *store.Memory
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	mem := store.NewMemory()
	card, err := api.SeedDemo(context.Background(), mem)
	require.NoError(t, err)

	calc, err := payroll.NewCalculator(card.Rates)
	require.NoError(t, err)

	svc := forecast.NewService(mem, mem, mem, calc, zerolog.Nop())
	svc.ProjectEnd = func(string) time.Time {
		return time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)
	}
	svc.WithClock(func() time.Time {
		return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	})

	h := api.NewHandler(svc, zerolog.Nop())
	return &apiFixture{
		router: api.NewRouter(h, []string{"*"}),
		store:  mem,
	}
}

// do issues a request as the named actor: "editor" can edit and
// submit, "manager" can approve, "" sends no identity headers.
func (f *apiFixture) do(t *testing.T, method, path string, body any, actor string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch actor {
	case "editor":
		req.Header.Set("X-Actor-Id", "u-editor")
		req.Header.Set("X-Actor-Name", "Site Admin")
		req.Header.Set("X-Actor-Permissions", "edit,submit")
	case "manager":
		req.Header.Set("X-Actor-Id", "u-manager")
		req.Header.Set("X-Actor-Name", "Ops Manager")
		req.Header.Set("X-Actor-Permissions", "approve")
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func saveBody(week, headcount string) map[string]any {
	return map[string]any{
		"template_config_id": demoTemplate,
		"week_ending":        week,
		"headcount":          headcount,
	}
}

// =============================================================================
// FORECAST DOCUMENT
// =============================================================================

func TestGetForecast_OpensDraftWithSchedule(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, demoBase, nil, "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Forecast api.ForecastDTO `json:"forecast"`
		Entries  []api.EntryDTO  `json:"entries"`
	}
	decode(t, rec, &resp)

	assert.Equal(t, "draft", resp.Forecast.Status)
	assert.True(t, resp.Forecast.Editable)
	assert.Empty(t, resp.Entries)
	require.Len(t, resp.Forecast.Weeks, 9)
	assert.Equal(t, "2025-06-01", resp.Forecast.Weeks[0])
	assert.Equal(t, "2025-07-27", resp.Forecast.Weeks[8])
}

func TestGetForecast_BadMonth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/locations/"+demoSite+"/forecasts/June-2025", nil, "editor")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// ENTRIES
// =============================================================================

func TestSaveEntry_ReturnsSnapshotCosts(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, demoBase+"/entries", saveBody("2025-06-08", "2"), "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	var e api.EntryDTO
	decode(t, rec, &e)
	assert.Equal(t, demoTemplate, e.TemplateConfigID)
	assert.Equal(t, "2025-06-08", e.WeekEnding)
	assert.Equal(t, "2", e.Headcount)
	assert.Equal(t, "40", e.HourlyRate)
	assert.NotEmpty(t, e.WeeklyCost)
	assert.Equal(t, "u-editor", e.SavedBy)
}

func TestSaveEntry_RDOAndPublicHolidayHours(t *testing.T) {
	f := newAPIFixture(t)

	body := saveBody("2025-06-08", "1")
	body["rdo_hours"] = "8"
	body["public_holiday_hours"] = "8"
	rec := f.do(t, http.MethodPut, demoBase+"/entries", body, "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	var e api.EntryDTO
	decode(t, rec, &e)
	assert.Equal(t, "8", e.RDOHours)
	assert.Equal(t, "8", e.PublicHolHours)
}

func TestSaveEntry_RDOHoursOverBound(t *testing.T) {
	f := newAPIFixture(t)

	body := saveBody("2025-06-08", "1")
	body["rdo_hours"] = "201"
	rec := f.do(t, http.MethodPut, demoBase+"/entries", body, "editor")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSaveEntry_ZeroValuesClearCell(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, demoBase+"/entries", saveBody("2025-06-08", "2"), "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPut, demoBase+"/entries", saveBody("2025-06-08", "0"), "editor")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, demoBase, nil, "editor")
	var resp struct {
		Entries []api.EntryDTO `json:"entries"`
	}
	decode(t, rec, &resp)
	assert.Empty(t, resp.Entries)
}

func TestSaveEntry_NegativeHeadcount(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, demoBase+"/entries", saveBody("2025-06-08", "-1"), "editor")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp api.ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "Validation failed", resp.Error)
}

func TestSaveEntry_WeekOutsideSchedule(t *testing.T) {
	f := newAPIFixture(t)

	// 2025-08-03 falls past the July 31st project end.
	rec := f.do(t, http.MethodPut, demoBase+"/entries", saveBody("2025-08-03", "1"), "editor")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSaveEntry_WithoutEditPermission(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, demoBase+"/entries", saveBody("2025-06-08", "1"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFillRight_CopiesFourWeeks(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, demoBase+"/entries", saveBody("2025-06-01", "3"), "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, demoBase+"/fill-right", map[string]any{
		"template_config_id": demoTemplate,
		"week_ending":        "2025-06-01",
		"span":               "4",
	}, "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	var filled []api.EntryDTO
	decode(t, rec, &filled)
	require.Len(t, filled, 4)
	assert.Equal(t, "2025-06-08", filled[0].WeekEnding)
	assert.Equal(t, "2025-06-29", filled[3].WeekEnding)
	for _, e := range filled {
		assert.Equal(t, "3", e.Headcount)
	}
}

func TestFillRight_SpanPastScheduleEnd(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, demoBase+"/entries", saveBody("2025-07-20", "1"), "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, demoBase+"/fill-right", map[string]any{
		"template_config_id": demoTemplate,
		"week_ending":        "2025-07-20",
		"span":               "4",
	}, "editor")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFillRight_InvalidSpan(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, demoBase+"/fill-right", map[string]any{
		"template_config_id": demoTemplate,
		"week_ending":        "2025-06-01",
		"span":               "16",
	}, "editor")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// TOTALS AND COST CODES
// =============================================================================

func TestGetTotals(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, demoBase+"/entries", saveBody("2025-06-08", "2"), "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, demoBase+"/totals", nil, "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	var totals forecast.MonthTotals
	decode(t, rec, &totals)
	require.Len(t, totals.Weeks, 1)
	assert.False(t, totals.GrandTotal.IsZero())
	assert.True(t, totals.GrandTotal.Equal(totals.InMonthCost))
}

func TestGetCostCodeRollup(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, demoBase+"/entries", saveBody("2025-06-08", "1"), "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, demoBase+"/cost-codes", nil, "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	var lines []forecast.CostCodeLine
	decode(t, rec, &lines)
	require.NotEmpty(t, lines)
	assert.Equal(t, "03-01", lines[0].Code)
	assert.Equal(t, "Wages", lines[0].Label)
}

// =============================================================================
// WORKFLOW
// =============================================================================

func TestWorkflow_SubmitApprove(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, demoBase, nil, "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, demoBase+"/submit", nil, "editor")
	require.Equal(t, http.StatusOK, rec.Code)
	var dto api.ForecastDTO
	decode(t, rec, &dto)
	assert.Equal(t, "submitted", dto.Status)
	assert.False(t, dto.Editable)

	// Locked: edits now conflict.
	rec = f.do(t, http.MethodPut, demoBase+"/entries", saveBody("2025-06-08", "1"), "editor")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Editors cannot approve.
	rec = f.do(t, http.MethodPost, demoBase+"/approve", nil, "editor")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, demoBase+"/approve", nil, "manager")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &dto)
	assert.Equal(t, "approved", dto.Status)
	assert.Equal(t, "u-manager", dto.ApprovedBy)
}

func TestWorkflow_RejectRequiresReason(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodGet, demoBase, nil, "editor")
	rec := f.do(t, http.MethodPost, demoBase+"/submit", nil, "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, demoBase+"/reject", nil, "manager")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPost, demoBase+"/reject", map[string]any{"reason": "Headcount looks doubled"}, "manager")
	require.Equal(t, http.StatusOK, rec.Code)

	var dto api.ForecastDTO
	decode(t, rec, &dto)
	assert.Equal(t, "rejected", dto.Status)
	assert.Equal(t, "Headcount looks doubled", dto.RejectionReason)
}

func TestWorkflow_SubmitTwiceConflicts(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodGet, demoBase, nil, "editor")
	rec := f.do(t, http.MethodPost, demoBase+"/submit", nil, "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, demoBase+"/submit", nil, "editor")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWorkflow_UnknownTransition(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, demoBase+"/archive", nil, "editor")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// JOB FORECASTS
// =============================================================================

const jobBase = "/api/jobs/J-2041/forecasts/" + demoMonth

func TestJobForecast_FullPath(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, jobBase, nil, "editor")
	require.Equal(t, http.StatusOK, rec.Code)
	var dto api.JobForecastDTO
	decode(t, rec, &dto)
	assert.Equal(t, "pending", dto.Status)

	rec = f.do(t, http.MethodPost, jobBase+"/mark_as_draft", nil, "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPut, jobBase+"/summary", map[string]any{
		"summary_comments": "Crane crew ramps down mid-month",
	}, "editor")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodPost, jobBase+"/submit", nil, "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, jobBase+"/finalize", nil, "manager")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &dto)
	assert.Equal(t, "finalized", dto.Status)
	assert.True(t, dto.IsLocked)
	assert.Equal(t, "Crane crew ramps down mid-month", dto.SummaryComments)

	// Finalized is terminal.
	rec = f.do(t, http.MethodPut, jobBase+"/summary", map[string]any{
		"summary_comments": "too late",
	}, "editor")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, jobBase+"/mark_as_draft", nil, "editor")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestJobForecast_RejectWithoutNote(t *testing.T) {
	f := newAPIFixture(t)

	f.do(t, http.MethodGet, jobBase, nil, "editor")
	f.do(t, http.MethodPost, jobBase+"/mark_as_draft", nil, "editor")
	rec := f.do(t, http.MethodPost, jobBase+"/submit", nil, "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	// Job rejections do not require a note.
	rec = f.do(t, http.MethodPost, jobBase+"/reject", nil, "manager")
	require.Equal(t, http.StatusOK, rec.Code)

	var dto api.JobForecastDTO
	decode(t, rec, &dto)
	assert.Equal(t, "draft", dto.Status)
	assert.True(t, dto.Editable)
}

// =============================================================================
// TEMPLATES AND MISC
// =============================================================================

func TestListTemplateConfigs(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/locations/"+demoSite+"/templates", nil, "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	var dtos []api.TemplateConfigDTO
	decode(t, rec, &dtos)
	require.Len(t, dtos, 2)
	for _, d := range dtos {
		assert.NotEmpty(t, d.HourlyRate)
		assert.False(t, d.Breakdown.TotalWeeklyCost.IsZero())
	}
}

func TestExportForecast_ReturnsWorkbook(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, demoBase+"/entries", saveBody("2025-06-08", "2"), "editor")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, demoBase+"/export", nil, "editor")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
