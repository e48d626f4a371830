/*
sqlite_test.go - Persistence tests against in-memory SQLite

Covers round trips for all four tables, last-writer-wins on the entry
cell index, and the status compare-and-swap on both transition paths.
*/
package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/labour-engine/forecast"
	"github.com/warp/labour-engine/payroll"
	"github.com/warp/labour-engine/store/sqlite"
	"github.com/warp/labour-engine/workflow"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func testForecast(id, locationID string, month forecast.Month) *forecast.LabourForecast {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	return &forecast.LabourForecast{
		ID:         forecast.ForecastID(id),
		LocationID: locationID,
		Month:      month,
		Status:     forecast.LabourDraft,
		CreatedBy:  "u-editor",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func testEntry(id string, forecastID forecast.ForecastID, week forecast.WeekEnding, headcount string) forecast.Entry {
	return forecast.Entry{
		ID:                 forecast.EntryID(id),
		ForecastID:         forecastID,
		TemplateConfigID:   "tpl-carpenter",
		WeekEnding:         week,
		Headcount:          d(headcount),
		LeaveHours:         d("4"),
		RDOHours:           d("8"),
		PublicHolidayHours: d("8"),
		HourlyRate:         d("40.00"),
		WeeklyCost:         d("1866.40"),
		Snapshot: payroll.CostBreakdown{
			BaseHourlyRate:  d("40.00"),
			HoursPerWeek:    d("40"),
			BaseWeeklyWages: d("1600"),
			TotalWeeklyCost: d("1866.40"),
		},
		SavedAt: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		SavedBy: "u-editor",
	}
}

// =============================================================================
// FORECASTS
// =============================================================================

func TestForecast_RoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	june := forecast.NewMonth(2025, time.June)

	require.NoError(t, st.CreateForecast(ctx, testForecast("fc-1", "site-1", june)))

	got, err := st.GetForecast(ctx, "site-1", june)
	require.NoError(t, err)
	assert.Equal(t, forecast.ForecastID("fc-1"), got.ID)
	assert.Equal(t, forecast.LabourDraft, got.Status)
	assert.Equal(t, june, got.Month)
	assert.Equal(t, "u-editor", got.CreatedBy)
	assert.Nil(t, got.SubmittedAt)

	byID, err := st.GetForecastByID(ctx, "fc-1")
	require.NoError(t, err)
	assert.Equal(t, got.LocationID, byID.LocationID)
}

func TestForecast_NotFound(t *testing.T) {
	st := newStore(t)

	_, err := st.GetForecast(context.Background(), "site-none", forecast.NewMonth(2025, time.June))
	assert.ErrorIs(t, err, forecast.ErrForecastNotFound)
}

func TestListForecasts_NewestFirst(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateForecast(ctx, testForecast("fc-apr", "site-1", forecast.NewMonth(2025, time.April))))
	require.NoError(t, st.CreateForecast(ctx, testForecast("fc-jun", "site-1", forecast.NewMonth(2025, time.June))))
	require.NoError(t, st.CreateForecast(ctx, testForecast("fc-other", "site-2", forecast.NewMonth(2025, time.May))))

	list, err := st.ListForecasts(ctx, "site-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, forecast.ForecastID("fc-jun"), list[0].ID)
	assert.Equal(t, forecast.ForecastID("fc-apr"), list[1].ID)
}

func TestTransitionForecast_CompareAndSwap(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	june := forecast.NewMonth(2025, time.June)
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)

	require.NoError(t, st.CreateForecast(ctx, testForecast("fc-1", "site-1", june)))

	f, err := st.TransitionForecast(ctx, "fc-1", forecast.LabourDraft, forecast.LabourSubmitted, func(f *forecast.LabourForecast) {
		f.SubmittedBy = "u-editor"
		f.SubmittedAt = &now
		f.UpdatedAt = now
	})
	require.NoError(t, err)
	assert.Equal(t, forecast.LabourSubmitted, f.Status)

	got, err := st.GetForecastByID(ctx, "fc-1")
	require.NoError(t, err)
	assert.Equal(t, forecast.LabourSubmitted, got.Status)
	assert.Equal(t, "u-editor", got.SubmittedBy)
	require.NotNil(t, got.SubmittedAt)
	assert.True(t, got.SubmittedAt.Equal(now))

	// A writer still holding the draft view loses.
	_, err = st.TransitionForecast(ctx, "fc-1", forecast.LabourDraft, forecast.LabourSubmitted, func(*forecast.LabourForecast) {})
	assert.ErrorIs(t, err, workflow.ErrConcurrentModification)
}

// =============================================================================
// ENTRIES
// =============================================================================

func TestPutEntry_LastWriterWinsPerCell(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	june := forecast.NewMonth(2025, time.June)
	week := forecast.NewWeekEnding(2025, 6, 8)

	require.NoError(t, st.CreateForecast(ctx, testForecast("fc-1", "site-1", june)))
	require.NoError(t, st.PutEntry(ctx, testEntry("e-1", "fc-1", week, "2")))
	require.NoError(t, st.PutEntry(ctx, testEntry("e-2", "fc-1", week, "5")))

	entries, err := st.Entries(ctx, "fc-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, forecast.EntryID("e-2"), entries[0].ID)
	assert.True(t, entries[0].Headcount.Equal(d("5")))
	assert.True(t, entries[0].LeaveHours.Equal(d("4")))
	assert.True(t, entries[0].RDOHours.Equal(d("8")))
	assert.True(t, entries[0].PublicHolidayHours.Equal(d("8")))
	assert.True(t, entries[0].Snapshot.TotalWeeklyCost.Equal(d("1866.40")))
}

func TestPutEntries_BatchAndDelete(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	june := forecast.NewMonth(2025, time.June)
	week1 := forecast.NewWeekEnding(2025, 6, 1)
	week2 := forecast.NewWeekEnding(2025, 6, 8)

	require.NoError(t, st.CreateForecast(ctx, testForecast("fc-1", "site-1", june)))
	require.NoError(t, st.PutEntries(ctx, []forecast.Entry{
		testEntry("e-1", "fc-1", week1, "2"),
		testEntry("e-2", "fc-1", week2, "2"),
	}))

	entries, err := st.Entries(ctx, "fc-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, st.DeleteEntry(ctx, "fc-1", "tpl-carpenter", week1))
	entries, err = st.Entries(ctx, "fc-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, week2, entries[0].WeekEnding)
}

// =============================================================================
// JOB FORECASTS
// =============================================================================

func TestJobForecast_RoundTripAndTransition(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	june := forecast.NewMonth(2025, time.June)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, st.CreateJobForecast(ctx, &forecast.JobForecast{
		ID:        "jf-1",
		JobNumber: "J-2041",
		Month:     june,
		Status:    forecast.JobPending,
		CreatedBy: "u-editor",
		CreatedAt: now,
		UpdatedAt: now,
	}))

	jf, err := st.GetJobForecast(ctx, "J-2041", june)
	require.NoError(t, err)
	assert.Equal(t, forecast.JobPending, jf.Status)
	assert.False(t, jf.IsLocked)

	jf, err = st.TransitionJobForecast(ctx, "jf-1", forecast.JobPending, forecast.JobDraft, func(jf *forecast.JobForecast) {
		jf.UpdatedBy = "u-editor"
		jf.UpdatedAt = now
	})
	require.NoError(t, err)
	assert.Equal(t, forecast.JobDraft, jf.Status)

	_, err = st.TransitionJobForecast(ctx, "jf-1", forecast.JobPending, forecast.JobDraft, func(*forecast.JobForecast) {})
	assert.ErrorIs(t, err, workflow.ErrConcurrentModification)

	_, err = st.GetJobForecast(ctx, "J-9999", june)
	assert.ErrorIs(t, err, forecast.ErrForecastNotFound)
}

// =============================================================================
// TEMPLATE CONFIGS
// =============================================================================

func TestTemplateConfig_RoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	tc := payroll.NewTemplateConfig("tpl-carpenter", "site-1", d("40.00"), d("40"))
	tc.Label = "Carpenter"
	tc.CostCodePrefix = "03"
	tc.OvertimeEnabled = true
	tc.Standard.FaresTravel = &payroll.StandardAllowance{Name: "Fares & Travel", Rate: d("25.00")}
	require.NoError(t, tc.AddAllowance(payroll.AllowanceAssignment{
		Type:     payroll.AllowanceType{ID: "first-aid", Name: "First Aid Allowance"},
		Rate:     d("0.60"),
		RateType: payroll.RateHourly,
		Active:   true,
	}))

	require.NoError(t, st.PutTemplateConfig(ctx, tc))

	got, err := st.GetTemplateConfig(ctx, "tpl-carpenter")
	require.NoError(t, err)
	assert.Equal(t, "Carpenter", got.Label)
	assert.True(t, got.HourlyRate.Equal(d("40.00")))
	assert.True(t, got.OvertimeEnabled)
	assert.True(t, got.RDOFaresTravel)
	require.NotNil(t, got.Standard.FaresTravel)
	assert.True(t, got.Standard.FaresTravel.Rate.Equal(d("25.00")))
	require.Len(t, got.Allowances, 1)
	assert.Equal(t, payroll.RateHourly, got.Allowances[0].RateType)

	// Upsert replaces.
	tc.HourlyRate = d("42.00")
	require.NoError(t, st.PutTemplateConfig(ctx, tc))
	got, err = st.GetTemplateConfig(ctx, "tpl-carpenter")
	require.NoError(t, err)
	assert.True(t, got.HourlyRate.Equal(d("42.00")))

	list, err := st.ListTemplateConfigs(ctx, "site-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = st.GetTemplateConfig(ctx, "tpl-ghost")
	assert.ErrorIs(t, err, forecast.ErrTemplateNotFound)
}
