package forecast_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/labour-engine/forecast"
)

func TestParseMonth(t *testing.T) {
	m, err := forecast.ParseMonth("2025-06")
	require.NoError(t, err)
	assert.Equal(t, 2025, m.Year)
	assert.Equal(t, time.June, m.Month)

	_, err = forecast.ParseMonth("June 2025")
	assert.Error(t, err)
}

func TestMonth_NextPrev(t *testing.T) {
	dec := forecast.NewMonth(2025, time.December)
	assert.Equal(t, forecast.NewMonth(2026, time.January), dec.Next())
	assert.Equal(t, forecast.NewMonth(2025, time.November), dec.Prev())
}

func TestWeekEnding_Normalizes(t *testing.T) {
	// Time-of-day and zone are stripped to a UTC date.
	loc := time.FixedZone("AEST", 10*3600)
	w := forecast.WeekEndingOf(time.Date(2025, 6, 8, 23, 45, 0, 0, loc))
	assert.Equal(t, "2025-06-08", w.String())
	assert.True(t, w.Equal(forecast.NewWeekEnding(2025, 6, 8)))
}

func TestBuildSchedule_StartsAtFirstSunday(t *testing.T) {
	// July 2025 starts on a Tuesday; first Sunday is the 6th.
	s := forecast.BuildSchedule(forecast.NewMonth(2025, time.July), time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC))
	require.NotEmpty(t, s.Weeks)
	assert.Equal(t, "2025-07-06", s.Weeks[0].String())
	assert.Equal(t, "2025-07-27", s.Last().String())
	assert.Len(t, s.Weeks, 4)
}

func TestBuildSchedule_MonthStartingOnSunday(t *testing.T) {
	// June 2025 starts on a Sunday, so the month start is week one.
	s := forecast.BuildSchedule(forecast.NewMonth(2025, time.June), time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	require.Len(t, s.Weeks, 5)
	assert.Equal(t, "2025-06-01", s.Weeks[0].String())
	assert.Equal(t, "2025-06-29", s.Last().String())
}

func TestBuildSchedule_DefaultHorizon(t *testing.T) {
	s := forecast.BuildSchedule(forecast.NewMonth(2025, time.June), time.Time{})
	require.NotEmpty(t, s.Weeks)
	assert.Equal(t, "2025-06-01", s.Weeks[0].String())
	// Six months past June 1st is December 1st; the last Sunday on or
	// before that is November 30th.
	assert.Equal(t, "2025-11-30", s.Last().String())
}

func TestSchedule_Contains(t *testing.T) {
	s := forecast.BuildSchedule(forecast.NewMonth(2025, time.June), time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	assert.True(t, s.Contains(forecast.NewWeekEnding(2025, 6, 15)))
	// A Monday is never a week column.
	assert.False(t, s.Contains(forecast.NewWeekEnding(2025, 6, 16)))
	assert.Equal(t, 2, s.IndexOf(forecast.NewWeekEnding(2025, 6, 15)))
	assert.Equal(t, -1, s.IndexOf(forecast.NewWeekEnding(2025, 8, 3)))
}
