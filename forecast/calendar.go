/*
calendar.go - Forecast months and week-ending dates

PURPOSE:
  Forecast entries are keyed by week-ending dates (Sundays), grouped
  under a forecast month. This file provides the two calendar types
  and the schedule generator that decides which week-endings a
  forecast month may hold entries for.

WEEK MODEL:
  A forecast month's editable weeks run from the first Sunday on or
  after the first day of the month through the project end date. When
  no project end is configured, the horizon defaults to six months.
*/
package forecast

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH - Identity of a forecast period
// =============================================================================

// Month identifies a forecast month. One LabourForecast exists per
// (location, month).
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth constructs a Month.
func NewMonth(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

// MonthOf returns the Month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "2026-03" style month keys.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// FirstDay returns midnight UTC on the first of the month.
func (m Month) FirstDay() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following month.
func (m Month) Next() Month {
	return MonthOf(m.FirstDay().AddDate(0, 1, 0))
}

// Prev returns the preceding month.
func (m Month) Prev() Month {
	return MonthOf(m.FirstDay().AddDate(0, -1, 0))
}

// Before reports calendar ordering.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

func (m Month) IsZero() bool { return m.Year == 0 }

// MarshalText renders "2006-01" month keys for JSON payloads.
func (m Month) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// =============================================================================
// WEEK ENDING - Sunday date keying one entry column
// =============================================================================

// WeekEnding is a date-normalized Sunday identifying one week column.
type WeekEnding struct {
	t time.Time
}

// NewWeekEnding normalizes the given time to a UTC date. It does not
// require the date to be a Sunday; ParseWeekEnding and Schedule
// generation only ever produce Sundays, but imported data may carry
// other conventions.
func NewWeekEnding(year int, month time.Month, day int) WeekEnding {
	return WeekEnding{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// WeekEndingOf normalizes t to its UTC date.
func WeekEndingOf(t time.Time) WeekEnding {
	return NewWeekEnding(t.Year(), t.Month(), t.Day())
}

// ParseWeekEnding parses "2006-01-02" date keys.
func ParseWeekEnding(s string) (WeekEnding, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return WeekEnding{}, fmt.Errorf("invalid week ending %q: %w", s, err)
	}
	return WeekEndingOf(t), nil
}

func (w WeekEnding) Time() time.Time    { return w.t }
func (w WeekEnding) String() string     { return w.t.Format("2006-01-02") }
func (w WeekEnding) IsZero() bool       { return w.t.IsZero() }
func (w WeekEnding) AddWeeks(n int) WeekEnding {
	return WeekEndingOf(w.t.AddDate(0, 0, 7*n))
}

func (w WeekEnding) Before(other WeekEnding) bool { return w.t.Before(other.t) }
func (w WeekEnding) After(other WeekEnding) bool  { return w.t.After(other.t) }
func (w WeekEnding) Equal(other WeekEnding) bool  { return w.t.Equal(other.t) }

// Month returns the calendar month the week-ending date falls in.
// Monthly totals group by this.
func (w WeekEnding) Month() Month { return MonthOf(w.t) }

// MarshalText renders "2006-01-02" date keys for JSON payloads.
func (w WeekEnding) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

func (w *WeekEnding) UnmarshalText(b []byte) error {
	parsed, err := ParseWeekEnding(string(b))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// =============================================================================
// SCHEDULE - The week columns a forecast month may hold
// =============================================================================

// DefaultHorizonMonths is the schedule length used when a location has
// no configured project end date.
const DefaultHorizonMonths = 6

// Schedule is the ordered set of week-ending dates a forecast may hold
// entries for.
type Schedule struct {
	Weeks []WeekEnding
}

// BuildSchedule generates week-ending Sundays from the start month
// through projectEnd. A zero projectEnd defaults to six months past
// the month start.
func BuildSchedule(start Month, projectEnd time.Time) Schedule {
	first := start.FirstDay()

	end := projectEnd
	if end.IsZero() {
		end = first.AddDate(0, DefaultHorizonMonths, 0)
	}

	// First Sunday on or after the month start.
	current := first
	for current.Weekday() != time.Sunday {
		current = current.AddDate(0, 0, 1)
	}

	var weeks []WeekEnding
	for !current.After(end) {
		weeks = append(weeks, WeekEndingOf(current))
		current = current.AddDate(0, 0, 7)
	}
	return Schedule{Weeks: weeks}
}

// Contains reports whether w is one of the schedule's week columns.
func (s Schedule) Contains(w WeekEnding) bool {
	return s.IndexOf(w) >= 0
}

// IndexOf returns the position of w in the schedule, or -1.
func (s Schedule) IndexOf(w WeekEnding) int {
	for i, week := range s.Weeks {
		if week.Equal(w) {
			return i
		}
	}
	return -1
}

// Last returns the final week column. Zero value if empty.
func (s Schedule) Last() WeekEnding {
	if len(s.Weeks) == 0 {
		return WeekEnding{}
	}
	return s.Weeks[len(s.Weeks)-1]
}
