/*
memory.go - In-memory store for tests and development

Implements all three persistence interfaces with maps behind a single
mutex. Reads return deep-ish copies so callers cannot mutate stored
state without going back through the store. The compare-and-swap in
the transition methods runs under the lock, which is what gives the
service its serialized-transition guarantee in memory mode.
*/
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/labour-engine/forecast"
	"github.com/warp/labour-engine/payroll"
	"github.com/warp/labour-engine/workflow"
)

type cellKey struct {
	templateID payroll.TemplateConfigID
	week       time.Time
}

// Memory is a map-backed forecast store.
type Memory struct {
	mu sync.Mutex

	forecasts map[forecast.ForecastID]*forecast.LabourForecast
	byMonth   map[string]forecast.ForecastID // locationID|month -> id
	entries   map[forecast.ForecastID]map[cellKey]forecast.Entry

	jobs       map[forecast.JobForecastID]*forecast.JobForecast
	jobByMonth map[string]forecast.JobForecastID // jobNumber|month -> id

	templates map[payroll.TemplateConfigID]*payroll.TemplateConfig
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		forecasts:  make(map[forecast.ForecastID]*forecast.LabourForecast),
		byMonth:    make(map[string]forecast.ForecastID),
		entries:    make(map[forecast.ForecastID]map[cellKey]forecast.Entry),
		jobs:       make(map[forecast.JobForecastID]*forecast.JobForecast),
		jobByMonth: make(map[string]forecast.JobForecastID),
		templates:  make(map[payroll.TemplateConfigID]*payroll.TemplateConfig),
	}
}

var (
	_ forecast.Store         = (*Memory)(nil)
	_ forecast.JobStore      = (*Memory)(nil)
	_ forecast.TemplateStore = (*Memory)(nil)
)

func monthKey(scope string, m forecast.Month) string {
	return scope + "|" + m.String()
}

// =============================================================================
// FORECASTS
// =============================================================================

func (s *Memory) GetForecast(_ context.Context, locationID string, month forecast.Month) (*forecast.LabourForecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byMonth[monthKey(locationID, month)]
	if !ok {
		return nil, forecast.ErrForecastNotFound
	}
	cp := *s.forecasts[id]
	return &cp, nil
}

func (s *Memory) GetForecastByID(_ context.Context, id forecast.ForecastID) (*forecast.LabourForecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.forecasts[id]
	if !ok {
		return nil, forecast.ErrForecastNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *Memory) ListForecasts(_ context.Context, locationID string) ([]*forecast.LabourForecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*forecast.LabourForecast
	for _, f := range s.forecasts {
		if f.LocationID == locationID {
			cp := *f
			out = append(out, &cp)
		}
	}
	// Newest month first.
	sort.Slice(out, func(i, j int) bool { return out[j].Month.Before(out[i].Month) })
	return out, nil
}

func (s *Memory) CreateForecast(_ context.Context, f *forecast.LabourForecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *f
	s.forecasts[f.ID] = &cp
	s.byMonth[monthKey(f.LocationID, f.Month)] = f.ID
	return nil
}

func (s *Memory) UpdateForecastMeta(_ context.Context, f *forecast.LabourForecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.forecasts[f.ID]
	if !ok {
		return forecast.ErrForecastNotFound
	}
	cur.Notes = f.Notes
	cur.UpdatedAt = f.UpdatedAt
	return nil
}

func (s *Memory) TransitionForecast(_ context.Context, id forecast.ForecastID, from, to forecast.LabourStatus, fn func(*forecast.LabourForecast)) (*forecast.LabourForecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.forecasts[id]
	if !ok {
		return nil, forecast.ErrForecastNotFound
	}
	// Compare-and-swap: the status must still be what the caller
	// observed when it resolved the transition.
	if f.Status != from {
		return nil, workflow.ErrConcurrentModification
	}
	f.Status = to
	fn(f)
	cp := *f
	return &cp, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

func (s *Memory) Entries(_ context.Context, forecastID forecast.ForecastID) ([]forecast.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cells := s.entries[forecastID]
	out := make([]forecast.Entry, 0, len(cells))
	for _, e := range cells {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TemplateConfigID != out[j].TemplateConfigID {
			return out[i].TemplateConfigID < out[j].TemplateConfigID
		}
		return out[i].WeekEnding.Before(out[j].WeekEnding)
	})
	return out, nil
}

func (s *Memory) PutEntry(_ context.Context, e forecast.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putEntryLocked(e)
	return nil
}

func (s *Memory) PutEntries(_ context.Context, entries []forecast.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// All under one lock acquisition: the batch is atomic.
	for _, e := range entries {
		s.putEntryLocked(e)
	}
	return nil
}

func (s *Memory) putEntryLocked(e forecast.Entry) {
	cells, ok := s.entries[e.ForecastID]
	if !ok {
		cells = make(map[cellKey]forecast.Entry)
		s.entries[e.ForecastID] = cells
	}
	cells[cellKey{templateID: e.TemplateConfigID, week: e.WeekEnding.Time()}] = e
}

func (s *Memory) DeleteEntry(_ context.Context, forecastID forecast.ForecastID, templateID payroll.TemplateConfigID, week forecast.WeekEnding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries[forecastID], cellKey{templateID: templateID, week: week.Time()})
	return nil
}

// =============================================================================
// JOB FORECASTS
// =============================================================================

func (s *Memory) GetJobForecast(_ context.Context, jobNumber string, month forecast.Month) (*forecast.JobForecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobByMonth[monthKey(jobNumber, month)]
	if !ok {
		return nil, forecast.ErrForecastNotFound
	}
	cp := *s.jobs[id]
	return &cp, nil
}

func (s *Memory) CreateJobForecast(_ context.Context, jf *forecast.JobForecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *jf
	s.jobs[jf.ID] = &cp
	s.jobByMonth[monthKey(jf.JobNumber, jf.Month)] = jf.ID
	return nil
}

func (s *Memory) UpdateJobForecastMeta(_ context.Context, jf *forecast.JobForecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.jobs[jf.ID]
	if !ok {
		return forecast.ErrForecastNotFound
	}
	cur.SummaryComments = jf.SummaryComments
	cur.UpdatedBy = jf.UpdatedBy
	cur.UpdatedAt = jf.UpdatedAt
	return nil
}

func (s *Memory) TransitionJobForecast(_ context.Context, id forecast.JobForecastID, from, to forecast.JobStatus, fn func(*forecast.JobForecast)) (*forecast.JobForecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jf, ok := s.jobs[id]
	if !ok {
		return nil, forecast.ErrForecastNotFound
	}
	if jf.Status != from {
		return nil, workflow.ErrConcurrentModification
	}
	jf.Status = to
	fn(jf)
	cp := *jf
	return &cp, nil
}

// =============================================================================
// TEMPLATE CONFIGS
// =============================================================================

func (s *Memory) GetTemplateConfig(_ context.Context, id payroll.TemplateConfigID) (*payroll.TemplateConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc, ok := s.templates[id]
	if !ok {
		return nil, forecast.ErrTemplateNotFound
	}
	cp := *tc
	cp.Allowances = append([]payroll.AllowanceAssignment(nil), tc.Allowances...)
	return &cp, nil
}

func (s *Memory) ListTemplateConfigs(_ context.Context, locationID string) ([]*payroll.TemplateConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*payroll.TemplateConfig
	for _, tc := range s.templates {
		if tc.LocationID == locationID {
			cp := *tc
			cp.Allowances = append([]payroll.AllowanceAssignment(nil), tc.Allowances...)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Memory) PutTemplateConfig(_ context.Context, tc *payroll.TemplateConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tc
	cp.Allowances = append([]payroll.AllowanceAssignment(nil), tc.Allowances...)
	s.templates[tc.ID] = &cp
	return nil
}
