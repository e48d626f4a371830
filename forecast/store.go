/*
store.go - Persistence interfaces for forecast documents

PURPOSE:
  Defines the boundary between forecast logic and the database.
  Different implementations back this with SQLite or in-memory maps.

TRANSITION ATOMICITY:
  Status transitions use compare-and-swap: TransitionForecast commits
  only if the row's status still equals the observed `from` status,
  returning workflow.ErrConcurrentModification otherwise. This is what
  makes approve-after-reject and double-approve races impossible: the
  check happens at commit time, not merely at read time.

ENTRY SEMANTICS:
  Entries are last-writer-wins at (forecast, template, week)
  granularity: PutEntry fully replaces the prior cell. PutEntries is
  atomic - all cells land or none do - which fill-right relies on.

IMPLEMENTATIONS:
  - forecast/store: in-memory, for tests and dev
  - store/sqlite:   production SQLite

SEE ALSO:
  - service.go: The only intended caller
*/
package forecast

import (
	"context"

	"github.com/warp/labour-engine/payroll"
)

// =============================================================================
// FORECAST STORE
// =============================================================================

// Store persists labour forecasts and their entries.
type Store interface {
	// GetForecast returns the forecast for (location, month), or
	// ErrForecastNotFound.
	GetForecast(ctx context.Context, locationID string, month Month) (*LabourForecast, error)

	// GetForecastByID returns the forecast, or ErrForecastNotFound.
	GetForecastByID(ctx context.Context, id ForecastID) (*LabourForecast, error)

	// ListForecasts returns all forecasts for a location, newest
	// month first.
	ListForecasts(ctx context.Context, locationID string) ([]*LabourForecast, error)

	// CreateForecast persists a new forecast document.
	CreateForecast(ctx context.Context, f *LabourForecast) error

	// UpdateForecastMeta persists notes and audit fields without
	// touching status.
	UpdateForecastMeta(ctx context.Context, f *LabourForecast) error

	// TransitionForecast applies a status change with compare-and-swap
	// semantics: it loads the forecast, verifies its status is exactly
	// `from` AT COMMIT TIME, applies fn to mutate workflow metadata,
	// and persists with the new status. Returns
	// workflow.ErrConcurrentModification when the status no longer
	// matches.
	TransitionForecast(ctx context.Context, id ForecastID, from, to LabourStatus, fn func(*LabourForecast)) (*LabourForecast, error)

	// Entries returns all entries for a forecast ordered by template
	// then week.
	Entries(ctx context.Context, forecastID ForecastID) ([]Entry, error)

	// PutEntry replaces the cell for (forecast, template, week).
	PutEntry(ctx context.Context, e Entry) error

	// PutEntries replaces multiple cells atomically.
	PutEntries(ctx context.Context, entries []Entry) error

	// DeleteEntry clears a cell. Deleting an absent cell is not an
	// error.
	DeleteEntry(ctx context.Context, forecastID ForecastID, templateID payroll.TemplateConfigID, week WeekEnding) error
}

// =============================================================================
// JOB FORECAST STORE
// =============================================================================

// JobStore persists job forecasts.
type JobStore interface {
	// GetJobForecast returns the forecast for (jobNumber, month), or
	// ErrForecastNotFound.
	GetJobForecast(ctx context.Context, jobNumber string, month Month) (*JobForecast, error)

	// CreateJobForecast persists a new job forecast document.
	CreateJobForecast(ctx context.Context, jf *JobForecast) error

	// UpdateJobForecastMeta persists comments and audit fields without
	// touching status.
	UpdateJobForecastMeta(ctx context.Context, jf *JobForecast) error

	// TransitionJobForecast is the JobForecast analogue of
	// Store.TransitionForecast, with the same compare-and-swap
	// contract.
	TransitionJobForecast(ctx context.Context, id JobForecastID, from, to JobStatus, fn func(*JobForecast)) (*JobForecast, error)
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

// TemplateStore persists pay-rate template configs. Template mutation
// is gated on forecast editability by the service, not here.
type TemplateStore interface {
	// GetTemplateConfig returns the config, or ErrTemplateNotFound.
	GetTemplateConfig(ctx context.Context, id payroll.TemplateConfigID) (*payroll.TemplateConfig, error)

	// ListTemplateConfigs returns all configs for a location.
	ListTemplateConfigs(ctx context.Context, locationID string) ([]*payroll.TemplateConfig, error)

	// PutTemplateConfig creates or replaces a config.
	PutTemplateConfig(ctx context.Context, tc *payroll.TemplateConfig) error
}
