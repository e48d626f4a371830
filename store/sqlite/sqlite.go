/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (forecast.Store, forecast.JobStore,
  forecast.TemplateStore) using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  forecasts:        Labour forecast documents, one per (location, month)
  forecast_entries: One row per grid cell, snapshot stored as JSON
  job_forecasts:    Job forecast documents, one per (job, month)
  template_configs: Pay-rate templates with their allowance assignments

STATUS TRANSITIONS:
  Transitions commit via UPDATE ... WHERE id = ? AND status = ?. A zero
  row count means another writer moved the document first, surfaced as
  workflow.ErrConcurrentModification. The check runs inside the same
  SQL transaction that applies the metadata changes.

SNAPSHOT STORAGE:
  The per-entry cost breakdown is stored as a JSON blob. It is written
  once at save time and only ever read back - there is no UPDATE path
  that touches snapshot_json, which is what keeps historical entries
  immune to rate changes.

DECIMALS:
  All money and hours columns are TEXT holding decimal strings; they
  round-trip through shopspring/decimal without float drift.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/labour.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - forecast/store.go: Interface definitions
  - forecast/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/labour-engine/forecast"
	"github.com/warp/labour-engine/payroll"
	"github.com/warp/labour-engine/workflow"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ forecast.Store         = (*Store)(nil)
	_ forecast.JobStore      = (*Store)(nil)
	_ forecast.TemplateStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Labour forecasts, one document per (location, month)
	CREATE TABLE IF NOT EXISTS forecasts (
		id TEXT PRIMARY KEY,
		location_id TEXT NOT NULL,
		month TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL,
		submitted_by TEXT,
		submitted_at TEXT,
		approved_by TEXT,
		approved_at TEXT,
		rejection_reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_forecasts_location_month
		ON forecasts(location_id, month);
	CREATE INDEX IF NOT EXISTS idx_forecasts_status
		ON forecasts(status);

	-- Grid cells: one row per (forecast, template, week)
	CREATE TABLE IF NOT EXISTS forecast_entries (
		id TEXT PRIMARY KEY,
		forecast_id TEXT NOT NULL,
		template_config_id TEXT NOT NULL,
		week_ending TEXT NOT NULL,
		headcount TEXT NOT NULL,
		overtime_hours INTEGER NOT NULL DEFAULT 0,
		leave_hours TEXT NOT NULL,
		rdo_hours TEXT NOT NULL DEFAULT '0',
		public_holiday_hours TEXT NOT NULL DEFAULT '0',
		hourly_rate TEXT NOT NULL,
		weekly_cost TEXT NOT NULL,
		snapshot_json TEXT NOT NULL,
		saved_at TEXT NOT NULL,
		saved_by TEXT NOT NULL,
		FOREIGN KEY (forecast_id) REFERENCES forecasts(id)
	);

	-- Cell identity: a save replaces, never duplicates
	CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_cell
		ON forecast_entries(forecast_id, template_config_id, week_ending);
	CREATE INDEX IF NOT EXISTS idx_entries_forecast
		ON forecast_entries(forecast_id);

	-- Job forecasts, one document per (job, month)
	CREATE TABLE IF NOT EXISTS job_forecasts (
		id TEXT PRIMARY KEY,
		job_number TEXT NOT NULL,
		month TEXT NOT NULL,
		status TEXT NOT NULL,
		is_locked BOOLEAN NOT NULL DEFAULT FALSE,
		summary_comments TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL,
		updated_by TEXT,
		submitted_by TEXT,
		submitted_at TEXT,
		finalized_by TEXT,
		finalized_at TEXT,
		rejection_note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_job_forecasts_job_month
		ON job_forecasts(job_number, month);
	CREATE INDEX IF NOT EXISTS idx_job_forecasts_status
		ON job_forecasts(status);

	-- Pay-rate templates; allowance assignments ride along as JSON
	CREATE TABLE IF NOT EXISTS template_configs (
		id TEXT PRIMARY KEY,
		location_id TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		hourly_rate TEXT NOT NULL,
		hours_per_week TEXT NOT NULL,
		cost_code_prefix TEXT NOT NULL DEFAULT '',
		overtime_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		leave_markups_job_costed BOOLEAN NOT NULL DEFAULT FALSE,
		rdo_fares_travel BOOLEAN NOT NULL DEFAULT TRUE,
		rdo_site BOOLEAN NOT NULL DEFAULT FALSE,
		rdo_multistorey BOOLEAN NOT NULL DEFAULT FALSE,
		standard_json TEXT NOT NULL DEFAULT '{}',
		allowances_json TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_template_configs_location
		ON template_configs(location_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LABOUR FORECASTS (forecast.Store interface)
// =============================================================================

const forecastColumns = `id, location_id, month, status, notes, created_by,
	submitted_by, submitted_at, approved_by, approved_at, rejection_reason,
	created_at, updated_at`

func (s *Store) GetForecast(ctx context.Context, locationID string, month forecast.Month) (*forecast.LabourForecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+forecastColumns+` FROM forecasts WHERE location_id = ? AND month = ?`,
		locationID, month.String())
	return scanForecast(row)
}

func (s *Store) GetForecastByID(ctx context.Context, id forecast.ForecastID) (*forecast.LabourForecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+forecastColumns+` FROM forecasts WHERE id = ?`, string(id))
	return scanForecast(row)
}

func (s *Store) ListForecasts(ctx context.Context, locationID string) ([]*forecast.LabourForecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+forecastColumns+` FROM forecasts WHERE location_id = ? ORDER BY month DESC`,
		locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecasts: %w", err)
	}
	defer rows.Close()

	var out []*forecast.LabourForecast
	for rows.Next() {
		f, err := scanForecast(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) CreateForecast(ctx context.Context, f *forecast.LabourForecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forecasts
		(id, location_id, month, status, notes, created_by, submitted_by, submitted_at,
		 approved_by, approved_at, rejection_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(f.ID), f.LocationID, f.Month.String(), string(f.Status), f.Notes, f.CreatedBy,
		nullString(f.SubmittedBy), nullTime(f.SubmittedAt),
		nullString(f.ApprovedBy), nullTime(f.ApprovedAt),
		f.RejectionReason,
		f.CreatedAt.UTC().Format(time.RFC3339), f.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert forecast: %w", err)
	}
	return nil
}

func (s *Store) UpdateForecastMeta(ctx context.Context, f *forecast.LabourForecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE forecasts SET notes = ?, updated_at = ? WHERE id = ?`,
		f.Notes, f.UpdatedAt.UTC().Format(time.RFC3339), string(f.ID))
	if err != nil {
		return fmt.Errorf("failed to update forecast: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return forecast.ErrForecastNotFound
	}
	return nil
}

func (s *Store) TransitionForecast(ctx context.Context, id forecast.ForecastID, from, to forecast.LabourStatus, fn func(*forecast.LabourForecast)) (*forecast.LabourForecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+forecastColumns+` FROM forecasts WHERE id = ?`, string(id))
	f, err := scanForecast(row)
	if err != nil {
		return nil, err
	}
	if f.Status != from {
		return nil, workflow.ErrConcurrentModification
	}

	f.Status = to
	fn(f)

	// The WHERE status guard is the compare-and-swap: zero rows means
	// another writer moved the document between our SELECT and here.
	res, err := tx.ExecContext(ctx, `
		UPDATE forecasts
		SET status = ?, notes = ?, submitted_by = ?, submitted_at = ?,
		    approved_by = ?, approved_at = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(f.Status), f.Notes,
		nullString(f.SubmittedBy), nullTime(f.SubmittedAt),
		nullString(f.ApprovedBy), nullTime(f.ApprovedAt),
		f.RejectionReason, f.UpdatedAt.UTC().Format(time.RFC3339),
		string(id), string(from),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to transition forecast: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, workflow.ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}
	return f, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForecast(row rowScanner) (*forecast.LabourForecast, error) {
	var (
		f                        forecast.LabourForecast
		monthStr                 string
		status                   string
		submittedBy, approvedBy  sql.NullString
		submittedAt, approvedAt  sql.NullString
		createdAt, updatedAt     string
	)
	err := row.Scan(&f.ID, &f.LocationID, &monthStr, &status, &f.Notes, &f.CreatedBy,
		&submittedBy, &submittedAt, &approvedBy, &approvedAt, &f.RejectionReason,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, forecast.ErrForecastNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan forecast: %w", err)
	}

	f.Month, err = forecast.ParseMonth(monthStr)
	if err != nil {
		return nil, err
	}
	f.Status = forecast.LabourStatus(status)
	f.SubmittedBy = submittedBy.String
	f.ApprovedBy = approvedBy.String
	if f.SubmittedAt, err = parseNullTime(submittedAt); err != nil {
		return nil, err
	}
	if f.ApprovedAt, err = parseNullTime(approvedAt); err != nil {
		return nil, err
	}
	if f.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	if f.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at: %w", err)
	}
	return &f, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

const entryColumns = `id, forecast_id, template_config_id, week_ending, headcount,
	overtime_hours, leave_hours, rdo_hours, public_holiday_hours, hourly_rate,
	weekly_cost, snapshot_json, saved_at, saved_by`

func (s *Store) Entries(ctx context.Context, forecastID forecast.ForecastID) ([]forecast.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM forecast_entries
		 WHERE forecast_id = ?
		 ORDER BY template_config_id ASC, week_ending ASC`,
		string(forecastID))
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var out []forecast.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) PutEntry(ctx context.Context, e forecast.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return putEntryTx(ctx, s.db, e)
}

func (s *Store) PutEntries(ctx context.Context, entries []forecast.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if err := putEntryTx(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putEntryTx(ctx context.Context, db execer, e forecast.Entry) error {
	snapshotJSON, err := json.Marshal(e.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// ON CONFLICT on the cell index gives last-writer-wins per cell.
	_, err = db.ExecContext(ctx, `
		INSERT INTO forecast_entries
		(id, forecast_id, template_config_id, week_ending, headcount, overtime_hours,
		 leave_hours, rdo_hours, public_holiday_hours, hourly_rate, weekly_cost,
		 snapshot_json, saved_at, saved_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (forecast_id, template_config_id, week_ending) DO UPDATE SET
			id = excluded.id,
			headcount = excluded.headcount,
			overtime_hours = excluded.overtime_hours,
			leave_hours = excluded.leave_hours,
			rdo_hours = excluded.rdo_hours,
			public_holiday_hours = excluded.public_holiday_hours,
			hourly_rate = excluded.hourly_rate,
			weekly_cost = excluded.weekly_cost,
			snapshot_json = excluded.snapshot_json,
			saved_at = excluded.saved_at,
			saved_by = excluded.saved_by`,
		string(e.ID), string(e.ForecastID), string(e.TemplateConfigID), e.WeekEnding.String(),
		e.Headcount.String(), e.OvertimeHours, e.LeaveHours.String(),
		e.RDOHours.String(), e.PublicHolidayHours.String(),
		e.HourlyRate.String(), e.WeeklyCost.String(), string(snapshotJSON),
		e.SavedAt.UTC().Format(time.RFC3339), e.SavedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to put entry: %w", err)
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, forecastID forecast.ForecastID, templateID payroll.TemplateConfigID, week forecast.WeekEnding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM forecast_entries
		 WHERE forecast_id = ? AND template_config_id = ? AND week_ending = ?`,
		string(forecastID), string(templateID), week.String())
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

func scanEntry(row rowScanner) (forecast.Entry, error) {
	var (
		e            forecast.Entry
		weekStr      string
		headcount    string
		leaveHours   string
		rdoHours     string
		phHours      string
		hourlyRate   string
		weeklyCost   string
		snapshotJSON string
		savedAt      string
	)
	err := row.Scan(&e.ID, &e.ForecastID, &e.TemplateConfigID, &weekStr, &headcount,
		&e.OvertimeHours, &leaveHours, &rdoHours, &phHours, &hourlyRate,
		&weeklyCost, &snapshotJSON, &savedAt, &e.SavedBy)
	if err != nil {
		return forecast.Entry{}, fmt.Errorf("failed to scan entry: %w", err)
	}

	if e.WeekEnding, err = forecast.ParseWeekEnding(weekStr); err != nil {
		return forecast.Entry{}, err
	}
	if e.Headcount, err = decimal.NewFromString(headcount); err != nil {
		return forecast.Entry{}, fmt.Errorf("bad headcount: %w", err)
	}
	if e.LeaveHours, err = decimal.NewFromString(leaveHours); err != nil {
		return forecast.Entry{}, fmt.Errorf("bad leave_hours: %w", err)
	}
	if e.RDOHours, err = decimal.NewFromString(rdoHours); err != nil {
		return forecast.Entry{}, fmt.Errorf("bad rdo_hours: %w", err)
	}
	if e.PublicHolidayHours, err = decimal.NewFromString(phHours); err != nil {
		return forecast.Entry{}, fmt.Errorf("bad public_holiday_hours: %w", err)
	}
	if e.HourlyRate, err = decimal.NewFromString(hourlyRate); err != nil {
		return forecast.Entry{}, fmt.Errorf("bad hourly_rate: %w", err)
	}
	if e.WeeklyCost, err = decimal.NewFromString(weeklyCost); err != nil {
		return forecast.Entry{}, fmt.Errorf("bad weekly_cost: %w", err)
	}
	if err = json.Unmarshal([]byte(snapshotJSON), &e.Snapshot); err != nil {
		return forecast.Entry{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if e.SavedAt, err = time.Parse(time.RFC3339, savedAt); err != nil {
		return forecast.Entry{}, fmt.Errorf("bad saved_at: %w", err)
	}
	return e, nil
}

// =============================================================================
// JOB FORECASTS (forecast.JobStore interface)
// =============================================================================

const jobColumns = `id, job_number, month, status, is_locked, summary_comments,
	created_by, updated_by, submitted_by, submitted_at, finalized_by, finalized_at,
	rejection_note, created_at, updated_at`

func (s *Store) GetJobForecast(ctx context.Context, jobNumber string, month forecast.Month) (*forecast.JobForecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM job_forecasts WHERE job_number = ? AND month = ?`,
		jobNumber, month.String())
	return scanJobForecast(row)
}

func (s *Store) CreateJobForecast(ctx context.Context, jf *forecast.JobForecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_forecasts
		(id, job_number, month, status, is_locked, summary_comments, created_by,
		 updated_by, submitted_by, submitted_at, finalized_by, finalized_at,
		 rejection_note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(jf.ID), jf.JobNumber, jf.Month.String(), string(jf.Status), jf.IsLocked,
		jf.SummaryComments, jf.CreatedBy, nullString(jf.UpdatedBy),
		nullString(jf.SubmittedBy), nullTime(jf.SubmittedAt),
		nullString(jf.FinalizedBy), nullTime(jf.FinalizedAt),
		jf.RejectionNote,
		jf.CreatedAt.UTC().Format(time.RFC3339), jf.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job forecast: %w", err)
	}
	return nil
}

func (s *Store) UpdateJobForecastMeta(ctx context.Context, jf *forecast.JobForecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE job_forecasts SET summary_comments = ?, updated_by = ?, updated_at = ? WHERE id = ?`,
		jf.SummaryComments, nullString(jf.UpdatedBy),
		jf.UpdatedAt.UTC().Format(time.RFC3339), string(jf.ID))
	if err != nil {
		return fmt.Errorf("failed to update job forecast: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return forecast.ErrForecastNotFound
	}
	return nil
}

func (s *Store) TransitionJobForecast(ctx context.Context, id forecast.JobForecastID, from, to forecast.JobStatus, fn func(*forecast.JobForecast)) (*forecast.JobForecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM job_forecasts WHERE id = ?`, string(id))
	jf, err := scanJobForecast(row)
	if err != nil {
		return nil, err
	}
	if jf.Status != from {
		return nil, workflow.ErrConcurrentModification
	}

	jf.Status = to
	fn(jf)

	res, err := tx.ExecContext(ctx, `
		UPDATE job_forecasts
		SET status = ?, is_locked = ?, summary_comments = ?, updated_by = ?,
		    submitted_by = ?, submitted_at = ?, finalized_by = ?, finalized_at = ?,
		    rejection_note = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(jf.Status), jf.IsLocked, jf.SummaryComments, nullString(jf.UpdatedBy),
		nullString(jf.SubmittedBy), nullTime(jf.SubmittedAt),
		nullString(jf.FinalizedBy), nullTime(jf.FinalizedAt),
		jf.RejectionNote, jf.UpdatedAt.UTC().Format(time.RFC3339),
		string(id), string(from),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to transition job forecast: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, workflow.ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}
	return jf, nil
}

func scanJobForecast(row rowScanner) (*forecast.JobForecast, error) {
	var (
		jf                       forecast.JobForecast
		monthStr, status         string
		updatedBy, submittedBy   sql.NullString
		finalizedBy              sql.NullString
		submittedAt, finalizedAt sql.NullString
		createdAt, updatedAt     string
	)
	err := row.Scan(&jf.ID, &jf.JobNumber, &monthStr, &status, &jf.IsLocked,
		&jf.SummaryComments, &jf.CreatedBy, &updatedBy, &submittedBy, &submittedAt,
		&finalizedBy, &finalizedAt, &jf.RejectionNote, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, forecast.ErrForecastNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job forecast: %w", err)
	}

	jf.Month, err = forecast.ParseMonth(monthStr)
	if err != nil {
		return nil, err
	}
	jf.Status = forecast.JobStatus(status)
	jf.UpdatedBy = updatedBy.String
	jf.SubmittedBy = submittedBy.String
	jf.FinalizedBy = finalizedBy.String
	if jf.SubmittedAt, err = parseNullTime(submittedAt); err != nil {
		return nil, err
	}
	if jf.FinalizedAt, err = parseNullTime(finalizedAt); err != nil {
		return nil, err
	}
	if jf.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	if jf.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at: %w", err)
	}
	return &jf, nil
}

// =============================================================================
// TEMPLATE CONFIGS (forecast.TemplateStore interface)
// =============================================================================

const templateColumns = `id, location_id, label, hourly_rate, hours_per_week,
	cost_code_prefix, overtime_enabled, leave_markups_job_costed,
	rdo_fares_travel, rdo_site, rdo_multistorey, standard_json, allowances_json`

func (s *Store) GetTemplateConfig(ctx context.Context, id payroll.TemplateConfigID) (*payroll.TemplateConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM template_configs WHERE id = ?`, string(id))
	return scanTemplateConfig(row)
}

func (s *Store) ListTemplateConfigs(ctx context.Context, locationID string) ([]*payroll.TemplateConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM template_configs WHERE location_id = ? ORDER BY id ASC`,
		locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query template configs: %w", err)
	}
	defer rows.Close()

	var out []*payroll.TemplateConfig
	for rows.Next() {
		tc, err := scanTemplateConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (s *Store) PutTemplateConfig(ctx context.Context, tc *payroll.TemplateConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	standardJSON, err := json.Marshal(tc.Standard)
	if err != nil {
		return fmt.Errorf("failed to marshal standard allowances: %w", err)
	}
	allowancesJSON, err := json.Marshal(tc.Allowances)
	if err != nil {
		return fmt.Errorf("failed to marshal allowance assignments: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO template_configs
		(id, location_id, label, hourly_rate, hours_per_week, cost_code_prefix,
		 overtime_enabled, leave_markups_job_costed, rdo_fares_travel, rdo_site,
		 rdo_multistorey, standard_json, allowances_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			location_id = excluded.location_id,
			label = excluded.label,
			hourly_rate = excluded.hourly_rate,
			hours_per_week = excluded.hours_per_week,
			cost_code_prefix = excluded.cost_code_prefix,
			overtime_enabled = excluded.overtime_enabled,
			leave_markups_job_costed = excluded.leave_markups_job_costed,
			rdo_fares_travel = excluded.rdo_fares_travel,
			rdo_site = excluded.rdo_site,
			rdo_multistorey = excluded.rdo_multistorey,
			standard_json = excluded.standard_json,
			allowances_json = excluded.allowances_json`,
		string(tc.ID), tc.LocationID, tc.Label, tc.HourlyRate.String(), tc.HoursPerWeek.String(),
		tc.CostCodePrefix, tc.OvertimeEnabled, tc.LeaveMarkupsJobCosted,
		tc.RDOFaresTravel, tc.RDOSite, tc.RDOMultistorey,
		string(standardJSON), string(allowancesJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to put template config: %w", err)
	}
	return nil
}

func scanTemplateConfig(row rowScanner) (*payroll.TemplateConfig, error) {
	var (
		tc             payroll.TemplateConfig
		hourlyRate     string
		hoursPerWeek   string
		standardJSON   string
		allowancesJSON string
	)
	err := row.Scan(&tc.ID, &tc.LocationID, &tc.Label, &hourlyRate, &hoursPerWeek,
		&tc.CostCodePrefix, &tc.OvertimeEnabled, &tc.LeaveMarkupsJobCosted,
		&tc.RDOFaresTravel, &tc.RDOSite, &tc.RDOMultistorey,
		&standardJSON, &allowancesJSON)
	if err == sql.ErrNoRows {
		return nil, forecast.ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan template config: %w", err)
	}

	if tc.HourlyRate, err = decimal.NewFromString(hourlyRate); err != nil {
		return nil, fmt.Errorf("bad hourly_rate: %w", err)
	}
	if tc.HoursPerWeek, err = decimal.NewFromString(hoursPerWeek); err != nil {
		return nil, fmt.Errorf("bad hours_per_week: %w", err)
	}
	if err = json.Unmarshal([]byte(standardJSON), &tc.Standard); err != nil {
		return nil, fmt.Errorf("failed to unmarshal standard allowances: %w", err)
	}
	if err = json.Unmarshal([]byte(allowancesJSON), &tc.Allowances); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allowance assignments: %w", err)
	}
	return &tc, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, fmt.Errorf("bad timestamp: %w", err)
	}
	return &t, nil
}
