package model

import (
	"database/sql"
	"time"
)

// JobDefinition is a row of job_definitions
type JobDefinition struct {
	JobID           string       `db:"job_id"`
	Name            string       `db:"name"`
	Description     string       `db:"description"`
	CronExpr        string       `db:"cron_expr"`
	Timezone        string       `db:"timezone"`
	Enabled         bool         `db:"enabled"`
	DefaultParams   JSONMap      `db:"default_params"`
	LastScheduledAt sql.NullTime `db:"last_scheduled_at"`
	LastSuccessAt   sql.NullTime `db:"last_success_at"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

// JobRun is a row of job_runs
type JobRun struct {
	ID          int64          `db:"id"`
	JobID       string         `db:"job_id"`
	Status      string         `db:"status"`
	TriggeredBy string         `db:"triggered_by"`
	Params      JSONMap        `db:"params"`
	Message     string         `db:"message"`
	Error       sql.NullString `db:"error"`
	StartedAt   time.Time      `db:"started_at"`
	FinishedAt  sql.NullTime   `db:"finished_at"`
	DurationMs  sql.NullInt64  `db:"duration_ms"`
}

// WidgetSnapshot is a row of widget_snapshots
type WidgetSnapshot struct {
	ID                int64          `db:"id"`
	WidgetKey         string         `db:"widget_key"`
	Scope             string         `db:"scope"`
	Payload           JSONRaw        `db:"payload"`
	Source            string         `db:"source"`
	IsStale           bool           `db:"is_stale"`
	FetchedAt         time.Time      `db:"fetched_at"`
	SourceUpdatedAt   sql.NullTime   `db:"source_updated_at"`
	SourceUpdatedKind string         `db:"source_updated_kind"`
	SourceUpdatedNote sql.NullString `db:"source_updated_note"`
	JobRunID          sql.NullInt64  `db:"job_run_id"`
}

// WidgetInsight is a row of widget_insights
type WidgetInsight struct {
	ID                int64          `db:"id"`
	CardKey           string         `db:"card_key"`
	TabKey            string         `db:"tab_key"`
	Scope             string         `db:"scope"`
	Lang              string         `db:"lang"`
	Content           string         `db:"content"`
	ReferenceList     JSONRaw        `db:"reference_list"`
	SourceUpdatedAt   sql.NullTime   `db:"source_updated_at"`
	DataDigest        string         `db:"data_digest"`
	InputSnapshotKeys JSONRaw        `db:"input_snapshot_keys"`
	Provider          sql.NullString `db:"provider"`
	Model             sql.NullString `db:"model"`
	Prompt            sql.NullString `db:"prompt"`
	Error             sql.NullString `db:"error"`
	GeneratedBy       string         `db:"generated_by"`
	JobRunID          sql.NullInt64  `db:"job_run_id"`
	CreatedAt         time.Time      `db:"created_at"`
}

// BatchCursor is a row of batch_cursors
type BatchCursor struct {
	CursorKey string    `db:"cursor_key"`
	Value     JSONRaw   `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PublicContext is a cached excerpt of a public web page
type PublicContext struct {
	ID        int64          `db:"id"`
	URL       string         `db:"url"`
	Title     string         `db:"title"`
	Excerpt   string         `db:"excerpt"`
	OK        bool           `db:"ok"`
	Error     sql.NullString `db:"error"`
	FetchedAt time.Time      `db:"fetched_at"`
}
