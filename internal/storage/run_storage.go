package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/model"
)

const runColumns = `
	id, job_id, status, triggered_by, params, message, error,
	started_at, finished_at, duration_ms`

// CreateRun inserts a run row and returns its id
func (s *Storage) CreateRun(ctx context.Context, run *model.JobRun) (int64, error) {
	query := `
		INSERT INTO job_runs (
			job_id, status, triggered_by, params, message, started_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(
		ctx,
		query,
		run.JobID,
		run.Status,
		run.TriggeredBy,
		run.Params,
		run.Message,
		run.StartedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create job run: %w", err)
	}

	return id, nil
}

// RunCompletion is the terminal state written to a run
type RunCompletion struct {
	Status     string
	Message    string
	Error      string
	FinishedAt time.Time
	DurationMs int64
}

// FinishRun moves a running row to its terminal state
func (s *Storage) FinishRun(ctx context.Context, runID int64, c RunCompletion) error {
	query := `
		UPDATE job_runs
		SET status = $1,
		    message = $2,
		    error = $3,
		    finished_at = $4,
		    duration_ms = $5
		WHERE id = $6 AND status = $7
	`

	errText := sql.NullString{String: c.Error, Valid: c.Error != ""}

	result, err := s.db.ExecContext(ctx, query, c.Status, c.Message, errText, c.FinishedAt, c.DurationMs, runID, domain.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to finish job run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		s.logger.Warn("Job run finish - no rows affected (run may be finalized already)",
			slog.Int64("run_id", runID),
		)
	}

	return nil
}

// GetRun retrieves a run by id
func (s *Storage) GetRun(ctx context.Context, runID int64) (*model.JobRun, error) {
	query := `SELECT ` + runColumns + ` FROM job_runs WHERE id = $1`

	var run model.JobRun
	if err := s.db.GetContext(ctx, &run, query, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get job run: %w", err)
	}

	return &run, nil
}

// RunFilter narrows ListRuns
type RunFilter struct {
	JobID    string
	Status   string
	PageSize int
	Cursor   *RunCursor
}

// RunCursor is the keyset position of the last row of a page
type RunCursor struct {
	StartedAt time.Time
	ID        int64
}

// ListRuns returns runs newest first. One extra row is fetched so callers can tell a next page exists.
func (s *Storage) ListRuns(ctx context.Context, filter RunFilter) ([]model.JobRun, error) {
	query := `SELECT ` + runColumns + ` FROM job_runs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.JobID != "" {
		query += fmt.Sprintf(" AND job_id = $%d", argIdx)
		args = append(args, filter.JobID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (started_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.StartedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY started_at DESC, id DESC"

	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var runs []model.JobRun
	if err := s.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", err)
	}

	return runs, nil
}

// DeleteRunsBefore removes finished runs that started before cutoff
func (s *Storage) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM job_runs WHERE started_at < $1 AND status <> $2`

	result, err := s.db.ExecContext(ctx, query, cutoff, domain.RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to delete job runs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}
