package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/model"
)

const definitionColumns = `
	job_id, name, description, cron_expr, timezone, enabled, default_params,
	last_scheduled_at, last_success_at, created_at, updated_at`

// InsertDefinitionIfAbsent seeds a definition row, leaving an existing row untouched.
// It reports whether a row was created.
func (s *Storage) InsertDefinitionIfAbsent(ctx context.Context, def *model.JobDefinition) (bool, error) {
	query := `
		INSERT INTO job_definitions (
			job_id, name, description, cron_expr, timezone, enabled, default_params,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			NOW(), NOW()
		)
		ON CONFLICT (job_id) DO NOTHING
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		def.JobID,
		def.Name,
		def.Description,
		def.CronExpr,
		def.Timezone,
		def.Enabled,
		def.DefaultParams,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert job definition: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// GetDefinition retrieves a job definition by id
func (s *Storage) GetDefinition(ctx context.Context, jobID string) (*model.JobDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM job_definitions WHERE job_id = $1`

	var def model.JobDefinition
	if err := s.db.GetContext(ctx, &def, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job definition: %w", err)
	}

	return &def, nil
}

// ListDefinitions returns every job definition ordered by id
func (s *Storage) ListDefinitions(ctx context.Context) ([]model.JobDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM job_definitions ORDER BY job_id ASC`

	var defs []model.JobDefinition
	if err := s.db.SelectContext(ctx, &defs, query); err != nil {
		return nil, fmt.Errorf("failed to list job definitions: %w", err)
	}

	return defs, nil
}

// DefinitionUpdate holds the operator-editable fields of a definition
type DefinitionUpdate struct {
	CronExpr      string
	Timezone      string
	Enabled       bool
	DefaultParams model.JSONMap
}

// UpdateDefinition overwrites the editable fields of a definition
func (s *Storage) UpdateDefinition(ctx context.Context, jobID string, upd DefinitionUpdate) error {
	query := `
		UPDATE job_definitions
		SET cron_expr = $1,
		    timezone = $2,
		    enabled = $3,
		    default_params = $4,
		    updated_at = NOW()
		WHERE job_id = $5
	`

	result, err := s.db.ExecContext(ctx, query, upd.CronExpr, upd.Timezone, upd.Enabled, upd.DefaultParams, jobID)
	if err != nil {
		return fmt.Errorf("failed to update job definition: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrJobNotFound
	}

	return nil
}

// MarkScheduled sets last_scheduled_at
func (s *Storage) MarkScheduled(ctx context.Context, jobID string, at time.Time) error {
	query := `UPDATE job_definitions SET last_scheduled_at = $1, updated_at = NOW() WHERE job_id = $2`

	if _, err := s.db.ExecContext(ctx, query, at, jobID); err != nil {
		return fmt.Errorf("failed to mark job scheduled: %w", err)
	}
	return nil
}

// MarkSucceeded sets last_success_at
func (s *Storage) MarkSucceeded(ctx context.Context, jobID string, at time.Time) error {
	query := `UPDATE job_definitions SET last_success_at = $1, updated_at = NOW() WHERE job_id = $2`

	if _, err := s.db.ExecContext(ctx, query, at, jobID); err != nil {
		return fmt.Errorf("failed to mark job succeeded: %w", err)
	}
	return nil
}
