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

const snapshotColumns = `
	id, widget_key, scope, payload, source, is_stale, fetched_at,
	source_updated_at, source_updated_kind, source_updated_note, job_run_id`

// InsertSnapshot appends a snapshot row and returns its id
func (s *Storage) InsertSnapshot(ctx context.Context, snap *model.WidgetSnapshot) (int64, error) {
	query := `
		INSERT INTO widget_snapshots (
			widget_key, scope, payload, source, is_stale, fetched_at,
			source_updated_at, source_updated_kind, source_updated_note, job_run_id
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10
		)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(
		ctx,
		query,
		snap.WidgetKey,
		snap.Scope,
		snap.Payload,
		snap.Source,
		snap.IsStale,
		snap.FetchedAt,
		snap.SourceUpdatedAt,
		snap.SourceUpdatedKind,
		snap.SourceUpdatedNote,
		snap.JobRunID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert widget snapshot: %w", err)
	}

	return id, nil
}

// LatestSnapshot returns the newest snapshot of a (widget_key, scope) partition
func (s *Storage) LatestSnapshot(ctx context.Context, widgetKey, scope string) (*model.WidgetSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM widget_snapshots
		WHERE widget_key = $1 AND scope = $2
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`

	var snap model.WidgetSnapshot
	if err := s.db.GetContext(ctx, &snap, query, widgetKey, scope); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get latest widget snapshot: %w", err)
	}

	return &snap, nil
}

// LatestSnapshotsByKey returns the newest snapshot of every scope of a widget key
func (s *Storage) LatestSnapshotsByKey(ctx context.Context, widgetKey string) (map[string]model.WidgetSnapshot, error) {
	query := `
		SELECT DISTINCT ON (scope) ` + snapshotColumns + `
		FROM widget_snapshots
		WHERE widget_key = $1
		ORDER BY scope ASC, fetched_at DESC, id DESC
	`

	var rows []model.WidgetSnapshot
	if err := s.db.SelectContext(ctx, &rows, query, widgetKey); err != nil {
		return nil, fmt.Errorf("failed to list latest widget snapshots: %w", err)
	}

	out := make(map[string]model.WidgetSnapshot, len(rows))
	for _, row := range rows {
		if _, ok := out[row.Scope]; !ok {
			out[row.Scope] = row
		}
	}
	return out, nil
}

// CountSnapshots returns the total number of snapshot rows
func (s *Storage) CountSnapshots(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM widget_snapshots`); err != nil {
		return 0, fmt.Errorf("failed to count widget snapshots: %w", err)
	}
	return n, nil
}

// DeleteSnapshotsBefore removes snapshots fetched strictly before cutoff.
// With preserveLatest the newest row of every partition survives regardless of age.
func (s *Storage) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time, preserveLatest bool) (int64, error) {
	query := `DELETE FROM widget_snapshots WHERE fetched_at < $1`
	if preserveLatest {
		query += `
		  AND id NOT IN (
			SELECT DISTINCT ON (widget_key, scope) id
			FROM widget_snapshots
			ORDER BY widget_key, scope, fetched_at DESC, id DESC
		  )`
	}

	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete widget snapshots: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}
