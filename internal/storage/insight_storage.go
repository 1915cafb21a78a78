package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/model"
)

const insightColumns = `
	id, card_key, tab_key, scope, lang, content, reference_list, source_updated_at,
	data_digest, input_snapshot_keys, provider, model, prompt, error, generated_by,
	job_run_id, created_at`

// InsertInsight appends an insight row and returns its id
func (s *Storage) InsertInsight(ctx context.Context, in *model.WidgetInsight) (int64, error) {
	query := `
		INSERT INTO widget_insights (
			card_key, tab_key, scope, lang, content, reference_list, source_updated_at,
			data_digest, input_snapshot_keys, provider, model, prompt, error, generated_by,
			job_run_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14,
			$15, $16
		)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(
		ctx,
		query,
		in.CardKey,
		in.TabKey,
		in.Scope,
		in.Lang,
		in.Content,
		in.ReferenceList,
		in.SourceUpdatedAt,
		in.DataDigest,
		in.InputSnapshotKeys,
		in.Provider,
		in.Model,
		in.Prompt,
		in.Error,
		in.GeneratedBy,
		in.JobRunID,
		in.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert widget insight: %w", err)
	}

	return id, nil
}

// LatestInsight returns the newest insight of a panel
func (s *Storage) LatestInsight(ctx context.Context, cardKey, tabKey, scope, lang string) (*model.WidgetInsight, error) {
	query := `
		SELECT ` + insightColumns + `
		FROM widget_insights
		WHERE card_key = $1 AND tab_key = $2 AND scope = $3 AND lang = $4
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var in model.WidgetInsight
	if err := s.db.GetContext(ctx, &in, query, cardKey, tabKey, scope, lang); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInsightNotFound
		}
		return nil, fmt.Errorf("failed to get latest widget insight: %w", err)
	}

	return &in, nil
}

// InsightFilter narrows ListLatestInsights; empty fields match everything
type InsightFilter struct {
	CardKey string
	TabKey  string
	Scope   string
	Lang    string
}

// ListLatestInsights returns the newest insight of every matching panel
func (s *Storage) ListLatestInsights(ctx context.Context, filter InsightFilter) ([]model.WidgetInsight, error) {
	query := `SELECT DISTINCT ON (card_key, tab_key, scope, lang) ` + insightColumns + ` FROM widget_insights WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	for _, f := range []struct {
		column string
		value  string
	}{
		{"card_key", filter.CardKey},
		{"tab_key", filter.TabKey},
		{"scope", filter.Scope},
		{"lang", filter.Lang},
	} {
		if f.value == "" {
			continue
		}
		query += fmt.Sprintf(" AND %s = $%d", f.column, argIdx)
		args = append(args, f.value)
		argIdx++
	}

	query += " ORDER BY card_key, tab_key, scope, lang, created_at DESC, id DESC"

	var rows []model.WidgetInsight
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list widget insights: %w", err)
	}
	return rows, nil
}

// PurgeNonGeneratedInsights deletes rows not produced by the text generator
func (s *Storage) PurgeNonGeneratedInsights(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM widget_insights WHERE generated_by <> $1`, domain.GeneratedByLLM)
	if err != nil {
		return 0, fmt.Errorf("failed to purge widget insights: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}
