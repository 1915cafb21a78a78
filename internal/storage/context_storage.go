package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuongbtq/trade-insights/internal/model"
)

// LatestPublicContext returns the newest cached excerpt of a url, or nil when none exists
func (s *Storage) LatestPublicContext(ctx context.Context, url string) (*model.PublicContext, error) {
	query := `
		SELECT id, url, title, excerpt, ok, error, fetched_at
		FROM public_contexts
		WHERE url = $1
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`

	var pc model.PublicContext
	if err := s.db.GetContext(ctx, &pc, query, url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get public context: %w", err)
	}
	return &pc, nil
}

// InsertPublicContext stores a freshly fetched excerpt
func (s *Storage) InsertPublicContext(ctx context.Context, pc *model.PublicContext) (int64, error) {
	query := `
		INSERT INTO public_contexts (url, title, excerpt, ok, error, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	if err := s.db.QueryRowContext(ctx, query, pc.URL, pc.Title, pc.Excerpt, pc.OK, pc.Error, pc.FetchedAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert public context: %w", err)
	}
	return id, nil
}
