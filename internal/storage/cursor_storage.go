package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuongbtq/trade-insights/internal/model"
)

// GetCursor returns the stored value of a batch cursor, or nil when it was never written
func (s *Storage) GetCursor(ctx context.Context, key string) (model.JSONRaw, error) {
	var value model.JSONRaw
	err := s.db.GetContext(ctx, &value, `SELECT value FROM batch_cursors WHERE cursor_key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get batch cursor: %w", err)
	}
	return value, nil
}

// PutCursor upserts a batch cursor
func (s *Storage) PutCursor(ctx context.Context, key string, value model.JSONRaw) error {
	query := `
		INSERT INTO batch_cursors (cursor_key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cursor_key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to put batch cursor: %w", err)
	}
	return nil
}
