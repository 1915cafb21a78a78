package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/model"
	"github.com/cuongbtq/trade-insights/internal/storage"
)

// Ledger records the lifecycle of runs: opened running, closed exactly once
type Ledger struct {
	store RunStore
}

// NewLedger creates a new Ledger
func NewLedger(store RunStore) *Ledger {
	return &Ledger{store: store}
}

// Open inserts a running row
func (l *Ledger) Open(ctx context.Context, jobID, triggeredBy string, params Params, startedAt time.Time) (int64, error) {
	id, err := l.store.CreateRun(ctx, &model.JobRun{
		JobID:       jobID,
		Status:      domain.RunStatusRunning,
		TriggeredBy: triggeredBy,
		Params:      model.JSONMap(params),
		StartedAt:   startedAt,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to open run: %w", err)
	}
	return id, nil
}

// Close writes the terminal state. finishedAt earlier than startedAt is clamped so duration is never negative.
func (l *Ledger) Close(ctx context.Context, runID int64, status, message, errText string, startedAt, finishedAt time.Time) (storage.RunCompletion, error) {
	if finishedAt.Before(startedAt) {
		finishedAt = startedAt
	}
	c := storage.RunCompletion{
		Status:     status,
		Message:    message,
		Error:      errText,
		FinishedAt: finishedAt,
		DurationMs: finishedAt.Sub(startedAt).Milliseconds(),
	}
	if err := l.store.FinishRun(ctx, runID, c); err != nil {
		return c, fmt.Errorf("failed to close run: %w", err)
	}
	return c, nil
}
