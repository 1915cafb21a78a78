package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuongbtq/trade-insights/internal/model"
	"github.com/cuongbtq/trade-insights/internal/widget"
)

// SnapshotInput is one fetched payload to persist
type SnapshotInput struct {
	Scope      string
	Payload    widget.Payload
	JobRunID   int64
	SourceTime widget.SourceTime
}

// SnapshotRecorder writes snapshots with provenance columns
type SnapshotRecorder struct {
	store SnapshotStore
	now   func() time.Time
}

// NewSnapshotRecorder creates a new SnapshotRecorder
func NewSnapshotRecorder(store SnapshotStore, now func() time.Time) *SnapshotRecorder {
	if now == nil {
		now = time.Now
	}
	return &SnapshotRecorder{store: store, now: now}
}

// Record appends a snapshot and reports whether it was stale.
// The payload is written even when the upstream failed.
func (r *SnapshotRecorder) Record(ctx context.Context, in SnapshotInput) (bool, error) {
	raw, err := json.Marshal(in.Payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s payload: %w", in.Payload.WidgetKey(), err)
	}

	stale := !in.Payload.Healthy()
	snap := &model.WidgetSnapshot{
		WidgetKey:         in.Payload.WidgetKey(),
		Scope:             in.Scope,
		Payload:           model.JSONRaw(raw),
		Source:            in.Payload.SourceLabel(),
		IsStale:           stale,
		FetchedAt:         r.now().UTC().Truncate(time.Millisecond),
		SourceUpdatedKind: string(in.SourceTime.Kind),
	}
	if snap.SourceUpdatedKind == "" {
		snap.SourceUpdatedKind = string(widget.SourceTimeUnknown)
	}
	if in.SourceTime.At != nil {
		snap.SourceUpdatedAt = sql.NullTime{Time: in.SourceTime.At.UTC(), Valid: true}
	}
	if in.SourceTime.Reason != "" {
		snap.SourceUpdatedNote = sql.NullString{String: in.SourceTime.Reason, Valid: true}
	}
	if in.JobRunID > 0 {
		snap.JobRunID = sql.NullInt64{Int64: in.JobRunID, Valid: true}
	}

	if _, err := r.store.InsertSnapshot(ctx, snap); err != nil {
		return stale, fmt.Errorf("failed to record %s/%s snapshot: %w", snap.WidgetKey, snap.Scope, err)
	}
	return stale, nil
}
