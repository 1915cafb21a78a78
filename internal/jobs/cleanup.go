package jobs

import (
	"context"
	"fmt"
	"time"
)

type cleanupJob struct {
	snapshots     SnapshotStore
	runs          RunStore
	retentionDays int
	now           func() time.Time
}

func (j *cleanupJob) Normalize(raw Params) Params {
	return Params{
		"keep_days":       AsInt(raw["keep_days"], j.retentionDays, 1, 365),
		"preserve_latest": AsBool(raw["preserve_latest"], true),
	}
}

// Execute deletes snapshots fetched and runs started strictly before the cutoff.
// Running rows are never deleted, nor the latest snapshot of a partition unless preserve_latest is false.
func (j *cleanupJob) Execute(ctx context.Context, params Params, _ int64) (string, error) {
	keepDays := paramInt(params, "keep_days", j.retentionDays)
	cutoff := j.now().UTC().Add(-time.Duration(keepDays) * 24 * time.Hour)

	snapshots, err := j.snapshots.DeleteSnapshotsBefore(ctx, cutoff, paramBool(params, "preserve_latest"))
	if err != nil {
		return "", fmt.Errorf("failed to delete snapshots: %w", err)
	}
	runs, err := j.runs.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return "", fmt.Errorf("failed to delete runs: %w", err)
	}
	return fmt.Sprintf("cleanup done: snapshots=%d, runs=%d, keep_days=%d", snapshots, runs, keepDays), nil
}
