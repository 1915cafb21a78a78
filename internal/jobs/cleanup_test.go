package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/model"
)

func TestCleanupJob(t *testing.T) {
	store := newMemStore()
	day := 24 * time.Hour
	store.snapshots = []model.WidgetSnapshot{
		{ID: 1, WidgetKey: "trade_exim_5y", Scope: "India", FetchedAt: testNow.Add(-40 * day)},
		{ID: 2, WidgetKey: "trade_exim_5y", Scope: "India", FetchedAt: testNow.Add(-5 * day)},
		{ID: 3, WidgetKey: "trade_exim_5y", Scope: "Mexico", FetchedAt: testNow.Add(-60 * day)},
	}
	store.runs = []model.JobRun{
		{ID: 1, JobID: "trade_exim_5y", Status: domain.RunStatusSuccess, StartedAt: testNow.Add(-40 * day)},
		{ID: 2, JobID: "trade_exim_5y", Status: domain.RunStatusRunning, StartedAt: testNow.Add(-40 * day)},
		{ID: 3, JobID: "trade_exim_5y", Status: domain.RunStatusFailed, StartedAt: testNow.Add(-5 * day)},
	}

	job := &cleanupJob{snapshots: store, runs: store, retentionDays: 14, now: func() time.Time { return testNow }}
	params := job.Normalize(Params{"keep_days": 30})
	assert.Equal(t, Params{"keep_days": 30, "preserve_latest": true}, params)

	msg, err := job.Execute(context.Background(), params, 9)
	require.NoError(t, err)
	assert.Equal(t, "cleanup done: snapshots=1, runs=1, keep_days=30", msg)

	// the expired Mexico row is still that partition's latest
	require.Len(t, store.snapshots, 2)
	assert.Equal(t, int64(2), store.snapshots[0].ID)
	assert.Equal(t, int64(3), store.snapshots[1].ID)
	require.Len(t, store.runs, 2)
	assert.Equal(t, domain.RunStatusRunning, store.runs[0].Status)
}

func TestCleanupJob_WithoutPreserveLatest(t *testing.T) {
	store := newMemStore()
	day := 24 * time.Hour
	store.snapshots = []model.WidgetSnapshot{
		{ID: 1, WidgetKey: "finance_ma_country", Scope: "global", FetchedAt: testNow.Add(-60 * day)},
		{ID: 2, WidgetKey: "trade_exim_5y", Scope: "India", FetchedAt: testNow.Add(-1 * day)},
	}

	job := &cleanupJob{snapshots: store, runs: store, retentionDays: 14, now: func() time.Time { return testNow }}
	msg, err := job.Execute(context.Background(), job.Normalize(Params{"preserve_latest": false}), 9)
	require.NoError(t, err)
	assert.Equal(t, "cleanup done: snapshots=1, runs=0, keep_days=14", msg)

	require.Len(t, store.snapshots, 1)
	assert.Equal(t, int64(2), store.snapshots[0].ID)
}

func TestCleanupJob_Normalize(t *testing.T) {
	job := &cleanupJob{retentionDays: 14}

	tests := []struct {
		name string
		raw  Params
		want Params
	}{
		{name: "default retention", raw: Params{}, want: Params{"keep_days": 14, "preserve_latest": true}},
		{name: "clamped", raw: Params{"keep_days": 9999, "preserve_latest": "false"}, want: Params{"keep_days": 365, "preserve_latest": false}},
		{name: "zero clamps to one", raw: Params{"keep_days": 0}, want: Params{"keep_days": 1, "preserve_latest": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, job.Normalize(tt.raw))
		})
	}
}
