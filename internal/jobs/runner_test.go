package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/widget"
	"github.com/cuongbtq/trade-insights/shared/logger"
)

var testNow = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	store    *memStore
	fetcher  *fakeFetcher
	registry *Registry
	runner   *Runner
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, specs []JobSpec, opts ...RunnerOption) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, newMemStore(), specs, opts...)
}

func newTestEnvWithStore(t *testing.T, store *memStore, specs []JobSpec, opts ...RunnerOption) *testEnv {
	t.Helper()
	catalog, err := NewCatalog(specs...)
	require.NoError(t, err)

	log := logger.NewNop().Logger
	registry := NewRegistry(store, catalog, "UTC", log)
	notifier := &recordingNotifier{}
	opts = append([]RunnerOption{WithNotifier(notifier), WithClock(func() time.Time { return testNow })}, opts...)
	runner := NewRunner(registry, NewLockManager(catalog), NewLedger(store), store, log, opts...)
	return &testEnv{store: store, registry: registry, runner: runner, notifier: notifier}
}

// steppingClock advances by step after every reading
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}

func newDefaultEnv(t *testing.T, opts ...RunnerOption) *testEnv {
	t.Helper()
	store := newMemStore()
	fetcher := &fakeFetcher{}
	specs := DefaultSpecs(Deps{
		Fetcher:       fetcher,
		Store:         store,
		Insights:      &fakeBatcher{},
		RetentionDays: 30,
		Timezone:      "UTC",
		Now:           func() time.Time { return testNow },
	})
	env := newTestEnvWithStore(t, store, specs, opts...)
	env.fetcher = fetcher
	return env
}

func TestRunner_UnknownJob(t *testing.T) {
	env := newTestEnv(t, []JobSpec{{ID: "noop", Body: funcBody(func(context.Context, Params, int64) (string, error) { return "ok", nil })}})

	res, err := env.runner.RunNow(context.Background(), "nope", nil, domain.TriggeredByAPI)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, domain.RunStatusFailed, res.Status)
	assert.Equal(t, "unknown job", res.Error)
	assert.Nil(t, res.RunID)
	assert.Empty(t, env.store.allRuns())
}

func TestRunner_Disabled(t *testing.T) {
	env := newTestEnv(t,
		[]JobSpec{{ID: "noop", Body: funcBody(func(context.Context, Params, int64) (string, error) { return "ok", nil })}},
		WithEnabled(func() bool { return false }),
	)

	res, err := env.runner.RunNow(context.Background(), "noop", nil, domain.TriggeredByAPI)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSkipped, res.Status)
	assert.Equal(t, "jobs are disabled by JOBS_ENABLED=false", res.Message)
	assert.Empty(t, env.store.allRuns())
}

func TestRunner_Completeness(t *testing.T) {
	tests := []struct {
		name        string
		body        funcBody
		wantStatus   string
		wantMessage  string
		wantError    string
		wantDuration int64
	}{
		{
			name:         "success",
			body:         func(context.Context, Params, int64) (string, error) { return "all good", nil },
			wantStatus:   domain.RunStatusSuccess,
			wantMessage:  "all good",
			wantDuration: 500, // start, mark succeeded, finish
		},
		{
			name:         "error",
			body:         func(context.Context, Params, int64) (string, error) { return "", errors.New("upstream exploded") },
			wantStatus:   domain.RunStatusFailed,
			wantMessage:  "job failed",
			wantError:    "upstream exploded",
			wantDuration: 250,
		},
		{
			name:         "panic",
			body:         func(context.Context, Params, int64) (string, error) { panic("nil map") },
			wantStatus:   domain.RunStatusFailed,
			wantMessage:  "job failed",
			wantError:    "nil map",
			wantDuration: 250,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, []JobSpec{{ID: "job", CronExpr: "0 * * * *", Body: tt.body}},
				WithClock(steppingClock(testNow, 250*time.Millisecond)),
			)

			res, err := env.runner.RunNow(context.Background(), "job", Params{"x": 1}, "weird")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantStatus == domain.RunStatusSuccess, res.OK)
			require.NotNil(t, res.RunID)

			runs := env.store.allRuns()
			require.Len(t, runs, 1)
			run := runs[0]
			assert.Equal(t, *res.RunID, run.ID)
			assert.Equal(t, tt.wantStatus, run.Status)
			assert.Equal(t, tt.wantMessage, run.Message)
			assert.Equal(t, tt.wantError, run.Error.String)
			assert.Equal(t, domain.TriggeredByManual, run.TriggeredBy)
			assert.Equal(t, 1, run.Params["x"])
			assert.True(t, run.FinishedAt.Valid)
			assert.True(t, run.DurationMs.Valid)
			assert.Equal(t, testNow, run.StartedAt)
			assert.Equal(t, tt.wantDuration, run.DurationMs.Int64)
			assert.Equal(t, run.FinishedAt.Time.Sub(run.StartedAt).Milliseconds(), run.DurationMs.Int64)
			require.Len(t, env.notifier.events, 1)
			assert.Equal(t, tt.wantDuration, env.notifier.events[0].DurationMs)

			def, err := env.registry.Get(context.Background(), "job")
			require.NoError(t, err)
			assert.True(t, def.LastScheduledAt.Valid)
			assert.Equal(t, tt.wantStatus == domain.RunStatusSuccess, def.LastSuccessAt.Valid)

			require.Len(t, env.notifier.events, 1)
			assert.Equal(t, tt.wantStatus, env.notifier.events[0].Status)
			assert.Equal(t, "job", env.notifier.events[0].JobID)
		})
	}
}

func TestRunner_ConcurrentRunsSkip(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	env := newTestEnv(t, []JobSpec{{ID: "slow", Body: funcBody(func(context.Context, Params, int64) (string, error) {
		close(started)
		<-release
		return "done", nil
	})}})

	var wg sync.WaitGroup
	var first domain.RunResult
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, _ = env.runner.RunNow(context.Background(), "slow", nil, domain.TriggeredByScheduler)
	}()

	<-started
	second, err := env.runner.RunNow(context.Background(), "slow", nil, domain.TriggeredByAPI)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSkipped, second.Status)
	assert.Equal(t, "job is already running", second.Message)
	assert.Nil(t, second.RunID)

	close(release)
	wg.Wait()
	assert.Equal(t, domain.RunStatusSuccess, first.Status)
	assert.Len(t, env.store.allRuns(), 1)

	// the lock is released once the run finalizes
	third, err := env.runner.RunNow(context.Background(), "slow", nil, domain.TriggeredByAPI)
	require.NoError(t, err)
	assert.NotEqual(t, domain.RunStatusSkipped, third.Status)
}

func TestRunner_CallerCancellationDoesNotAbortRun(t *testing.T) {
	env := newTestEnv(t, []JobSpec{{ID: "job", Body: funcBody(func(ctx context.Context, _ Params, _ int64) (string, error) {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "ok", nil
	})}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := env.runner.RunNow(ctx, "job", nil, domain.TriggeredByAPI)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, res.Status)
}

func TestRunner_TradeEximEndToEnd(t *testing.T) {
	env := newDefaultEnv(t)

	res, err := env.runner.RunNow(context.Background(), domain.JobTradeExim5y, Params{"geo_list": []any{"India"}}, domain.TriggeredByAPI)
	require.NoError(t, err)
	require.True(t, res.OK, res.Error)
	assert.Equal(t, "trade exim snapshots saved: 1, stale: 0", res.Message)
	assert.Equal(t, []string{"IND"}, env.fetcher.countries)

	snaps := env.store.allSnapshots()
	require.Len(t, snaps, 1)
	snap := snaps[0]
	assert.Equal(t, widget.KeyTradeExim5y, snap.WidgetKey)
	assert.Equal(t, "India", snap.Scope)
	assert.False(t, snap.IsStale)
	assert.Equal(t, string(widget.SourceTimeInferred), snap.SourceUpdatedKind)
	require.True(t, snap.SourceUpdatedAt.Valid)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), snap.SourceUpdatedAt.Time)
	assert.Equal(t, *res.RunID, snap.JobRunID.Int64)
	assert.Contains(t, string(snap.Payload), `"geo":"India"`)
}

func TestRunner_StaleSnapshotsStillRecorded(t *testing.T) {
	env := newDefaultEnv(t)
	env.fetcher.failExim = true

	res, err := env.runner.RunNow(context.Background(), domain.JobTradeExim5y, Params{"geo_list": "India,Mexico"}, domain.TriggeredByAPI)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "trade exim snapshots saved: 2, stale: 2", res.Message)

	for _, s := range env.store.allSnapshots() {
		assert.True(t, s.IsStale)
		assert.Equal(t, string(widget.SourceTimeUnknown), s.SourceUpdatedKind)
	}
}

func TestRunner_ParamsClamped(t *testing.T) {
	env := newDefaultEnv(t)

	_, err := env.runner.RunNow(context.Background(), domain.JobTradeExim5y, Params{"years": 999, "geo_list": []any{"Mars"}}, domain.TriggeredByAPI)
	require.NoError(t, err)

	runs := env.store.allRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, 20, runs[0].Params["years"])
	assert.Equal(t, widget.AllGeos(), runs[0].Params["geo_list"])
	assert.Equal(t, 2024, runs[0].Params["end_year"])
	assert.Len(t, env.fetcher.countries, len(widget.Geos))
}
