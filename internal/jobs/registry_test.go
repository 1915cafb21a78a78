package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/shared/logger"
)

type countingReloader struct{ calls int }

func (r *countingReloader) Reload(context.Context) error {
	r.calls++
	return nil
}

func newTestRegistry(t *testing.T) (*Registry, *memStore) {
	t.Helper()
	catalog, err := NewCatalog(
		JobSpec{ID: "alpha", Name: "Alpha", CronExpr: "0 1 * * *", DefaultParams: Params{"keep_days": 7}, Body: &cleanupJob{retentionDays: 7}},
		JobSpec{ID: "beta", Name: "Beta", CronExpr: "0 2 * * *", Timezone: "Asia/Singapore", Body: &wealthDisposableJob{}},
	)
	require.NoError(t, err)
	store := newMemStore()
	return NewRegistry(store, catalog, "UTC", logger.NewNop().Logger), store
}

func TestNewCatalog_RejectsDuplicates(t *testing.T) {
	body := &wealthDisposableJob{}
	_, err := NewCatalog(JobSpec{ID: "a", Body: body}, JobSpec{ID: "a", Body: body})
	assert.ErrorContains(t, err, "duplicate job spec")

	_, err = NewCatalog(JobSpec{ID: "b"})
	assert.ErrorContains(t, err, "invalid job spec")
}

func TestRegistry_Reconcile(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Reconcile(ctx))
	defs, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "UTC", defs[0].Timezone)
	assert.Equal(t, "Asia/Singapore", defs[1].Timezone)
	assert.True(t, defs[0].Enabled)

	// operator edits survive later reconciles
	def := store.defs["alpha"]
	def.CronExpr = "5 5 * * *"
	def.Enabled = false
	store.defs["alpha"] = def

	require.NoError(t, reg.Reconcile(ctx))
	got, err := reg.Get(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "5 5 * * *", got.CronExpr)
	assert.False(t, got.Enabled)
}

func TestRegistry_Update(t *testing.T) {
	tests := []struct {
		name       string
		jobID      string
		req        UpdateRequest
		wantErr    error
		wantSched  bool
		wantReload int
	}{
		{
			name:       "valid update normalizes params",
			jobID:      "alpha",
			req:        UpdateRequest{CronExpr: " */10 * * * * ", Timezone: "", Enabled: true, DefaultParams: Params{"keep_days": 9000}},
			wantReload: 1,
		},
		{
			name:    "unknown definition",
			jobID:   "gamma",
			req:     UpdateRequest{CronExpr: "0 1 * * *"},
			wantErr: domain.ErrJobNotFound,
		},
		{
			name:      "bad cron",
			jobID:     "alpha",
			req:       UpdateRequest{CronExpr: "61 * * * *"},
			wantSched: true,
		},
		{
			name:      "bad timezone",
			jobID:     "alpha",
			req:       UpdateRequest{CronExpr: "0 1 * * *", Timezone: "Mars/Base"},
			wantSched: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, _ := newTestRegistry(t)
			reloader := &countingReloader{}
			reg.SetReloader(reloader)
			require.NoError(t, reg.Reconcile(context.Background()))

			def, err := reg.Update(context.Background(), tt.jobID, tt.req)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsConfigError(err))
			case tt.wantSched:
				var schedErr *domain.InvalidScheduleError
				assert.True(t, errors.As(err, &schedErr))
				assert.True(t, IsConfigError(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, "*/10 * * * *", def.CronExpr)
				assert.Equal(t, "UTC", def.Timezone)
				assert.Equal(t, 365, def.DefaultParams["keep_days"])
			}
			assert.Equal(t, tt.wantReload, reloader.calls)
		})
	}
}
