package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/insight"
)

func TestInsightsJob_Normalize(t *testing.T) {
	job := &insightsJob{}

	tests := []struct {
		name string
		raw  Params
		want Params
	}{
		{
			name: "defaults",
			raw:  Params{},
			want: Params{"langs": []string{"en"}, "all_geos": false, "geo_list": []string{}, "card_key": "", "tab_key": "", "force": false},
		},
		{
			name: "filters and explicit geos",
			raw:  Params{"langs": "zh,fr", "geo_list": []any{"india"}, "card_key": "Finance", "tab_key": "bogus", "force": 1},
			want: Params{"langs": []string{"zh"}, "all_geos": false, "geo_list": []string{"India"}, "card_key": "finance", "tab_key": "", "force": true},
		},
		{
			name: "empty geo list keeps rotation",
			raw:  Params{"geo_list": []any{}},
			want: Params{"langs": []string{"en"}, "all_geos": false, "geo_list": []string{}, "card_key": "", "tab_key": "", "force": false},
		},
		{
			name: "blank geo string keeps rotation",
			raw:  Params{"geo_list": " "},
			want: Params{"langs": []string{"en"}, "all_geos": false, "geo_list": []string{}, "card_key": "", "tab_key": "", "force": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, job.Normalize(tt.raw))
		})
	}
}

func TestInsightsJob_Execute(t *testing.T) {
	t.Run("summary message", func(t *testing.T) {
		b := &fakeBatcher{sum: insight.Summary{Generated: 3, Skipped: 1, Geos: []string{"India"}}}
		job := &insightsJob{batcher: b}

		msg, err := job.Execute(context.Background(), job.Normalize(Params{"card_key": "wealth"}), 5)
		require.NoError(t, err)
		assert.Equal(t, "insights generated: 3, failed: 0, skipped: 1, geos: India", msg)
		require.Len(t, b.opts, 1)
		assert.Equal(t, "wealth", b.opts[0].CardKey)
		assert.Equal(t, []string{"en"}, b.opts[0].Langs)
	})

	t.Run("batch failure fails the run", func(t *testing.T) {
		job := &insightsJob{batcher: &fakeBatcher{err: errors.New("all 4 insight generations failed")}}

		_, err := job.Execute(context.Background(), job.Normalize(Params{}), 5)
		assert.EqualError(t, err, "all 4 insight generations failed")
	})
}

func TestInsightsJob_RotationSurvivesUpdate(t *testing.T) {
	store := newMemStore()
	batcher := &fakeBatcher{}
	specs := DefaultSpecs(Deps{
		Fetcher:       &fakeFetcher{},
		Store:         store,
		Insights:      batcher,
		RetentionDays: 30,
		Timezone:      "UTC",
		Now:           func() time.Time { return testNow },
	})
	env := newTestEnvWithStore(t, store, specs)
	ctx := context.Background()
	jobID := domain.JobGenerateHomepageInsights

	_, err := env.runner.RunNow(ctx, jobID, nil, domain.TriggeredByManual)
	require.NoError(t, err)

	def, err := env.registry.Get(ctx, jobID)
	require.NoError(t, err)
	_, err = env.registry.Update(ctx, jobID, UpdateRequest{
		CronExpr:      "0 6 * * *",
		Timezone:      "UTC",
		Enabled:       true,
		DefaultParams: Params(def.DefaultParams),
	})
	require.NoError(t, err)

	// stored defaults come back from JSON as []any
	def, err = env.registry.Get(ctx, jobID)
	require.NoError(t, err)
	def.DefaultParams["geo_list"] = []any{}

	_, err = env.runner.RunNow(ctx, jobID, nil, domain.TriggeredByManual)
	require.NoError(t, err)

	require.Len(t, batcher.opts, 2)
	for i, opts := range batcher.opts {
		assert.Empty(t, opts.GeoList, "run %d", i)
		assert.False(t, opts.AllGeos, "run %d", i)
	}
}
