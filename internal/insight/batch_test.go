package insight

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cuongbtq/trade-insights/internal/model"
	"github.com/cuongbtq/trade-insights/internal/textgen"
	"github.com/cuongbtq/trade-insights/internal/textgen/mock"
	"github.com/cuongbtq/trade-insights/shared/logger"
)

func seededStore() *memStore {
	store := newMemStore()
	for _, geo := range []string{"Global", "India", "Mexico", "Singapore", "Hong Kong"} {
		store.addSnapshot(eximSnapshot(geo, fixedNow.Add(-time.Hour), 100))
	}
	return store
}

func newTestBatcher(store *memStore, text textgen.Generator) *Batcher {
	log := logger.NewNop().Logger
	return NewBatcher(NewGenerator(store, text, log), store, nil, log)
}

func TestBatcher_RotatesGeos(t *testing.T) {
	ctrl := gomock.NewController(t)
	text := mock.NewMockGenerator(ctrl)
	text.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return(okResult("ok")).AnyTimes()

	store := seededStore()
	b := newTestBatcher(store, text)
	opts := BatchOptions{CardKey: CardTradeFlow, TabKey: "exim"}

	want := []string{"Global", "India", "Mexico", "Singapore", "Hong Kong", "Global"}
	for i, geo := range want {
		sum, err := b.RunBatch(context.Background(), opts, int64(i+1))
		require.NoError(t, err)
		assert.Equal(t, []string{geo}, sum.Geos)
		assert.Equal(t, 1, sum.Generated)
	}

	assert.JSONEq(t, `{"next_index":1}`, string(store.cursors[CursorKey(LangEnglish)]))
	assert.Equal(t, len(want), store.purges)
}

func TestBatcher_ExplicitGeosOverrideRotation(t *testing.T) {
	ctrl := gomock.NewController(t)
	text := mock.NewMockGenerator(ctrl)
	text.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return(okResult("ok")).Times(2)

	store := seededStore()
	b := newTestBatcher(store, text)

	sum, err := b.RunBatch(context.Background(), BatchOptions{
		CardKey: CardTradeFlow,
		TabKey:  "exim",
		AllGeos: true,
		GeoList: []string{"India", "Mexico"},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"India", "Mexico"}, sum.Geos)
	assert.Equal(t, 2, sum.Generated)
	assert.Empty(t, store.cursors)
}

func TestBatcher_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		results   []textgen.Result
		wantErr   bool
		wantSum   Summary
		wantStore int
	}{
		{
			name:      "all failed",
			results:   []textgen.Result{{Error: "llm disabled"}, {Error: "llm disabled"}},
			wantErr:   true,
			wantSum:   Summary{Failed: 2, Geos: []string{"India", "Mexico"}},
			wantStore: 0,
		},
		{
			name:      "partial failure is a success",
			results:   []textgen.Result{okResult("ok"), {Error: "timeout"}},
			wantSum:   Summary{Generated: 1, Failed: 1, Geos: []string{"India", "Mexico"}},
			wantStore: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			text := mock.NewMockGenerator(ctrl)
			calls := make([]any, 0, len(tt.results))
			for _, r := range tt.results {
				calls = append(calls, text.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return(r))
			}
			gomock.InOrder(calls...)

			store := seededStore()
			b := newTestBatcher(store, text)

			sum, err := b.RunBatch(context.Background(), BatchOptions{
				CardKey: CardTradeFlow,
				TabKey:  "exim",
				GeoList: []string{"India", "Mexico"},
			}, 7)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "all 2 insight generations failed")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantSum, sum)
			assert.Equal(t, tt.wantStore, store.insightCount())
		})
	}
}

func TestBatcher_MissingSnapshotsAreSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	text := mock.NewMockGenerator(ctrl)

	store := newMemStore()
	b := newTestBatcher(store, text)

	sum, err := b.RunBatch(context.Background(), BatchOptions{CardKey: CardFinance}, 1)
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 2}, sum)
	assert.Equal(t, "insights generated: 0, failed: 0, skipped: 2, geos: none", sum.String())
}

func TestBatcher_PurgesNonGenerated(t *testing.T) {
	ctrl := gomock.NewController(t)
	text := mock.NewMockGenerator(ctrl)

	store := newMemStore()
	store.insights = []model.WidgetInsight{
		{CardKey: CardFinance, TabKey: "industry", Scope: "global", Lang: "en", GeneratedBy: "manual"},
		{CardKey: CardFinance, TabKey: "country", Scope: "global", Lang: "en", GeneratedBy: "llm"},
	}
	b := newTestBatcher(store, text)

	_, err := b.RunBatch(context.Background(), BatchOptions{CardKey: CardFinance}, 1)
	require.NoError(t, err)
	require.Equal(t, 1, store.insightCount())
	assert.Equal(t, "llm", store.insights[0].GeneratedBy)
}
