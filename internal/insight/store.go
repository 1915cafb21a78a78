package insight

import (
	"context"

	"github.com/cuongbtq/trade-insights/internal/model"
	"github.com/cuongbtq/trade-insights/internal/storage"
)

// InsightStore persists generated insights
type InsightStore interface {
	InsertInsight(ctx context.Context, in *model.WidgetInsight) (int64, error)
	LatestInsight(ctx context.Context, cardKey, tabKey, scope, lang string) (*model.WidgetInsight, error)
}

// BatchStore is what a batch run reads and rotates
type BatchStore interface {
	LatestSnapshot(ctx context.Context, widgetKey, scope string) (*model.WidgetSnapshot, error)
	PurgeNonGeneratedInsights(ctx context.Context) (int64, error)
	GetCursor(ctx context.Context, key string) (model.JSONRaw, error)
	PutCursor(ctx context.Context, key string, value model.JSONRaw) error
}

// ContextStore caches public page excerpts
type ContextStore interface {
	LatestPublicContext(ctx context.Context, url string) (*model.PublicContext, error)
	InsertPublicContext(ctx context.Context, pc *model.PublicContext) (int64, error)
}

// Store is everything the insight pipeline persists
type Store interface {
	InsightStore
	BatchStore
	ContextStore
}

var _ Store = (*storage.Storage)(nil)
