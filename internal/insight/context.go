package insight

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/trade-insights/internal/model"
)

// DefaultContextTTL is how long a cached page excerpt stays fresh
const DefaultContextTTL = 6 * time.Hour

// Excerpt is the readable text of a public page
type Excerpt struct {
	OK    bool
	Title string
	Text  string
	Error string
}

// ExcerptFetcher downloads a page excerpt
type ExcerptFetcher interface {
	FetchExcerpt(ctx context.Context, url string) Excerpt
}

// ContextProvider serves public page excerpts from the cache, refreshing expired ones
type ContextProvider struct {
	store   ContextStore
	fetcher ExcerptFetcher
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewContextProvider creates a new ContextProvider
func NewContextProvider(store ContextStore, fetcher ExcerptFetcher, ttl time.Duration, logger *slog.Logger) *ContextProvider {
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	return &ContextProvider{store: store, fetcher: fetcher, ttl: ttl, now: time.Now, logger: logger}
}

// Get returns a cached excerpt younger than the TTL or fetches and stores a new one
func (p *ContextProvider) Get(ctx context.Context, url string) (*model.PublicContext, error) {
	latest, err := p.store.LatestPublicContext(ctx, url)
	if err != nil {
		return nil, err
	}
	now := p.now().UTC()
	if latest != nil && latest.FetchedAt.After(now.Add(-p.ttl)) {
		return latest, nil
	}

	ex := p.fetcher.FetchExcerpt(ctx, url)
	pc := &model.PublicContext{
		URL:       url,
		Title:     ex.Title,
		Excerpt:   ex.Text,
		OK:        ex.OK,
		FetchedAt: now.Truncate(time.Millisecond),
	}
	if ex.Error != "" {
		pc.Error = sql.NullString{String: ex.Error, Valid: true}
	}

	id, err := p.store.InsertPublicContext(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to cache public context: %w", err)
	}
	pc.ID = id

	p.logger.Info("Public context refreshed",
		slog.String("url", url),
		slog.Bool("ok", pc.OK),
	)
	return pc, nil
}

// Blocks returns prompt blocks for urls, skipping those that cannot be loaded
func (p *ContextProvider) Blocks(ctx context.Context, urls []string) []map[string]any {
	blocks := make([]map[string]any, 0, len(urls))
	for _, url := range urls {
		pc, err := p.Get(ctx, url)
		if err != nil {
			p.logger.Warn("Failed to load public context",
				slog.String("url", url),
				slog.Any("error", err),
			)
			continue
		}
		blocks = append(blocks, PromptBlock(pc))
	}
	return blocks
}

// PromptBlock is the prompt view of an excerpt, without its fetch time
func PromptBlock(pc *model.PublicContext) map[string]any {
	block := map[string]any{
		"url":     pc.URL,
		"title":   pc.Title,
		"excerpt": pc.Excerpt,
		"ok":      pc.OK,
	}
	if pc.Error.Valid {
		block["error"] = pc.Error.String
	}
	return block
}
