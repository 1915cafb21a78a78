// Package app assembles the job pipeline shared by the service and the jobctl CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongbtq/trade-insights/internal/config"
	"github.com/cuongbtq/trade-insights/internal/fetcher"
	"github.com/cuongbtq/trade-insights/internal/insight"
	"github.com/cuongbtq/trade-insights/internal/jobs"
	"github.com/cuongbtq/trade-insights/internal/storage"
	"github.com/cuongbtq/trade-insights/internal/textgen"
)

// Pipeline holds the wired job components
type Pipeline struct {
	Fetcher  *fetcher.Client
	Registry *jobs.Registry
	Runner   *jobs.Runner
	Catalog  *jobs.Catalog

	closers []func() error
}

// Option tweaks the runner built by Build
type Option func(*options)

type options struct {
	notifier jobs.RunNotifier
}

// WithNotifier attaches a run-finished notifier to the runner
func WithNotifier(n jobs.RunNotifier) Option {
	return func(o *options) { o.notifier = n }
}

// Build wires fetchers, insight generation, the job catalog, registry and runner
func Build(ctx context.Context, cfg *config.Config, store *storage.Storage, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{}

	cache, closeCache, err := newFetchCache(ctx, &cfg.Fetchers)
	if err != nil {
		return nil, err
	}
	if closeCache != nil {
		p.closers = append(p.closers, closeCache)
	}

	p.Fetcher = fetcher.New(fetcher.Config{
		Timeout:            cfg.Fetchers.Timeout,
		CacheTTL:           cfg.Fetchers.CacheTTL,
		UserAgent:          cfg.Fetchers.UserAgent,
		RateLimitPerSecond: cfg.Fetchers.RateLimitPerSecond,
	}, cache, logger.With(slog.String("component", "fetcher")))

	text := textgen.New(textgen.Config{
		Provider:      cfg.Insights.Provider,
		Model:         cfg.Insights.Model,
		OpenAIAPIKey:  cfg.Insights.OpenAIAPIKey,
		OpenAIBaseURL: cfg.Insights.OpenAIBaseURL,
		GeminiAPIKey:  cfg.Insights.GeminiAPIKey,
		GeminiBaseURL: cfg.Insights.GeminiBaseURL,
		Timeout:       cfg.Insights.Timeout,
		UserAgent:     cfg.Fetchers.UserAgent,
	}, logger.With(slog.String("component", "textgen")))

	insightLogger := logger.With(slog.String("component", "insight"))
	generator := insight.NewGenerator(store, text, insightLogger,
		insight.WithSkipUnchanged(cfg.Insights.SkipUnchanged),
	)
	contexts := insight.NewContextProvider(store, p.Fetcher, cfg.Insights.ContextTTL, insightLogger)
	batcher := insight.NewBatcher(generator, store, contexts, insightLogger)

	specs := jobs.DefaultSpecs(jobs.Deps{
		Fetcher:              p.Fetcher,
		Store:                store,
		Insights:             batcher,
		RetentionDays:        cfg.Jobs.RetentionDays,
		Timezone:             cfg.Jobs.Timezone,
		InsightsMisfireGrace: cfg.Jobs.InsightsMisfireGrace,
	})
	p.Catalog, err = jobs.NewCatalog(specs...)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to build job catalog: %w", err)
	}

	jobsLogger := logger.With(slog.String("component", "jobs"))
	p.Registry = jobs.NewRegistry(store, p.Catalog, cfg.Jobs.Timezone, jobsLogger)

	runnerOpts := []jobs.RunnerOption{
		jobs.WithEnabled(func() bool { return cfg.Jobs.Enabled }),
	}
	if o.notifier != nil {
		runnerOpts = append(runnerOpts, jobs.WithNotifier(o.notifier))
	}
	p.Runner = jobs.NewRunner(p.Registry, jobs.NewLockManager(p.Catalog), jobs.NewLedger(store), store, jobsLogger, runnerOpts...)

	return p, nil
}

// Close releases the fetch cache
func (p *Pipeline) Close() {
	for _, c := range p.closers {
		_ = c()
	}
	p.closers = nil
}

func newFetchCache(ctx context.Context, cfg *config.FetchersConfig) (fetcher.Cache, func() error, error) {
	switch strings.ToLower(cfg.Cache.Backend) {
	case "redis":
		rc, err := fetcher.NewRedisCache(ctx, fetcher.RedisConfig{
			Addr:      cfg.Cache.Redis.Addr,
			Password:  cfg.Cache.Redis.Password,
			DB:        cfg.Cache.Redis.DB,
			KeyPrefix: cfg.Cache.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect fetch cache: %w", err)
		}
		return rc, rc.Close, nil
	default:
		return fetcher.NewMemoryCache(), nil, nil
	}
}
