// Package fetcher pulls the public upstream series behind each widget.
// Upstream failures are reported inside the returned payloads, never as errors.
package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/cuongbtq/trade-insights/internal/widget"
)

const (
	defaultUserAgent = "GTA dashboard"
	defaultTimeout   = 12 * time.Second
	defaultCacheTTL  = 24 * time.Hour
	maxBodyBytes     = 8 << 20
)

// Config holds fetcher configuration. Zero URLs use the public endpoints.
type Config struct {
	Timeout            time.Duration
	CacheTTL           time.Duration
	UserAgent          string
	RateLimitPerSecond float64

	WorldBankBaseURL string
	DrewryURL        string
	IMAAIndustryURL  string
	IMAACountryURL   string
	WPRURL           string

	HTTPClient *http.Client
	Now        func() time.Time
}

// Client implements every upstream fetch
type Client struct {
	http      *http.Client
	userAgent string
	timeout   time.Duration
	ttl       time.Duration
	limiter   *rate.Limiter
	cache     Cache
	group     singleflight.Group
	now       func() time.Time
	logger    *slog.Logger

	worldBankURL    string
	drewryURL       string
	imaaIndustryURL string
	imaaCountryURL  string
	wprURL          string
}

// New creates a new Client. A nil cache falls back to a MemoryCache.
func New(cfg Config, cache Cache, logger *slog.Logger) *Client {
	c := &Client{
		http:            cfg.HTTPClient,
		userAgent:       cfg.UserAgent,
		timeout:         cfg.Timeout,
		ttl:             cfg.CacheTTL,
		cache:           cache,
		now:             cfg.Now,
		logger:          logger,
		worldBankURL:    cfg.WorldBankBaseURL,
		drewryURL:       cfg.DrewryURL,
		imaaIndustryURL: cfg.IMAAIndustryURL,
		imaaCountryURL:  cfg.IMAACountryURL,
		wprURL:          cfg.WPRURL,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.ttl <= 0 {
		c.ttl = defaultCacheTTL
	}
	if c.cache == nil {
		c.cache = NewMemoryCache()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if cfg.RateLimitPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), 1)
	}
	if c.worldBankURL == "" {
		c.worldBankURL = "https://api.worldbank.org/v2"
	}
	if c.drewryURL == "" {
		c.drewryURL = widget.DrewryWCIURL
	}
	if c.imaaIndustryURL == "" {
		c.imaaIndustryURL = widget.IMAAIndustryURL
	}
	if c.imaaCountryURL == "" {
		c.imaaCountryURL = widget.IMAACountryURL
	}
	if c.wprURL == "" {
		c.wprURL = widget.WPRDisposableURL
	}
	return c
}

type requestOptions struct {
	timeout   time.Duration
	userAgent string
	accept    string
}

// get downloads url and returns its body as text
func (c *Client) get(ctx context.Context, url string, opts requestOptions) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", errors.Wrap(err, "rate limiter")
		}
	}

	timeout := opts.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	ua := opts.userAgent
	if ua == "" {
		ua = c.userAgent
	}
	req.Header.Set("User-Agent", ua)
	if opts.accept != "" {
		req.Header.Set("Accept", opts.accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "get %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errors.Wrapf(err, "read %s", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Newf("http %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return string(body), nil
}

// cached serves key from the cache unless force is set, coalescing concurrent loads.
// Only results reported as ok are stored. The bool result is true on a cache hit.
func cached[T any](ctx context.Context, c *Client, key string, ttl time.Duration, force bool, load func(context.Context) (*T, bool)) (*T, bool) {
	if !force {
		if v, ok := c.lookup(ctx, key); ok {
			var out T
			if err := json.Unmarshal(v, &out); err == nil {
				return &out, true
			}
		}
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		out, ok := load(ctx)
		if ok {
			c.store(ctx, key, out, ttl)
		}
		return out, nil
	})
	// callers may set top-level fields; never hand out the shared value
	out := *v.(*T)
	return &out, false
}

func (c *Client) lookup(ctx context.Context, key string) ([]byte, bool) {
	v, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Fetch cache read failed", slog.String("key", key), slog.Any("error", err))
		return nil, false
	}
	return v, ok
}

func (c *Client) store(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, ttl); err != nil {
		c.logger.Warn("Fetch cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}
