// Package textgen calls an optional generative-text provider and returns its
// answer as data. Failures never surface as Go errors; they are carried in Result.
package textgen

//go:generate mockgen -source=textgen.go -destination=mock/mock_textgen.go -package=mock

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Providers
const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	defaultModel         = "gpt-4o-mini"
	defaultTimeout       = 40 * time.Second
	defaultUserAgent     = "GTA-insight-job"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	temperature          = 0.2
	geminiMaxTokens      = 1024
)

// Result is the outcome of one generation attempt with everything needed for provenance
type Result struct {
	OK             bool
	Content        string
	References     []map[string]any
	Provider       string
	Model          string
	Endpoint       string
	RequestPayload any
	ResponseStatus int
	ResponseRaw    string
	Error          string
}

// Generator produces insight text from a system and a user prompt
type Generator interface {
	Generate(ctx context.Context, system, user string) Result
}

// Config selects and configures the provider
type Config struct {
	Provider      string
	Model         string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiBaseURL string
	Timeout       time.Duration
	UserAgent     string
	HTTPClient    *http.Client
}

// New builds the generator for cfg.Provider. Misconfiguration yields a generator
// that always fails with a descriptive error.
func New(cfg Config, logger *slog.Logger) Generator {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	caller := &httpCaller{client: hc, userAgent: cfg.UserAgent}

	switch provider {
	case "", ProviderNone, "off":
		return &failing{provider: provider, model: model, reason: "llm disabled", logger: logger}
	case ProviderOpenAI:
		key := strings.TrimSpace(cfg.OpenAIAPIKey)
		if key == "" {
			return &failing{provider: provider, model: model, reason: "OPENAI_API_KEY missing", logger: logger}
		}
		baseURL := cfg.OpenAIBaseURL
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
		return &openAIClient{apiKey: key, baseURL: strings.TrimRight(baseURL, "/"), model: model, caller: caller, logger: logger}
	case ProviderGemini:
		key := strings.TrimSpace(cfg.GeminiAPIKey)
		if key == "" {
			return &failing{provider: provider, model: model, reason: "GEMINI_API_KEY missing", logger: logger}
		}
		baseURL := cfg.GeminiBaseURL
		if baseURL == "" {
			baseURL = defaultGeminiBaseURL
		}
		return &geminiClient{apiKey: key, baseURL: strings.TrimRight(baseURL, "/"), model: model, caller: caller, logger: logger}
	default:
		return &failing{provider: provider, model: model, reason: "unsupported provider: " + provider, logger: logger}
	}
}

// failing is the generator of a disabled or misconfigured provider
type failing struct {
	provider string
	model    string
	reason   string
	logger   *slog.Logger
}

func (f *failing) Generate(_ context.Context, _, _ string) Result {
	f.logger.Info("Text generation skipped",
		slog.String("provider", f.provider),
		slog.String("model", f.model),
		slog.String("reason", f.reason),
	)
	return Result{OK: false, Provider: f.provider, Model: f.model, Error: f.reason}
}

// finish turns the provider's text into a Result
func finish(res Result, text string) Result {
	out := ExtractJSONObject(text)
	res.Content = contentOf(out)
	res.References = referencesOf(out)
	if res.Content == "" {
		res.Error = "empty insight; raw=" + snippet(text, 200)
		return res
	}
	res.OK = true
	return res
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return strings.ReplaceAll(string(r), "\n", " ")
}
