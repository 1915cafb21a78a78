package insight

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/model"
	"github.com/cuongbtq/trade-insights/internal/textgen"
	"github.com/cuongbtq/trade-insights/internal/widget"
)

// ErrUnchanged is returned when skip-on-unchanged is on and the inputs digest matches the latest row
var ErrUnchanged = errors.New("insight inputs unchanged")

// GenerationError is a failed text generation. Nothing is persisted for it.
type GenerationError struct {
	Provider string
	Model    string
	Message  string
}

func (e *GenerationError) Error() string {
	return "insight generation failed: " + e.Message
}

// Request asks for one panel insight
type Request struct {
	CardKey  string
	TabKey   string
	Scope    string
	Lang     string
	Inputs   []model.WidgetSnapshot
	Context  map[string]any
	Force    bool
	JobRunID int64
}

// Generator turns snapshots into persisted insights
type Generator struct {
	store         InsightStore
	text          textgen.Generator
	skipUnchanged bool
	now           func() time.Time
	logger        *slog.Logger
}

// GeneratorOption customizes a Generator
type GeneratorOption func(*Generator)

// WithSkipUnchanged skips generation when the digest equals the latest stored one
func WithSkipUnchanged(skip bool) GeneratorOption {
	return func(g *Generator) { g.skipUnchanged = skip }
}

// WithGeneratorClock replaces time.Now
func WithGeneratorClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a new Generator
func NewGenerator(store InsightStore, text textgen.Generator, logger *slog.Logger, opts ...GeneratorOption) *Generator {
	g := &Generator{store: store, text: text, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Prepared is the deterministic input of a generation
type Prepared struct {
	Tab       Tab
	Input     map[string]any
	Canonical []byte
	Digest    string
}

// Prepare decodes the inputs and builds the digest-bearing input object
func Prepare(req Request) (*Prepared, error) {
	tab, ok := FindTab(req.CardKey, req.TabKey)
	if !ok {
		return nil, fmt.Errorf("unknown insight tab %s/%s", req.CardKey, req.TabKey)
	}
	if len(req.Inputs) == 0 {
		return nil, fmt.Errorf("no input snapshots for %s/%s", req.CardKey, req.TabKey)
	}

	decoded := make([]Input, 0, len(req.Inputs))
	snapshots := make([]map[string]any, 0, len(req.Inputs))
	sources := make([]string, 0, len(req.Inputs))
	sourceTimes := make([]map[string]any, 0, len(req.Inputs))
	for _, snap := range req.Inputs {
		p, err := widget.Decode(snap.WidgetKey, snap.Payload)
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, Input{Snapshot: snap, Payload: p})
		snapshots = append(snapshots, map[string]any{
			"widget_key": snap.WidgetKey,
			"scope":      snap.Scope,
			"is_stale":   snap.IsStale,
			"payload":    snap.Payload,
		})
		sources = append(sources, snap.Source)
		sourceTimes = append(sourceTimes, sourceTimeBlock(snap))
	}

	extra := map[string]any{
		"sources":      sources,
		"source_times": sourceTimes,
		"force":        req.Force,
	}
	for k, v := range req.Context {
		extra[k] = v
	}

	input := map[string]any{
		"card_key":  req.CardKey,
		"tab_key":   req.TabKey,
		"scope":     req.Scope,
		"lang":      req.Lang,
		"display":   tab.Project(decoded),
		"snapshots": snapshots,
		"context":   extra,
	}

	canonical, err := Canonical(input)
	if err != nil {
		return nil, err
	}
	digest, err := Digest(input)
	if err != nil {
		return nil, err
	}
	return &Prepared{Tab: tab, Input: input, Canonical: canonical, Digest: digest}, nil
}

func sourceTimeBlock(snap model.WidgetSnapshot) map[string]any {
	block := map[string]any{
		"widget_key": snap.WidgetKey,
		"kind":       snap.SourceUpdatedKind,
		"at":         nil,
	}
	if snap.SourceUpdatedAt.Valid {
		block["at"] = snap.SourceUpdatedAt.Time.UTC().Format(time.RFC3339)
	}
	if snap.SourceUpdatedNote.Valid {
		block["note"] = snap.SourceUpdatedNote.String
	}
	return block
}

// Generate produces and stores the insight of one panel
func (g *Generator) Generate(ctx context.Context, req Request) (*model.WidgetInsight, error) {
	// 1. Deterministic input and digest
	prep, err := Prepare(req)
	if err != nil {
		return nil, err
	}

	// 2. Optional skip when nothing changed
	if g.skipUnchanged && !req.Force {
		latest, err := g.store.LatestInsight(ctx, req.CardKey, req.TabKey, req.Scope, req.Lang)
		if err != nil && !errors.Is(err, domain.ErrInsightNotFound) {
			return nil, err
		}
		if latest != nil && latest.DataDigest == prep.Digest {
			g.logger.Debug("Insight inputs unchanged",
				slog.String("card_key", req.CardKey),
				slog.String("tab_key", req.TabKey),
				slog.String("scope", req.Scope),
				slog.String("lang", req.Lang),
			)
			return nil, ErrUnchanged
		}
	}

	// 3. Generate
	system := SystemPrompt(req.Lang)
	user := UserPrompt(req.CardKey, req.TabKey, req.Scope, req.Lang, prep.Canonical)
	res := g.text.Generate(ctx, system, user)
	if !res.OK {
		g.logger.Warn("Insight generation failed",
			slog.String("card_key", req.CardKey),
			slog.String("tab_key", req.TabKey),
			slog.String("scope", req.Scope),
			slog.String("lang", req.Lang),
			slog.String("provider", res.Provider),
			slog.String("error", res.Error),
		)
		return nil, &GenerationError{Provider: res.Provider, Model: res.Model, Message: res.Error}
	}

	// 4. Persist with provenance
	row := &model.WidgetInsight{
		CardKey:           req.CardKey,
		TabKey:            req.TabKey,
		Scope:             req.Scope,
		Lang:              req.Lang,
		Content:           res.Content,
		ReferenceList:     model.MustJSON(res.References),
		SourceUpdatedAt:   freshestSourceTime(req.Inputs),
		DataDigest:        prep.Digest,
		InputSnapshotKeys: model.MustJSON(snapshotKeys(req.Inputs)),
		Provider:          nullString(res.Provider),
		Model:             nullString(res.Model),
		Prompt:            nullString(system + "\n\n" + user),
		GeneratedBy:       domain.GeneratedByLLM,
		CreatedAt:         g.now().UTC().Truncate(time.Millisecond),
	}
	if req.JobRunID > 0 {
		row.JobRunID = sql.NullInt64{Int64: req.JobRunID, Valid: true}
	}

	id, err := g.store.InsertInsight(ctx, row)
	if err != nil {
		return nil, err
	}
	row.ID = id

	g.logger.Info("Insight generated",
		slog.Int64("insight_id", id),
		slog.String("card_key", req.CardKey),
		slog.String("tab_key", req.TabKey),
		slog.String("scope", req.Scope),
		slog.String("lang", req.Lang),
		slog.String("digest", prep.Digest),
	)
	return row, nil
}

// freshestSourceTime is the max non-null source_updated_at
func freshestSourceTime(inputs []model.WidgetSnapshot) sql.NullTime {
	var out sql.NullTime
	for _, s := range inputs {
		if !s.SourceUpdatedAt.Valid {
			continue
		}
		if !out.Valid || s.SourceUpdatedAt.Time.After(out.Time) {
			out = s.SourceUpdatedAt
		}
	}
	return out
}

func snapshotKeys(inputs []model.WidgetSnapshot) []map[string]any {
	keys := make([]map[string]any, 0, len(inputs))
	for _, s := range inputs {
		var src any
		if s.SourceUpdatedAt.Valid {
			src = s.SourceUpdatedAt.Time.UTC().Format(time.RFC3339)
		}
		keys = append(keys, map[string]any{
			"id":                s.ID,
			"widget_key":        s.WidgetKey,
			"scope":             s.Scope,
			"fetched_at":        s.FetchedAt.UTC().Format(time.RFC3339Nano),
			"source_updated_at": src,
		})
	}
	return keys
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
