package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/model"
	"github.com/cuongbtq/trade-insights/internal/widget"
)

// BatchOptions selects what one run regenerates
type BatchOptions struct {
	Langs   []string
	// AllGeos processes every geography instead of advancing the rotation
	AllGeos bool
	// GeoList is an explicit subset; it overrides both rotation and AllGeos
	GeoList []string
	CardKey string
	TabKey  string
	Force   bool
}

// Summary counts the outcome of a batch
type Summary struct {
	Generated int
	Failed    int
	Skipped   int
	Geos      []string
}

func (s Summary) String() string {
	geos := "none"
	if len(s.Geos) > 0 {
		geos = strings.Join(s.Geos, ", ")
	}
	return fmt.Sprintf("insights generated: %d, failed: %d, skipped: %d, geos: %s", s.Generated, s.Failed, s.Skipped, geos)
}

type cursorValue struct {
	NextIndex int `json:"next_index"`
}

// CursorKey is the rotation cursor of one language
func CursorKey(lang string) string {
	return "insights:geo:" + lang
}

// Batcher regenerates the insights of every panel
type Batcher struct {
	gen      *Generator
	store    BatchStore
	contexts *ContextProvider
	geos     []string
	logger   *slog.Logger
}

// NewBatcher creates a new Batcher. contexts may be nil.
func NewBatcher(gen *Generator, store BatchStore, contexts *ContextProvider, logger *slog.Logger) *Batcher {
	return &Batcher{gen: gen, store: store, contexts: contexts, geos: widget.AllGeos(), logger: logger}
}

// RunBatch purges non-generated rows, regenerates global tabs and the due geographies.
// It fails only when every attempted generation failed.
func (b *Batcher) RunBatch(ctx context.Context, opts BatchOptions, runID int64) (Summary, error) {
	var sum Summary

	purged, err := b.store.PurgeNonGeneratedInsights(ctx)
	if err != nil {
		return sum, err
	}
	if purged > 0 {
		b.logger.Info("Purged non-generated insights", slog.Int64("count", purged))
	}

	selected := SelectTabs(opts.CardKey, opts.TabKey)
	var globalTabs, geoTabs []Tab
	for _, t := range selected {
		if t.PerGeo {
			geoTabs = append(geoTabs, t)
		} else {
			globalTabs = append(globalTabs, t)
		}
	}

	langs := opts.Langs
	if len(langs) == 0 {
		langs = []string{LangEnglish}
	}

	var attempted int
	var lastErr error
	blocks := make(map[string][]map[string]any)
	seenGeo := make(map[string]bool)

	record := func(err error) {
		attempted++
		switch {
		case err == nil:
			sum.Generated++
		case errors.Is(err, ErrUnchanged):
			sum.Skipped++
		default:
			sum.Failed++
			lastErr = err
		}
	}

	for _, lang := range langs {
		for _, tab := range globalTabs {
			if !b.generateTab(ctx, tab, domain.ScopeGlobal, lang, opts.Force, runID, blocks, record) {
				sum.Skipped++
			}
		}

		if len(geoTabs) == 0 {
			continue
		}
		geos, err := b.dueGeos(ctx, lang, opts)
		if err != nil {
			return sum, err
		}
		for _, geo := range geos {
			if !seenGeo[geo] {
				seenGeo[geo] = true
				sum.Geos = append(sum.Geos, geo)
			}
			for _, tab := range geoTabs {
				if !b.generateTab(ctx, tab, geo, lang, opts.Force, runID, blocks, record) {
					sum.Skipped++
				}
			}
		}
	}

	if attempted > 0 && sum.Failed == attempted {
		return sum, fmt.Errorf("all %d insight generations failed: %w", sum.Failed, lastErr)
	}
	return sum, nil
}

// generateTab reports false when the tab had no input snapshots
func (b *Batcher) generateTab(ctx context.Context, tab Tab, scope, lang string, force bool, runID int64, blocks map[string][]map[string]any, record func(error)) bool {
	inputs := make([]model.WidgetSnapshot, 0, len(tab.Inputs))
	for _, key := range tab.Inputs {
		snap, err := b.store.LatestSnapshot(ctx, key, scope)
		if err != nil {
			if !errors.Is(err, domain.ErrSnapshotNotFound) {
				b.logger.Warn("Failed to load snapshot for insight",
					slog.String("widget_key", key),
					slog.String("scope", scope),
					slog.Any("error", err),
				)
			}
			continue
		}
		inputs = append(inputs, *snap)
	}
	if len(inputs) == 0 {
		return false
	}

	var extra map[string]any
	if b.contexts != nil && len(tab.ContextURLs) > 0 {
		key := tab.CardKey + "/" + tab.TabKey
		if _, ok := blocks[key]; !ok {
			blocks[key] = b.contexts.Blocks(ctx, tab.ContextURLs)
		}
		extra = map[string]any{"public_context": blocks[key]}
	}

	_, err := b.gen.Generate(ctx, Request{
		CardKey:  tab.CardKey,
		TabKey:   tab.TabKey,
		Scope:    scope,
		Lang:     lang,
		Inputs:   inputs,
		Context:  extra,
		Force:    force,
		JobRunID: runID,
	})
	record(err)
	return true
}

// dueGeos resolves the geographies of this run, advancing the rotation cursor when rotating
func (b *Batcher) dueGeos(ctx context.Context, lang string, opts BatchOptions) ([]string, error) {
	if len(opts.GeoList) > 0 {
		return opts.GeoList, nil
	}
	if opts.AllGeos || len(b.geos) == 0 {
		return b.geos, nil
	}

	key := CursorKey(lang)
	raw, err := b.store.GetCursor(ctx, key)
	if err != nil {
		return nil, err
	}
	var cur cursorValue
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cur); err != nil {
			b.logger.Warn("Resetting unreadable batch cursor",
				slog.String("cursor_key", key),
				slog.Any("error", err),
			)
			cur = cursorValue{}
		}
	}

	idx := cur.NextIndex % len(b.geos)
	if idx < 0 {
		idx = 0
	}
	next := cursorValue{NextIndex: (idx + 1) % len(b.geos)}
	if err := b.store.PutCursor(ctx, key, model.MustJSON(next)); err != nil {
		return nil, err
	}
	return []string{b.geos[idx]}, nil
}
