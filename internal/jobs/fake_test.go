package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/insight"
	"github.com/cuongbtq/trade-insights/internal/model"
	"github.com/cuongbtq/trade-insights/internal/storage"
	"github.com/cuongbtq/trade-insights/internal/widget"
)

type memStore struct {
	mu        sync.Mutex
	defs      map[string]model.JobDefinition
	runs      []model.JobRun
	snapshots []model.WidgetSnapshot
}

func newMemStore() *memStore {
	return &memStore{defs: make(map[string]model.JobDefinition)}
}

func (m *memStore) InsertDefinitionIfAbsent(_ context.Context, def *model.JobDefinition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.defs[def.JobID]; ok {
		return false, nil
	}
	m.defs[def.JobID] = *def
	return true, nil
}

func (m *memStore) GetDefinition(_ context.Context, jobID string) (*model.JobDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	def, ok := m.defs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return &def, nil
}

func (m *memStore) ListDefinitions(_ context.Context) ([]model.JobDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.JobDefinition, 0, len(m.defs))
	for _, d := range m.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out, nil
}

func (m *memStore) UpdateDefinition(_ context.Context, jobID string, upd storage.DefinitionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	def, ok := m.defs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	def.CronExpr = upd.CronExpr
	def.Timezone = upd.Timezone
	def.Enabled = upd.Enabled
	def.DefaultParams = upd.DefaultParams
	m.defs[jobID] = def
	return nil
}

func (m *memStore) MarkScheduled(_ context.Context, jobID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	def := m.defs[jobID]
	def.LastScheduledAt.Time, def.LastScheduledAt.Valid = at, true
	m.defs[jobID] = def
	return nil
}

func (m *memStore) MarkSucceeded(_ context.Context, jobID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	def := m.defs[jobID]
	def.LastSuccessAt.Time, def.LastSuccessAt.Valid = at, true
	m.defs[jobID] = def
	return nil
}

func (m *memStore) CreateRun(_ context.Context, run *model.JobRun) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, *run)
	return run.ID, nil
}

func (m *memStore) FinishRun(_ context.Context, runID int64, c storage.RunCompletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID != runID || m.runs[i].Status != domain.RunStatusRunning {
			continue
		}
		r := &m.runs[i]
		r.Status = c.Status
		r.Message = c.Message
		r.Error.String, r.Error.Valid = c.Error, c.Error != ""
		r.FinishedAt.Time, r.FinishedAt.Valid = c.FinishedAt, true
		r.DurationMs.Int64, r.DurationMs.Valid = c.DurationMs, true
		return nil
	}
	return domain.ErrRunNotFound
}

func (m *memStore) DeleteRunsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.runs[:0]
	var n int64
	for _, r := range m.runs {
		if r.StartedAt.Before(cutoff) && r.Status != domain.RunStatusRunning {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.runs = kept
	return n, nil
}

func (m *memStore) InsertSnapshot(_ context.Context, snap *model.WidgetSnapshot) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.ID = int64(len(m.snapshots) + 1)
	m.snapshots = append(m.snapshots, *snap)
	return snap.ID, nil
}

func (m *memStore) CountSnapshots(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.snapshots)), nil
}

func (m *memStore) DeleteSnapshotsBefore(_ context.Context, cutoff time.Time, preserveLatest bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	latest := map[string]model.WidgetSnapshot{}
	for _, s := range m.snapshots {
		key := s.WidgetKey + "|" + s.Scope
		cur, ok := latest[key]
		if !ok || s.FetchedAt.After(cur.FetchedAt) || (s.FetchedAt.Equal(cur.FetchedAt) && s.ID > cur.ID) {
			latest[key] = s
		}
	}

	kept := m.snapshots[:0]
	var n int64
	for _, s := range m.snapshots {
		isLatest := latest[s.WidgetKey+"|"+s.Scope].ID == s.ID
		if s.FetchedAt.Before(cutoff) && !(preserveLatest && isLatest) {
			n++
			continue
		}
		kept = append(kept, s)
	}
	m.snapshots = kept
	return n, nil
}

func (m *memStore) allRuns() []model.JobRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.JobRun, len(m.runs))
	copy(out, m.runs)
	return out
}

func (m *memStore) allSnapshots() []model.WidgetSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.WidgetSnapshot, len(m.snapshots))
	copy(out, m.snapshots)
	return out
}

var _ Store = (*memStore)(nil)

func f64(v float64) *float64 { return &v }

// fakeFetcher serves canned payloads and records the countries it was asked for
type fakeFetcher struct {
	mu        sync.Mutex
	countries []string
	failExim  bool
}

func (f *fakeFetcher) TradeCorridors(_ context.Context, _ bool) *widget.TradeCorridors {
	return &widget.TradeCorridors{Source: "stub", WCI: &widget.WCI{Error: "timeout"}}
}

func (f *fakeFetcher) TradeExim(_ context.Context, country string, endYear, years int, _ bool) *widget.TradeExim {
	f.mu.Lock()
	f.countries = append(f.countries, country)
	f.mu.Unlock()
	if f.failExim {
		return &widget.TradeExim{Source: "World Bank WDI", Country: country, Errors: []string{"http 500"}, Series: []widget.EximPoint{}}
	}
	return &widget.TradeExim{
		Source:    "World Bank WDI",
		Frequency: "annual",
		Country:   country,
		OK:        true,
		Errors:    []string{},
		Series: []widget.EximPoint{
			{Period: "2023", ExportUSD: f64(1), ImportUSD: f64(2)},
			{Period: "2024", ExportUSD: f64(3), ImportUSD: f64(1), BalanceUSD: f64(2)},
		},
	}
}

func (f *fakeFetcher) WealthIndicators(_ context.Context, country string, _, _ int, _ bool) *widget.WealthIndicators {
	return &widget.WealthIndicators{Source: "World Bank WDI", Country: country, OK: true}
}

func (f *fakeFetcher) DisposableIncome(_ context.Context, _ bool) *widget.DisposableIncome {
	return &widget.DisposableIncome{OK: true, Source: "wpr"}
}

func (f *fakeFetcher) AgeStructure(_ context.Context, country string, _, _ int, _ bool) *widget.AgeStructure {
	return &widget.AgeStructure{Source: "World Bank WDI", Country: country, Period: "2023", OK: true}
}

func (f *fakeFetcher) MAIndustry(_ context.Context, _ bool) *widget.MAIndustry {
	return &widget.MAIndustry{OK: true, Source: "IMAA (industry ranking)"}
}

func (f *fakeFetcher) MACountry(_ context.Context, _ bool) *widget.MACountry {
	return &widget.MACountry{OK: false, Source: "IMAA", Error: "blocked"}
}

// funcBody adapts a function into a JobBody with pass-through params
type funcBody func(ctx context.Context, params Params, runID int64) (string, error)

func (f funcBody) Normalize(raw Params) Params { return raw }

func (f funcBody) Execute(ctx context.Context, params Params, runID int64) (string, error) {
	return f(ctx, params, runID)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.RunFinishedEvent
}

func (n *recordingNotifier) RunFinished(_ context.Context, e domain.RunFinishedEvent) {
	n.mu.Lock()
	n.events = append(n.events, e)
	n.mu.Unlock()
}

type fakeBatcher struct {
	opts []insight.BatchOptions
	sum  insight.Summary
	err  error
}

func (b *fakeBatcher) RunBatch(_ context.Context, opts insight.BatchOptions, _ int64) (insight.Summary, error) {
	b.opts = append(b.opts, opts)
	return b.sum, b.err
}
