package insight

import (
	"context"
	"sync"

	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/model"
)

type memStore struct {
	mu        sync.Mutex
	snapshots []model.WidgetSnapshot
	insights  []model.WidgetInsight
	cursors   map[string]model.JSONRaw
	contexts  []model.PublicContext
	purges    int
}

func newMemStore() *memStore {
	return &memStore{cursors: make(map[string]model.JSONRaw)}
}

func (m *memStore) addSnapshot(s model.WidgetSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = int64(len(m.snapshots) + 1)
	m.snapshots = append(m.snapshots, s)
}

func (m *memStore) LatestSnapshot(_ context.Context, widgetKey, scope string) (*model.WidgetSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.WidgetSnapshot
	for i := range m.snapshots {
		s := &m.snapshots[i]
		if s.WidgetKey != widgetKey || s.Scope != scope {
			continue
		}
		if best == nil || s.FetchedAt.After(best.FetchedAt) || (s.FetchedAt.Equal(best.FetchedAt) && s.ID > best.ID) {
			best = s
		}
	}
	if best == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	out := *best
	return &out, nil
}

func (m *memStore) InsertInsight(_ context.Context, in *model.WidgetInsight) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in.ID = int64(len(m.insights) + 1)
	m.insights = append(m.insights, *in)
	return in.ID, nil
}

func (m *memStore) LatestInsight(_ context.Context, cardKey, tabKey, scope, lang string) (*model.WidgetInsight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.insights) - 1; i >= 0; i-- {
		in := m.insights[i]
		if in.CardKey == cardKey && in.TabKey == tabKey && in.Scope == scope && in.Lang == lang {
			return &in, nil
		}
	}
	return nil, domain.ErrInsightNotFound
}

func (m *memStore) PurgeNonGeneratedInsights(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purges++
	kept := m.insights[:0]
	var n int64
	for _, in := range m.insights {
		if in.GeneratedBy == domain.GeneratedByLLM {
			kept = append(kept, in)
			continue
		}
		n++
	}
	m.insights = kept
	return n, nil
}

func (m *memStore) GetCursor(_ context.Context, key string) (model.JSONRaw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursors[key], nil
}

func (m *memStore) PutCursor(_ context.Context, key string, value model.JSONRaw) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[key] = value
	return nil
}

func (m *memStore) LatestPublicContext(_ context.Context, url string) (*model.PublicContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.contexts) - 1; i >= 0; i-- {
		if m.contexts[i].URL == url {
			pc := m.contexts[i]
			return &pc, nil
		}
	}
	return nil, nil
}

func (m *memStore) InsertPublicContext(_ context.Context, pc *model.PublicContext) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pc.ID = int64(len(m.contexts) + 1)
	m.contexts = append(m.contexts, *pc)
	return pc.ID, nil
}

func (m *memStore) insightCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.insights)
}

var _ Store = (*memStore)(nil)
