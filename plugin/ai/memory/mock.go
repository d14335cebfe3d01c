package memory

import (
	"context"
	"sync"
	"time"

	"github.com/postpilot/postpilot/store"
)

// MockRecallStore is an in-memory RecallStore for tests.
type MockRecallStore struct {
	mu sync.Mutex

	Episodes []*store.EpisodicMemory
	Scratch  []*store.WorkingMemory

	ListEpisodesErr error
	UpsertErr       error

	nextScratchID int64
}

var _ RecallStore = (*MockRecallStore)(nil)

func (m *MockRecallStore) ListEpisodicMemories(_ context.Context, find *store.FindEpisodicMemory) ([]*store.EpisodicMemory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListEpisodesErr != nil {
		return nil, m.ListEpisodesErr
	}
	list := make([]*store.EpisodicMemory, 0)
	for _, e := range m.Episodes {
		if find.OrgID != nil && e.OrgID != *find.OrgID {
			continue
		}
		if find.EventType != nil && e.EventType != *find.EventType {
			continue
		}
		if find.Platform != nil && e.Platform != *find.Platform {
			continue
		}
		if find.CreatedAfter != nil && e.CreatedAt.Before(*find.CreatedAfter) {
			continue
		}
		list = append(list, e)
		if find.Limit > 0 && len(list) >= find.Limit {
			break
		}
	}
	return list, nil
}

func (m *MockRecallStore) UpsertWorkingMemory(_ context.Context, upsert *store.UpsertWorkingMemory) (*store.WorkingMemory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return nil, m.UpsertErr
	}
	for _, wm := range m.Scratch {
		if wm.OrgID == upsert.OrgID && wm.SessionID == upsert.SessionID {
			wm.Content = upsert.Content
			wm.ExpiresAt = upsert.ExpiresAt
			return wm, nil
		}
	}
	m.nextScratchID++
	created := &store.WorkingMemory{
		ID:        m.nextScratchID,
		OrgID:     upsert.OrgID,
		SessionID: upsert.SessionID,
		Content:   upsert.Content,
		CreatedAt: time.Now(),
		ExpiresAt: upsert.ExpiresAt,
	}
	m.Scratch = append(m.Scratch, created)
	return created, nil
}

func (m *MockRecallStore) ListWorkingMemories(_ context.Context, find *store.FindWorkingMemory) ([]*store.WorkingMemory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]*store.WorkingMemory, 0)
	for _, wm := range m.Scratch {
		if find.OrgID != nil && wm.OrgID != *find.OrgID {
			continue
		}
		if find.SessionID != nil && wm.SessionID != *find.SessionID {
			continue
		}
		list = append(list, wm)
		if find.Limit > 0 && len(list) >= find.Limit {
			break
		}
	}
	return list, nil
}

func (m *MockRecallStore) DeleteExpiredWorkingMemories(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	kept := m.Scratch[:0]
	var deleted int64
	for _, wm := range m.Scratch {
		if wm.ExpiresAt.Before(now) {
			deleted++
			continue
		}
		kept = append(kept, wm)
	}
	m.Scratch = kept
	return deleted, nil
}
