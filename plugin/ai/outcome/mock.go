package outcome

import (
	"context"
	"sync"

	"github.com/postpilot/postpilot/store"
)

// MockOutcomeStore is an in-memory OutcomeStore for tests.
type MockOutcomeStore struct {
	mu sync.Mutex

	Episodes   []*store.EpisodicMemory
	Aggregates []*store.CreativeMemory
	Decisions  []*store.DecisionLog

	CreateEpisodeErr error
	ListEpisodesErr  error
	GetAggregateErr  error
	UpsertErr        error
	CreateDecideErr  error

	nextEpisodeID   int64
	nextAggregateID int64
	nextDecisionID  int64
}

var _ OutcomeStore = (*MockOutcomeStore)(nil)

func (m *MockOutcomeStore) CreateEpisodicMemory(_ context.Context, create *store.EpisodicMemory) (*store.EpisodicMemory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateEpisodeErr != nil {
		return nil, m.CreateEpisodeErr
	}
	m.nextEpisodeID++
	create.ID = m.nextEpisodeID
	m.Episodes = append(m.Episodes, create)
	return create, nil
}

func (m *MockOutcomeStore) ListEpisodicMemories(_ context.Context, find *store.FindEpisodicMemory) ([]*store.EpisodicMemory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListEpisodesErr != nil {
		return nil, m.ListEpisodesErr
	}
	list := make([]*store.EpisodicMemory, 0)
	skipped := 0
	for i := len(m.Episodes) - 1; i >= 0; i-- {
		e := m.Episodes[i]
		if find.OrgID != nil && e.OrgID != *find.OrgID {
			continue
		}
		if find.EventType != nil && e.EventType != *find.EventType {
			continue
		}
		if find.Platform != nil && e.Platform != *find.Platform {
			continue
		}
		if skipped < find.Offset {
			skipped++
			continue
		}
		list = append(list, e)
		if find.Limit > 0 && len(list) >= find.Limit {
			break
		}
	}
	return list, nil
}

func (m *MockOutcomeStore) GetCreativeMemory(_ context.Context, key *store.CreativeMemoryKey) (*store.CreativeMemory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetAggregateErr != nil {
		return nil, m.GetAggregateErr
	}
	for _, a := range m.Aggregates {
		if sameKey(a, key) {
			return a, nil
		}
	}
	return nil, nil
}

func (m *MockOutcomeStore) UpsertCreativeMemory(_ context.Context, upsert *store.UpsertCreativeMemory) (*store.CreativeMemory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return nil, m.UpsertErr
	}
	for _, a := range m.Aggregates {
		if sameKey(a, &upsert.Key) {
			a.SampleSize = upsert.SampleSize
			a.SuccessCount = upsert.SuccessCount
			a.TotalEngagement = upsert.TotalEngagement
			a.AvgEngagement = upsert.AvgEngagement
			return a, nil
		}
	}
	m.nextAggregateID++
	created := &store.CreativeMemory{
		ID:              m.nextAggregateID,
		OrgID:           upsert.Key.OrgID,
		Platform:        upsert.Key.Platform,
		Objective:       upsert.Key.Objective,
		HookType:        upsert.Key.HookType,
		Framework:       upsert.Key.Framework,
		CTAType:         upsert.Key.CTAType,
		SampleSize:      upsert.SampleSize,
		SuccessCount:    upsert.SuccessCount,
		TotalEngagement: upsert.TotalEngagement,
		AvgEngagement:   upsert.AvgEngagement,
	}
	m.Aggregates = append(m.Aggregates, created)
	return created, nil
}

func (m *MockOutcomeStore) CreateDecisionLog(_ context.Context, create *store.DecisionLog) (*store.DecisionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateDecideErr != nil {
		return nil, m.CreateDecideErr
	}
	m.nextDecisionID++
	create.ID = m.nextDecisionID
	m.Decisions = append(m.Decisions, create)
	return create, nil
}

func (m *MockOutcomeStore) ListDecisionLogs(_ context.Context, find *store.FindDecisionLog) ([]*store.DecisionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]*store.DecisionLog, 0)
	for i := len(m.Decisions) - 1; i >= 0; i-- {
		d := m.Decisions[i]
		if find.OrgID != nil && d.OrgID != *find.OrgID {
			continue
		}
		if find.PostID != nil && d.PostID != *find.PostID {
			continue
		}
		list = append(list, d)
		if find.Limit > 0 && len(list) >= find.Limit {
			break
		}
	}
	return list, nil
}

func sameKey(a *store.CreativeMemory, key *store.CreativeMemoryKey) bool {
	return a.OrgID == key.OrgID &&
		a.Platform == key.Platform &&
		a.Objective == key.Objective &&
		a.HookType == key.HookType &&
		a.Framework == key.Framework &&
		a.CTAType == key.CTAType
}
