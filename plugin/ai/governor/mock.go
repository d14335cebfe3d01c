package governor

import (
	"context"
	"sync"
	"time"

	"github.com/postpilot/postpilot/store"
)

// MockGovernorStore is an in-memory GovernorStore for tests.
type MockGovernorStore struct {
	mu sync.Mutex

	Entries []*store.IntentCacheEntry
	Events  []*store.AIUsageEvent

	GetCacheErr    error
	UpsertCacheErr error
	CreateEventErr error
	SumErr         error

	nextEntryID int64
	nextEventID int64
}

var _ GovernorStore = (*MockGovernorStore)(nil)

func (m *MockGovernorStore) GetIntentCache(_ context.Context, get *store.GetIntentCache) (*store.IntentCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetCacheErr != nil {
		return nil, m.GetCacheErr
	}
	for _, e := range m.Entries {
		if e.OrgID == get.OrgID && e.RouteKey == get.RouteKey && e.IntentHash == get.IntentHash {
			return e, nil
		}
	}
	return nil, nil
}

func (m *MockGovernorStore) UpsertIntentCache(_ context.Context, upsert *store.UpsertIntentCache) (*store.IntentCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertCacheErr != nil {
		return nil, m.UpsertCacheErr
	}
	for _, e := range m.Entries {
		if e.OrgID == upsert.OrgID && e.RouteKey == upsert.RouteKey && e.IntentHash == upsert.IntentHash {
			e.Response = upsert.Response
			e.Provider = upsert.Provider
			e.Model = upsert.Model
			e.EstimatedCostUSD = upsert.EstimatedCostUSD
			e.ExpiresAt = upsert.ExpiresAt
			return e, nil
		}
	}
	m.nextEntryID++
	created := &store.IntentCacheEntry{
		ID:               m.nextEntryID,
		OrgID:            upsert.OrgID,
		RouteKey:         upsert.RouteKey,
		IntentHash:       upsert.IntentHash,
		Response:         upsert.Response,
		Provider:         upsert.Provider,
		Model:            upsert.Model,
		EstimatedCostUSD: upsert.EstimatedCostUSD,
		CreatedAt:        time.Now(),
		ExpiresAt:        upsert.ExpiresAt,
	}
	m.Entries = append(m.Entries, created)
	return created, nil
}

func (m *MockGovernorStore) CreateAIUsageEvent(_ context.Context, create *store.AIUsageEvent) (*store.AIUsageEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateEventErr != nil {
		return nil, m.CreateEventErr
	}
	m.nextEventID++
	create.ID = m.nextEventID
	if create.CreatedAt.IsZero() {
		create.CreatedAt = time.Now()
	}
	m.Events = append(m.Events, create)
	return create, nil
}

func (m *MockGovernorStore) SumAIUsageCostUSD(_ context.Context, sum *store.SumAIUsageCost) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SumErr != nil {
		return 0, m.SumErr
	}
	var total float64
	for _, e := range m.Events {
		if e.OrgID != sum.OrgID {
			continue
		}
		if e.CreatedAt.Before(sum.CreatedAfter) {
			continue
		}
		total += e.CostUSD
	}
	return total, nil
}

// MockInvoker returns a canned model result, optionally waiting on the
// context first to simulate latency.
type MockInvoker struct {
	mu     sync.Mutex
	Result *ModelResult
	Err    error
	Wait   time.Duration
	calls  int
}

var _ ModelInvoker = (*MockInvoker)(nil)

func (m *MockInvoker) CallModel(ctx context.Context, _ []Message, _ int) (*ModelResult, error) {
	m.mu.Lock()
	m.calls++
	wait := m.Wait
	m.mu.Unlock()
	if wait > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// Calls reports how many times CallModel ran.
func (m *MockInvoker) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
