package consolidate

import (
	"context"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/postpilot/postpilot/plugin/ai/pattern"
	"github.com/postpilot/postpilot/store"
)

// MockPatternStore is an in-memory PatternStore for tests. Error fields
// inject failures per operation.
type MockPatternStore struct {
	mu sync.Mutex

	Patterns    []*store.SemanticPattern
	Strategies  []*store.ProceduralStrategy
	Audits      []*store.ConsolidationAuditLog
	Assessments []*store.MetacognitiveLog
	OrgIDs      []string

	ListPatternsErr   error
	CreatePatternErr  error
	UpdatePatternErr  error
	CreateStrategyErr error
	CreateAuditErr    error
	ListAuditsErr     error
	CreateMetacogErr  error
	ListMetacogErr    error
	ListActiveOrgsErr error

	nextPatternID    int64
	nextStrategyID   int64
	nextAuditID      int64
	nextAssessmentID int64
}

var _ PatternStore = (*MockPatternStore)(nil)

func (m *MockPatternStore) ListSemanticPatterns(_ context.Context, find *store.FindSemanticPattern) ([]*store.SemanticPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListPatternsErr != nil {
		return nil, m.ListPatternsErr
	}
	list := make([]*store.SemanticPattern, 0)
	for _, p := range m.Patterns {
		if find.ID != nil && p.ID != *find.ID {
			continue
		}
		if find.OrgID != nil && p.OrgID != *find.OrgID {
			continue
		}
		if find.PatternType != nil && p.PatternType != *find.PatternType {
			continue
		}
		if find.Platform != nil && p.Platform != *find.Platform {
			continue
		}
		if find.PatternKey != nil && p.PatternKey != *find.PatternKey {
			continue
		}
		if find.MinConfidence != nil && p.Confidence < *find.MinConfidence {
			continue
		}
		list = append(list, p)
		if find.Limit > 0 && len(list) >= find.Limit {
			break
		}
	}
	return list, nil
}

func (m *MockPatternStore) CreateSemanticPattern(_ context.Context, create *store.SemanticPattern) (*store.SemanticPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreatePatternErr != nil {
		return nil, m.CreatePatternErr
	}
	m.nextPatternID++
	create.ID = m.nextPatternID
	m.Patterns = append(m.Patterns, create)
	return create, nil
}

func (m *MockPatternStore) UpdateSemanticPattern(_ context.Context, update *store.UpdateSemanticPattern) (*store.SemanticPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdatePatternErr != nil {
		return nil, m.UpdatePatternErr
	}
	for _, p := range m.Patterns {
		if p.ID != update.ID {
			continue
		}
		if update.PatternValue != nil {
			p.PatternValue = *update.PatternValue
		}
		if update.Confidence != nil {
			p.Confidence = *update.Confidence
		}
		if update.SampleSize != nil {
			p.SampleSize = *update.SampleSize
		}
		p.UpdatedAt = update.UpdatedAt
		return p, nil
	}
	return nil, nil
}

func (m *MockPatternStore) ListProceduralStrategies(_ context.Context, find *store.FindProceduralStrategy) ([]*store.ProceduralStrategy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]*store.ProceduralStrategy, 0)
	for _, s := range m.Strategies {
		if find.OrgID != nil && s.OrgID != *find.OrgID {
			continue
		}
		if find.PatternID != nil && s.PatternID != *find.PatternID {
			continue
		}
		list = append(list, s)
		if find.Limit > 0 && len(list) >= find.Limit {
			break
		}
	}
	return list, nil
}

func (m *MockPatternStore) CreateProceduralStrategy(_ context.Context, create *store.ProceduralStrategy) (*store.ProceduralStrategy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateStrategyErr != nil {
		return nil, m.CreateStrategyErr
	}
	m.nextStrategyID++
	create.ID = m.nextStrategyID
	m.Strategies = append(m.Strategies, create)
	return create, nil
}

func (m *MockPatternStore) CreateConsolidationAudit(_ context.Context, create *store.ConsolidationAuditLog) (*store.ConsolidationAuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateAuditErr != nil {
		return nil, m.CreateAuditErr
	}
	m.nextAuditID++
	create.ID = m.nextAuditID
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	if create.Actor == "" {
		create.Actor = "system"
	}
	if create.Details == "" {
		create.Details = "{}"
	}
	m.Audits = append(m.Audits, create)
	return create, nil
}

func (m *MockPatternStore) ListConsolidationAudits(_ context.Context, find *store.FindConsolidationAudit) ([]*store.ConsolidationAuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListAuditsErr != nil {
		return nil, m.ListAuditsErr
	}
	list := make([]*store.ConsolidationAuditLog, 0)
	for i := len(m.Audits) - 1; i >= 0; i-- {
		a := m.Audits[i]
		if find.OrgID != nil && a.OrgID != *find.OrgID {
			continue
		}
		if find.ActionType != nil && a.ActionType != *find.ActionType {
			continue
		}
		if find.Since != nil && a.CreatedAt.Before(*find.Since) {
			continue
		}
		list = append(list, a)
		if find.Limit > 0 && len(list) >= find.Limit {
			break
		}
	}
	return list, nil
}

func (m *MockPatternStore) CreateMetacognitiveLog(_ context.Context, create *store.MetacognitiveLog) (*store.MetacognitiveLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateMetacogErr != nil {
		return nil, m.CreateMetacogErr
	}
	m.nextAssessmentID++
	create.ID = m.nextAssessmentID
	m.Assessments = append(m.Assessments, create)
	return create, nil
}

func (m *MockPatternStore) ListMetacognitiveLogs(_ context.Context, find *store.FindMetacognitiveLog) ([]*store.MetacognitiveLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListMetacogErr != nil {
		return nil, m.ListMetacogErr
	}
	list := make([]*store.MetacognitiveLog, 0)
	for _, l := range m.Assessments {
		if find.OrgID != nil && l.OrgID != *find.OrgID {
			continue
		}
		if find.AssessmentType != nil && l.AssessmentType != *find.AssessmentType {
			continue
		}
		if find.Since != nil && l.CreatedAt.Before(*find.Since) {
			continue
		}
		list = append(list, l)
		if find.Limit > 0 && len(list) >= find.Limit {
			break
		}
	}
	return list, nil
}

func (m *MockPatternStore) ListActiveOrgIDs(_ context.Context, _ time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListActiveOrgsErr != nil {
		return nil, m.ListActiveOrgsErr
	}
	return m.OrgIDs, nil
}

// MockDetector returns canned candidates for tests.
type MockDetector struct {
	mu         sync.Mutex
	Candidates []*pattern.Candidate
	Err        error
	Block      chan struct{} // if set, DetectAll waits for it to close
	calls      int
}

var _ CandidateDetector = (*MockDetector)(nil)

func (m *MockDetector) DetectAll(_ context.Context, _ string) ([]*pattern.Candidate, error) {
	m.mu.Lock()
	m.calls++
	block := m.Block
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Candidates, nil
}

// Calls reports how many times DetectAll ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
