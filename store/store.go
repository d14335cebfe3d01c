package store

import (
	"context"
	"time"

	"github.com/postpilot/postpilot/internal/profile"
)

// Store provides database access to all raw memory-core objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateEpisodicMemory(ctx context.Context, create *EpisodicMemory) (*EpisodicMemory, error) {
	return s.driver.CreateEpisodicMemory(ctx, create)
}

func (s *Store) ListEpisodicMemories(ctx context.Context, find *FindEpisodicMemory) ([]*EpisodicMemory, error) {
	return s.driver.ListEpisodicMemories(ctx, find)
}

func (s *Store) CreateSemanticPattern(ctx context.Context, create *SemanticPattern) (*SemanticPattern, error) {
	return s.driver.CreateSemanticPattern(ctx, create)
}

func (s *Store) ListSemanticPatterns(ctx context.Context, find *FindSemanticPattern) ([]*SemanticPattern, error) {
	return s.driver.ListSemanticPatterns(ctx, find)
}

func (s *Store) UpdateSemanticPattern(ctx context.Context, update *UpdateSemanticPattern) (*SemanticPattern, error) {
	return s.driver.UpdateSemanticPattern(ctx, update)
}

func (s *Store) CreateProceduralStrategy(ctx context.Context, create *ProceduralStrategy) (*ProceduralStrategy, error) {
	return s.driver.CreateProceduralStrategy(ctx, create)
}

func (s *Store) ListProceduralStrategies(ctx context.Context, find *FindProceduralStrategy) ([]*ProceduralStrategy, error) {
	return s.driver.ListProceduralStrategies(ctx, find)
}

func (s *Store) UpsertWorkingMemory(ctx context.Context, upsert *UpsertWorkingMemory) (*WorkingMemory, error) {
	return s.driver.UpsertWorkingMemory(ctx, upsert)
}

func (s *Store) ListWorkingMemories(ctx context.Context, find *FindWorkingMemory) ([]*WorkingMemory, error) {
	return s.driver.ListWorkingMemories(ctx, find)
}

func (s *Store) DeleteExpiredWorkingMemories(ctx context.Context) (int64, error) {
	return s.driver.DeleteExpiredWorkingMemories(ctx)
}

func (s *Store) CreateMetacognitiveLog(ctx context.Context, create *MetacognitiveLog) (*MetacognitiveLog, error) {
	return s.driver.CreateMetacognitiveLog(ctx, create)
}

func (s *Store) ListMetacognitiveLogs(ctx context.Context, find *FindMetacognitiveLog) ([]*MetacognitiveLog, error) {
	return s.driver.ListMetacognitiveLogs(ctx, find)
}

func (s *Store) GetCreativeMemory(ctx context.Context, key *CreativeMemoryKey) (*CreativeMemory, error) {
	return s.driver.GetCreativeMemory(ctx, key)
}

func (s *Store) UpsertCreativeMemory(ctx context.Context, upsert *UpsertCreativeMemory) (*CreativeMemory, error) {
	return s.driver.UpsertCreativeMemory(ctx, upsert)
}

func (s *Store) ListCreativeMemories(ctx context.Context, find *FindCreativeMemory) ([]*CreativeMemory, error) {
	return s.driver.ListCreativeMemories(ctx, find)
}

func (s *Store) CreateDecisionLog(ctx context.Context, create *DecisionLog) (*DecisionLog, error) {
	return s.driver.CreateDecisionLog(ctx, create)
}

func (s *Store) ListDecisionLogs(ctx context.Context, find *FindDecisionLog) ([]*DecisionLog, error) {
	return s.driver.ListDecisionLogs(ctx, find)
}

func (s *Store) CreateConsolidationAudit(ctx context.Context, create *ConsolidationAuditLog) (*ConsolidationAuditLog, error) {
	return s.driver.CreateConsolidationAudit(ctx, create)
}

func (s *Store) ListConsolidationAudits(ctx context.Context, find *FindConsolidationAudit) ([]*ConsolidationAuditLog, error) {
	return s.driver.ListConsolidationAudits(ctx, find)
}

func (s *Store) GetIntentCache(ctx context.Context, get *GetIntentCache) (*IntentCacheEntry, error) {
	return s.driver.GetIntentCache(ctx, get)
}

func (s *Store) UpsertIntentCache(ctx context.Context, upsert *UpsertIntentCache) (*IntentCacheEntry, error) {
	return s.driver.UpsertIntentCache(ctx, upsert)
}

func (s *Store) DeleteExpiredIntentCache(ctx context.Context) (int64, error) {
	return s.driver.DeleteExpiredIntentCache(ctx)
}

func (s *Store) CreateAIUsageEvent(ctx context.Context, create *AIUsageEvent) (*AIUsageEvent, error) {
	return s.driver.CreateAIUsageEvent(ctx, create)
}

func (s *Store) ListAIUsageEvents(ctx context.Context, find *FindAIUsageEvent) ([]*AIUsageEvent, error) {
	return s.driver.ListAIUsageEvents(ctx, find)
}

func (s *Store) SumAIUsageCostUSD(ctx context.Context, sum *SumAIUsageCost) (float64, error) {
	return s.driver.SumAIUsageCostUSD(ctx, sum)
}

func (s *Store) ListActiveOrgIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	return s.driver.ListActiveOrgIDs(ctx, cutoff)
}
