package store

import (
	"context"
	"database/sql"
	"time"
)

// Driver is an interface for store driver.
// It contains all methods that a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate brings the schema up to date. Safe to call repeatedly.
	Migrate(ctx context.Context) error

	// EpisodicMemory model related methods.
	CreateEpisodicMemory(ctx context.Context, create *EpisodicMemory) (*EpisodicMemory, error)
	ListEpisodicMemories(ctx context.Context, find *FindEpisodicMemory) ([]*EpisodicMemory, error)

	// SemanticPattern model related methods.
	CreateSemanticPattern(ctx context.Context, create *SemanticPattern) (*SemanticPattern, error)
	ListSemanticPatterns(ctx context.Context, find *FindSemanticPattern) ([]*SemanticPattern, error)
	UpdateSemanticPattern(ctx context.Context, update *UpdateSemanticPattern) (*SemanticPattern, error)

	// ProceduralStrategy model related methods.
	CreateProceduralStrategy(ctx context.Context, create *ProceduralStrategy) (*ProceduralStrategy, error)
	ListProceduralStrategies(ctx context.Context, find *FindProceduralStrategy) ([]*ProceduralStrategy, error)

	// WorkingMemory model related methods.
	UpsertWorkingMemory(ctx context.Context, upsert *UpsertWorkingMemory) (*WorkingMemory, error)
	ListWorkingMemories(ctx context.Context, find *FindWorkingMemory) ([]*WorkingMemory, error)
	DeleteExpiredWorkingMemories(ctx context.Context) (int64, error)

	// MetacognitiveLog model related methods.
	CreateMetacognitiveLog(ctx context.Context, create *MetacognitiveLog) (*MetacognitiveLog, error)
	ListMetacognitiveLogs(ctx context.Context, find *FindMetacognitiveLog) ([]*MetacognitiveLog, error)

	// CreativeMemory model related methods.
	GetCreativeMemory(ctx context.Context, key *CreativeMemoryKey) (*CreativeMemory, error)
	UpsertCreativeMemory(ctx context.Context, upsert *UpsertCreativeMemory) (*CreativeMemory, error)
	ListCreativeMemories(ctx context.Context, find *FindCreativeMemory) ([]*CreativeMemory, error)

	// DecisionLog model related methods.
	CreateDecisionLog(ctx context.Context, create *DecisionLog) (*DecisionLog, error)
	ListDecisionLogs(ctx context.Context, find *FindDecisionLog) ([]*DecisionLog, error)

	// ConsolidationAuditLog model related methods.
	CreateConsolidationAudit(ctx context.Context, create *ConsolidationAuditLog) (*ConsolidationAuditLog, error)
	ListConsolidationAudits(ctx context.Context, find *FindConsolidationAudit) ([]*ConsolidationAuditLog, error)

	// IntentCacheEntry model related methods.
	GetIntentCache(ctx context.Context, get *GetIntentCache) (*IntentCacheEntry, error)
	UpsertIntentCache(ctx context.Context, upsert *UpsertIntentCache) (*IntentCacheEntry, error)
	DeleteExpiredIntentCache(ctx context.Context) (int64, error)

	// AIUsageEvent model related methods.
	CreateAIUsageEvent(ctx context.Context, create *AIUsageEvent) (*AIUsageEvent, error)
	ListAIUsageEvents(ctx context.Context, find *FindAIUsageEvent) ([]*AIUsageEvent, error)
	SumAIUsageCostUSD(ctx context.Context, sum *SumAIUsageCost) (float64, error)

	// ListActiveOrgIDs returns organizations with episodic activity after
	// the cutoff. Used by the periodic consolidation job.
	ListActiveOrgIDs(ctx context.Context, cutoff time.Time) ([]string, error)
}
