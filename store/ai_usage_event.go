package store

import "time"

// AIUsageEvent is the append-only ledger of every AI invocation attempt,
// cache hits included. It is the single source of truth for budget
// accounting.
type AIUsageEvent struct {
	ID           int64
	OrgID        string
	RouteKey     string
	Provider     string
	Model        string
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
	LatencyMs    int64
	CacheHit     bool
	Success      bool
	ErrorCode    string
	Metadata     string // JSON
	CreatedAt    time.Time
}

// FindAIUsageEvent specifies the conditions for finding usage events.
type FindAIUsageEvent struct {
	OrgID         *string
	RouteKey      *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
}

// SumAIUsageCost specifies a cost aggregation over the usage ledger.
type SumAIUsageCost struct {
	OrgID        string
	CreatedAfter time.Time
}
