// Package governor gates every paid model call behind an intent cache and a
// per-org budget, and appends each attempt to the usage ledger. The ledger is
// the single source of truth for budget accounting; cache hits are logged at
// zero cost.
package governor

import (
	"context"
	"time"

	"github.com/postpilot/postpilot/store"
)

// GovernorStore is the slice of the record store the governor touches.
// Satisfied by *store.Store.
type GovernorStore interface {
	GetIntentCache(ctx context.Context, get *store.GetIntentCache) (*store.IntentCacheEntry, error)
	UpsertIntentCache(ctx context.Context, upsert *store.UpsertIntentCache) (*store.IntentCacheEntry, error)
	CreateAIUsageEvent(ctx context.Context, create *store.AIUsageEvent) (*store.AIUsageEvent, error)
	SumAIUsageCostUSD(ctx context.Context, sum *store.SumAIUsageCost) (float64, error)
}

// Message is one chat message sent to the model.
type Message struct {
	Role    string
	Content string
}

// ModelResult is what a model invocation returns.
type ModelResult struct {
	Text         string
	Provider     string
	Model        string
	InputTokens  int64
	OutputTokens int64
	LatencyMs    int64
}

// ModelInvoker is the opaque model-invocation capability. Implementations
// must honor context cancellation; the governor always invokes under a
// timeout.
type ModelInvoker interface {
	CallModel(ctx context.Context, messages []Message, maxTokens int) (*ModelResult, error)
}

// Budget holds the per-org spending caps. A zero cap disables that check.
type Budget struct {
	DailyCapUSD   float64
	MonthlyCapUSD float64
}

// AccessDecision is the outcome of a budget check. Reason is set only on
// denial and is meant for humans.
type AccessDecision struct {
	Allowed         bool
	Reason          string
	DailySpentUSD   float64
	MonthlySpentUSD float64
}

// InvokeRequest is one governed model invocation.
type InvokeRequest struct {
	OrgID    string
	RouteKey string
	// Params is the normalized request intent; it keys the cache, so two
	// requests with the same params share one entry.
	Params    map[string]any
	Messages  []Message
	Model     string
	MaxTokens int
	// CacheTTL bounds how long the response may be served from cache.
	// Defaults to 24h.
	CacheTTL time.Duration
	// Timeout bounds the model call. Defaults to 30s.
	Timeout time.Duration
}

// InvokeResult is the response of a governed invocation, cached or fresh.
type InvokeResult struct {
	Text         string
	Provider     string
	Model        string
	CacheHit     bool
	CostUSD      float64
	InputTokens  int64
	OutputTokens int64
	LatencyMs    int64
}

// Defaults for governed invocations.
const (
	DefaultCacheTTL  = 24 * time.Hour
	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 1024
)
