package governor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/postpilot/postpilot/internal/errors"
	"github.com/postpilot/postpilot/internal/observability"
	"github.com/postpilot/postpilot/store"
)

// Governor mediates access to the paid model behind caching and budgets.
type Governor struct {
	store   GovernorStore
	invoker ModelInvoker
	budget  Budget
	logger  *slog.Logger
	limiter *orgRateLimiter
	now     func() time.Time
}

// New creates a governor. A nil invoker is allowed for callers that only use
// the budget and cache primitives.
func New(s GovernorStore, invoker ModelInvoker, budget Budget, logger *slog.Logger) *Governor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Governor{
		store:   s,
		invoker: invoker,
		budget:  budget,
		logger:  logger,
		limiter: newOrgRateLimiter(0, 0),
		now:     time.Now,
	}
}

// BuildIntentCacheKey hashes a canonicalized parameter object together with
// the route discriminator. Map key order never affects the result, so
// semantically identical requests collide into one cache entry; bumping the
// routeKey version invalidates every prior entry for the route.
func BuildIntentCacheKey(routeKey string, params map[string]any) (string, error) {
	if routeKey == "" {
		return "", apperrors.Validation("routeKey is required")
	}
	// json.Marshal sorts map keys at every nesting level, which is exactly
	// the canonical form needed here.
	canonical, err := json.Marshal(params)
	if err != nil {
		return "", apperrors.Validationf("params are not serializable: %v", err)
	}
	sum := sha256.Sum256(append(append([]byte(routeKey), '\n'), canonical...))
	return hex.EncodeToString(sum[:]), nil
}

// DecidePaidAIAccess sums the org's usage ledger for the current UTC day and
// calendar month, adds the estimate, and denies if either cap would be
// exceeded. No usage history means zero spend, not an error.
func (g *Governor) DecidePaidAIAccess(ctx context.Context, orgID string, estimatedAdditionalCostUSD float64) (*AccessDecision, error) {
	if orgID == "" {
		return nil, apperrors.Validation("orgID is required")
	}

	now := g.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	dailySpent, err := g.store.SumAIUsageCostUSD(ctx, &store.SumAIUsageCost{OrgID: orgID, CreatedAfter: dayStart})
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to sum daily usage", err)
	}
	monthlySpent, err := g.store.SumAIUsageCostUSD(ctx, &store.SumAIUsageCost{OrgID: orgID, CreatedAfter: monthStart})
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to sum monthly usage", err)
	}

	decision := &AccessDecision{Allowed: true, DailySpentUSD: dailySpent, MonthlySpentUSD: monthlySpent}
	if g.budget.DailyCapUSD > 0 && dailySpent+estimatedAdditionalCostUSD > g.budget.DailyCapUSD {
		decision.Allowed = false
		decision.Reason = fmt.Sprintf("daily AI budget of $%.2f would be exceeded ($%.2f spent today)", g.budget.DailyCapUSD, dailySpent)
		return decision, nil
	}
	if g.budget.MonthlyCapUSD > 0 && monthlySpent+estimatedAdditionalCostUSD > g.budget.MonthlyCapUSD {
		decision.Allowed = false
		decision.Reason = fmt.Sprintf("monthly AI budget of $%.2f would be exceeded ($%.2f spent this month)", g.budget.MonthlyCapUSD, monthlySpent)
		return decision, nil
	}
	return decision, nil
}

// GetIntentCache returns the live cache entry for an intent, or nil when the
// entry is missing or expired. Cache reads never fail the request: a store
// error degrades to a miss.
func (g *Governor) GetIntentCache(ctx context.Context, orgID, routeKey, intentHash string) *store.IntentCacheEntry {
	entry, err := g.store.GetIntentCache(ctx, &store.GetIntentCache{
		OrgID:      orgID,
		RouteKey:   routeKey,
		IntentHash: intentHash,
	})
	if err != nil {
		g.logger.Warn("intent cache read failed, treating as miss",
			slog.String(observability.LogFieldOrgID, orgID),
			slog.String(observability.LogFieldRouteKey, routeKey),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if entry == nil || entry.ExpiresAt.Before(g.now()) {
		return nil
	}
	return entry
}

// SetIntentCache upserts one cache entry with the caller-specified TTL.
// Last write wins on concurrent writers.
func (g *Governor) SetIntentCache(ctx context.Context, upsert *store.UpsertIntentCache, ttl time.Duration) (*store.IntentCacheEntry, error) {
	if upsert.OrgID == "" || upsert.RouteKey == "" || upsert.IntentHash == "" {
		return nil, apperrors.Validation("orgID, routeKey and intentHash are required")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	upsert.ExpiresAt = g.now().Add(ttl)
	entry, err := g.store.UpsertIntentCache(ctx, upsert)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to write intent cache", err)
	}
	return entry, nil
}

// LogAIUsageEvent appends one event to the usage ledger. Every attempt is
// logged: hits, misses, successes, failures. A failed append surfaces loudly
// because the ledger feeds budget enforcement.
func (g *Governor) LogAIUsageEvent(ctx context.Context, event *store.AIUsageEvent) (*store.AIUsageEvent, error) {
	if event.OrgID == "" {
		return nil, apperrors.Validation("orgID is required")
	}
	if event.Metadata == "" {
		event.Metadata = "{}"
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = g.now()
	}
	created, err := g.store.CreateAIUsageEvent(ctx, event)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to log AI usage event", err)
	}
	return created, nil
}

// Invoke runs the full governed path: estimate, cache lookup, budget check,
// model call, usage logging, cache write. Denials and model failures come
// back as coded errors so route handlers can degrade to a deterministic
// result instead of surfacing them.
func (g *Governor) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResult, error) {
	if req == nil || req.OrgID == "" {
		return nil, apperrors.Validation("orgID is required")
	}
	if req.RouteKey == "" {
		return nil, apperrors.Validation("routeKey is required")
	}
	if len(req.Messages) == 0 {
		return nil, apperrors.Validation("messages are required")
	}
	if g.invoker == nil {
		return nil, apperrors.ModelUnavailable("no model invoker configured", nil)
	}

	reqCtx := observability.NewRequestContext(g.logger, "governor", req.OrgID)
	intentHash, err := BuildIntentCacheKey(req.RouteKey, req.Params)
	if err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	inputTokens := int64(EstimateMessagesTokens(req.Messages))
	estimatedCost := EstimateModelCostUSD(req.Model, inputTokens, int64(maxTokens))

	if entry := g.GetIntentCache(ctx, req.OrgID, req.RouteKey, intentHash); entry != nil {
		if _, err := g.LogAIUsageEvent(ctx, &store.AIUsageEvent{
			OrgID:    req.OrgID,
			RouteKey: req.RouteKey,
			Provider: entry.Provider,
			Model:    entry.Model,
			CacheHit: true,
			Success:  true,
		}); err != nil {
			return nil, err
		}
		reqCtx.Debug("intent cache hit", slog.String(observability.LogFieldRouteKey, req.RouteKey))
		return &InvokeResult{
			Text:     entry.Response,
			Provider: entry.Provider,
			Model:    entry.Model,
			CacheHit: true,
		}, nil
	}

	decision, err := g.DecidePaidAIAccess(ctx, req.OrgID, estimatedCost)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		if _, err := g.LogAIUsageEvent(ctx, &store.AIUsageEvent{
			OrgID:     req.OrgID,
			RouteKey:  req.RouteKey,
			Model:     req.Model,
			Success:   false,
			ErrorCode: string(apperrors.CodeBudgetExceeded),
		}); err != nil {
			return nil, err
		}
		reqCtx.Warn("paid AI access denied",
			slog.String(observability.LogFieldRouteKey, req.RouteKey),
			slog.String("reason", decision.Reason),
		)
		return nil, apperrors.BudgetExceeded(decision.Reason)
	}

	// Soft per-org throttle with a bounded wait; a throttled request falls
	// back like any other model failure instead of queueing forever.
	if err := g.limiter.wait(ctx, req.OrgID); err != nil {
		if _, logErr := g.LogAIUsageEvent(ctx, &store.AIUsageEvent{
			OrgID:     req.OrgID,
			RouteKey:  req.RouteKey,
			Model:     req.Model,
			Success:   false,
			ErrorCode: string(apperrors.CodeModelUnavailable),
		}); logErr != nil {
			return nil, logErr
		}
		return nil, apperrors.ModelUnavailable("model call throttled", err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := g.now()
	result, err := g.invoker.CallModel(callCtx, req.Messages, maxTokens)
	if err != nil {
		code := apperrors.CodeModelUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			code = apperrors.CodeModelTimeout
		}
		if _, logErr := g.LogAIUsageEvent(ctx, &store.AIUsageEvent{
			OrgID:       req.OrgID,
			RouteKey:    req.RouteKey,
			Model:       req.Model,
			InputTokens: inputTokens,
			LatencyMs:   time.Since(start).Milliseconds(),
			Success:     false,
			ErrorCode:   string(code),
		}); logErr != nil {
			return nil, logErr
		}
		reqCtx.Error("model invocation failed", err, slog.String(observability.LogFieldRouteKey, req.RouteKey))
		if code == apperrors.CodeModelTimeout {
			return nil, apperrors.ModelTimeout(fmt.Sprintf("model call exceeded %s", timeout))
		}
		return nil, apperrors.ModelUnavailable("model call failed", err)
	}

	actualCost := EstimateModelCostUSD(result.Model, result.InputTokens, result.OutputTokens)
	if _, err := g.LogAIUsageEvent(ctx, &store.AIUsageEvent{
		OrgID:        req.OrgID,
		RouteKey:     req.RouteKey,
		Provider:     result.Provider,
		Model:        result.Model,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		CostUSD:      actualCost,
		LatencyMs:    result.LatencyMs,
		Success:      true,
	}); err != nil {
		return nil, err
	}

	if _, err := g.SetIntentCache(ctx, &store.UpsertIntentCache{
		OrgID:            req.OrgID,
		RouteKey:         req.RouteKey,
		IntentHash:       intentHash,
		Response:         result.Text,
		Provider:         result.Provider,
		Model:            result.Model,
		EstimatedCostUSD: actualCost,
	}, req.CacheTTL); err != nil {
		// The ledger entry already landed; a stale cache only costs one
		// recomputation.
		reqCtx.Warn("intent cache write failed", slog.String("error", err.Error()))
	}

	reqCtx.Info("model invocation completed",
		slog.String(observability.LogFieldRouteKey, req.RouteKey),
		slog.Int64("input_tokens", result.InputTokens),
		slog.Int64("output_tokens", result.OutputTokens),
		slog.Float64("cost_usd", actualCost),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	)
	return &InvokeResult{
		Text:         result.Text,
		Provider:     result.Provider,
		Model:        result.Model,
		CostUSD:      actualCost,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		LatencyMs:    result.LatencyMs,
	}, nil
}
