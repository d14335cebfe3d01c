package governor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// orgRateLimiter throttles model calls per organization. It is a soft
// control in front of the budget check; a throttled request waits briefly
// and then falls back, never blocking indefinitely.
type orgRateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter
	limit  rate.Limit
	burst  int
}

// Default model-call throttle: 10 calls per second per org, burst of 20.
const (
	defaultCallsPerSecond = 10
	defaultCallBurst      = 20
	// maxThrottleWait bounds how long a throttled request may queue before
	// the caller is told to fall back.
	maxThrottleWait = 2 * time.Second
)

func newOrgRateLimiter(callsPerSecond float64, burst int) *orgRateLimiter {
	if callsPerSecond <= 0 {
		callsPerSecond = defaultCallsPerSecond
	}
	if burst <= 0 {
		burst = defaultCallBurst
	}
	return &orgRateLimiter{
		limits: make(map[string]*rate.Limiter),
		limit:  rate.Limit(callsPerSecond),
		burst:  burst,
	}
}

func (rl *orgRateLimiter) getLimiter(orgID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[orgID]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limits[orgID] = limiter
	return limiter
}

// wait blocks until the org may place a model call, bounded by
// maxThrottleWait and the caller's context.
func (rl *orgRateLimiter) wait(ctx context.Context, orgID string) error {
	waitCtx, cancel := context.WithTimeout(ctx, maxThrottleWait)
	defer cancel()
	return rl.getLimiter(orgID).Wait(waitCtx)
}
