package store

import "time"

// IntentCacheEntry holds a previously computed AI response keyed by the
// semantic meaning of a request. One entry per unique intent; overwritten on
// refresh, never merged.
type IntentCacheEntry struct {
	ID               int64
	OrgID            string
	RouteKey         string
	IntentHash       string
	Response         string
	Provider         string
	Model            string
	EstimatedCostUSD float64
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// UpsertIntentCache specifies a cache upsert keyed by
// (org, routeKey, intentHash). Last write wins.
type UpsertIntentCache struct {
	OrgID            string
	RouteKey         string
	IntentHash       string
	Response         string
	Provider         string
	Model            string
	EstimatedCostUSD float64
	ExpiresAt        time.Time
}

// GetIntentCache identifies one cache entry.
type GetIntentCache struct {
	OrgID      string
	RouteKey   string
	IntentHash string
}
