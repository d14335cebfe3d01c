package store

import "time"

// EpisodicMemory is one record per discrete observed event. Immutable once
// written; low-weight records are excluded from queries rather than deleted
// so the audit history stays intact.
type EpisodicMemory struct {
	ID         int64
	OrgID      string
	EventType  string // post_success/post_failure/viral_moment/budget_exhausted/trend_detected/...
	Platform   string // instagram/tiktok/linkedin/facebook, empty if not platform-bound
	Importance float64 // 0-1
	Strength   float64 // 0-1, initial memory strength before decay
	Metadata   string  // JSON payload captured with the event
	CreatedAt  time.Time
}

// FindEpisodicMemory specifies the conditions for finding episodic memories.
type FindEpisodicMemory struct {
	ID           *int64
	OrgID        *string
	EventType    *string
	Platform     *string
	CreatedAfter *time.Time
	Limit        int
	Offset       int
}
