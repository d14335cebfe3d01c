package store

import "time"

// WorkingMemory is short-lived, session-scoped scratch state. It expires on
// its own clock and is never decay-scored.
type WorkingMemory struct {
	ID        int64
	OrgID     string
	SessionID string
	Content   string // JSON
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UpsertWorkingMemory specifies a working memory upsert keyed by
// (org, session).
type UpsertWorkingMemory struct {
	OrgID     string
	SessionID string
	Content   string
	ExpiresAt time.Time
}

// FindWorkingMemory specifies the conditions for finding working memories.
// Expired rows are always filtered out on read.
type FindWorkingMemory struct {
	OrgID     *string
	SessionID *string
	Limit     int
}
