package store

import "time"

// SemanticPattern is a named, typed regularity mined from episodic memories.
// An empty OrgID marks a cross-tenant global pattern, read-only to tenants.
type SemanticPattern struct {
	ID           int64
	OrgID        string
	PatternType  string // frequency/temporal/co_occurrence
	Platform     string
	PatternKey   string
	PatternValue string // JSON
	Confidence   float64 // 0-1
	SampleSize   int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FindSemanticPattern specifies the conditions for finding semantic patterns.
type FindSemanticPattern struct {
	ID            *int64
	OrgID         *string
	PatternType   *string
	Platform      *string
	PatternKey    *string
	MinConfidence *float64
	Limit         int
}

// UpdateSemanticPattern specifies a partial update of one pattern row.
type UpdateSemanticPattern struct {
	ID           int64
	PatternValue *string
	Confidence   *float64
	SampleSize   *int64
	UpdatedAt    time.Time
}

// ProceduralStrategy is a semantic pattern promoted to actionable status.
type ProceduralStrategy struct {
	ID             int64
	OrgID          string
	PatternID      int64
	StrategyKey    string
	Recommendation string // JSON
	Confidence     float64
	SampleSize     int64
	PromotedAt     time.Time
}

// FindProceduralStrategy specifies the conditions for finding strategies.
type FindProceduralStrategy struct {
	OrgID     *string
	PatternID *int64
	Limit     int
}
