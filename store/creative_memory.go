package store

import "time"

// CreativeMemory is a running statistical aggregate of content-style
// outcomes, keyed by (platform, objective, hookType, framework, ctaType).
// It is a streaming summary, never raw events.
type CreativeMemory struct {
	ID              int64
	OrgID           string
	Platform        string
	Objective       string
	HookType        string
	Framework       string
	CTAType         string
	SampleSize      int64
	SuccessCount    int64
	TotalEngagement float64
	AvgEngagement   float64
	UpdatedAt       time.Time
}

// CreativeMemoryKey identifies one aggregate row within an organization.
type CreativeMemoryKey struct {
	OrgID     string
	Platform  string
	Objective string
	HookType  string
	Framework string
	CTAType   string
}

// UpsertCreativeMemory replaces the aggregate values for one key. The
// streaming-mean arithmetic happens in the outcome learner; the store only
// persists the result.
type UpsertCreativeMemory struct {
	Key             CreativeMemoryKey
	SampleSize      int64
	SuccessCount    int64
	TotalEngagement float64
	AvgEngagement   float64
}

// FindCreativeMemory specifies the conditions for finding aggregates.
type FindCreativeMemory struct {
	OrgID     *string
	Platform  *string
	Objective *string
	Limit     int
}
