package store

import "time"

// DecisionLog links a generated draft variant to the objective it was
// optimized for and the resulting post, so outcomes arriving later can be
// attributed back to the decision.
type DecisionLog struct {
	ID        int64
	UID       string
	OrgID     string
	DraftID   string
	VariantID string
	PostID    string
	Platform  string
	Objective string
	CreatedAt time.Time
}

// FindDecisionLog specifies the conditions for finding decisions.
type FindDecisionLog struct {
	OrgID  *string
	PostID *string
	Limit  int
}
