package store

import "time"

// Consolidation audit action types.
const (
	AuditActionEpisodicPromoted = "episodic_promoted"
	AuditActionPatternMerged    = "pattern_merged"
	AuditActionStrategyPromoted = "strategy_promoted"
	AuditActionSelfAssessment   = "self_assessment"
)

// ConsolidationAuditLog is the append-only ledger of every consolidation
// action. It is the only place where the history of memory mutation can be
// reconstructed.
type ConsolidationAuditLog struct {
	ID         int64
	UID        string
	OrgID      string
	ActionType string
	SourceIDs  []int64
	TargetID   *int64
	Details    string // JSON
	Confidence *float64
	Actor      string
	CreatedAt  time.Time
}

// FindConsolidationAudit specifies the conditions for querying the audit
// trail. Read-only; the trail is never mutated.
type FindConsolidationAudit struct {
	OrgID      *string
	ActionType *string
	Since      *time.Time
	Limit      int
}
