// Package consolidate turns mined pattern candidates into durable semantic
// patterns and procedural strategies, recording every mutation in an
// append-only audit trail. Reads can proceed while a run is in flight; runs
// for the same organization never overlap.
package consolidate

import (
	"context"
	"time"

	"github.com/postpilot/postpilot/plugin/ai/pattern"
	"github.com/postpilot/postpilot/store"
)

// PatternStore is the slice of the record store the pipeline touches.
// Satisfied by *store.Store.
type PatternStore interface {
	ListSemanticPatterns(ctx context.Context, find *store.FindSemanticPattern) ([]*store.SemanticPattern, error)
	CreateSemanticPattern(ctx context.Context, create *store.SemanticPattern) (*store.SemanticPattern, error)
	UpdateSemanticPattern(ctx context.Context, update *store.UpdateSemanticPattern) (*store.SemanticPattern, error)
	ListProceduralStrategies(ctx context.Context, find *store.FindProceduralStrategy) ([]*store.ProceduralStrategy, error)
	CreateProceduralStrategy(ctx context.Context, create *store.ProceduralStrategy) (*store.ProceduralStrategy, error)
	CreateConsolidationAudit(ctx context.Context, create *store.ConsolidationAuditLog) (*store.ConsolidationAuditLog, error)
	ListConsolidationAudits(ctx context.Context, find *store.FindConsolidationAudit) ([]*store.ConsolidationAuditLog, error)
	CreateMetacognitiveLog(ctx context.Context, create *store.MetacognitiveLog) (*store.MetacognitiveLog, error)
	ListMetacognitiveLogs(ctx context.Context, find *store.FindMetacognitiveLog) ([]*store.MetacognitiveLog, error)
	ListActiveOrgIDs(ctx context.Context, cutoff time.Time) ([]string, error)
}

// CandidateDetector mines pattern candidates for one organization.
// Satisfied by *pattern.Detector.
type CandidateDetector interface {
	DetectAll(ctx context.Context, orgID string) ([]*pattern.Candidate, error)
}

// Config bounds the pipeline. Zero values fall back to defaults.
type Config struct {
	// PromotionThreshold is the minimum confidence before a pattern becomes
	// an actionable strategy.
	PromotionThreshold float64
	// MinSampleForStrategy is the minimum sample size before promotion.
	MinSampleForStrategy int64
	// OrgConcurrency caps parallel per-org runs in a batch.
	OrgConcurrency int
	// ActiveOrgWindowDays selects which orgs a batch run visits.
	ActiveOrgWindowDays int
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() *Config {
	return &Config{
		PromotionThreshold:   0.7,
		MinSampleForStrategy: 5,
		OrgConcurrency:       4,
		ActiveOrgWindowDays:  30,
	}
}

// Result summarizes one consolidation run for one organization.
type Result struct {
	OrgID      string
	Detected   int
	Created    int
	Merged     int
	Promoted   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// AuditEntry is the read-model row returned by QueryAuditTrail. It mirrors
// the stored entry field for field; timestamps are RFC 3339.
type AuditEntry struct {
	UID        string   `json:"uid"`
	OrgID      string   `json:"org_id"`
	ActionType string   `json:"action_type"`
	SourceIDs  []int64  `json:"source_ids"`
	TargetID   *int64   `json:"target_id,omitempty"`
	Details    string   `json:"details"`
	Confidence *float64 `json:"confidence,omitempty"`
	Actor      string   `json:"actor"`
	CreatedAt  string   `json:"created_at"`
}
