package consolidate

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/postpilot/postpilot/internal/errors"
	"github.com/postpilot/postpilot/internal/observability"
	"github.com/postpilot/postpilot/plugin/ai/pattern"
	"github.com/postpilot/postpilot/store"
)

// Pipeline consolidates mined candidates into semantic patterns and promotes
// high-confidence patterns into procedural strategies.
type Pipeline struct {
	store    PatternStore
	detector CandidateDetector
	config   *Config
	logger   *slog.Logger

	// group collapses concurrent runs for the same org into one.
	group singleflight.Group
	now   func() time.Time
}

// NewPipeline creates a pipeline over the given store and detector.
func NewPipeline(s PatternStore, detector CandidateDetector, config *Config, logger *slog.Logger) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	c := DefaultConfig()
	if config.PromotionThreshold > 0 {
		c.PromotionThreshold = config.PromotionThreshold
	}
	if config.MinSampleForStrategy > 0 {
		c.MinSampleForStrategy = config.MinSampleForStrategy
	}
	if config.OrgConcurrency > 0 {
		c.OrgConcurrency = config.OrgConcurrency
	}
	if config.ActiveOrgWindowDays > 0 {
		c.ActiveOrgWindowDays = config.ActiveOrgWindowDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: s, detector: detector, config: c, logger: logger, now: time.Now}
}

// Run consolidates one organization. Concurrent calls for the same org share
// a single execution; callers all receive that execution's result. After the
// run a prediction-accuracy self-assessment is appended to the metacognitive
// log.
func (p *Pipeline) Run(ctx context.Context, orgID string) (*Result, error) {
	if orgID == "" {
		return nil, apperrors.Validation("orgID is required")
	}
	v, err, _ := p.group.Do(orgID, func() (any, error) {
		result, err := p.Consolidate(ctx, orgID)
		if err != nil {
			return nil, err
		}
		if err := p.selfAssess(ctx, result); err != nil {
			return nil, err
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// RunAll consolidates every organization with episodic activity inside the
// active-org window. Per-org failures abort the batch; completed orgs keep
// their results.
func (p *Pipeline) RunAll(ctx context.Context) ([]*Result, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.ActiveOrgWindowDays)
	orgIDs, err := p.store.ListActiveOrgIDs(ctx, cutoff)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to list active orgs", err)
	}

	results := make([]*Result, len(orgIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.OrgConcurrency)
	for i, orgID := range orgIDs {
		i, orgID := i, orgID
		g.Go(func() error {
			result, err := p.Run(gctx, orgID)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Consolidate mines candidates for one org and persists them: unseen
// candidates become new patterns, known ones are merged with a sample-weighted
// confidence average, and patterns clearing the promotion bar become
// strategies. Every mutation lands in the audit trail before the run
// continues; an audit write failure aborts the run.
func (p *Pipeline) Consolidate(ctx context.Context, orgID string) (*Result, error) {
	if orgID == "" {
		return nil, apperrors.Validation("orgID is required")
	}
	reqCtx := observability.NewRequestContext(p.logger, "consolidate", orgID)

	result := &Result{OrgID: orgID, StartedAt: p.now()}
	candidates, err := p.detector.DetectAll(ctx, orgID)
	if err != nil {
		return nil, err
	}
	result.Detected = len(candidates)

	for _, c := range candidates {
		persisted, merged, err := p.persistCandidate(ctx, orgID, c)
		if err != nil {
			return nil, err
		}
		if merged {
			result.Merged++
		} else {
			result.Created++
		}
		promoted, err := p.maybePromote(ctx, persisted)
		if err != nil {
			return nil, err
		}
		if promoted {
			result.Promoted++
		}
	}

	result.FinishedAt = p.now()
	reqCtx.Info("consolidation run finished",
		slog.Int("detected", result.Detected),
		slog.Int("created", result.Created),
		slog.Int("merged", result.Merged),
		slog.Int("promoted", result.Promoted),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	)
	return result, nil
}

// persistCandidate creates or merges one candidate and writes its audit
// entry. Returns the stored pattern and whether it was a merge.
func (p *Pipeline) persistCandidate(ctx context.Context, orgID string, c *pattern.Candidate) (*store.SemanticPattern, bool, error) {
	existing, err := p.store.ListSemanticPatterns(ctx, &store.FindSemanticPattern{
		OrgID:       &orgID,
		PatternType: &c.PatternType,
		Platform:    &c.Platform,
		PatternKey:  &c.PatternKey,
		Limit:       1,
	})
	if err != nil {
		return nil, false, apperrors.StoreUnavailable("failed to look up semantic pattern", err)
	}

	if len(existing) == 0 {
		created, err := p.store.CreateSemanticPattern(ctx, &store.SemanticPattern{
			OrgID:        orgID,
			PatternType:  c.PatternType,
			Platform:     c.Platform,
			PatternKey:   c.PatternKey,
			PatternValue: c.PatternValue,
			Confidence:   c.Confidence,
			SampleSize:   c.SampleSize,
			CreatedAt:    p.now(),
			UpdatedAt:    p.now(),
		})
		if err != nil {
			return nil, false, apperrors.StoreUnavailable("failed to create semantic pattern", err)
		}
		if _, err := p.AppendAuditEntry(ctx, &store.ConsolidationAuditLog{
			OrgID:      orgID,
			ActionType: store.AuditActionEpisodicPromoted,
			SourceIDs:  c.SourceIDs,
			TargetID:   &created.ID,
			Confidence: &created.Confidence,
			Details:    mustDetails(map[string]any{"pattern_type": c.PatternType, "pattern_key": c.PatternKey}),
		}); err != nil {
			return nil, false, err
		}
		return created, false, nil
	}

	old := existing[0]
	// Sample-weighted confidence average; sample size only ever grows.
	totalN := old.SampleSize + c.SampleSize
	confidence := old.Confidence
	if totalN > 0 {
		confidence = clamp01((old.Confidence*float64(old.SampleSize) + c.Confidence*float64(c.SampleSize)) / float64(totalN))
	}
	updated, err := p.store.UpdateSemanticPattern(ctx, &store.UpdateSemanticPattern{
		ID:           old.ID,
		PatternValue: &c.PatternValue,
		Confidence:   &confidence,
		SampleSize:   &totalN,
		UpdatedAt:    p.now(),
	})
	if err != nil {
		return nil, false, apperrors.StoreUnavailable("failed to merge semantic pattern", err)
	}
	if _, err := p.AppendAuditEntry(ctx, &store.ConsolidationAuditLog{
		OrgID:      orgID,
		ActionType: store.AuditActionPatternMerged,
		SourceIDs:  c.SourceIDs,
		TargetID:   &updated.ID,
		Confidence: &updated.Confidence,
		Details: mustDetails(map[string]any{
			"pattern_type":    c.PatternType,
			"pattern_key":     c.PatternKey,
			"prev_confidence": old.Confidence,
			"prev_samples":    old.SampleSize,
		}),
	}); err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

// maybePromote promotes a pattern into a procedural strategy once it clears
// both the confidence threshold and the minimum sample size. Promotion is
// idempotent per (org, pattern).
func (p *Pipeline) maybePromote(ctx context.Context, sp *store.SemanticPattern) (bool, error) {
	if sp.Confidence < p.config.PromotionThreshold || sp.SampleSize < p.config.MinSampleForStrategy {
		return false, nil
	}
	existing, err := p.store.ListProceduralStrategies(ctx, &store.FindProceduralStrategy{
		OrgID:     &sp.OrgID,
		PatternID: &sp.ID,
		Limit:     1,
	})
	if err != nil {
		return false, apperrors.StoreUnavailable("failed to look up strategy", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	strategy, err := p.store.CreateProceduralStrategy(ctx, &store.ProceduralStrategy{
		OrgID:          sp.OrgID,
		PatternID:      sp.ID,
		StrategyKey:    sp.PatternType + ":" + sp.PatternKey,
		Recommendation: sp.PatternValue,
		Confidence:     sp.Confidence,
		SampleSize:     sp.SampleSize,
		PromotedAt:     p.now(),
	})
	if err != nil {
		return false, apperrors.StoreUnavailable("failed to create strategy", err)
	}
	if _, err := p.AppendAuditEntry(ctx, &store.ConsolidationAuditLog{
		OrgID:      sp.OrgID,
		ActionType: store.AuditActionStrategyPromoted,
		SourceIDs:  []int64{sp.ID},
		TargetID:   &strategy.ID,
		Confidence: &strategy.Confidence,
		Details:    mustDetails(map[string]any{"strategy_key": strategy.StrategyKey}),
	}); err != nil {
		return false, err
	}
	return true, nil
}

// AppendAuditEntry writes one entry to the append-only audit trail. A failed
// write means lost provenance, so it surfaces as CONSOLIDATION_FAILED and
// callers are expected to abort.
func (p *Pipeline) AppendAuditEntry(ctx context.Context, entry *store.ConsolidationAuditLog) (*store.ConsolidationAuditLog, error) {
	if entry.OrgID == "" {
		return nil, apperrors.Validation("audit entry orgID is required")
	}
	if entry.ActionType == "" {
		return nil, apperrors.Validation("audit entry actionType is required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = p.now()
	}
	created, err := p.store.CreateConsolidationAudit(ctx, entry)
	if err != nil {
		return nil, apperrors.ConsolidationFailed("failed to append audit entry", err)
	}
	return created, nil
}

// QueryAuditTrail returns the org's audit entries newest first, mapped field
// for field into the read model. No matches yields an empty slice.
func (p *Pipeline) QueryAuditTrail(ctx context.Context, find *store.FindConsolidationAudit) ([]*AuditEntry, error) {
	if find == nil || find.OrgID == nil || *find.OrgID == "" {
		return nil, apperrors.Validation("orgID is required")
	}
	rows, err := p.store.ListConsolidationAudits(ctx, find)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to query audit trail", err)
	}
	entries := make([]*AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &AuditEntry{
			UID:        row.UID,
			OrgID:      row.OrgID,
			ActionType: row.ActionType,
			SourceIDs:  row.SourceIDs,
			TargetID:   row.TargetID,
			Details:    row.Details,
			Confidence: row.Confidence,
			Actor:      row.Actor,
			CreatedAt:  row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return entries, nil
}

// RollingAccuracy averages the org's prediction-accuracy self-assessments
// over the trailing window. No assessments yields 0.
func (p *Pipeline) RollingAccuracy(ctx context.Context, orgID string, window time.Duration) (float64, error) {
	if orgID == "" {
		return 0, apperrors.Validation("orgID is required")
	}
	assessmentType := "prediction_accuracy"
	since := p.now().Add(-window)
	logs, err := p.store.ListMetacognitiveLogs(ctx, &store.FindMetacognitiveLog{
		OrgID:          &orgID,
		AssessmentType: &assessmentType,
		Since:          &since,
	})
	if err != nil {
		return 0, apperrors.StoreUnavailable("failed to list assessments", err)
	}
	if len(logs) == 0 {
		return 0, nil
	}
	var sum float64
	for _, l := range logs {
		sum += l.Score
	}
	return sum / float64(len(logs)), nil
}

// selfAssess records how confident this run's output is as a
// prediction-accuracy score, both in the metacognitive log and the audit
// trail.
func (p *Pipeline) selfAssess(ctx context.Context, result *Result) error {
	score := 0.0
	total := result.Created + result.Merged
	if result.Detected > 0 {
		score = clamp01(float64(total) / float64(result.Detected))
	}
	details := mustDetails(map[string]any{
		"detected": result.Detected,
		"created":  result.Created,
		"merged":   result.Merged,
		"promoted": result.Promoted,
	})
	if _, err := p.store.CreateMetacognitiveLog(ctx, &store.MetacognitiveLog{
		OrgID:          result.OrgID,
		AssessmentType: "prediction_accuracy",
		Score:          score,
		PeriodStart:    result.StartedAt,
		PeriodEnd:      result.FinishedAt,
		Details:        details,
		CreatedAt:      p.now(),
	}); err != nil {
		return apperrors.StoreUnavailable("failed to record self-assessment", err)
	}
	if _, err := p.AppendAuditEntry(ctx, &store.ConsolidationAuditLog{
		OrgID:      result.OrgID,
		ActionType: store.AuditActionSelfAssessment,
		Confidence: &score,
		Details:    details,
	}); err != nil {
		return err
	}
	return nil
}

func mustDetails(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
