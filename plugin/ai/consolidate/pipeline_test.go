package consolidate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/postpilot/postpilot/internal/errors"
	"github.com/postpilot/postpilot/plugin/ai/pattern"
	"github.com/postpilot/postpilot/store"
)

func candidate(key string, confidence float64, sampleSize int64, sourceIDs ...int64) *pattern.Candidate {
	return &pattern.Candidate{
		PatternType:  pattern.TypeFrequency,
		Platform:     "instagram",
		PatternKey:   key,
		PatternValue: `{"count":5}`,
		Confidence:   confidence,
		SampleSize:   sampleSize,
		SourceIDs:    sourceIDs,
	}
}

func TestConsolidate(t *testing.T) {
	ctx := context.Background()

	t.Run("NewCandidateCreatesPatternWithAudit", func(t *testing.T) {
		ms := &MockPatternStore{}
		p := NewPipeline(ms, &MockDetector{Candidates: []*pattern.Candidate{
			candidate("post_success", 0.4, 3, 11, 12, 13),
		}}, nil, nil)

		result, err := p.Consolidate(ctx, "org-1")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Detected)
		assert.Equal(t, 1, result.Created)
		assert.Zero(t, result.Merged)
		assert.Zero(t, result.Promoted)

		require.Len(t, ms.Patterns, 1)
		assert.Equal(t, "org-1", ms.Patterns[0].OrgID)
		assert.Equal(t, "post_success", ms.Patterns[0].PatternKey)

		require.Len(t, ms.Audits, 1)
		audit := ms.Audits[0]
		assert.Equal(t, store.AuditActionEpisodicPromoted, audit.ActionType)
		assert.Equal(t, []int64{11, 12, 13}, audit.SourceIDs)
		require.NotNil(t, audit.TargetID)
		assert.Equal(t, ms.Patterns[0].ID, *audit.TargetID)
		require.NotNil(t, audit.Confidence)
		assert.Equal(t, 0.4, *audit.Confidence)
		assert.Equal(t, "system", audit.Actor)
	})

	t.Run("KnownCandidateMergesWithWeightedConfidence", func(t *testing.T) {
		ms := &MockPatternStore{}
		ms.Patterns = append(ms.Patterns, &store.SemanticPattern{
			ID:          1,
			OrgID:       "org-1",
			PatternType: pattern.TypeFrequency,
			Platform:    "instagram",
			PatternKey:  "post_success",
			Confidence:  0.8,
			SampleSize:  8,
		})
		p := NewPipeline(ms, &MockDetector{Candidates: []*pattern.Candidate{
			candidate("post_success", 0.4, 2, 21, 22),
		}}, nil, nil)

		result, err := p.Consolidate(ctx, "org-1")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Merged)
		assert.Zero(t, result.Created)

		// (0.8*8 + 0.4*2) / 10 = 0.72, sample size only grows.
		assert.InDelta(t, 0.72, ms.Patterns[0].Confidence, 1e-9)
		assert.Equal(t, int64(10), ms.Patterns[0].SampleSize)

		require.Len(t, ms.Audits, 1)
		assert.Equal(t, store.AuditActionPatternMerged, ms.Audits[0].ActionType)
		assert.Contains(t, ms.Audits[0].Details, `"prev_confidence":0.8`)
	})

	t.Run("ClearingThresholdPromotesStrategyOnce", func(t *testing.T) {
		ms := &MockPatternStore{}
		det := &MockDetector{Candidates: []*pattern.Candidate{
			candidate("post_success", 0.9, 6, 31),
		}}
		p := NewPipeline(ms, det, &Config{PromotionThreshold: 0.7, MinSampleForStrategy: 5}, nil)

		result, err := p.Consolidate(ctx, "org-1")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Promoted)
		require.Len(t, ms.Strategies, 1)
		assert.Equal(t, "frequency:post_success", ms.Strategies[0].StrategyKey)
		assert.Equal(t, ms.Patterns[0].ID, ms.Strategies[0].PatternID)

		// Second run merges but does not promote again.
		result, err = p.Consolidate(ctx, "org-1")
		require.NoError(t, err)
		assert.Zero(t, result.Promoted)
		assert.Len(t, ms.Strategies, 1)

		var promotions int
		for _, a := range ms.Audits {
			if a.ActionType == store.AuditActionStrategyPromoted {
				promotions++
			}
		}
		assert.Equal(t, 1, promotions)
	})

	t.Run("BelowSampleFloorNotPromoted", func(t *testing.T) {
		ms := &MockPatternStore{}
		p := NewPipeline(ms, &MockDetector{Candidates: []*pattern.Candidate{
			candidate("post_success", 0.95, 3, 41),
		}}, &Config{PromotionThreshold: 0.7, MinSampleForStrategy: 5}, nil)

		result, err := p.Consolidate(ctx, "org-1")
		require.NoError(t, err)
		assert.Zero(t, result.Promoted)
		assert.Empty(t, ms.Strategies)
	})

	t.Run("AuditWriteFailureAbortsRun", func(t *testing.T) {
		ms := &MockPatternStore{CreateAuditErr: errors.New("disk full")}
		p := NewPipeline(ms, &MockDetector{Candidates: []*pattern.Candidate{
			candidate("post_success", 0.4, 3, 51),
		}}, nil, nil)

		_, err := p.Consolidate(ctx, "org-1")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeConsolidationFailed))
	})

	t.Run("MissingOrgIDRejected", func(t *testing.T) {
		p := NewPipeline(&MockPatternStore{}, &MockDetector{}, nil, nil)
		_, err := p.Consolidate(ctx, "")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("RecordsSelfAssessment", func(t *testing.T) {
		ms := &MockPatternStore{}
		p := NewPipeline(ms, &MockDetector{Candidates: []*pattern.Candidate{
			candidate("post_success", 0.4, 3, 61),
		}}, nil, nil)

		_, err := p.Run(ctx, "org-1")
		require.NoError(t, err)

		require.Len(t, ms.Assessments, 1)
		assert.Equal(t, "prediction_accuracy", ms.Assessments[0].AssessmentType)
		assert.Equal(t, 1.0, ms.Assessments[0].Score)

		var selfAssessments int
		for _, a := range ms.Audits {
			if a.ActionType == store.AuditActionSelfAssessment {
				selfAssessments++
			}
		}
		assert.Equal(t, 1, selfAssessments)
	})

	t.Run("ConcurrentRunsShareOneExecution", func(t *testing.T) {
		det := &MockDetector{Block: make(chan struct{})}
		p := NewPipeline(&MockPatternStore{}, det, nil, nil)

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := p.Run(ctx, "org-1")
				assert.NoError(t, err)
			}()
		}
		// Let the goroutines pile onto the in-flight run, then release it.
		time.Sleep(50 * time.Millisecond)
		close(det.Block)
		wg.Wait()

		assert.Equal(t, 1, det.Calls())
	})
}

func TestRunAll(t *testing.T) {
	ctx := context.Background()

	t.Run("VisitsEveryActiveOrg", func(t *testing.T) {
		ms := &MockPatternStore{OrgIDs: []string{"org-1", "org-2", "org-3"}}
		p := NewPipeline(ms, &MockDetector{}, nil, nil)

		results, err := p.RunAll(ctx)
		require.NoError(t, err)
		require.Len(t, results, 3)
		seen := map[string]bool{}
		for _, r := range results {
			seen[r.OrgID] = true
		}
		assert.Len(t, seen, 3)
	})

	t.Run("OrgListingFailureSurfaces", func(t *testing.T) {
		ms := &MockPatternStore{ListActiveOrgsErr: errors.New("connection refused")}
		p := NewPipeline(ms, &MockDetector{}, nil, nil)

		_, err := p.RunAll(ctx)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeStoreUnavailable))
	})
}

func TestQueryAuditTrail(t *testing.T) {
	ctx := context.Background()
	orgID := "org-1"

	t.Run("MapsStoredEntriesFieldForField", func(t *testing.T) {
		targetID := int64(7)
		confidence := 0.8
		ms := &MockPatternStore{}
		ms.Audits = append(ms.Audits, &store.ConsolidationAuditLog{
			ID:         1,
			UID:        "abc123",
			OrgID:      orgID,
			ActionType: store.AuditActionPatternMerged,
			SourceIDs:  []int64{1, 2},
			TargetID:   &targetID,
			Details:    `{"pattern_key":"post_success"}`,
			Confidence: &confidence,
			Actor:      "system",
			CreatedAt:  time.Date(2026, 8, 26, 3, 0, 0, 0, time.UTC),
		})
		p := NewPipeline(ms, &MockDetector{}, nil, nil)

		entries, err := p.QueryAuditTrail(ctx, &store.FindConsolidationAudit{OrgID: &orgID})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		e := entries[0]
		assert.Equal(t, "abc123", e.UID)
		assert.Equal(t, store.AuditActionPatternMerged, e.ActionType)
		assert.Equal(t, []int64{1, 2}, e.SourceIDs)
		require.NotNil(t, e.TargetID)
		assert.Equal(t, int64(7), *e.TargetID)
		require.NotNil(t, e.Confidence)
		assert.Equal(t, 0.8, *e.Confidence)
		assert.Equal(t, "system", e.Actor)
		assert.Equal(t, "2026-08-26T03:00:00Z", e.CreatedAt)
	})

	t.Run("NoMatchesYieldsEmptySlice", func(t *testing.T) {
		p := NewPipeline(&MockPatternStore{}, &MockDetector{}, nil, nil)
		entries, err := p.QueryAuditTrail(ctx, &store.FindConsolidationAudit{OrgID: &orgID})
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	t.Run("MissingOrgIDRejected", func(t *testing.T) {
		p := NewPipeline(&MockPatternStore{}, &MockDetector{}, nil, nil)
		_, err := p.QueryAuditTrail(ctx, &store.FindConsolidationAudit{})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})
}

func TestRollingAccuracy(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("AveragesScoresInWindow", func(t *testing.T) {
		ms := &MockPatternStore{}
		for _, s := range []float64{0.6, 0.8, 1.0} {
			ms.Assessments = append(ms.Assessments, &store.MetacognitiveLog{
				OrgID:          "org-1",
				AssessmentType: "prediction_accuracy",
				Score:          s,
				CreatedAt:      now.Add(-time.Hour),
			})
		}
		// Outside the window; must not count.
		ms.Assessments = append(ms.Assessments, &store.MetacognitiveLog{
			OrgID:          "org-1",
			AssessmentType: "prediction_accuracy",
			Score:          0,
			CreatedAt:      now.Add(-40 * 24 * time.Hour),
		})
		p := NewPipeline(ms, &MockDetector{}, nil, nil)

		acc, err := p.RollingAccuracy(ctx, "org-1", 7*24*time.Hour)
		require.NoError(t, err)
		assert.InDelta(t, 0.8, acc, 1e-9)
	})

	t.Run("NoAssessmentsYieldsZero", func(t *testing.T) {
		p := NewPipeline(&MockPatternStore{}, &MockDetector{}, nil, nil)
		acc, err := p.RollingAccuracy(ctx, "org-1", time.Hour)
		require.NoError(t, err)
		assert.Zero(t, acc)
	})
}
