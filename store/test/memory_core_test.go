package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/postpilot/postpilot/store"
)

func TestEpisodicMemoryStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	base := time.Now().Add(-48 * time.Hour).Truncate(time.Second)

	older, err := ts.CreateEpisodicMemory(ctx, &store.EpisodicMemory{
		OrgID:      "org-1",
		EventType:  "post_success",
		Platform:   "instagram",
		Importance: 0.8,
		CreatedAt:  base,
	})
	require.NoError(t, err)
	require.NotZero(t, older.ID)
	// Zero strength and empty metadata get sensible defaults on write.
	require.Equal(t, 1.0, older.Strength)
	require.Equal(t, "{}", older.Metadata)

	newer, err := ts.CreateEpisodicMemory(ctx, &store.EpisodicMemory{
		OrgID:     "org-1",
		EventType: "post_failure",
		Platform:  "tiktok",
		Strength:  0.6,
		Metadata:  `{"post_id":"p1"}`,
		CreatedAt: base.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = ts.CreateEpisodicMemory(ctx, &store.EpisodicMemory{
		OrgID:     "org-2",
		EventType: "post_success",
		CreatedAt: base,
	})
	require.NoError(t, err)

	orgID := "org-1"
	list, err := ts.ListEpisodicMemories(ctx, &store.FindEpisodicMemory{OrgID: &orgID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Newest first.
	require.Equal(t, newer.ID, list[0].ID)
	require.Equal(t, older.ID, list[1].ID)
	require.Equal(t, `{"post_id":"p1"}`, list[0].Metadata)
	require.True(t, list[0].CreatedAt.Equal(base.Add(time.Hour)))

	eventType := "post_success"
	list, err = ts.ListEpisodicMemories(ctx, &store.FindEpisodicMemory{OrgID: &orgID, EventType: &eventType})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, older.ID, list[0].ID)

	after := base.Add(30 * time.Minute)
	list, err = ts.ListEpisodicMemories(ctx, &store.FindEpisodicMemory{OrgID: &orgID, CreatedAfter: &after})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, newer.ID, list[0].ID)
}

func TestListActiveOrgIDs(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	now := time.Now().Truncate(time.Second)

	_, err := ts.CreateEpisodicMemory(ctx, &store.EpisodicMemory{
		OrgID:     "org-active",
		EventType: "post_success",
		CreatedAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)
	_, err = ts.CreateEpisodicMemory(ctx, &store.EpisodicMemory{
		OrgID:     "org-active",
		EventType: "post_failure",
		CreatedAt: now.Add(-2 * time.Hour),
	})
	require.NoError(t, err)
	_, err = ts.CreateEpisodicMemory(ctx, &store.EpisodicMemory{
		OrgID:     "org-stale",
		EventType: "post_success",
		CreatedAt: now.Add(-40 * 24 * time.Hour),
	})
	require.NoError(t, err)

	orgIDs, err := ts.ListActiveOrgIDs(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, []string{"org-active"}, orgIDs)

	orgIDs, err = ts.ListActiveOrgIDs(ctx, now.Add(-60*24*time.Hour))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"org-active", "org-stale"}, orgIDs)
}

func TestSemanticPatternStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	created, err := ts.CreateSemanticPattern(ctx, &store.SemanticPattern{
		OrgID:       "org-1",
		PatternType: "frequency",
		Platform:    "instagram",
		PatternKey:  "post_success",
		Confidence:  0.4,
		SampleSize:  5,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "{}", created.PatternValue)

	_, err = ts.CreateSemanticPattern(ctx, &store.SemanticPattern{
		OrgID:        "org-1",
		PatternType:  "temporal",
		Platform:     "instagram",
		PatternKey:   "thursday_10",
		PatternValue: `{"share":0.6}`,
		Confidence:   0.8,
		SampleSize:   12,
	})
	require.NoError(t, err)

	orgID := "org-1"
	minConfidence := 0.7
	list, err := ts.ListSemanticPatterns(ctx, &store.FindSemanticPattern{OrgID: &orgID, MinConfidence: &minConfidence})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "thursday_10", list[0].PatternKey)

	// Partial update touches only the provided fields.
	newConfidence := 0.55
	newSample := int64(9)
	updated, err := ts.UpdateSemanticPattern(ctx, &store.UpdateSemanticPattern{
		ID:         created.ID,
		Confidence: &newConfidence,
		SampleSize: &newSample,
	})
	require.NoError(t, err)
	require.Equal(t, 0.55, updated.Confidence)
	require.Equal(t, int64(9), updated.SampleSize)
	require.Equal(t, "{}", updated.PatternValue)
}

func TestProceduralStrategyStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	pattern, err := ts.CreateSemanticPattern(ctx, &store.SemanticPattern{
		OrgID:       "org-1",
		PatternType: "frequency",
		PatternKey:  "post_success",
		Confidence:  0.75,
		SampleSize:  8,
	})
	require.NoError(t, err)

	strategy, err := ts.CreateProceduralStrategy(ctx, &store.ProceduralStrategy{
		OrgID:          "org-1",
		PatternID:      pattern.ID,
		StrategyKey:    "frequency:post_success",
		Recommendation: `{"count":8}`,
		Confidence:     0.75,
		SampleSize:     8,
	})
	require.NoError(t, err)
	require.NotZero(t, strategy.ID)
	require.False(t, strategy.PromotedAt.IsZero())

	list, err := ts.ListProceduralStrategies(ctx, &store.FindProceduralStrategy{PatternID: &pattern.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "frequency:post_success", list[0].StrategyKey)
	require.Equal(t, `{"count":8}`, list[0].Recommendation)
}

func TestWorkingMemoryStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	future := time.Now().Add(30 * time.Minute)

	first, err := ts.UpsertWorkingMemory(ctx, &store.UpsertWorkingMemory{
		OrgID:     "org-1",
		SessionID: "sess-1",
		Content:   `{"step":1}`,
		ExpiresAt: future,
	})
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	// Same (org, session) overwrites in place.
	second, err := ts.UpsertWorkingMemory(ctx, &store.UpsertWorkingMemory{
		OrgID:     "org-1",
		SessionID: "sess-1",
		Content:   `{"step":2}`,
		ExpiresAt: future,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	_, err = ts.UpsertWorkingMemory(ctx, &store.UpsertWorkingMemory{
		OrgID:     "org-1",
		SessionID: "sess-expired",
		Content:   `{"stale":true}`,
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	orgID := "org-1"
	list, err := ts.ListWorkingMemories(ctx, &store.FindWorkingMemory{OrgID: &orgID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, `{"step":2}`, list[0].Content)

	deleted, err := ts.DeleteExpiredWorkingMemories(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}

func TestMetacognitiveLogStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	now := time.Now().Truncate(time.Second)

	created, err := ts.CreateMetacognitiveLog(ctx, &store.MetacognitiveLog{
		OrgID:          "org-1",
		AssessmentType: "prediction_accuracy",
		Score:          0.8,
		PeriodStart:    now.Add(-24 * time.Hour),
		PeriodEnd:      now,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "{}", created.Details)

	assessmentType := "prediction_accuracy"
	since := now.Add(-time.Hour)
	list, err := ts.ListMetacognitiveLogs(ctx, &store.FindMetacognitiveLog{
		AssessmentType: &assessmentType,
		Since:          &since,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 0.8, list[0].Score)
	require.True(t, list[0].PeriodEnd.Equal(now))
}

func TestCreativeMemoryStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	key := store.CreativeMemoryKey{
		OrgID:     "org-1",
		Platform:  "instagram",
		Objective: "engagement",
		HookType:  "question",
		Framework: "aida",
		CTAType:   "comment",
	}

	// Missing aggregate reads as (nil, nil), not an error.
	got, err := ts.GetCreativeMemory(ctx, &key)
	require.NoError(t, err)
	require.Nil(t, got)

	first, err := ts.UpsertCreativeMemory(ctx, &store.UpsertCreativeMemory{
		Key:             key,
		SampleSize:      1,
		SuccessCount:    1,
		TotalEngagement: 42,
		AvgEngagement:   42,
	})
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := ts.UpsertCreativeMemory(ctx, &store.UpsertCreativeMemory{
		Key:             key,
		SampleSize:      2,
		SuccessCount:    1,
		TotalEngagement: 52,
		AvgEngagement:   26,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	got, err = ts.GetCreativeMemory(ctx, &key)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, int64(2), got.SampleSize)
	require.Equal(t, int64(1), got.SuccessCount)
	require.Equal(t, 52.0, got.TotalEngagement)
	require.Equal(t, 26.0, got.AvgEngagement)

	other := key
	other.HookType = "list"
	_, err = ts.UpsertCreativeMemory(ctx, &store.UpsertCreativeMemory{
		Key:             other,
		SampleSize:      1,
		SuccessCount:    0,
		TotalEngagement: 80,
		AvgEngagement:   80,
	})
	require.NoError(t, err)

	orgID := "org-1"
	list, err := ts.ListCreativeMemories(ctx, &store.FindCreativeMemory{OrgID: &orgID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Ranked by average engagement.
	require.Equal(t, "list", list[0].HookType)
	require.Equal(t, "question", list[1].HookType)
}

func TestDecisionLogStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	created, err := ts.CreateDecisionLog(ctx, &store.DecisionLog{
		OrgID:     "org-1",
		DraftID:   "draft-1",
		VariantID: "variant-a",
		PostID:    "post-1",
		Platform:  "linkedin",
		Objective: "awareness",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.NotEmpty(t, created.UID)

	postID := "post-1"
	list, err := ts.ListDecisionLogs(ctx, &store.FindDecisionLog{PostID: &postID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "variant-a", list[0].VariantID)
	require.Equal(t, "awareness", list[0].Objective)
}

func TestConsolidationAuditStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	targetID := int64(7)
	confidence := 0.72

	first, err := ts.CreateConsolidationAudit(ctx, &store.ConsolidationAuditLog{
		OrgID:      "org-1",
		ActionType: store.AuditActionEpisodicPromoted,
		SourceIDs:  []int64{1, 2, 3},
		TargetID:   &targetID,
		Confidence: &confidence,
	})
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	require.NotEmpty(t, first.UID)
	require.Equal(t, "system", first.Actor)
	require.Equal(t, "{}", first.Details)

	second, err := ts.CreateConsolidationAudit(ctx, &store.ConsolidationAuditLog{
		OrgID:      "org-1",
		ActionType: store.AuditActionSelfAssessment,
		SourceIDs:  []int64{},
		Details:    `{"score":1}`,
	})
	require.NoError(t, err)

	orgID := "org-1"
	list, err := ts.ListConsolidationAudits(ctx, &store.FindConsolidationAudit{OrgID: &orgID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Newest first, id breaks the tie within one second.
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)

	require.Equal(t, []int64{1, 2, 3}, list[1].SourceIDs)
	require.NotNil(t, list[1].TargetID)
	require.Equal(t, int64(7), *list[1].TargetID)
	require.NotNil(t, list[1].Confidence)
	require.Equal(t, 0.72, *list[1].Confidence)

	require.Empty(t, list[0].SourceIDs)
	require.Nil(t, list[0].TargetID)
	require.Nil(t, list[0].Confidence)
	require.Equal(t, `{"score":1}`, list[0].Details)

	actionType := store.AuditActionSelfAssessment
	list, err = ts.ListConsolidationAudits(ctx, &store.FindConsolidationAudit{OrgID: &orgID, ActionType: &actionType})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, second.ID, list[0].ID)
}

func TestIntentCacheStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	get := store.GetIntentCache{
		OrgID:      "org-1",
		RouteKey:   "caption.v1",
		IntentHash: "abc123",
	}

	entry, err := ts.GetIntentCache(ctx, &get)
	require.NoError(t, err)
	require.Nil(t, entry)

	first, err := ts.UpsertIntentCache(ctx, &store.UpsertIntentCache{
		OrgID:            "org-1",
		RouteKey:         "caption.v1",
		IntentHash:       "abc123",
		Response:         `{"caption":"one"}`,
		Provider:         "openai",
		Model:            "gpt-4o-mini",
		EstimatedCostUSD: 0.002,
		ExpiresAt:        time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	// Same (org, route, hash): last write wins, row is reused.
	second, err := ts.UpsertIntentCache(ctx, &store.UpsertIntentCache{
		OrgID:            "org-1",
		RouteKey:         "caption.v1",
		IntentHash:       "abc123",
		Response:         `{"caption":"two"}`,
		Provider:         "openai",
		Model:            "gpt-4o-mini",
		EstimatedCostUSD: 0.003,
		ExpiresAt:        time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	entry, err = ts.GetIntentCache(ctx, &get)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, `{"caption":"two"}`, entry.Response)
	require.Equal(t, 0.003, entry.EstimatedCostUSD)

	_, err = ts.UpsertIntentCache(ctx, &store.UpsertIntentCache{
		OrgID:      "org-1",
		RouteKey:   "caption.v1",
		IntentHash: "stale",
		Response:   `{}`,
		ExpiresAt:  time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	deleted, err := ts.DeleteExpiredIntentCache(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	entry, err = ts.GetIntentCache(ctx, &get)
	require.NoError(t, err)
	require.NotNil(t, entry)
}

func TestAIUsageEventStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	now := time.Now().Truncate(time.Second)

	created, err := ts.CreateAIUsageEvent(ctx, &store.AIUsageEvent{
		OrgID:        "org-1",
		RouteKey:     "caption.v1",
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		InputTokens:  120,
		OutputTokens: 80,
		CostUSD:      0.004,
		LatencyMs:    350,
		Success:      true,
		CreatedAt:    now,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "{}", created.Metadata)

	_, err = ts.CreateAIUsageEvent(ctx, &store.AIUsageEvent{
		OrgID:     "org-1",
		RouteKey:  "caption.v1",
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		CostUSD:   0.010,
		Success:   true,
		CreatedAt: now.Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	_, err = ts.CreateAIUsageEvent(ctx, &store.AIUsageEvent{
		OrgID:     "org-2",
		RouteKey:  "caption.v1",
		CostUSD:   0.100,
		Success:   true,
		CreatedAt: now,
	})
	require.NoError(t, err)

	orgID := "org-1"
	list, err := ts.ListAIUsageEvents(ctx, &store.FindAIUsageEvent{OrgID: &orgID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, created.ID, list[0].ID)

	// Day-window sum excludes the older row and the other org.
	total, err := ts.SumAIUsageCostUSD(ctx, &store.SumAIUsageCost{
		OrgID:        "org-1",
		CreatedAfter: now.Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	require.InDelta(t, 0.004, total, 1e-9)

	total, err = ts.SumAIUsageCostUSD(ctx, &store.SumAIUsageCost{
		OrgID:        "org-1",
		CreatedAfter: now.Add(-72 * time.Hour),
	})
	require.NoError(t, err)
	require.InDelta(t, 0.014, total, 1e-9)
}
