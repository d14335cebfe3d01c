package outcome

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/postpilot/postpilot/internal/errors"
)

func TestEngagementScore(t *testing.T) {
	assert.Zero(t, EngagementScore(Metrics{}))
	assert.Equal(t, 1.0, EngagementScore(Metrics{Likes: 1}))
	// 10 likes + 2*5 comments + 3*2 shares + 2*3 saves + 4 clicks = 36.
	assert.Equal(t, 36.0, EngagementScore(Metrics{Likes: 10, Comments: 5, Shares: 2, Saves: 3, Clicks: 4}))
	// Impressions are reach, not engagement.
	assert.Zero(t, EngagementScore(Metrics{Impressions: 10000}))
}

func TestDeriveCreativeSignals(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		hookType string
		ctaType  string
	}{
		{
			name:     "QuestionHookCommentCTA",
			content:  "Ever wonder why your reels flop? Here is the fix. Let me know what you think below.",
			hookType: HookQuestion,
			ctaType:  CTAComment,
		},
		{
			name:     "ContrarianHookSaveCTA",
			content:  "Unpopular opinion: posting daily is hurting you. Save this for your next planning session.",
			hookType: HookContrarian,
			ctaType:  CTASave,
		},
		{
			name:     "ListHookShareCTA",
			content:  "5 hooks that doubled our reach. Tag a friend who needs this.",
			hookType: HookList,
			ctaType:  CTAShare,
		},
		{
			name:     "StatisticHookLinkCTA",
			content:  "80% of engagement comes from 20% of posts. Check out the full breakdown, link in bio.",
			hookType: HookStatistic,
			ctaType:  CTALink,
		},
		{
			name:     "TransformationHookNoCTA",
			content:  "We went from 200 to 20k followers in a quarter. The playbook was boring consistency.",
			hookType: HookTransformation,
			ctaType:  CTANone,
		},
		{
			name:     "StoryHook",
			content:  "Last year I deleted every scheduled post. Nothing broke.",
			hookType: HookStory,
			ctaType:  CTANone,
		},
		{
			name:     "QuestionFormCommentCTA",
			content:  "Here is the framework we use. What do you think?",
			hookType: HookStatement,
			ctaType:  CTAComment,
		},
		{
			name:     "QuestionOnlyContent",
			content:  "What do you think?",
			hookType: HookQuestion,
			ctaType:  CTAComment,
		},
		{
			name:     "FallbackStatementNone",
			content:  "We ship on Tuesdays.",
			hookType: HookStatement,
			ctaType:  CTANone,
		},
		{
			name:     "EmptyContent",
			content:  "",
			hookType: HookStatement,
			ctaType:  CTANone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := DeriveCreativeSignals(tt.content)
			assert.Equal(t, tt.hookType, signals.HookType)
			assert.Equal(t, tt.ctaType, signals.CTAType)
		})
	}

	t.Run("Deterministic", func(t *testing.T) {
		content := "Ever wonder why your reels flop? Save this."
		first := DeriveCreativeSignals(content)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, DeriveCreativeSignals(content))
		}
	})
}

func TestLogOutcomeForPost(t *testing.T) {
	ctx := context.Background()

	post := func(metrics Metrics) *Post {
		return &Post{ID: "post-1", OrgID: "org-1", Platform: "instagram", Content: "Hello.", Metrics: metrics}
	}

	t.Run("EngagedSnapshotWritesRow", func(t *testing.T) {
		ms := &MockOutcomeStore{}
		l := NewLearner(ms, nil)

		wrote, err := l.LogOutcomeForPost(ctx, post(Metrics{Likes: 30, Comments: 4}), "metrics_sync", "post_success", "engagement", nil)
		require.NoError(t, err)
		assert.True(t, wrote)
		require.Len(t, ms.Episodes, 1)
		assert.Equal(t, "post_success", ms.Episodes[0].EventType)
		assert.Equal(t, "instagram", ms.Episodes[0].Platform)
		assert.Contains(t, ms.Episodes[0].Metadata, `"post_id":"post-1"`)
		assert.Contains(t, ms.Episodes[0].Metadata, `"success":true`)
	})

	t.Run("ZeroEngagementSnapshotSkipped", func(t *testing.T) {
		ms := &MockOutcomeStore{}
		l := NewLearner(ms, nil)

		wrote, err := l.LogOutcomeForPost(ctx, post(Metrics{}), "metrics_sync", "post_success", "engagement", nil)
		require.NoError(t, err)
		assert.False(t, wrote)
		assert.Empty(t, ms.Episodes)
	})

	t.Run("PublishedAlwaysWritesEvenAtZero", func(t *testing.T) {
		ms := &MockOutcomeStore{}
		l := NewLearner(ms, nil)

		wrote, err := l.LogOutcomeForPost(ctx, post(Metrics{}), "publisher", EventPublished, "engagement", nil)
		require.NoError(t, err)
		assert.True(t, wrote)
		assert.Len(t, ms.Episodes, 1)
	})

	t.Run("UnchangedSnapshotSkipped", func(t *testing.T) {
		ms := &MockOutcomeStore{}
		l := NewLearner(ms, nil)
		metrics := Metrics{Likes: 30, Comments: 4}

		wrote, err := l.LogOutcomeForPost(ctx, post(metrics), "metrics_sync", "post_success", "engagement", nil)
		require.NoError(t, err)
		assert.True(t, wrote)

		wrote, err = l.LogOutcomeForPost(ctx, post(metrics), "metrics_sync", "post_success", "engagement", nil)
		require.NoError(t, err)
		assert.False(t, wrote)
		assert.Len(t, ms.Episodes, 1)

		// Metrics moved; the next snapshot counts again.
		wrote, err = l.LogOutcomeForPost(ctx, post(Metrics{Likes: 45, Comments: 4}), "metrics_sync", "post_success", "engagement", nil)
		require.NoError(t, err)
		assert.True(t, wrote)
		assert.Len(t, ms.Episodes, 2)
	})

	t.Run("UnchangedSnapshotFoundPastBusyOrgTraffic", func(t *testing.T) {
		ms := &MockOutcomeStore{}
		l := NewLearner(ms, nil)
		metrics := Metrics{Likes: 30, Comments: 4}

		wrote, err := l.LogOutcomeForPost(ctx, post(metrics), "metrics_sync", "post_success", "engagement", nil)
		require.NoError(t, err)
		assert.True(t, wrote)

		// Other posts in the same org flood in after the snapshot, enough to
		// push it past the first scan page.
		for i := 0; i < snapshotScanPageSize+50; i++ {
			other := &Post{
				ID:       "other-" + strconv.Itoa(i),
				OrgID:    "org-1",
				Platform: "instagram",
				Content:  "Hello.",
				Metrics:  Metrics{Likes: int64(i + 1)},
			}
			_, err := l.LogOutcomeForPost(ctx, other, "metrics_sync", "post_success", "engagement", nil)
			require.NoError(t, err)
		}

		wrote, err = l.LogOutcomeForPost(ctx, post(metrics), "metrics_sync", "post_success", "engagement", nil)
		require.NoError(t, err)
		assert.False(t, wrote)
	})

	t.Run("InvalidPostRejected", func(t *testing.T) {
		l := NewLearner(&MockOutcomeStore{}, nil)
		_, err := l.LogOutcomeForPost(ctx, &Post{OrgID: "org-1"}, "s", "post_success", "engagement", nil)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})

	t.Run("StoreFailureSurfaces", func(t *testing.T) {
		ms := &MockOutcomeStore{CreateEpisodeErr: errors.New("connection refused")}
		l := NewLearner(ms, nil)
		_, err := l.LogOutcomeForPost(ctx, post(Metrics{Likes: 1}), "s", EventPublished, "engagement", nil)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeStoreUnavailable))
	})
}

func TestRefreshCreativeMemoryFromPost(t *testing.T) {
	ctx := context.Background()
	content := "Ever wonder why your reels flop? Save this for later."

	t.Run("StreamingMeanOverThreePosts", func(t *testing.T) {
		ms := &MockOutcomeStore{}
		l := NewLearner(ms, nil)

		scores := []Metrics{
			{Likes: 10},            // 10, below the engagement bar
			{Likes: 20, Shares: 4}, // 32, above
			{Likes: 30, Saves: 6},  // 42, above
		}
		for _, m := range scores {
			_, err := l.RefreshCreativeMemoryFromPost(ctx, &Post{
				ID: "p", OrgID: "org-1", Platform: "instagram", Content: content, Metrics: m,
			}, "engagement", map[string]any{"framework": "aida"})
			require.NoError(t, err)
		}

		require.Len(t, ms.Aggregates, 1)
		agg := ms.Aggregates[0]
		assert.Equal(t, HookQuestion, agg.HookType)
		assert.Equal(t, CTASave, agg.CTAType)
		assert.Equal(t, "aida", agg.Framework)
		assert.Equal(t, int64(3), agg.SampleSize)
		assert.Equal(t, int64(2), agg.SuccessCount)
		assert.InDelta(t, 84.0, agg.TotalEngagement, 1e-9)
		assert.InDelta(t, 28.0, agg.AvgEngagement, 1e-9)
	})

	t.Run("DistinctSignalsGetDistinctRows", func(t *testing.T) {
		ms := &MockOutcomeStore{}
		l := NewLearner(ms, nil)

		_, err := l.RefreshCreativeMemoryFromPost(ctx, &Post{
			ID: "p1", OrgID: "org-1", Platform: "instagram", Content: content, Metrics: Metrics{Likes: 5},
		}, "engagement", nil)
		require.NoError(t, err)
		_, err = l.RefreshCreativeMemoryFromPost(ctx, &Post{
			ID: "p2", OrgID: "org-1", Platform: "instagram", Content: "We ship on Tuesdays.", Metrics: Metrics{Likes: 5},
		}, "engagement", nil)
		require.NoError(t, err)

		assert.Len(t, ms.Aggregates, 2)
	})

	t.Run("PerObjectiveSuccessBar", func(t *testing.T) {
		ms := &MockOutcomeStore{}
		l := NewLearner(ms, nil)

		// 8 points: below the engagement bar (20), above the conversions bar (5).
		post := &Post{ID: "p", OrgID: "org-1", Platform: "instagram", Content: content, Metrics: Metrics{Likes: 8}}
		agg, err := l.RefreshCreativeMemoryFromPost(ctx, post, "engagement", nil)
		require.NoError(t, err)
		assert.Zero(t, agg.SuccessCount)

		agg, err = l.RefreshCreativeMemoryFromPost(ctx, post, "conversions", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), agg.SuccessCount)
	})
}

func TestLogDecisionForPublishedPost(t *testing.T) {
	ctx := context.Background()

	t.Run("RecordsAndResolvesAttribution", func(t *testing.T) {
		ms := &MockOutcomeStore{}
		l := NewLearner(ms, nil)

		created, err := l.LogDecisionForPublishedPost(ctx, &Decision{
			OrgID:     "org-1",
			DraftID:   "draft-9",
			VariantID: "variant-b",
			PostID:    "post-7",
			Platform:  "linkedin",
			Objective: "awareness",
		})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)

		found, err := l.FindDecisionForPost(ctx, "org-1", "post-7")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "draft-9", found.DraftID)
		assert.Equal(t, "variant-b", found.VariantID)
		assert.Equal(t, "awareness", found.Objective)
	})

	t.Run("UnknownPostResolvesToNil", func(t *testing.T) {
		l := NewLearner(&MockOutcomeStore{}, nil)
		found, err := l.FindDecisionForPost(ctx, "org-1", "nope")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("MissingFieldsRejected", func(t *testing.T) {
		l := NewLearner(&MockOutcomeStore{}, nil)
		_, err := l.LogDecisionForPublishedPost(ctx, &Decision{OrgID: "org-1"})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})
}
