package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/postpilot/postpilot/internal/errors"
	"github.com/postpilot/postpilot/store"
)

var testNow = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

func newTestRecaller(episodes []*store.EpisodicMemory) (*Recaller, *MockRecallStore) {
	ms := &MockRecallStore{Episodes: episodes}
	r := NewRecaller(ms)
	r.now = func() time.Time { return testNow }
	return r, ms
}

func episode(id int64, eventType string, strength, importance float64, ageDays int) *store.EpisodicMemory {
	return &store.EpisodicMemory{
		ID:         id,
		OrgID:      "org-1",
		EventType:  eventType,
		Platform:   "instagram",
		Importance: importance,
		Strength:   strength,
		CreatedAt:  testNow.AddDate(0, 0, -ageDays),
	}
}

func TestRecallEpisodes(t *testing.T) {
	ctx := context.Background()

	t.Run("RanksFresherEpisodesFirst", func(t *testing.T) {
		r, _ := newTestRecaller([]*store.EpisodicMemory{
			episode(1, "post_success", 1, 0.8, 25),
			episode(2, "post_success", 1, 0.8, 1),
			episode(3, "post_success", 1, 0.8, 10),
		})

		got, err := r.RecallEpisodes(ctx, &RecallQuery{OrgID: "org-1"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, int64(2), got[0].Episode.ID)
		assert.Equal(t, int64(3), got[1].Episode.ID)
		assert.Equal(t, int64(1), got[2].Episode.ID)
		assert.Greater(t, got[0].Weight, got[1].Weight)
	})

	t.Run("FadedEpisodesExcluded", func(t *testing.T) {
		r, _ := newTestRecaller([]*store.EpisodicMemory{
			episode(1, "post_success", 1, 0.9, 1),
			// budget_exhausted has a 7-day half-life; at 80 days its weight
			// is far below the minimum strength.
			episode(2, "budget_exhausted", 1, 0.9, 80),
		})

		got, err := r.RecallEpisodes(ctx, &RecallQuery{OrgID: "org-1"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(1), got[0].Episode.ID)
	})

	t.Run("EventTypeAndPlatformFiltersApply", func(t *testing.T) {
		episodes := []*store.EpisodicMemory{
			episode(1, "post_success", 1, 0.8, 1),
			episode(2, "post_failure", 1, 0.8, 1),
		}
		episodes[1].Platform = "tiktok"
		r, _ := newTestRecaller(episodes)

		got, err := r.RecallEpisodes(ctx, &RecallQuery{OrgID: "org-1", EventType: "post_failure", Platform: "tiktok"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(2), got[0].Episode.ID)
	})

	t.Run("LimitTruncatesRanked", func(t *testing.T) {
		episodes := make([]*store.EpisodicMemory, 0, 10)
		for i := 0; i < 10; i++ {
			episodes = append(episodes, episode(int64(i+1), "post_success", 1, 0.8, i))
		}
		r, _ := newTestRecaller(episodes)

		got, err := r.RecallEpisodes(ctx, &RecallQuery{OrgID: "org-1", Limit: 3})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, int64(1), got[0].Episode.ID)
	})

	t.Run("EmptyStoreYieldsEmptySlice", func(t *testing.T) {
		r, _ := newTestRecaller(nil)
		got, err := r.RecallEpisodes(ctx, &RecallQuery{OrgID: "org-1"})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("MissingOrgIDRejected", func(t *testing.T) {
		r, _ := newTestRecaller(nil)
		_, err := r.RecallEpisodes(ctx, &RecallQuery{})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})

	t.Run("StoreFailureSurfaces", func(t *testing.T) {
		r, ms := newTestRecaller(nil)
		ms.ListEpisodesErr = errors.New("connection refused")
		_, err := r.RecallEpisodes(ctx, &RecallQuery{OrgID: "org-1"})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeStoreUnavailable))
	})
}

func TestScratch(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveThenLoadRoundTrips", func(t *testing.T) {
		r, _ := newTestRecaller(nil)
		_, err := r.SaveScratch(ctx, "org-1", "session-1", `{"draft":"v2"}`, time.Hour)
		require.NoError(t, err)

		wm, err := r.LoadScratch(ctx, "org-1", "session-1")
		require.NoError(t, err)
		require.NotNil(t, wm)
		assert.Equal(t, `{"draft":"v2"}`, wm.Content)
	})

	t.Run("SaveOverwritesSameSession", func(t *testing.T) {
		r, ms := newTestRecaller(nil)
		_, err := r.SaveScratch(ctx, "org-1", "session-1", "first", time.Hour)
		require.NoError(t, err)
		_, err = r.SaveScratch(ctx, "org-1", "session-1", "second", time.Hour)
		require.NoError(t, err)

		assert.Len(t, ms.Scratch, 1)
		wm, err := r.LoadScratch(ctx, "org-1", "session-1")
		require.NoError(t, err)
		assert.Equal(t, "second", wm.Content)
	})

	t.Run("ExpiredScratchLoadsAsNil", func(t *testing.T) {
		r, ms := newTestRecaller(nil)
		ms.Scratch = append(ms.Scratch, &store.WorkingMemory{
			OrgID:     "org-1",
			SessionID: "session-1",
			Content:   "stale",
			ExpiresAt: testNow.Add(-time.Minute),
		})

		wm, err := r.LoadScratch(ctx, "org-1", "session-1")
		require.NoError(t, err)
		assert.Nil(t, wm)
	})

	t.Run("SweepDeletesOnlyExpired", func(t *testing.T) {
		r, ms := newTestRecaller(nil)
		ms.Scratch = append(ms.Scratch,
			&store.WorkingMemory{OrgID: "org-1", SessionID: "s1", ExpiresAt: time.Now().Add(-time.Minute)},
			&store.WorkingMemory{OrgID: "org-1", SessionID: "s2", ExpiresAt: time.Now().Add(time.Hour)},
		)

		deleted, err := r.SweepExpiredScratch(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
		assert.Len(t, ms.Scratch, 1)
	})
}
