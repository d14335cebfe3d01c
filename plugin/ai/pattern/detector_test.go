package pattern

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

func newTestDetector(episodes []*store.EpisodicMemory) *Detector {
	d := NewDetector(&MockEpisodeStore{Episodes: episodes}, nil)
	d.now = func() time.Time { return testNow }
	return d
}

func episode(id int64, eventType, platform string, age time.Duration) *store.EpisodicMemory {
	return &store.EpisodicMemory{
		ID:         id,
		OrgID:      "org-1",
		EventType:  eventType,
		Platform:   platform,
		Importance: 0.8,
		Strength:   1,
		CreatedAt:  testNow.Add(-age),
	}
}

func TestDetectFrequencyPatterns(t *testing.T) {
	ctx := context.Background()

	t.Run("RepeatedSuccessesFormOnePattern", func(t *testing.T) {
		episodes := make([]*store.EpisodicMemory, 0, 5)
		for i := 0; i < 5; i++ {
			episodes = append(episodes, episode(int64(i+1), "post_success", "instagram", time.Duration(i)*24*time.Hour))
		}
		d := newTestDetector(episodes)

		got, err := d.DetectFrequencyPatterns(ctx, "org-1", 3)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, TypeFrequency, got[0].PatternType)
		assert.Equal(t, "post_success", got[0].PatternKey)
		assert.Equal(t, "instagram", got[0].Platform)
		assert.Equal(t, int64(5), got[0].SampleSize)
		assert.Len(t, got[0].SourceIDs, 5)
		assert.Greater(t, got[0].Confidence, 0.0)
		assert.LessOrEqual(t, got[0].Confidence, 1.0)
		assert.Contains(t, got[0].PatternValue, `"count":5`)
	})

	t.Run("GroupsBelowMinOccurrencesDropped", func(t *testing.T) {
		d := newTestDetector([]*store.EpisodicMemory{
			episode(1, "post_success", "instagram", time.Hour),
			episode(2, "post_success", "instagram", 2*time.Hour),
			episode(3, "post_failure", "tiktok", 3*time.Hour),
		})

		got, err := d.DetectFrequencyPatterns(ctx, "org-1", 3)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("FresherGroupRanksHigher", func(t *testing.T) {
		episodes := make([]*store.EpisodicMemory, 0, 6)
		for i := 0; i < 3; i++ {
			episodes = append(episodes, episode(int64(i+1), "post_success", "instagram", time.Duration(i)*time.Hour))
			episodes = append(episodes, episode(int64(i+10), "post_failure", "tiktok", 25*24*time.Hour))
		}
		d := newTestDetector(episodes)

		got, err := d.DetectFrequencyPatterns(ctx, "org-1", 3)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "post_success", got[0].PatternKey)
		assert.Greater(t, got[0].Confidence, got[1].Confidence)
	})

	t.Run("EmptyWindowYieldsEmpty", func(t *testing.T) {
		d := newTestDetector(nil)
		got, err := d.DetectFrequencyPatterns(ctx, "org-1", 1)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("SingleEventSurfacesAtMinOccurrencesOne", func(t *testing.T) {
		d := newTestDetector([]*store.EpisodicMemory{
			episode(1, "post_success", "instagram", time.Hour),
		})

		got, err := d.DetectFrequencyPatterns(ctx, "org-1", 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "post_success", got[0].PatternKey)
		assert.Equal(t, int64(1), got[0].SampleSize)
		assert.Contains(t, got[0].PatternValue, `"count":1`)
	})

	t.Run("EventsOutsideWindowIgnored", func(t *testing.T) {
		episodes := make([]*store.EpisodicMemory, 0, 4)
		for i := 0; i < 4; i++ {
			episodes = append(episodes, episode(int64(i+1), "post_success", "instagram", 90*24*time.Hour))
		}
		d := newTestDetector(episodes)

		got, err := d.DetectFrequencyPatterns(ctx, "org-1", 3)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("MissingOrgIDRejected", func(t *testing.T) {
		d := newTestDetector(nil)
		_, err := d.DetectFrequencyPatterns(ctx, "", 3)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})

	t.Run("StoreFailureSurfacesAsStoreUnavailable", func(t *testing.T) {
		d := NewDetector(&MockEpisodeStore{Err: errors.New("connection refused")}, nil)
		_, err := d.DetectFrequencyPatterns(ctx, "org-1", 3)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeStoreUnavailable))
	})
}

func TestDetectTemporalPatterns(t *testing.T) {
	ctx := context.Background()

	t.Run("ConcentratedBucketDetected", func(t *testing.T) {
		// Four events in the same weekday-hour slot across weeks, one stray.
		episodes := []*store.EpisodicMemory{
			episode(1, "post_success", "instagram", 2*time.Hour),
			episode(2, "post_success", "instagram", 7*24*time.Hour+2*time.Hour),
			episode(3, "post_success", "instagram", 14*24*time.Hour+2*time.Hour),
			episode(4, "post_success", "instagram", 21*24*time.Hour+2*time.Hour),
			episode(5, "post_failure", "tiktok", 30*time.Hour),
		}
		d := newTestDetector(episodes)

		got, err := d.DetectTemporalPatterns(ctx, "org-1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, TypeTemporal, got[0].PatternType)
		assert.Equal(t, "thursday_10", got[0].PatternKey)
		assert.Equal(t, int64(4), got[0].SampleSize)
		assert.Contains(t, got[0].PatternValue, `"weekday":"thursday"`)
	})

	t.Run("SparseBucketsDropped", func(t *testing.T) {
		d := newTestDetector([]*store.EpisodicMemory{
			episode(1, "post_success", "instagram", 1*time.Hour),
			episode(2, "post_success", "instagram", 26*time.Hour),
			episode(3, "post_success", "instagram", 51*time.Hour),
		})

		got, err := d.DetectTemporalPatterns(ctx, "org-1")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestDetectCoOccurrencePatterns(t *testing.T) {
	ctx := context.Background()

	t.Run("OrderedPairWithinWindowDetected", func(t *testing.T) {
		episodes := []*store.EpisodicMemory{
			episode(1, "trend_detected", "", 48*time.Hour),
			episode(2, "post_success", "instagram", 48*time.Hour-10*time.Minute),
			episode(3, "trend_detected", "", 24*time.Hour),
			episode(4, "post_success", "instagram", 24*time.Hour-5*time.Minute),
		}
		d := newTestDetector(episodes)

		got, err := d.DetectCoOccurrencePatterns(ctx, "org-1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, TypeCoOccurrence, got[0].PatternType)
		assert.Equal(t, "trend_detected->post_success", got[0].PatternKey)
		assert.Equal(t, int64(2), got[0].SampleSize)
		assert.ElementsMatch(t, []int64{1, 2, 3, 4}, got[0].SourceIDs)
		// Both trend_detected events were followed by a success: conditional
		// probability 1, discounted for the small sample.
		assert.InDelta(t, 0.2, got[0].Confidence, 1e-9)
	})

	t.Run("PairsOutsideWindowIgnored", func(t *testing.T) {
		episodes := []*store.EpisodicMemory{
			episode(1, "trend_detected", "", 50*time.Hour),
			episode(2, "post_success", "instagram", 48*time.Hour),
			episode(3, "trend_detected", "", 26*time.Hour),
			episode(4, "post_success", "instagram", 24*time.Hour),
		}
		d := newTestDetector(episodes)

		got, err := d.DetectCoOccurrencePatterns(ctx, "org-1")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("FewerThanTwoEventsYieldsEmpty", func(t *testing.T) {
		for _, episodes := range [][]*store.EpisodicMemory{
			{},
			{episode(1, "trend_detected", "", time.Hour)},
		} {
			d := newTestDetector(episodes)
			got, err := d.DetectCoOccurrencePatterns(ctx, "org-1")
			require.NoError(t, err)
			assert.Empty(t, got)
		}
	})

	t.Run("SinglePairBelowMinCountDropped", func(t *testing.T) {
		episodes := []*store.EpisodicMemory{
			episode(1, "trend_detected", "", time.Hour),
			episode(2, "post_success", "instagram", 50*time.Minute),
		}
		d := newTestDetector(episodes)

		got, err := d.DetectCoOccurrencePatterns(ctx, "org-1")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestDetectAll(t *testing.T) {
	episodes := make([]*store.EpisodicMemory, 0, 6)
	for i := 0; i < 6; i++ {
		episodes = append(episodes, episode(int64(i+1), "post_success", "instagram", time.Duration(i)*7*24*time.Hour))
	}
	d := newTestDetector(episodes)

	got, err := d.DetectAll(context.Background(), "org-1")
	require.NoError(t, err)
	assert.NotEmpty(t, got)
	for _, c := range got {
		assert.NotEmpty(t, c.PatternType)
		assert.NotEmpty(t, c.PatternKey)
		assert.GreaterOrEqual(t, c.Confidence, 0.0)
		assert.LessOrEqual(t, c.Confidence, 1.0)
	}
}
