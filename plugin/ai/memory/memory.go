// Package memory is the read side of the adaptive memory core: decay-ranked
// recall over episodic records and a session-scoped working-memory scratch
// layer.
package memory

import (
	"context"
	"sort"
	"time"

	apperrors "github.com/postpilot/postpilot/internal/errors"
	"github.com/postpilot/postpilot/plugin/ai/decay"
	"github.com/postpilot/postpilot/store"
)

// RecallStore is the slice of the record store recall reads and the scratch
// layer writes. Satisfied by *store.Store.
type RecallStore interface {
	ListEpisodicMemories(ctx context.Context, find *store.FindEpisodicMemory) ([]*store.EpisodicMemory, error)
	UpsertWorkingMemory(ctx context.Context, upsert *store.UpsertWorkingMemory) (*store.WorkingMemory, error)
	ListWorkingMemories(ctx context.Context, find *store.FindWorkingMemory) ([]*store.WorkingMemory, error)
	DeleteExpiredWorkingMemories(ctx context.Context) (int64, error)
}

// RecallQuery bounds one episodic recall.
type RecallQuery struct {
	OrgID     string
	EventType string // optional
	Platform  string // optional
	// WindowDays bounds how far back recall reads. Defaults to 90.
	WindowDays int
	// Limit caps the ranked result. Defaults to 20.
	Limit int
	// RecencyBias multiplies the decayed weight; 1 means no bias.
	RecencyBias float64
	// Overrides replaces the per-event-type decay table when set.
	Overrides *decay.Config
}

// RecalledEpisode is one ranked recall result.
type RecalledEpisode struct {
	Episode *store.EpisodicMemory
	Weight  float64
	Score   float64
}

// DefaultScratchTTL is how long session scratch lives without refresh.
const DefaultScratchTTL = 30 * time.Minute

// Recaller ranks episodic memories by decayed contribution and manages
// session scratch state.
type Recaller struct {
	store RecallStore
	now   func() time.Time
}

// NewRecaller creates a recaller over the given store.
func NewRecaller(s RecallStore) *Recaller {
	return &Recaller{store: s, now: time.Now}
}

// RecallEpisodes returns the org's episodic memories ranked by decayed
// weight, newest-leaning. Records whose weight fell under their event type's
// minimum strength are excluded; they still exist in the store but no longer
// contribute. An empty result is a valid answer, never an error.
func (r *Recaller) RecallEpisodes(ctx context.Context, q *RecallQuery) ([]*RecalledEpisode, error) {
	if q == nil || q.OrgID == "" {
		return nil, apperrors.Validation("orgID is required")
	}
	windowDays := q.WindowDays
	if windowDays <= 0 {
		windowDays = 90
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	recencyBias := q.RecencyBias
	if recencyBias <= 0 {
		recencyBias = 1
	}

	find := &store.FindEpisodicMemory{OrgID: &q.OrgID, Limit: 1000}
	if q.EventType != "" {
		find.EventType = &q.EventType
	}
	if q.Platform != "" {
		find.Platform = &q.Platform
	}
	after := r.now().AddDate(0, 0, -windowDays)
	find.CreatedAfter = &after

	episodes, err := r.store.ListEpisodicMemories(ctx, find)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to list episodic memories", err)
	}

	now := r.now()
	recalled := make([]*RecalledEpisode, 0, len(episodes))
	for _, e := range episodes {
		cfg := decay.ResolveConfig(e.EventType, q.Overrides)
		age := decay.AgeInDays(e.CreatedAt, now)
		weight := decay.Weight(e.Strength, e.Importance, cfg.HalfLifeDays, age)
		if weight < cfg.MinStrength {
			continue
		}
		recalled = append(recalled, &RecalledEpisode{
			Episode: e,
			Weight:  weight,
			Score:   decay.CompositeScore(1, e.Strength, e.Importance, cfg.HalfLifeDays, age, recencyBias),
		})
	}

	sort.Slice(recalled, func(i, j int) bool {
		if recalled[i].Score != recalled[j].Score {
			return recalled[i].Score > recalled[j].Score
		}
		return recalled[i].Episode.ID > recalled[j].Episode.ID
	})
	if len(recalled) > limit {
		recalled = recalled[:limit]
	}
	return recalled, nil
}

// SaveScratch upserts the session's scratch content with a fresh TTL.
func (r *Recaller) SaveScratch(ctx context.Context, orgID, sessionID, content string, ttl time.Duration) (*store.WorkingMemory, error) {
	if orgID == "" || sessionID == "" {
		return nil, apperrors.Validation("orgID and sessionID are required")
	}
	if ttl <= 0 {
		ttl = DefaultScratchTTL
	}
	wm, err := r.store.UpsertWorkingMemory(ctx, &store.UpsertWorkingMemory{
		OrgID:     orgID,
		SessionID: sessionID,
		Content:   content,
		ExpiresAt: r.now().Add(ttl),
	})
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to save working memory", err)
	}
	return wm, nil
}

// LoadScratch returns the session's live scratch content, or nil when the
// session has none or it expired.
func (r *Recaller) LoadScratch(ctx context.Context, orgID, sessionID string) (*store.WorkingMemory, error) {
	if orgID == "" || sessionID == "" {
		return nil, apperrors.Validation("orgID and sessionID are required")
	}
	rows, err := r.store.ListWorkingMemories(ctx, &store.FindWorkingMemory{
		OrgID:     &orgID,
		SessionID: &sessionID,
		Limit:     1,
	})
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to load working memory", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if rows[0].ExpiresAt.Before(r.now()) {
		return nil, nil
	}
	return rows[0], nil
}

// SweepExpiredScratch deletes expired scratch rows and reports how many went.
func (r *Recaller) SweepExpiredScratch(ctx context.Context) (int64, error) {
	n, err := r.store.DeleteExpiredWorkingMemories(ctx)
	if err != nil {
		return 0, apperrors.StoreUnavailable("failed to sweep working memory", err)
	}
	return n, nil
}
