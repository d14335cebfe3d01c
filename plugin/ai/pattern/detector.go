package pattern

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "github.com/postpilot/postpilot/internal/errors"
	"github.com/postpilot/postpilot/plugin/ai/decay"
	"github.com/postpilot/postpilot/store"
)

// Detector mines pattern candidates from one organization's episodic memory.
type Detector struct {
	store  EpisodeStore
	config *Config
	now    func() time.Time
}

// NewDetector creates a detector over the given episode store.
func NewDetector(s EpisodeStore, config *Config) *Detector {
	if config == nil {
		config = DefaultConfig()
	}
	d := DefaultConfig()
	if config.WindowDays > 0 {
		d.WindowDays = config.WindowDays
	}
	if config.MinOccurrences > 0 {
		d.MinOccurrences = config.MinOccurrences
	}
	if config.MinBucketSize > 0 {
		d.MinBucketSize = config.MinBucketSize
	}
	if config.CoOccurrenceWindow > 0 {
		d.CoOccurrenceWindow = config.CoOccurrenceWindow
	}
	if config.MinPairCount > 0 {
		d.MinPairCount = config.MinPairCount
	}
	if config.MaxEvents > 0 {
		d.MaxEvents = config.MaxEvents
	}
	return &Detector{store: s, config: d, now: time.Now}
}

// DetectFrequencyPatterns groups the org's recent events by (eventType,
// platform) and surfaces groups with at least minOccurrences members.
// Confidence blends the group's average decayed weight with sample coverage,
// so five fresh successes outrank fifty ancient ones. An empty window yields
// an empty slice, never an error; a single event can still surface when
// minOccurrences is 1.
func (d *Detector) DetectFrequencyPatterns(ctx context.Context, orgID string, minOccurrences int) ([]*Candidate, error) {
	if minOccurrences <= 0 {
		minOccurrences = d.config.MinOccurrences
	}
	episodes, err := d.listWindow(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := d.now()
	type group struct {
		eventType string
		platform  string
		ids       []int64
		weightSum float64
		firstSeen time.Time
		lastSeen  time.Time
	}
	groups := map[string]*group{}
	for _, e := range episodes {
		cfg := decay.ResolveConfig(e.EventType, nil)
		w := decay.Weight(e.Strength, e.Importance, cfg.HalfLifeDays, decay.AgeInDays(e.CreatedAt, now))
		if w < cfg.MinStrength {
			continue
		}
		key := e.EventType + "|" + e.Platform
		g, ok := groups[key]
		if !ok {
			g = &group{eventType: e.EventType, platform: e.Platform, firstSeen: e.CreatedAt, lastSeen: e.CreatedAt}
			groups[key] = g
		}
		g.ids = append(g.ids, e.ID)
		g.weightSum += w
		if e.CreatedAt.Before(g.firstSeen) {
			g.firstSeen = e.CreatedAt
		}
		if e.CreatedAt.After(g.lastSeen) {
			g.lastSeen = e.CreatedAt
		}
	}

	candidates := make([]*Candidate, 0)
	for _, g := range groups {
		n := len(g.ids)
		if n < minOccurrences {
			continue
		}
		avgWeight := g.weightSum / float64(n)
		value, err := json.Marshal(map[string]any{
			"event_type": g.eventType,
			"platform":   g.platform,
			"count":      n,
			"first_seen": g.firstSeen.UTC().Format(time.RFC3339),
			"last_seen":  g.lastSeen.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal frequency pattern value: %w", err)
		}
		candidates = append(candidates, &Candidate{
			PatternType:  TypeFrequency,
			Platform:     g.platform,
			PatternKey:   g.eventType,
			PatternValue: string(value),
			Confidence:   clamp01(avgWeight * coverage(n)),
			SampleSize:   int64(n),
			SourceIDs:    g.ids,
		})
	}
	sortCandidates(candidates)
	return candidates, nil
}

// DetectTemporalPatterns buckets the org's recent events by (weekday, hour)
// and surfaces buckets that hold at least MinBucketSize events. Confidence is
// the bucket's share of all events scaled by sample coverage.
func (d *Detector) DetectTemporalPatterns(ctx context.Context, orgID string) ([]*Candidate, error) {
	episodes, err := d.listWindow(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(episodes) < 2 {
		return []*Candidate{}, nil
	}

	type bucket struct {
		weekday time.Weekday
		hour    int
		ids     []int64
	}
	total := len(episodes)
	buckets := map[string]*bucket{}
	for _, e := range episodes {
		ts := e.CreatedAt.UTC()
		key := fmt.Sprintf("%s_%02d", strings.ToLower(ts.Weekday().String()), ts.Hour())
		b, ok := buckets[key]
		if !ok {
			b = &bucket{weekday: ts.Weekday(), hour: ts.Hour()}
			buckets[key] = b
		}
		b.ids = append(b.ids, e.ID)
	}

	candidates := make([]*Candidate, 0)
	for key, b := range buckets {
		n := len(b.ids)
		if n < d.config.MinBucketSize {
			continue
		}
		share := float64(n) / float64(total)
		value, err := json.Marshal(map[string]any{
			"weekday": strings.ToLower(b.weekday.String()),
			"hour":    b.hour,
			"count":   n,
			"share":   share,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal temporal pattern value: %w", err)
		}
		candidates = append(candidates, &Candidate{
			PatternType:  TypeTemporal,
			PatternKey:   key,
			PatternValue: string(value),
			Confidence:   clamp01(share * coverage(n)),
			SampleSize:   int64(n),
			SourceIDs:    b.ids,
		})
	}
	sortCandidates(candidates)
	return candidates, nil
}

// DetectCoOccurrencePatterns finds ordered event-type pairs that happen
// within the co-occurrence window of each other, e.g. trend_detected followed
// by post_success. Confidence is the conditional probability of the second
// event given the first, scaled by pair coverage.
func (d *Detector) DetectCoOccurrencePatterns(ctx context.Context, orgID string) ([]*Candidate, error) {
	episodes, err := d.listWindow(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(episodes) < 2 {
		return []*Candidate{}, nil
	}

	// The store returns newest first; pair mining walks forward in time.
	sort.Slice(episodes, func(i, j int) bool {
		return episodes[i].CreatedAt.Before(episodes[j].CreatedAt)
	})

	typeCount := map[string]int{}
	for _, e := range episodes {
		typeCount[e.EventType]++
	}

	type pair struct {
		first  string
		second string
		count  int
		ids    map[int64]struct{}
	}
	pairs := map[string]*pair{}
	for i, a := range episodes {
		for j := i + 1; j < len(episodes); j++ {
			b := episodes[j]
			if b.CreatedAt.Sub(a.CreatedAt) > d.config.CoOccurrenceWindow {
				break
			}
			if a.EventType == b.EventType {
				continue
			}
			key := a.EventType + "->" + b.EventType
			p, ok := pairs[key]
			if !ok {
				p = &pair{first: a.EventType, second: b.EventType, ids: map[int64]struct{}{}}
				pairs[key] = p
			}
			p.count++
			p.ids[a.ID] = struct{}{}
			p.ids[b.ID] = struct{}{}
		}
	}

	candidates := make([]*Candidate, 0)
	for key, p := range pairs {
		if p.count < d.config.MinPairCount {
			continue
		}
		conditional := float64(p.count) / float64(typeCount[p.first])
		value, err := json.Marshal(map[string]any{
			"first":       p.first,
			"second":      p.second,
			"pair_count":  p.count,
			"window_mins": int(d.config.CoOccurrenceWindow.Minutes()),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal co-occurrence pattern value: %w", err)
		}
		ids := make([]int64, 0, len(p.ids))
		for id := range p.ids {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		candidates = append(candidates, &Candidate{
			PatternType:  TypeCoOccurrence,
			PatternKey:   key,
			PatternValue: string(value),
			Confidence:   clamp01(conditional * coverage(p.count)),
			SampleSize:   int64(p.count),
			SourceIDs:    ids,
		})
	}
	sortCandidates(candidates)
	return candidates, nil
}

// DetectAll runs every detector and concatenates the results.
func (d *Detector) DetectAll(ctx context.Context, orgID string) ([]*Candidate, error) {
	freq, err := d.DetectFrequencyPatterns(ctx, orgID, 0)
	if err != nil {
		return nil, err
	}
	temporal, err := d.DetectTemporalPatterns(ctx, orgID)
	if err != nil {
		return nil, err
	}
	cooc, err := d.DetectCoOccurrencePatterns(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]*Candidate, 0, len(freq)+len(temporal)+len(cooc))
	out = append(out, freq...)
	out = append(out, temporal...)
	out = append(out, cooc...)
	return out, nil
}

func (d *Detector) listWindow(ctx context.Context, orgID string) ([]*store.EpisodicMemory, error) {
	if orgID == "" {
		return nil, apperrors.Validation("orgID is required")
	}
	after := d.now().AddDate(0, 0, -d.config.WindowDays)
	episodes, err := d.store.ListEpisodicMemories(ctx, &store.FindEpisodicMemory{
		OrgID:        &orgID,
		CreatedAfter: &after,
		Limit:        d.config.MaxEvents,
	})
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to list episodic memories", err)
	}
	return episodes, nil
}

// coverage discounts small samples: 1 occurrence counts for a tenth of the
// full confidence, 10 or more count in full.
func coverage(n int) float64 {
	c := float64(n) / 10
	if c > 1 {
		return 1
	}
	return c
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

// sortCandidates orders by confidence descending, then key for stability.
func sortCandidates(candidates []*Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].PatternKey < candidates[j].PatternKey
	})
}
