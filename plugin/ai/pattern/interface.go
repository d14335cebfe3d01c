// Package pattern mines semantic regularities from an organization's
// episodic memory. It reads a bounded, time-windowed slice of events and
// proposes candidates; writing them back is the consolidation pipeline's job.
package pattern

import (
	"context"
	"time"

	"github.com/postpilot/postpilot/store"
)

// Pattern type discriminators for mined candidates.
const (
	TypeFrequency    = "frequency"
	TypeTemporal     = "temporal"
	TypeCoOccurrence = "co_occurrence"
)

// EpisodeStore is the slice of the record store the detector reads.
// Satisfied by *store.Store.
type EpisodeStore interface {
	ListEpisodicMemories(ctx context.Context, find *store.FindEpisodicMemory) ([]*store.EpisodicMemory, error)
}

// Candidate is a mined pattern that has not been persisted yet. SourceIDs
// point at the contributing episodic rows so consolidation can record
// provenance.
type Candidate struct {
	PatternType  string
	Platform     string
	PatternKey   string
	PatternValue string // JSON
	Confidence   float64
	SampleSize   int64
	SourceIDs    []int64
}

// Config bounds the detector. Zero values fall back to defaults.
type Config struct {
	// WindowDays is how far back the detector reads episodic memory.
	WindowDays int
	// MinOccurrences is the default frequency-group floor.
	MinOccurrences int
	// MinBucketSize is the minimum temporal bucket population; below it a
	// bucket is treated as a spurious single-sample regularity.
	MinBucketSize int
	// CoOccurrenceWindow is the sliding window within which two ordered
	// events count as co-occurring.
	CoOccurrenceWindow time.Duration
	// MinPairCount is the minimum ordered-pair count to surface.
	MinPairCount int
	// MaxEvents caps how many episodic rows one run reads.
	MaxEvents int
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() *Config {
	return &Config{
		WindowDays:         30,
		MinOccurrences:     3,
		MinBucketSize:      3,
		CoOccurrenceWindow: 30 * time.Minute,
		MinPairCount:       2,
		MaxEvents:          1000,
	}
}
