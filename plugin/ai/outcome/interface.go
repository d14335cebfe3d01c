// Package outcome turns post performance data into memory: episodic outcome
// rows, streaming creative-style aggregates, and decision logs that let
// metrics arriving days later be attributed back to the generation choices
// that produced them.
package outcome

import (
	"context"

	"github.com/postpilot/postpilot/store"
)

// Hook types recognized by the creative-signal classifier.
const (
	HookQuestion       = "question"
	HookContrarian     = "contrarian"
	HookTransformation = "transformation"
	HookList           = "list"
	HookStory          = "story"
	HookStatistic      = "statistic"
	HookStatement      = "statement"
)

// CTA types recognized by the creative-signal classifier.
const (
	CTASave    = "save"
	CTAComment = "comment"
	CTAShare   = "share"
	CTALink    = "link"
	CTANone    = "none"
)

// EventPublished is the terminal lifecycle event; it is always recorded even
// with zero engagement.
const EventPublished = "published"

// OutcomeStore is the slice of the record store the learner touches.
// Satisfied by *store.Store.
type OutcomeStore interface {
	CreateEpisodicMemory(ctx context.Context, create *store.EpisodicMemory) (*store.EpisodicMemory, error)
	ListEpisodicMemories(ctx context.Context, find *store.FindEpisodicMemory) ([]*store.EpisodicMemory, error)
	GetCreativeMemory(ctx context.Context, key *store.CreativeMemoryKey) (*store.CreativeMemory, error)
	UpsertCreativeMemory(ctx context.Context, upsert *store.UpsertCreativeMemory) (*store.CreativeMemory, error)
	CreateDecisionLog(ctx context.Context, create *store.DecisionLog) (*store.DecisionLog, error)
	ListDecisionLogs(ctx context.Context, find *store.FindDecisionLog) ([]*store.DecisionLog, error)
}

// Metrics is one engagement snapshot for a post.
type Metrics struct {
	Likes       int64
	Comments    int64
	Shares      int64
	Saves       int64
	Clicks      int64
	Impressions int64
}

// Post is the outcome-facing view of a published or publishing post.
type Post struct {
	ID       string
	OrgID    string
	Platform string
	Content  string
	Metrics  Metrics
}

// Signals is the deterministic creative classification of a post's text.
type Signals struct {
	HookType string
	CTAType  string
}

// Decision links a chosen draft variant to the post it became.
type Decision struct {
	OrgID     string
	DraftID   string
	VariantID string
	PostID    string
	Platform  string
	Objective string
}

// Config holds the per-objective success bars, in engagement-score points.
type Config struct {
	SuccessBars       map[string]float64
	DefaultSuccessBar float64
}

// DefaultConfig returns the default success bars.
func DefaultConfig() *Config {
	return &Config{
		SuccessBars: map[string]float64{
			"engagement":  20,
			"awareness":   10,
			"conversions": 5,
			"growth":      15,
		},
		DefaultSuccessBar: 10,
	}
}
