package outcome

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode"

	apperrors "github.com/postpilot/postpilot/internal/errors"
	"github.com/postpilot/postpilot/store"
)

// Learner records post outcomes and maintains the creative-memory aggregates.
type Learner struct {
	store  OutcomeStore
	config *Config
	now    func() time.Time
}

// NewLearner creates a learner over the given store.
func NewLearner(s OutcomeStore, config *Config) *Learner {
	if config == nil || len(config.SuccessBars) == 0 {
		config = DefaultConfig()
	}
	return &Learner{store: s, config: config, now: time.Now}
}

// EngagementScore collapses a metrics snapshot into one comparable number.
// Comments and saves signal intent more strongly than likes; shares most of
// all.
func EngagementScore(m Metrics) float64 {
	return float64(m.Likes) + 2*float64(m.Comments) + 3*float64(m.Shares) + 2*float64(m.Saves) + float64(m.Clicks)
}

// DeriveCreativeSignals classifies a post's opening hook and closing
// call-to-action into a small fixed taxonomy via keyword rules. Deterministic
// and model-free; texts that match nothing fall back to statement/none.
func DeriveCreativeSignals(content string) Signals {
	return Signals{
		HookType: classifyHook(firstSentence(content)),
		CTAType:  classifyCTA(lastSentence(content)),
	}
}

func classifyHook(sentence string) string {
	s := strings.ToLower(strings.TrimSpace(sentence))
	if s == "" {
		return HookStatement
	}
	switch {
	case strings.Contains(s, "?"):
		return HookQuestion
	case containsAny(s, "unpopular opinion", "everyone is wrong", "stop doing", "stop posting", "the truth about", "myth"):
		return HookContrarian
	case containsAny(s, "went from", "before and after", "transformed", "changed my", "changed everything"):
		return HookTransformation
	// The statistic check runs before the list check: "80% of posts..." opens
	// with a digit but is not a listicle.
	case strings.Contains(s, "%") || containsAny(s, "of people", "according to", "the data", "a study"):
		return HookStatistic
	case startsWithDigit(s) || containsAny(s, " ways ", " ways to", " tips ", " tips to", " steps ", " steps to", " reasons "):
		return HookList
	case containsAny(s, "when i ", "last year", "last week", "i remember", "true story", "once "):
		return HookStory
	default:
		return HookStatement
	}
}

func classifyCTA(sentence string) string {
	s := strings.ToLower(strings.TrimSpace(sentence))
	if s == "" {
		return CTANone
	}
	switch {
	case containsAny(s, "save this", "bookmark"):
		return CTASave
	case containsAny(s, "comment", "let me know", "tell me", "what do you think", "drop a"):
		return CTAComment
	case containsAny(s, "share this", "share it", "tag a", "tag someone", "send this"):
		return CTAShare
	case containsAny(s, "link in bio", "click the link", "sign up", "check out", "visit"):
		return CTALink
	default:
		return CTANone
	}
}

// LogOutcomeForPost writes one episodic outcome row for a post and reports
// whether a row was actually written. Rows are written only when the post has
// at least one non-zero engagement metric or the event is the terminal
// published event; metric snapshots identical to the last recorded one are
// skipped so repeated syncs do not inflate sample sizes.
func (l *Learner) LogOutcomeForPost(ctx context.Context, post *Post, source, eventType, objective string, metadata map[string]any) (bool, error) {
	if post == nil || post.OrgID == "" || post.ID == "" {
		return false, apperrors.Validation("post with orgID and ID is required")
	}
	if eventType == "" {
		return false, apperrors.Validation("eventType is required")
	}

	engagement := EngagementScore(post.Metrics)
	terminal := eventType == EventPublished
	if engagement == 0 && !terminal {
		return false, nil
	}
	if !terminal {
		unchanged, err := l.sameAsLastSnapshot(ctx, post, eventType, engagement)
		if err != nil {
			return false, err
		}
		if unchanged {
			return false, nil
		}
	}

	payload := map[string]any{
		"post_id":    post.ID,
		"source":     source,
		"objective":  objective,
		"engagement": engagement,
		"success":    engagement >= l.successBar(objective),
	}
	for k, v := range metadata {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return false, apperrors.Validationf("failed to marshal outcome metadata: %v", err)
	}

	if _, err := l.store.CreateEpisodicMemory(ctx, &store.EpisodicMemory{
		OrgID:      post.OrgID,
		EventType:  eventType,
		Platform:   post.Platform,
		Importance: outcomeImportance(engagement),
		Strength:   1,
		Metadata:   string(raw),
		CreatedAt:  l.now(),
	}); err != nil {
		return false, apperrors.StoreUnavailable("failed to log outcome", err)
	}
	return true, nil
}

// snapshotScanPageSize bounds each episodic page while scanning for a post's
// last snapshot. The scan pages until the post is found or rows run out, so a
// busy org cannot push a post's snapshot out of reach.
const snapshotScanPageSize = 200

// sameAsLastSnapshot checks the most recent outcome row for this post and
// event type against the current engagement score.
func (l *Learner) sameAsLastSnapshot(ctx context.Context, post *Post, eventType string, engagement float64) (bool, error) {
	for offset := 0; ; offset += snapshotScanPageSize {
		rows, err := l.store.ListEpisodicMemories(ctx, &store.FindEpisodicMemory{
			OrgID:     &post.OrgID,
			EventType: &eventType,
			Limit:     snapshotScanPageSize,
			Offset:    offset,
		})
		if err != nil {
			return false, apperrors.StoreUnavailable("failed to check last outcome snapshot", err)
		}
		for _, row := range rows {
			var meta struct {
				PostID     string  `json:"post_id"`
				Engagement float64 `json:"engagement"`
			}
			if err := json.Unmarshal([]byte(row.Metadata), &meta); err != nil {
				continue
			}
			if meta.PostID != post.ID {
				continue
			}
			// Rows are newest first; the first match is the last snapshot.
			return meta.Engagement == engagement, nil
		}
		if len(rows) < snapshotScanPageSize {
			return false, nil
		}
	}
}

// RefreshCreativeMemoryFromPost folds one post outcome into the matching
// creative-memory aggregate using a streaming mean: the aggregate never sees
// raw events twice and sample size only grows.
func (l *Learner) RefreshCreativeMemoryFromPost(ctx context.Context, post *Post, objective string, metadata map[string]any) (*store.CreativeMemory, error) {
	if post == nil || post.OrgID == "" {
		return nil, apperrors.Validation("post with orgID is required")
	}

	signals := DeriveCreativeSignals(post.Content)
	framework := ""
	if metadata != nil {
		if f, ok := metadata["framework"].(string); ok {
			framework = f
		}
	}
	key := &store.CreativeMemoryKey{
		OrgID:     post.OrgID,
		Platform:  post.Platform,
		Objective: objective,
		HookType:  signals.HookType,
		Framework: framework,
		CTAType:   signals.CTAType,
	}

	existing, err := l.store.GetCreativeMemory(ctx, key)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to get creative memory", err)
	}

	engagement := EngagementScore(post.Metrics)
	upsert := &store.UpsertCreativeMemory{Key: *key}
	if existing != nil {
		upsert.SampleSize = existing.SampleSize
		upsert.SuccessCount = existing.SuccessCount
		upsert.TotalEngagement = existing.TotalEngagement
	}
	upsert.SampleSize++
	upsert.TotalEngagement += engagement
	upsert.AvgEngagement = upsert.TotalEngagement / float64(upsert.SampleSize)
	if engagement >= l.successBar(objective) {
		upsert.SuccessCount++
	}

	updated, err := l.store.UpsertCreativeMemory(ctx, upsert)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to upsert creative memory", err)
	}
	return updated, nil
}

// LogDecisionForPublishedPost records which draft variant became which post,
// so outcomes syncing in later can be attributed to the generation decision.
func (l *Learner) LogDecisionForPublishedPost(ctx context.Context, d *Decision) (*store.DecisionLog, error) {
	if d == nil || d.OrgID == "" || d.DraftID == "" || d.PostID == "" {
		return nil, apperrors.Validation("decision with orgID, draftID and postID is required")
	}
	created, err := l.store.CreateDecisionLog(ctx, &store.DecisionLog{
		OrgID:     d.OrgID,
		DraftID:   d.DraftID,
		VariantID: d.VariantID,
		PostID:    d.PostID,
		Platform:  d.Platform,
		Objective: d.Objective,
		CreatedAt: l.now(),
	})
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to log decision", err)
	}
	return created, nil
}

// FindDecisionForPost resolves the decision that produced a post, or nil.
func (l *Learner) FindDecisionForPost(ctx context.Context, orgID, postID string) (*store.DecisionLog, error) {
	if orgID == "" || postID == "" {
		return nil, apperrors.Validation("orgID and postID are required")
	}
	rows, err := l.store.ListDecisionLogs(ctx, &store.FindDecisionLog{
		OrgID:  &orgID,
		PostID: &postID,
		Limit:  1,
	})
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to find decision", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (l *Learner) successBar(objective string) float64 {
	if bar, ok := l.config.SuccessBars[objective]; ok {
		return bar
	}
	return l.config.DefaultSuccessBar
}

// outcomeImportance maps an engagement score onto [0.3, 1]: every outcome
// matters some, runaway posts matter most.
func outcomeImportance(engagement float64) float64 {
	importance := 0.3 + engagement/100
	if importance > 1 {
		return 1
	}
	return importance
}

func firstSentence(content string) string {
	content = strings.TrimSpace(content)
	end := strings.IndexFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	if end < 0 {
		return content
	}
	// Keep the terminator; a question mark is a classification signal.
	return content[:end+1]
}

func lastSentence(content string) string {
	// A trailing '?' is trimmed like '.'/'!': question marks matter for hook
	// classification, not for spotting "what do you think?"-style CTAs.
	content = strings.TrimRightFunc(strings.TrimSpace(content), func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || unicode.IsSpace(r)
	})
	start := strings.LastIndexFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	return content[start+1:]
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
