// Package decay models how the contribution of a memory record fades over
// time. Every function is pure; callers supply the clock.
package decay

import (
	"math"
	"time"
)

// Config is the per-event-type decay configuration.
type Config struct {
	HalfLifeDays float64
	MinStrength  float64
}

// DefaultHalfLifeDays is used for event types without a table entry.
const DefaultHalfLifeDays = 30

// DefaultMinStrength is the weight under which a record stops contributing
// to queries. The record itself is never deleted.
const DefaultMinStrength = 0.05

// halfLifeByEventType maps event types to how quickly they fade. A viral
// moment stays relevant for months; an exhausted budget is stale within a
// week.
var halfLifeByEventType = map[string]float64{
	"post_success":     30,
	"post_failure":     14,
	"viral_moment":     60,
	"budget_exhausted": 7,
	"trend_detected":   14,
}

// Weight computes the time-decayed contribution of a memory record as
// strength * importance * 2^(-daysSinceCreated/halfLifeDays). At one
// half-life the weight is exactly half the initial value.
//
// A zero strength, importance, or half-life yields 0: a half-life of zero
// means "decays instantly", not "never decays". Negative ages are clamped to
// zero so future-dated records are never boosted.
func Weight(strength, importance, halfLifeDays, daysSinceCreated float64) float64 {
	if strength <= 0 || importance <= 0 || halfLifeDays <= 0 {
		return 0
	}
	if daysSinceCreated < 0 {
		daysSinceCreated = 0
	}
	return clamp01(strength) * clamp01(importance) * math.Exp2(-daysSinceCreated/halfLifeDays)
}

// CompositeScore ranks a retrieved memory against a query by multiplying the
// decayed weight with the caller-supplied similarity and an optional recency
// bias. Pass similarity and recencyBias of 1 when unused.
func CompositeScore(similarity, strength, importance, halfLifeDays, daysSinceCreated, recencyBias float64) float64 {
	return similarity * recencyBias * Weight(strength, importance, halfLifeDays, daysSinceCreated)
}

// ResolveConfig looks up the decay configuration for an event type. Unknown
// event types fall back to the default half-life; explicit overrides win.
func ResolveConfig(eventType string, overrides *Config) Config {
	cfg := Config{
		HalfLifeDays: DefaultHalfLifeDays,
		MinStrength:  DefaultMinStrength,
	}
	if h, ok := halfLifeByEventType[eventType]; ok {
		cfg.HalfLifeDays = h
	}
	if overrides != nil {
		if overrides.HalfLifeDays > 0 {
			cfg.HalfLifeDays = overrides.HalfLifeDays
		}
		if overrides.MinStrength > 0 {
			cfg.MinStrength = overrides.MinStrength
		}
	}
	return cfg
}

// HalfLifeToRate converts a half-life in days to a decay rate, ln(2)/h.
// A non-positive half-life returns the sentinel rate 1.
func HalfLifeToRate(halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return 1
	}
	return math.Ln2 / halfLifeDays
}

// RateToHalfLife converts a decay rate back to a half-life in days. A rate
// of 0 returns +Inf, the sentinel for "never decays". Exact inverse of
// HalfLifeToRate for h > 0.
func RateToHalfLife(rate float64) float64 {
	if rate == 0 {
		return math.Inf(1)
	}
	return math.Ln2 / rate
}

// EstimateLifespan solves minThreshold = strength*importance*2^(-t/h) for t,
// giving the days until the record's weight falls under the threshold.
// Returns 0 when the record is born dead (initial weight already under the
// threshold) or when strength is 0.
func EstimateLifespan(strength, importance, halfLifeDays, minThreshold float64) float64 {
	if minThreshold <= 0 {
		minThreshold = DefaultMinStrength
	}
	initial := clamp01(strength) * clamp01(importance)
	if strength <= 0 || halfLifeDays <= 0 || initial <= minThreshold {
		return 0
	}
	return halfLifeDays * math.Log2(initial/minThreshold)
}

// DaysSince returns the fractional days elapsed since an RFC 3339 timestamp.
// Unparsable and future timestamps both return 0; the result is never
// negative.
func DaysSince(isoTimestamp string, now time.Time) float64 {
	t, err := time.Parse(time.RFC3339, isoTimestamp)
	if err != nil {
		return 0
	}
	days := now.Sub(t).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}

// AgeInDays returns the non-negative age of a timestamp in fractional days.
func AgeInDays(t time.Time, now time.Time) float64 {
	days := now.Sub(t).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
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
