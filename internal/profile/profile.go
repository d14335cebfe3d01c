package profile

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the memory core.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where postpilot stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the service
	Version string

	// AI configuration
	AIEnabled     bool   // POSTPILOT_AI_ENABLED
	AIAPIKey      string // POSTPILOT_AI_API_KEY
	AIBaseURL     string // POSTPILOT_AI_BASE_URL (default: https://api.openai.com/v1)
	AIChatModel   string // POSTPILOT_AI_CHAT_MODEL (default: gpt-4o-mini)
	AIMaxRetries  int    // POSTPILOT_AI_MAX_RETRIES (default: 3)
	AITimeoutSecs int    // POSTPILOT_AI_TIMEOUT_SECS (default: 30)

	// Budget caps applied when the caller does not supply plan-specific caps.
	BudgetDailyUSD   float64 // POSTPILOT_BUDGET_DAILY_USD (default: 5)
	BudgetMonthlyUSD float64 // POSTPILOT_BUDGET_MONTHLY_USD (default: 50)

	// Consolidation thresholds. Exposed as configuration rather than
	// hard-coded in business logic.
	PromotionThreshold   float64 // POSTPILOT_PROMOTION_THRESHOLD (default: 0.7)
	MinSampleForStrategy int64   // POSTPILOT_MIN_SAMPLE_FOR_STRATEGY (default: 5)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Validate checks the profile for malformed configuration. A bad profile is
// a startup error, not a per-request one.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" && p.Mode != "demo" {
		return errors.Errorf("invalid mode: %s", p.Mode)
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("invalid driver: %s", p.Driver)
	}
	if p.DSN == "" {
		return errors.New("DSN is required")
	}
	if p.BudgetDailyUSD < 0 || p.BudgetMonthlyUSD < 0 {
		return errors.New("budget caps cannot be negative")
	}
	if p.PromotionThreshold < 0 || p.PromotionThreshold > 1 {
		return errors.Errorf("promotion threshold out of range: %f", p.PromotionThreshold)
	}
	if p.MinSampleForStrategy < 1 {
		return errors.Errorf("min sample for strategy must be positive: %d", p.MinSampleForStrategy)
	}
	return nil
}

// FromEnv builds a profile from environment variables with defaults.
func FromEnv(version string) (*Profile, error) {
	p := &Profile{
		Mode:                 envString("POSTPILOT_MODE", "dev"),
		Data:                 envString("POSTPILOT_DATA", "."),
		DSN:                  os.Getenv("POSTPILOT_DSN"),
		Driver:               envString("POSTPILOT_DRIVER", "sqlite"),
		Version:              version,
		AIEnabled:            envBool("POSTPILOT_AI_ENABLED", false),
		AIAPIKey:             os.Getenv("POSTPILOT_AI_API_KEY"),
		AIBaseURL:            envString("POSTPILOT_AI_BASE_URL", "https://api.openai.com/v1"),
		AIChatModel:          envString("POSTPILOT_AI_CHAT_MODEL", "gpt-4o-mini"),
		AIMaxRetries:         envInt("POSTPILOT_AI_MAX_RETRIES", 3),
		AITimeoutSecs:        envInt("POSTPILOT_AI_TIMEOUT_SECS", 30),
		BudgetDailyUSD:       envFloat("POSTPILOT_BUDGET_DAILY_USD", 5),
		BudgetMonthlyUSD:     envFloat("POSTPILOT_BUDGET_MONTHLY_USD", 50),
		PromotionThreshold:   envFloat("POSTPILOT_PROMOTION_THRESHOLD", 0.7),
		MinSampleForStrategy: int64(envInt("POSTPILOT_MIN_SAMPLE_FOR_STRATEGY", 5)),
	}

	if p.DSN == "" && p.Driver == "sqlite" {
		p.DSN = fmt.Sprintf("%s/postpilot_%s.db", p.Data, p.Mode)
	}

	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}
	return p, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
