// Package ai holds the concrete model-invocation capability the governor
// calls through. Everything above this package treats the model as opaque.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/postpilot/postpilot/internal/profile"
	"github.com/postpilot/postpilot/plugin/ai/governor"
)

// Config holds the model provider configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	ChatModel  string
	MaxRetries int
	Timeout    time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		ChatModel:  "gpt-4o-mini",
		MaxRetries: 3,
		Timeout:    30 * time.Second,
	}
}

// Provider is the OpenAI-backed model invoker.
type Provider struct {
	client *openai.Client
	config *Config
}

var _ governor.ModelInvoker = (*Provider)(nil)

// NewProvider creates a model provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// NewProviderFromProfile creates a provider from the service profile.
func NewProviderFromProfile(p *profile.Profile) (*Provider, error) {
	return NewProvider(&Config{
		BaseURL:    p.AIBaseURL,
		APIKey:     p.AIAPIKey,
		ChatModel:  p.AIChatModel,
		MaxRetries: p.AIMaxRetries,
		Timeout:    time.Duration(p.AITimeoutSecs) * time.Second,
	})
}

// CallModel performs one chat completion and reports token usage and
// latency. Transient failures are retried with exponential backoff inside
// the caller-supplied context deadline.
func (p *Provider) CallModel(ctx context.Context, messages []governor.Message, maxTokens int) (*governor.ModelResult, error) {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	var result *governor.ModelResult
	start := time.Now()
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     p.config.ChatModel,
			Messages:  llmMessages,
			MaxTokens: maxTokens,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		result = &governor.ModelResult{
			Text:         resp.Choices[0].Message.Content,
			Provider:     "openai",
			Model:        resp.Model,
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
			LatencyMs:    time.Since(start).Milliseconds(),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete chat: %w", err)
	}
	return result, nil
}

// Validate checks the provider configuration without calling the API.
func (p *Provider) Validate() error {
	if p.config.APIKey == "" {
		return fmt.Errorf("API key is required, set POSTPILOT_AI_API_KEY environment variable")
	}
	return nil
}

// doWithRetry executes a function with exponential backoff retry.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < p.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				slog.Debug("model request failed, retrying",
					"attempt", attempt+1,
					"wait_time", waitTime,
					"error", err)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}
