// Package llm provides the completion capability: text in, structured JSON
// out. Two providers: the Gemini native API and any OpenAI-compatible
// endpoint.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Client is the minimal completion interface the resolver depends on.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config selects and configures the provider.
type Config struct {
	Provider string        `yaml:"provider"` // "gemini" or "openai"
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// New creates a client from configuration.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiClientWithConfig(GeminiConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}), nil
	case "openai":
		return NewOpenAIClientWithConfig(OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s (use 'gemini' or 'openai')", cfg.Provider)
	}
}
