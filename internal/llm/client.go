package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ishaan812/gitinsight/internal/constants"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client defines the interface for LLM operations.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	ChatComplete(ctx context.Context, messages []Message) (string, error)
}

// Streamer streams a chat completion. onDelta receives each fragment in
// order; returning an error from it stops the stream. The full text is
// returned once the provider finishes.
type Streamer interface {
	StreamChat(ctx context.Context, messages []Message, onDelta func(string) error) (string, error)
}

// StreamingClient is what every provider in this package implements.
type StreamingClient interface {
	Client
	Streamer
}

// ErrMissingAPIKey is returned when a provider needs a key and none is set.
var ErrMissingAPIKey = errors.New("missing API key")

// Provider is an alias to constants.Provider.
type Provider = constants.Provider

const (
	ProviderGemini = constants.ProviderGemini
	ProviderOpenAI = constants.ProviderOpenAI
	ProviderOllama = constants.ProviderOllama
)

// Config holds configuration for creating an LLM client.
type Config struct {
	Provider       Provider
	Model          string
	EmbeddingModel string
	BaseURL        string
	APIKey         string
}

// Option is a functional option for configuring LLM clients.
type Option func(*Config)

// WithModel sets the model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithEmbeddingModel sets the embedding model.
func WithEmbeddingModel(model string) Option {
	return func(c *Config) { c.EmbeddingModel = model }
}

// WithBaseURL sets the base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// NewConfig starts from the provider defaults and applies opts.
func NewConfig(provider Provider, opts ...Option) Config {
	cfg := Config{Provider: provider}
	if defaults, ok := constants.DefaultModels[provider]; ok {
		cfg.Model = defaults.LLMModel
		cfg.EmbeddingModel = defaults.EmbeddingModel
		cfg.BaseURL = defaults.BaseURL
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Validate reports configuration problems that must stop a run before any
// work starts.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.APIKey == "" {
			return fmt.Errorf("%w: set GEMINI_API_KEY or run 'gitinsight configure'", ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("%w: set OPENAI_API_KEY or run 'gitinsight configure'", ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.BaseURL == "" {
			return fmt.Errorf("ollama requires a base URL (e.g. http://localhost:11434)")
		}
	case "":
		return fmt.Errorf("no provider configured; run 'gitinsight configure'")
	default:
		return fmt.Errorf("unknown provider: %s", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("no model specified for provider %q", c.Provider)
	}
	return nil
}

// NewClient creates a streaming LLM client from config.
func NewClient(cfg Config) (StreamingClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiClient(cfg.APIKey, cfg.Model), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	default:
		return NewOllamaClient(cfg.BaseURL, cfg.Model), nil
	}
}

// AvailableProviders returns supported LLM providers.
func AvailableProviders() []Provider {
	providers := make([]Provider, 0, len(constants.AllProviders))
	for _, p := range constants.AllProviders {
		providers = append(providers, p.Name)
	}
	return providers
}
