package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ishaan812/gitinsight/internal/constants"
	"github.com/ishaan812/gitinsight/internal/llm"
)

type Config struct {
	DefaultProvider string `json:"default_provider"`
	DefaultModel    string `json:"default_model,omitempty"`
	EmbeddingModel  string `json:"embedding_model,omitempty"`

	// API Keys
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`
	OpenAIAPIKey string `json:"openai_api_key,omitempty"`

	OllamaBaseURL string `json:"ollama_base_url,omitempty"`
	OpenAIBaseURL string `json:"openai_base_url,omitempty"`

	// Pipeline
	CommitLimit        int `json:"commit_limit"`
	SummaryBatchSize   int `json:"summary_batch_size"`
	MaxDiffLines       int `json:"max_diff_lines"`
	EmbeddingBatchSize int `json:"embedding_batch_size"`
	ChunkLines         int `json:"chunk_lines"`
	TopK               int `json:"top_k"`
	HistoryTurns       int `json:"history_turns"`

	// Dashboard
	DashboardPort   int    `json:"dashboard_port"`
	RefreshSchedule string `json:"refresh_schedule,omitempty"`

	OnboardingComplete bool `json:"onboarding_complete"`
}

var configPath string

func init() {
	configPath = filepath.Join(GetConfigDir(), "config.json")
}

// GetConfigDir returns the base gitinsight directory in the user's home.
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".gitinsight"
	}
	return filepath.Join(homeDir, ".gitinsight")
}

func GetConfigPath() string {
	return configPath
}

// SetConfigPath points Load and Save at a different file.
func SetConfigPath(path string) {
	configPath = path
}

// Default returns a config with every tunable set to its built-in value.
func Default() *Config {
	return &Config{
		DefaultProvider:    string(constants.ProviderOllama),
		OllamaBaseURL:      constants.DefaultModels[constants.ProviderOllama].BaseURL,
		OpenAIBaseURL:      constants.DefaultModels[constants.ProviderOpenAI].BaseURL,
		CommitLimit:        constants.DefaultCommitLimit,
		SummaryBatchSize:   constants.DefaultSummaryBatchSize,
		MaxDiffLines:       constants.DefaultMaxDiffLines,
		EmbeddingBatchSize: constants.DefaultEmbeddingBatchSize,
		ChunkLines:         constants.DefaultChunkLines,
		TopK:               constants.DefaultTopK,
		HistoryTurns:       constants.DefaultHistoryTurns,
		DashboardPort:      constants.DefaultDashboardPort,
		RefreshSchedule:    constants.DefaultRefreshSchedule,
	}
}

func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults restores built-in values for numeric fields a file left at
// zero, so older or hand-edited files keep working.
func (c *Config) fillDefaults() {
	d := Default()
	setInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	setInt(&c.CommitLimit, d.CommitLimit)
	setInt(&c.SummaryBatchSize, d.SummaryBatchSize)
	setInt(&c.MaxDiffLines, d.MaxDiffLines)
	setInt(&c.EmbeddingBatchSize, d.EmbeddingBatchSize)
	setInt(&c.ChunkLines, d.ChunkLines)
	setInt(&c.TopK, d.TopK)
	// A negative history_turns replays whole sessions.
	if c.HistoryTurns == 0 {
		c.HistoryTurns = d.HistoryTurns
	}
	setInt(&c.DashboardPort, d.DashboardPort)
	if c.DefaultProvider == "" {
		c.DefaultProvider = d.DefaultProvider
	}
	if c.OllamaBaseURL == "" {
		c.OllamaBaseURL = d.OllamaBaseURL
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = d.OpenAIBaseURL
	}
	if c.RefreshSchedule == "" {
		c.RefreshSchedule = d.RefreshSchedule
	}
}

func (c *Config) Save() error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// GetAPIKey returns the stored key for provider, falling back to the
// provider's environment variable.
func (c *Config) GetAPIKey(provider constants.Provider) string {
	switch provider {
	case constants.ProviderGemini:
		if c.GeminiAPIKey != "" {
			return c.GeminiAPIKey
		}
		return os.Getenv("GEMINI_API_KEY")
	case constants.ProviderOpenAI:
		if c.OpenAIAPIKey != "" {
			return c.OpenAIAPIKey
		}
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}

func (c *Config) HasProvider(provider constants.Provider) bool {
	switch provider {
	case constants.ProviderOllama:
		return c.OllamaBaseURL != ""
	case constants.ProviderGemini, constants.ProviderOpenAI:
		return c.GetAPIKey(provider) != ""
	default:
		return false
	}
}

// LLMConfig resolves the provider settings for one run. Empty overrides
// fall back to the stored defaults; the result is validated.
func (c *Config) LLMConfig(providerOverride, modelOverride, embeddingOverride string) (llm.Config, error) {
	name := c.DefaultProvider
	if providerOverride != "" {
		name = providerOverride
	}
	provider, ok := constants.ParseProvider(name)
	if !ok {
		return llm.Config{}, fmt.Errorf("unknown provider: %s (available: %v)", name, constants.ProviderNames())
	}

	var opts []llm.Option
	// Stored models only apply to the provider they were chosen for.
	sameProvider := providerOverride == "" || provider == constants.Provider(c.DefaultProvider)
	switch {
	case modelOverride != "":
		opts = append(opts, llm.WithModel(modelOverride))
	case sameProvider && c.DefaultModel != "":
		opts = append(opts, llm.WithModel(c.DefaultModel))
	}
	switch {
	case embeddingOverride != "":
		opts = append(opts, llm.WithEmbeddingModel(embeddingOverride))
	case sameProvider && c.EmbeddingModel != "":
		opts = append(opts, llm.WithEmbeddingModel(c.EmbeddingModel))
	}

	switch provider {
	case constants.ProviderOllama:
		if c.OllamaBaseURL != "" {
			opts = append(opts, llm.WithBaseURL(c.OllamaBaseURL))
		}
	case constants.ProviderOpenAI:
		if c.OpenAIBaseURL != "" {
			opts = append(opts, llm.WithBaseURL(c.OpenAIBaseURL))
		}
	}
	if key := c.GetAPIKey(provider); key != "" {
		opts = append(opts, llm.WithAPIKey(key))
	}

	cfg := llm.NewConfig(provider, opts...)
	if err := cfg.Validate(); err != nil {
		return llm.Config{}, err
	}
	return cfg, nil
}
