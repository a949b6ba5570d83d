package constants

// ModelConfig holds model configuration for a provider
type ModelConfig struct {
	LLMModel       string
	EmbeddingModel string
	BaseURL        string
}

// DefaultModels contains default model configurations for each provider
var DefaultModels = map[Provider]ModelConfig{
	ProviderGemini: {
		LLMModel:       "gemini-2.5-flash",
		EmbeddingModel: "text-embedding-004",
	},
	ProviderOpenAI: {
		LLMModel:       "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
		BaseURL:        "https://api.openai.com/v1",
	},
	ProviderOllama: {
		LLMModel:       "llama3.1",
		EmbeddingModel: "nomic-embed-text",
		BaseURL:        "http://localhost:11434",
	},
}

// ModelOption represents a selectable model
type ModelOption struct {
	Model       string
	Description string
}

// GetLLMModels returns selectable generation models for a provider
func GetLLMModels(provider Provider) []ModelOption {
	return llmModels[provider]
}

// GetEmbeddingModels returns selectable embedding models for a provider
func GetEmbeddingModels(provider Provider) []ModelOption {
	return embeddingModels[provider]
}

var llmModels = map[Provider][]ModelOption{
	ProviderGemini: {
		{Model: "gemini-2.5-flash", Description: "Fast, cheap, good default"},
		{Model: "gemini-2.5-pro", Description: "Stronger reasoning, slower"},
		{Model: "gemini-2.0-flash", Description: "Previous generation flash"},
	},
	ProviderOpenAI: {
		{Model: "gpt-4o-mini", Description: "Fast and inexpensive"},
		{Model: "gpt-4o", Description: "Higher quality"},
		{Model: "gpt-4.1", Description: "Long context"},
	},
	ProviderOllama: {
		{Model: "llama3.1", Description: "Meta Llama 3.1"},
		{Model: "qwen3", Description: "Qwen3"},
		{Model: "gemma3", Description: "Gemma 3"},
		{Model: "deepseek-r1", Description: "DeepSeek R1"},
	},
}

var embeddingModels = map[Provider][]ModelOption{
	ProviderGemini: {
		{Model: "text-embedding-004", Description: "768 dimensions"},
		{Model: "gemini-embedding-001", Description: "3072 dimensions"},
	},
	ProviderOpenAI: {
		{Model: "text-embedding-3-small", Description: "1536 dimensions"},
		{Model: "text-embedding-3-large", Description: "3072 dimensions"},
	},
	ProviderOllama: {
		{Model: "nomic-embed-text", Description: "768 dimensions"},
		{Model: "mxbai-embed-large", Description: "1024 dimensions"},
	},
}

// Pipeline defaults.
const (
	DefaultCommitLimit        = 200
	DefaultSummaryBatchSize   = 10
	DefaultMaxDiffLines       = 100
	DefaultEmbeddingBatchSize = 16
	DefaultChunkLines         = 100
	DefaultTopK               = 5
	DefaultHistoryTurns       = 20
	DefaultDashboardPort      = 3000
	DefaultRefreshSchedule    = "@every 30m"
)

// TrivialKeywords mark commits that are summarized by their message alone.
var TrivialKeywords = []string{"typo", "readme", "bump", "version", "merge"}
