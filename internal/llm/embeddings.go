package llm

import (
	"context"
	"fmt"
)

// Embedder generates vector embeddings for text. Model names the embedding
// model; vectors from different models are never compared.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// NewEmbedder creates an embedding client based on config
func NewEmbedder(cfg Config) (Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("no embedding model specified for provider %q", cfg.Provider)
	}
	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiEmbedder(cfg.APIKey, cfg.EmbeddingModel), nil
	case ProviderOpenAI:
		return NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.EmbeddingModel), nil
	default:
		return NewOllamaEmbedder(cfg.BaseURL, cfg.EmbeddingModel), nil
	}
}

// checkBatch verifies a provider returned one vector per input.
func checkBatch(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("empty embedding for input %d", i)
		}
	}
	return nil
}
