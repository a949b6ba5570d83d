package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// geminiSDK lazily creates the genai client shared by generation and
// embedding calls.
type geminiSDK struct {
	apiKey string

	once   sync.Once
	client *genai.Client
	err    error
}

func (g *geminiSDK) get(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		g.client, g.err = genai.NewClient(ctx, &genai.ClientConfig{
			Backend: genai.BackendGeminiAPI,
			APIKey:  g.apiKey,
		})
		if g.err != nil {
			g.err = fmt.Errorf("failed to create Gemini client: %w", g.err)
		}
	})
	return g.client, g.err
}

// ── Gemini LLM Client ──────────────────────────────────────────────────────

// GeminiClient implements StreamingClient using Google's official Gemini Go SDK.
type GeminiClient struct {
	sdk   *geminiSDK
	model string
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		sdk:   &geminiSDK{apiKey: apiKey},
		model: model,
	}
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.ChatComplete(ctx, []Message{{Role: RoleUser, Content: prompt}})
}

func (c *GeminiClient) ChatComplete(ctx context.Context, messages []Message) (string, error) {
	client, err := c.sdk.get(ctx)
	if err != nil {
		return "", err
	}
	contents, config, err := geminiRequest(c.model, messages)
	if err != nil {
		return "", err
	}

	result, err := client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return result.Text(), nil
}

func (c *GeminiClient) StreamChat(ctx context.Context, messages []Message, onDelta func(string) error) (string, error) {
	client, err := c.sdk.get(ctx)
	if err != nil {
		return "", err
	}
	contents, config, err := geminiRequest(c.model, messages)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	for resp, err := range client.Models.GenerateContentStream(ctx, c.model, contents, config) {
		if err != nil {
			return full.String(), fmt.Errorf("Gemini stream error: %w", err)
		}
		delta := resp.Text()
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return full.String(), err
			}
		}
	}
	return full.String(), nil
}

func geminiRequest(model string, messages []Message) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	var contents []*genai.Content
	var systemInstruction *genai.Content

	for _, m := range messages {
		role := m.Role
		switch role {
		case RoleSystem:
			systemInstruction = &genai.Content{
				Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
			}
			continue
		case RoleAssistant, "model":
			role = "model"
		default:
			role = "user"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("no user/assistant messages provided")
	}

	config := &genai.GenerateContentConfig{}
	if strings.Contains(model, "pro") {
		config.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingLevel: "HIGH",
		}
	}
	if systemInstruction != nil {
		config.SystemInstruction = systemInstruction
	}
	return contents, config, nil
}

// ── Gemini Embeddings ──────────────────────────────────────────────────────

// GeminiEmbedder embeds text through the Gemini embedContent API.
type GeminiEmbedder struct {
	sdk   *geminiSDK
	model string
}

func NewGeminiEmbedder(apiKey, model string) *GeminiEmbedder {
	return &GeminiEmbedder{sdk: &geminiSDK{apiKey: apiKey}, model: model}
}

func (e *GeminiEmbedder) Model() string {
	return e.model
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	client, err := e.sdk.get(ctx)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{genai.NewPartFromText(t)},
		}
	}

	resp, err := client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Gemini embed error: %w", err)
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb != nil {
			vectors[i] = emb.Values
		}
	}
	if err := checkBatch(texts, vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}
