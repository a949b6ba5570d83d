package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ishaan812/gitinsight/internal/constants"
	"github.com/ishaan812/gitinsight/internal/llm"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	old := GetConfigPath()
	SetConfigPath(path)
	t.Cleanup(func() { SetConfigPath(old) })
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	useTempConfig(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CommitLimit != constants.DefaultCommitLimit || cfg.TopK != constants.DefaultTopK {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.DefaultProvider != "ollama" {
		t.Errorf("DefaultProvider = %q", cfg.DefaultProvider)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := useTempConfig(t)

	cfg := Default()
	cfg.DefaultProvider = "gemini"
	cfg.GeminiAPIKey = "secret"
	cfg.CommitLimit = 50
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("mode = %o, want 600", perm)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DefaultProvider != "gemini" || got.GeminiAPIKey != "secret" || got.CommitLimit != 50 {
		t.Errorf("round trip = %+v", got)
	}
}

func TestLoadFillsZeroFields(t *testing.T) {
	path := useTempConfig(t)
	if err := os.WriteFile(path, []byte(`{"default_provider":"openai","top_k":0}`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TopK != constants.DefaultTopK || cfg.ChunkLines != constants.DefaultChunkLines {
		t.Errorf("zero fields not filled: %+v", cfg)
	}
	if cfg.DefaultProvider != "openai" {
		t.Errorf("DefaultProvider = %q", cfg.DefaultProvider)
	}
}

func TestLoadKeepsNegativeHistoryTurns(t *testing.T) {
	path := useTempConfig(t)
	if err := os.WriteFile(path, []byte(`{"history_turns":-1}`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HistoryTurns != -1 {
		t.Errorf("HistoryTurns = %d, want -1", cfg.HistoryTurns)
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := useTempConfig(t)
	if err := os.WriteFile(path, []byte(`{not json`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLLMConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	tests := []struct {
		name      string
		cfg       Config
		provider  string
		model     string
		wantModel string
		wantErr   error
		wantAny   bool
	}{
		{
			name:      "ollama defaults",
			cfg:       *Default(),
			wantModel: constants.DefaultModels[constants.ProviderOllama].LLMModel,
		},
		{
			name:      "stored model",
			cfg:       Config{DefaultProvider: "ollama", DefaultModel: "qwen3", OllamaBaseURL: "http://localhost:11434"},
			wantModel: "qwen3",
		},
		{
			name:      "model override wins",
			cfg:       Config{DefaultProvider: "ollama", DefaultModel: "qwen3", OllamaBaseURL: "http://localhost:11434"},
			model:     "gemma3",
			wantModel: "gemma3",
		},
		{
			name:      "stored model ignored for other provider",
			cfg:       Config{DefaultProvider: "ollama", DefaultModel: "qwen3", GeminiAPIKey: "k"},
			provider:  "gemini",
			wantModel: constants.DefaultModels[constants.ProviderGemini].LLMModel,
		},
		{
			name:     "gemini without key",
			cfg:      Config{DefaultProvider: "gemini"},
			wantErr:  llm.ErrMissingAPIKey,
			wantAny:  true,
			provider: "",
		},
		{
			name:     "unknown provider",
			cfg:      *Default(),
			provider: "anthropic",
			wantAny:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.LLMConfig(tt.provider, tt.model, "")
			if tt.wantAny {
				if err == nil {
					t.Fatal("expected error")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LLMConfig: %v", err)
			}
			if got.Model != tt.wantModel {
				t.Errorf("Model = %q, want %q", got.Model, tt.wantModel)
			}
		})
	}
}

func TestGetAPIKeyFallsBackToEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	cfg := Default()
	if got := cfg.GetAPIKey(constants.ProviderOpenAI); got != "from-env" {
		t.Errorf("GetAPIKey = %q", got)
	}
	cfg.OpenAIAPIKey = "stored"
	if got := cfg.GetAPIKey(constants.ProviderOpenAI); got != "stored" {
		t.Errorf("GetAPIKey = %q", got)
	}
}
