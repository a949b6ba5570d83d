package constants

import "strings"

// Provider identifies a model provider.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// ProviderInfo contains display information about a provider
type ProviderInfo struct {
	Name        Provider
	DisplayName string
	Description string
	EnvVar      string // API key environment variable, empty when none is needed
}

// AllProviders lists supported providers in selection order.
var AllProviders = []ProviderInfo{
	{
		Name:        ProviderGemini,
		DisplayName: "Gemini",
		Description: "Google Gemini API (generation + text-embedding)",
		EnvVar:      "GEMINI_API_KEY",
	},
	{
		Name:        ProviderOpenAI,
		DisplayName: "OpenAI",
		Description: "OpenAI API or any compatible endpoint",
		EnvVar:      "OPENAI_API_KEY",
	},
	{
		Name:        ProviderOllama,
		DisplayName: "Ollama",
		Description: "Local models, nothing leaves your machine",
	},
}

// ParseProvider normalizes user input into a known provider.
func ParseProvider(s string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, info := range AllProviders {
		if info.Name == p {
			return p, true
		}
	}
	return "", false
}

// GetProviderInfo returns metadata for p.
func GetProviderInfo(p Provider) (ProviderInfo, bool) {
	for _, info := range AllProviders {
		if info.Name == p {
			return info, true
		}
	}
	return ProviderInfo{}, false
}

// ProviderNames returns the provider identifiers as strings, for flag help.
func ProviderNames() []string {
	names := make([]string, len(AllProviders))
	for i, p := range AllProviders {
		names[i] = string(p.Name)
	}
	return names
}
