package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ishaan812/gitinsight/internal/config"
	"github.com/ishaan812/gitinsight/internal/constants"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure gitinsight settings",
	Long: `Configure the LLM provider, models, API keys and pipeline settings.

Settings are stored in ~/.gitinsight/config.json. Flags on individual
commands override them for one run.

Examples:
  gitinsight configure`,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !isInteractive() {
		return fmt.Errorf("configure needs an interactive terminal; edit %s directly", config.GetConfigPath())
	}

	fmt.Println()
	titleColor.Println("  gitinsight configuration")
	dimColor.Printf("  %s\n", config.GetConfigPath())

	menu := []string{
		"LLM provider and models",
		"API keys",
		"Pipeline settings",
		"Dashboard settings",
		"View settings",
		"Save & exit",
		"Exit without saving",
	}
	for {
		fmt.Println()
		sel := promptui.Select{Label: "What would you like to configure?", Items: menu, Size: len(menu)}
		idx, _, err := sel.Run()
		if err != nil {
			return promptErr(err)
		}
		switch idx {
		case 0:
			err = configureProvider(cfg)
		case 1:
			err = configureAPIKeys(cfg)
		case 2:
			err = configurePipeline(cfg)
		case 3:
			err = configureDashboard(cfg)
		case 4:
			displaySettings(cfg)
		case 5:
			cfg.OnboardingComplete = true
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Println()
			successColor.Println("  Configuration saved.")
			fmt.Println()
			return nil
		case 6:
			dimColor.Println("  Changes discarded.")
			return nil
		}
		if err != nil {
			return promptErr(err)
		}
	}
}

// promptErr turns a ctrl+c at a prompt into a clean exit.
func promptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		fmt.Println()
		dimColor.Println("  Canceled.")
		return nil
	}
	return err
}

// firstRunSetup asks for a provider (and its key) before the first analysis.
func firstRunSetup(cfg *config.Config) error {
	fmt.Println()
	titleColor.Println("  Welcome to gitinsight")
	dimColor.Println("  Pick the model provider used to summarize commits.")
	fmt.Println()

	if err := configureProvider(cfg); err != nil {
		return promptErr(err)
	}
	cfg.OnboardingComplete = true
	if err := cfg.Save(); err != nil {
		return err
	}
	successColor.Printf("  Saved to %s\n", config.GetConfigPath())
	return nil
}

func configureProvider(cfg *config.Config) error {
	items := make([]string, len(constants.AllProviders))
	cursor := 0
	for i, p := range constants.AllProviders {
		items[i] = fmt.Sprintf("%-8s %s", p.DisplayName, p.Description)
		if string(p.Name) == cfg.DefaultProvider {
			cursor = i
		}
	}
	sel := promptui.Select{Label: "Provider", Items: items, CursorPos: cursor}
	idx, _, err := sel.Run()
	if err != nil {
		return err
	}
	info := constants.AllProviders[idx]
	if string(info.Name) != cfg.DefaultProvider {
		cfg.DefaultModel = ""
		cfg.EmbeddingModel = ""
	}
	cfg.DefaultProvider = string(info.Name)

	if info.EnvVar != "" && cfg.GetAPIKey(info.Name) == "" {
		if err := promptAPIKey(cfg, info); err != nil {
			return err
		}
	}
	if info.Name == constants.ProviderOllama {
		p := promptui.Prompt{Label: "Ollama base URL", Default: cfg.OllamaBaseURL, AllowEdit: true}
		url, err := p.Run()
		if err != nil {
			return err
		}
		cfg.OllamaBaseURL = strings.TrimSpace(url)
	}

	if cfg.DefaultModel, err = selectModel("Generation model", constants.GetLLMModels(info.Name), cfg.DefaultModel); err != nil {
		return err
	}
	cfg.EmbeddingModel, err = selectModel("Embedding model", constants.GetEmbeddingModels(info.Name), cfg.EmbeddingModel)
	return err
}

func selectModel(label string, options []constants.ModelOption, current string) (string, error) {
	if len(options) == 0 {
		p := promptui.Prompt{Label: label, Default: current, AllowEdit: true}
		return p.Run()
	}
	items := make([]string, len(options))
	cursor := 0
	for i, o := range options {
		items[i] = fmt.Sprintf("%-24s %s", o.Model, o.Description)
		if o.Model == current {
			cursor = i
		}
	}
	sel := promptui.Select{Label: label, Items: items, CursorPos: cursor}
	idx, _, err := sel.Run()
	if err != nil {
		return "", err
	}
	return options[idx].Model, nil
}

func promptAPIKey(cfg *config.Config, info constants.ProviderInfo) error {
	p := promptui.Prompt{
		Label: fmt.Sprintf("%s API key (or set %s)", info.DisplayName, info.EnvVar),
		Mask:  '*',
	}
	key, err := p.Run()
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	switch info.Name {
	case constants.ProviderGemini:
		cfg.GeminiAPIKey = key
	case constants.ProviderOpenAI:
		cfg.OpenAIAPIKey = key
	}
	return nil
}

func configureAPIKeys(cfg *config.Config) error {
	for _, info := range constants.AllProviders {
		if info.EnvVar == "" {
			continue
		}
		if err := promptAPIKey(cfg, info); err != nil {
			return err
		}
	}
	if cfg.OpenAIBaseURL != "" {
		p := promptui.Prompt{Label: "OpenAI base URL", Default: cfg.OpenAIBaseURL, AllowEdit: true}
		url, err := p.Run()
		if err != nil {
			return err
		}
		cfg.OpenAIBaseURL = strings.TrimSpace(url)
	}
	return nil
}

func validatePositive(input string) error {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 {
		return fmt.Errorf("enter a whole number of at least 1")
	}
	return nil
}

func promptInt(label string, v *int) error {
	p := promptui.Prompt{
		Label:     label,
		Default:   strconv.Itoa(*v),
		AllowEdit: true,
		Validate:  validatePositive,
	}
	out, err := p.Run()
	if err != nil {
		return err
	}
	*v, _ = strconv.Atoi(strings.TrimSpace(out))
	return nil
}

func configurePipeline(cfg *config.Config) error {
	fields := []struct {
		label string
		v     *int
	}{
		{"Commit limit", &cfg.CommitLimit},
		{"Commits per summary batch", &cfg.SummaryBatchSize},
		{"Diff lines per commit in prompts", &cfg.MaxDiffLines},
		{"Chunks per embedding batch", &cfg.EmbeddingBatchSize},
		{"Lines per diff chunk", &cfg.ChunkLines},
		{"Chunks retrieved per question", &cfg.TopK},
		{"Session turns replayed", &cfg.HistoryTurns},
	}
	for _, f := range fields {
		if err := promptInt(f.label, f.v); err != nil {
			return err
		}
	}
	return nil
}

func validateSchedule(input string) error {
	if _, err := cron.ParseStandard(strings.TrimSpace(input)); err != nil {
		return fmt.Errorf("invalid schedule: %v", err)
	}
	return nil
}

func configureDashboard(cfg *config.Config) error {
	if err := promptInt("Dashboard port", &cfg.DashboardPort); err != nil {
		return err
	}
	p := promptui.Prompt{
		Label:     "Refresh schedule (cron spec or @every 30m)",
		Default:   cfg.RefreshSchedule,
		AllowEdit: true,
		Validate:  validateSchedule,
	}
	spec, err := p.Run()
	if err != nil {
		return err
	}
	cfg.RefreshSchedule = strings.TrimSpace(spec)
	return nil
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 8) + key[len(key)-4:]
}

func displaySettings(cfg *config.Config) {
	fmt.Println()
	titleColor.Println("  Current settings")
	dimColor.Println("  " + strings.Repeat("─", 40))
	rows := [][2]string{
		{"Provider", cfg.DefaultProvider},
		{"Model", orDefault(cfg.DefaultModel)},
		{"Embedding model", orDefault(cfg.EmbeddingModel)},
		{"Gemini key", maskKey(cfg.GetAPIKey(constants.ProviderGemini))},
		{"OpenAI key", maskKey(cfg.GetAPIKey(constants.ProviderOpenAI))},
		{"Ollama URL", cfg.OllamaBaseURL},
		{"OpenAI URL", cfg.OpenAIBaseURL},
		{"Commit limit", strconv.Itoa(cfg.CommitLimit)},
		{"Summary batch", strconv.Itoa(cfg.SummaryBatchSize)},
		{"Max diff lines", strconv.Itoa(cfg.MaxDiffLines)},
		{"Embedding batch", strconv.Itoa(cfg.EmbeddingBatchSize)},
		{"Chunk lines", strconv.Itoa(cfg.ChunkLines)},
		{"Top K", strconv.Itoa(cfg.TopK)},
		{"History turns", strconv.Itoa(cfg.HistoryTurns)},
		{"Dashboard port", strconv.Itoa(cfg.DashboardPort)},
		{"Refresh schedule", cfg.RefreshSchedule},
	}
	for _, r := range rows {
		accentColor.Printf("  %-18s", r[0])
		infoColor.Println(r[1])
	}
}

func orDefault(s string) string {
	if s == "" {
		return "(provider default)"
	}
	return s
}
