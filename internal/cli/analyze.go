package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ishaan812/gitinsight/internal/insight"
	"github.com/ishaan812/gitinsight/internal/llm"
	"github.com/ishaan812/gitinsight/internal/vectorstore"
)

var (
	analyzeLimit   int
	analyzeSince   string
	analyzeNoEmbed bool
	analyzeModels  modelFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarize new commits and refresh the insight cache",
	Long: `Read the repository's history, summarize commits that are not cached yet,
regenerate the project summary and activity chart, and embed commit diffs for
semantic search.

Runs are incremental: cached commits and embedded chunks are skipped, so an
interrupted run picks up where it stopped.

Examples:
  gitinsight analyze
  gitinsight analyze --limit 500
  gitinsight analyze --since 2025-01-01
  gitinsight analyze --provider gemini --model gemini-2.5-pro`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVarP(&analyzeLimit, "limit", "n", 0, "Analyze the newest N commits (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeSince, "since", "", "Analyze commits since a date (YYYY-MM-DD)")
	analyzeCmd.Flags().BoolVar(&analyzeNoEmbed, "no-embed", false, "Skip embedding diffs")
	addModelFlags(analyzeCmd, &analyzeModels)
}

func addModelFlags(cmd *cobra.Command, f *modelFlags) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "LLM provider (gemini, openai, ollama)")
	cmd.Flags().StringVar(&f.model, "model", "", "Generation model")
	cmd.Flags().StringVar(&f.embeddingModel, "embedding-model", "", "Embedding model")
}

// parseRange validates the commit range flags. A zero time means no date
// bound.
func parseRange(limitSet bool, limit int, since string) (time.Time, error) {
	if limitSet && since != "" {
		return time.Time{}, fmt.Errorf("--limit and --since cannot be used together")
	}
	if limitSet && limit < 1 {
		return time.Time{}, fmt.Errorf("--limit must be at least 1")
	}
	if since == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", since, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since date %q: expected YYYY-MM-DD", since)
	}
	return t, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	since, err := parseRange(cmd.Flags().Changed("limit"), analyzeLimit, analyzeSince)
	if err != nil {
		return err
	}

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	if !ws.cfg.OnboardingComplete && analyzeModels.provider == "" && isInteractive() {
		if err := firstRunSetup(ws.cfg); err != nil {
			return err
		}
	}

	m, err := ws.connect(analyzeModels, !analyzeNoEmbed)
	if err != nil {
		return err
	}

	limit := ws.cfg.CommitLimit
	if analyzeLimit > 0 {
		limit = analyzeLimit
	}
	if !since.IsZero() {
		if limit, err = ws.repo.CountSince(since); err != nil {
			return fmt.Errorf("failed to count commits: %w", err)
		}
		if limit == 0 {
			fmt.Println()
			dimColor.Printf("  No commits since %s.\n\n", analyzeSince)
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println()
	titleColor.Printf("  Analyzing %s\n", ws.repo.Name())
	dimColor.Printf("  %s · %s · newest %d commits\n\n", m.cfg.Provider, m.cfg.Model, limit)

	var index *vectorstore.Index
	var embedder llm.Embedder
	if m.embedder != nil {
		embedder = m.embedder
		index = ws.openIndex(m.embedder)
	}

	s := newSpinner("")
	svc := insight.New(ws.repo, ws.store, m.client, embedder, index, appLog, insight.Options{
		Limit:              limit,
		Since:              since,
		SummaryBatchSize:   ws.cfg.SummaryBatchSize,
		MaxDiffLines:       ws.cfg.MaxDiffLines,
		EmbeddingBatchSize: ws.cfg.EmbeddingBatchSize,
		ChunkLines:         ws.cfg.ChunkLines,
		OnStage: func(st insight.Stage) {
			s.Lock()
			s.Suffix = " " + stageLabel(st)
			s.Unlock()
			if !s.Active() {
				s.Start()
			}
		},
		OnProgress: func(st insight.Stage, done, total int) {
			s.Lock()
			s.Suffix = fmt.Sprintf(" %s (%d/%d)", stageLabel(st), done, total)
			s.Unlock()
		},
	})

	rep, err := svc.Refresh(ctx)
	s.Stop()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			warnColor.Println("  Interrupted. Progress so far is saved.")
			return nil
		}
		return err
	}

	printReport(rep)
	return nil
}

func stageLabel(st insight.Stage) string {
	switch st {
	case insight.StageFetch:
		return "Reading history"
	case insight.StageSummarize:
		return "Summarizing commits"
	case insight.StageOverall:
		return "Writing project summary"
	case insight.StageChart:
		return "Building activity chart"
	case insight.StageIngest:
		return "Embedding diffs"
	default:
		return string(st)
	}
}

func printReport(rep insight.Report) {
	successColor.Printf("  Analysis complete in %s\n\n", rep.Duration.Round(time.Millisecond))
	infoColor.Printf("    New commits:     %d\n", rep.Fetched)
	infoColor.Printf("    Summarized:      %d (%d trivial skipped)", rep.Summary.Summarized, rep.Summary.Trivial)
	if rep.Summary.FailedBatches > 0 {
		warnColor.Printf("  (%d batches failed, rerun to retry)", rep.Summary.FailedBatches)
	}
	fmt.Println()
	infoColor.Printf("    Project summary: %s\n", rep.Overall)
	infoColor.Printf("    Active days:     %d\n", rep.Days)
	if rep.Embedded {
		infoColor.Printf("    Chunks embedded: %d (skipped %d)", rep.Ingest.Embedded, rep.Ingest.Skipped)
		if rep.Ingest.FailedBatches > 0 {
			warnColor.Printf("  (%d batches failed, rerun to retry)", rep.Ingest.FailedBatches)
		}
		fmt.Println()
	}
	fmt.Println()
	dimColor.Println("  Next: gitinsight ask \"what changed recently?\"")
	fmt.Println()
}
