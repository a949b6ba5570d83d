package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchTopK   int
	searchModels modelFlags
)

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Semantic search over embedded commit diffs",
	Long: `Embed the query and print the most similar diff chunks with their
similarity scores. Requires a prior 'gitinsight analyze' with embeddings on.

Examples:
  gitinsight search "retry logic for uploads"
  gitinsight search -k 10 "config parsing"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVarP(&searchTopK, "top", "k", 0, "Number of chunks to show (default from config)")
	addModelFlags(searchCmd, &searchModels)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := strings.Join(args, " ")

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	m, err := ws.connect(searchModels, true)
	if err != nil {
		return err
	}

	index := ws.openIndex(m.embedder)
	if index.Len() == 0 {
		fmt.Println()
		dimColor.Printf("  No chunks indexed for %s. Run 'gitinsight analyze' first.\n\n", m.embedder.Model())
		return nil
	}

	topK := searchTopK
	if topK <= 0 {
		topK = ws.cfg.TopK
	}
	results, err := ws.pipeline(m.embedder, index).Query(ctx, query, topK)
	if err != nil {
		return err
	}

	fmt.Println()
	titleColor.Printf("  Search results for: %s\n", query)
	dimColor.Println("  " + strings.Repeat("─", 50))
	for i, r := range results {
		fmt.Println()
		accentColor.Printf("  %d. ", i+1)
		infoColor.Printf("%s ", r.ID)
		successColor.Printf("%.3f\n", r.Similarity)
		md := r.Metadata
		dimColor.Printf("     %s · %s · %s\n", md.Author, md.Date.UTC().Format("2006-01-02"), firstLine(md.Message))
		if md.Summary != "" {
			fmt.Printf("     %s\n", md.Summary)
		}
		for _, line := range previewLines(r.Text, 6) {
			dimColor.Printf("     │ %s\n", line)
		}
	}
	fmt.Println()
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// previewLines returns up to n non-empty lines of a chunk after its header.
func previewLines(text string, n int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
		if len(out) == n {
			break
		}
	}
	return out
}
