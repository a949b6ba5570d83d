package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ishaan812/gitinsight/internal/db"
	"github.com/ishaan812/gitinsight/internal/vectorstore"
)

var (
	exportOutput string
	exportQuery  string
	exportModels modelFlags
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export analyzed data for other tools",
}

var exportDuckDBCmd = &cobra.Command{
	Use:   "duckdb",
	Short: "Write the commit cache and vector index into a DuckDB file",
	Long: `Write the cached commits, overall summary and embedded chunks into DuckDB
tables for ad-hoc SQL. The export replaces earlier contents of the file.

Chunks are exported for the configured embedding model.

Examples:
  gitinsight export duckdb
  gitinsight export duckdb -o insights.duckdb
  gitinsight export duckdb --query "SELECT author, COUNT(*) FROM commits GROUP BY 1"`,
	RunE: runExportDuckDB,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportDuckDBCmd)

	exportDuckDBCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "DuckDB file (default .git/"+db.DefaultFileName+")")
	exportDuckDBCmd.Flags().StringVarP(&exportQuery, "query", "q", "", "Run a SELECT against the export and print the rows")
	exportDuckDBCmd.Flags().StringVar(&exportModels.provider, "provider", "", "Provider whose embedding namespace to export")
	exportDuckDBCmd.Flags().StringVar(&exportModels.embeddingModel, "embedding-model", "", "Embedding namespace to export")
}

func runExportDuckDB(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	if !ws.requireCache() {
		return nil
	}

	// The export only needs the namespace name, so a provider that cannot be
	// reached still exports commits.
	var index *vectorstore.Index
	if llmCfg, err := ws.cfg.LLMConfig(exportModels.provider, "", exportModels.embeddingModel); err == nil && llmCfg.EmbeddingModel != "" {
		index = vectorstore.Open(ws.paths.Vectors, llmCfg.EmbeddingModel, appLog)
	} else if err != nil {
		VerboseLog("Skipping chunks: %v", err)
	}

	path := exportOutput
	if path == "" {
		path = filepath.Join(ws.repo.GitDir(), db.DefaultFileName)
	}
	database, err := db.Open(path)
	if err != nil {
		return err
	}
	defer database.Close()

	s := newSpinner("Exporting...")
	s.Start()
	res, err := db.Export(ctx, database, ws.store, index)
	s.Stop()
	if err != nil {
		return err
	}

	fmt.Println()
	successColor.Printf("  Exported to %s\n", path)
	infoColor.Printf("    commits: %d  chunks: %d  overall summary: %t\n\n", res.Commits, res.Chunks, res.Overall)

	if exportQuery == "" {
		dimColor.Println("  " + strings.ReplaceAll(db.SchemaDescription, "\n", "\n  "))
		fmt.Println()
		return nil
	}
	columns, rows, err := db.ExecuteQuery(ctx, database, exportQuery)
	if err != nil {
		return err
	}
	printRows(columns, rows)
	return nil
}

func printRows(columns []string, rows []map[string]any) {
	accentColor.Println("  " + strings.Join(columns, " | "))
	dimColor.Println("  " + strings.Repeat("─", 40))
	for _, row := range rows {
		vals := make([]string, len(columns))
		for i, c := range columns {
			vals[i] = fmt.Sprint(row[c])
		}
		fmt.Println("  " + strings.Join(vals, " | "))
	}
	dimColor.Printf("  (%d rows)\n\n", len(rows))
}
