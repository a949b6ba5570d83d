package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ishaan812/gitinsight/internal/tui"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Browse analyzed commits day by day",
	Long: `Opens a full-screen terminal UI over the commit cache. Days are listed
newest first; open a day to see its commits and open a commit to read its
summary, message and diff.

Examples:
  gitinsight console`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	if !ws.requireCache() {
		return nil
	}
	if !isInteractive() {
		return fmt.Errorf("console needs an interactive terminal")
	}

	overall := ""
	if o, ok := ws.store.Overall(); ok {
		overall = o.Summary
	}
	return tui.RunConsole(ws.repo.Name(), overall, ws.store.List(ws.cfg.CommitLimit))
}
