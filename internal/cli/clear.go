package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the cache, vector index and sessions",
	Long: `Remove everything gitinsight stored inside the repository's .git
directory: the commit cache, the vector index and all chat sessions.
This cannot be undone.

Examples:
  gitinsight clear            # asks for confirmation
  gitinsight clear --force    # no confirmation`,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)

	clearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "Skip confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}

	infos, err := ws.sessions.List()
	if err != nil {
		return err
	}
	_, vecErr := os.Stat(ws.paths.Vectors)
	hasVectors := vecErr == nil

	fmt.Println()
	warnColor.Printf("  Clear gitinsight data for %s\n\n", ws.repo.Name())
	dimColor.Println("  This will delete:")
	fmt.Printf("    %d cached commits\n", ws.store.Len())
	if hasVectors {
		fmt.Printf("    the vector index (%s)\n", ws.paths.Vectors)
	}
	fmt.Printf("    %d sessions\n", len(infos))
	fmt.Println()

	if ws.store.Len() == 0 && !hasVectors && len(infos) == 0 {
		dimColor.Println("  Nothing to clear.")
		fmt.Println()
		return nil
	}

	if !clearForce {
		p := promptui.Prompt{Label: "Delete all gitinsight data", IsConfirm: true}
		if _, err := p.Run(); err != nil {
			if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				dimColor.Println("  Canceled.")
				fmt.Println()
				return nil
			}
			return err
		}
	}

	if err := ws.store.Reset(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	if err := os.Remove(ws.paths.Vectors); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear vector index: %w", err)
	}
	if err := ws.sessions.Reset(); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	successColor.Println("  Cleared.")
	fmt.Println()
	return nil
}
