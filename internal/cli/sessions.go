package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ishaan812/gitinsight/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List, show and delete chat sessions",
	Long: `Manage the chat sessions stored in .git/gitinsight_sessions.

Examples:
  gitinsight sessions
  gitinsight sessions show <id>
  gitinsight sessions delete <id>`,
	RunE: runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	infos, err := ws.sessions.List()
	if err != nil {
		return err
	}

	fmt.Println()
	if len(infos) == 0 {
		dimColor.Println("  No sessions yet. Start one with 'gitinsight chat'.")
		fmt.Println()
		return nil
	}
	titleColor.Printf("  Sessions (%d)\n", len(infos))
	dimColor.Println("  " + strings.Repeat("─", 50))
	for _, info := range infos {
		accentColor.Printf("  %s  ", info.ID)
		infoColor.Print(info.Title)
		dimColor.Printf("  %d messages · %s\n", info.MessageCount, info.UpdatedAt.Local().Format("Jan 2 15:04"))
	}
	fmt.Println()
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	id := args[0]
	if !ws.sessions.Exists(id) {
		if err := session.ValidateID(id); err != nil {
			return err
		}
		return fmt.Errorf("session %s: %w", id, session.ErrNotFound)
	}
	turns, err := ws.sessions.Load(id)
	if err != nil {
		return err
	}

	fmt.Println()
	titleColor.Printf("  %s\n", session.Title(turns))
	for _, t := range turns {
		fmt.Println()
		if t.Role == session.RoleUser {
			accentColor.Println("  you")
			fmt.Printf("  %s\n", t.Text)
			continue
		}
		successColor.Println("  gitinsight")
		fmt.Print(renderMarkdown(t.Text))
	}
	fmt.Println()
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	if err := ws.sessions.Delete(args[0]); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return fmt.Errorf("session %s does not exist", args[0])
		}
		return err
	}
	successColor.Printf("  Deleted session %s\n", args[0])
	return nil
}
