package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ishaan812/gitinsight/internal/session"
)

var (
	askSession string
	askModels  modelFlags
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the repository's history",
	Long: `Ask one question about the analyzed history. The question is routed to a
git tool, to semantic search over commit diffs, or straight to the model.

Pass --session to continue an earlier conversation.

Examples:
  gitinsight ask "Who are the main contributors?"
  gitinsight ask "How did the parser evolve?"
  gitinsight ask --session 5f0c... "And after that?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askSession, "session", "", "Session id to continue (default: a new session)")
	addModelFlags(askCmd, &askModels)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := strings.Join(args, " ")

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	if !ws.requireCache() {
		return nil
	}
	m, err := ws.connect(askModels, true)
	if err != nil {
		return err
	}

	sessionID := askSession
	if sessionID == "" {
		sessionID = session.NewID()
	}
	if err := session.ValidateID(sessionID); err != nil {
		return err
	}

	s := newSpinner("Thinking...")
	s.Start()
	answer, err := ws.agent(m, nil).Answer(ctx, sessionID, question, nil)
	s.Stop()
	if err != nil {
		return fmt.Errorf("failed to answer question: %w", err)
	}

	VerboseLog("Route: %s %s", answer.Decision.Type, answer.Decision.ToolName)
	fmt.Println()
	fmt.Print(renderMarkdown(answer.Text))
	fmt.Println()
	dimColor.Printf("  session %s\n\n", sessionID)
	return nil
}
