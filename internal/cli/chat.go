package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ishaan812/gitinsight/internal/chat"
	"github.com/ishaan812/gitinsight/internal/session"
)

var (
	chatSession string
	chatModels  modelFlags
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation about the repository's history",
	Long: `Start an interactive conversation. Every exchange is stored as a session
inside .git so it can be resumed later or browsed from the dashboard.

Type /new to start a fresh session and /exit (or ctrl+d) to quit.

Examples:
  gitinsight chat
  gitinsight chat --session 5f0c...`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatSession, "session", "", "Resume an existing session")
	addModelFlags(chatCmd, &chatModels)
}

func runChat(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	if !ws.requireCache() {
		return nil
	}
	m, err := ws.connect(chatModels, true)
	if err != nil {
		return err
	}
	agent := ws.agent(m, nil)

	sessionID := chatSession
	if sessionID == "" {
		sessionID = session.NewID()
	} else if err := session.ValidateID(sessionID); err != nil {
		return err
	}

	fmt.Println()
	titleColor.Printf("  gitinsight chat · %s\n", ws.repo.Name())
	dimColor.Printf("  session %s · /new for a fresh session · /exit to quit\n", sessionID)

	prompt := promptui.Prompt{Label: "you"}
	for {
		fmt.Println()
		line, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				fmt.Println()
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "/exit", "/quit", "exit", "quit":
			return nil
		case "/new":
			sessionID = session.NewID()
			dimColor.Printf("  new session %s\n", sessionID)
			continue
		}

		if err := streamAnswer(agent, sessionID, line); err != nil {
			warnColor.Printf("\n  %v\n", err)
		}
	}
}

// streamAnswer prints the reply as it arrives. ctrl+c cancels the answer
// without leaving the chat.
func streamAnswer(agent *chat.Agent, sessionID, query string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := newSpinner("Thinking...")
	s.Start()
	var once sync.Once
	stopSpinner := func() {
		once.Do(func() {
			s.Stop()
			fmt.Println()
			accentColor.Print("gitinsight ")
		})
	}

	_, err := agent.Answer(ctx, sessionID, query, func(delta string) error {
		stopSpinner()
		fmt.Print(delta)
		return nil
	})
	stopSpinner()
	fmt.Println()
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("answer canceled")
	}
	return err
}
