package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ishaan812/gitinsight/internal/logger"
)

var (
	repoPath string
	verbose  bool

	appLog = logger.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "gitinsight",
	Short: "gitinsight - Ask questions about a repository's commit history",
	Long: `gitinsight reads a repository's commit history, summarizes every commit
with an LLM, and lets you ask questions about how the project evolved.

Use 'gitinsight analyze' to build the cache, then 'gitinsight ask' or
'gitinsight chat' to query it. 'gitinsight serve' starts the dashboard API.

Data lives inside the repository's .git directory; settings live in
~/.gitinsight/config.json.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logger.New("dev", verbose)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		appLog = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		appLog.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&repoPath, "repo", "C", ".", "Repository to analyze")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func IsVerbose() bool {
	return verbose
}

func VerboseLog(format string, args ...interface{}) {
	if verbose {
		appLog.Debugf("[DEBUG] "+format, args...)
	}
}
