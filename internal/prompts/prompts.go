package prompts

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed commit_batch.md
var commitBatchPromptTemplate string

//go:embed overall_summary.md
var overallSummaryPromptTemplate string

//go:embed router.md
var routerPromptTemplate string

//go:embed file_path.md
var filePathPromptTemplate string

//go:embed answer.md
var answerPromptTemplate string

// NoContext is placed in the answer prompt when routing produced nothing.
const NoContext = "(no additional context)"

// BuildCommitBatchPrompt asks for a hash-keyed JSON object of summaries.
// commits is the pre-rendered list of commit entries.
func BuildCommitBatchPrompt(commits string) string {
	return fmt.Sprintf(strings.TrimSpace(commitBatchPromptTemplate), commits)
}

// BuildCommitEntry renders one commit for the batch prompt.
func BuildCommitEntry(hash, message, diff string) string {
	return fmt.Sprintf("Commit %s:\nMessage: %s\nDiff:\n%s", hash, strings.TrimSpace(message), diff)
}

func BuildOverallSummaryPrompt(summaries []string) string {
	var b strings.Builder
	for _, s := range summaries {
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(s))
		b.WriteString("\n")
	}
	return fmt.Sprintf(strings.TrimSpace(overallSummaryPromptTemplate), strings.TrimRight(b.String(), "\n"))
}

func BuildRouterPrompt(tools, question string) string {
	return fmt.Sprintf(strings.TrimSpace(routerPromptTemplate), tools, question)
}

func BuildFilePathPrompt(question, mentioned string, trackedFiles []string) string {
	return fmt.Sprintf(strings.TrimSpace(filePathPromptTemplate), question, mentioned, strings.Join(trackedFiles, "\n"))
}

func BuildAnswerPrompt(context, question string) string {
	if strings.TrimSpace(context) == "" {
		context = NoContext
	}
	return fmt.Sprintf(strings.TrimSpace(answerPromptTemplate), context, question)
}
