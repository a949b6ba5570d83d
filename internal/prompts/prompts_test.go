package prompts

import (
	"strings"
	"testing"
)

func TestBuildCommitBatchPrompt(t *testing.T) {
	entry := BuildCommitEntry("abc123", "Fix parser\n", "+ok")
	got := BuildCommitBatchPrompt(entry)

	for _, want := range []string{"Commit abc123:", "Message: Fix parser", "Diff:\n+ok", `{"<commit_hash>"`} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(got, "%!") {
		t.Errorf("format verb leaked into prompt: %s", got)
	}
}

func TestBuildOverallSummaryPrompt(t *testing.T) {
	got := BuildOverallSummaryPrompt([]string{"Added CLI", " Fixed bug "})
	if !strings.Contains(got, "- Added CLI\n- Fixed bug") {
		t.Errorf("summaries not listed: %s", got)
	}
}

func TestBuildAnswerPromptEmptyContext(t *testing.T) {
	got := BuildAnswerPrompt("  ", "who wrote this?")
	if !strings.Contains(got, NoContext) || !strings.Contains(got, "who wrote this?") {
		t.Errorf("unexpected prompt: %s", got)
	}
}

func TestTemplatesHaveNoStrayVerbs(t *testing.T) {
	prompts := []string{
		BuildRouterPrompt("- getFirstCommit: first commit", "q"),
		BuildFilePathPrompt("q", "main.go", []string{"cmd/main.go"}),
	}
	for _, p := range prompts {
		if strings.Contains(p, "%!") {
			t.Errorf("format verb leaked: %s", p)
		}
	}
}
