package indexer

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ishaan812/gitinsight/internal/cache"
	"github.com/ishaan812/gitinsight/internal/llm"
)

// fakeClient answers Complete calls with respond and records every prompt.
type fakeClient struct {
	mu      sync.Mutex
	prompts []string
	respond func(call int, prompt string) (string, error)
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	call := len(f.prompts)
	f.mu.Unlock()
	return f.respond(call, prompt)
}

func (f *fakeClient) ChatComplete(ctx context.Context, messages []llm.Message) (string, error) {
	return f.Complete(ctx, messages[len(messages)-1].Content)
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

var commitHeaderRe = regexp.MustCompile(`Commit ([0-9a-f]+):`)

// echoSummaries replies with a JSON object summarizing every commit in the
// prompt as "summary of <hash>".
func echoSummaries(_ int, prompt string) (string, error) {
	var parts []string
	for _, m := range commitHeaderRe.FindAllStringSubmatch(prompt, -1) {
		parts = append(parts, fmt.Sprintf("%q: %q", m[1], "summary of "+m[1]))
	}
	return "```json\n{" + strings.Join(parts, ", ") + "}\n```", nil
}

var errProvider = errors.New("provider unavailable")

func hashN(i int) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(strconv.Itoa(i))))
}

func newStore(t *testing.T, commits ...cache.Commit) *cache.Store {
	t.Helper()
	s := cache.Open(filepath.Join(t.TempDir(), cache.FileName), nil)
	s.UpsertRaw(commits)
	return s
}

func makeCommits(n int, message string) []cache.Commit {
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	out := make([]cache.Commit, n)
	for i := range out {
		out[i] = cache.Commit{
			Hash:    hashN(i),
			Message: fmt.Sprintf("%s %d", message, i),
			Author:  "dev",
			Date:    base.Add(time.Duration(i) * time.Hour),
			Diff:    "+line",
		}
	}
	return out
}
