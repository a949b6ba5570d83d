package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ishaan812/gitinsight/internal/git"
	"github.com/ishaan812/gitinsight/internal/llm"
	"github.com/ishaan812/gitinsight/internal/vectorstore"
)

// fakeClient answers router prompts with route and file-path prompts with
// path.
type fakeClient struct {
	mu      sync.Mutex
	route   string
	path    string
	err     error
	prompts []string
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(prompt, "Tracked files:") {
		return f.path, nil
	}
	return f.route, nil
}

func (f *fakeClient) ChatComplete(ctx context.Context, messages []llm.Message) (string, error) {
	return f.Complete(ctx, messages[len(messages)-1].Content)
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeStreamer struct {
	fragments []string
	err       error
	got       []llm.Message
}

func (f *fakeStreamer) StreamChat(ctx context.Context, messages []llm.Message, onDelta func(string) error) (string, error) {
	f.got = messages
	if f.err != nil {
		return "", f.err
	}
	var b strings.Builder
	for _, frag := range f.fragments {
		if err := onDelta(frag); err != nil {
			return b.String(), err
		}
		b.WriteString(frag)
	}
	return b.String(), nil
}

type fakeRetriever struct {
	results []vectorstore.Result
	err     error
	queries []string
}

func (f *fakeRetriever) Query(ctx context.Context, text string, topK int) ([]vectorstore.Result, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > topK {
		return f.results[:topK], nil
	}
	return f.results, nil
}

var errGit = errors.New("object not found")

func day(d int) time.Time {
	return time.Date(2025, 3, d, 10, 0, 0, 0, time.UTC)
}

// fakeHistory is a three-commit repository.
type fakeHistory struct {
	files []string
}

var (
	rootCommit = git.CommitInfo{Hash: "1111111aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Message: "initial commit", AuthorName: "Alice", AuthorEmail: "alice@example.com", CommittedAt: day(1)}
	utilCommit = git.CommitInfo{Hash: "2222222bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", Message: "add util package", AuthorName: "Bob", AuthorEmail: "bob@example.com", CommittedAt: day(2)}
	fixCommit  = git.CommitInfo{Hash: "3333333ccccccccccccccccccccccccccccccccc", Message: "fix crash in main\n\nlonger body", AuthorName: "Alice", AuthorEmail: "alice@example.com", CommittedAt: day(3),
		Diff: "--- a/main.go\n+++ b/main.go\n+// fixed", Stats: git.CommitStats{TotalAdditions: 1, FilesChanged: 1}}
)

func (h *fakeHistory) RootCommits() ([]git.CommitInfo, error) {
	return []git.CommitInfo{rootCommit}, nil
}

func (h *fakeHistory) LastCommit() (git.CommitInfo, error) {
	return fixCommit, nil
}

func (h *fakeHistory) Contributors() ([]git.Contributor, error) {
	return []git.Contributor{
		{Name: "Alice", Email: "alice@example.com", Commits: 2, First: day(1), Last: day(3)},
		{Name: "Bob", Email: "bob@example.com", Commits: 1, First: day(2), Last: day(2)},
	}, nil
}

func (h *fakeHistory) SearchCommits(keyword string, max int) ([]git.CommitInfo, error) {
	var out []git.CommitInfo
	for _, c := range []git.CommitInfo{fixCommit, utilCommit, rootCommit} {
		if strings.Contains(strings.ToLower(c.Message), strings.ToLower(keyword)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (h *fakeHistory) CommitDetails(ref string) (git.CommitInfo, error) {
	if strings.HasPrefix(fixCommit.Hash, ref) {
		return fixCommit, nil
	}
	return git.CommitInfo{}, errGit
}

func (h *fakeHistory) FileHistory(path string, max int) ([]git.FileRevision, error) {
	if path != "main.go" {
		return nil, nil
	}
	return []git.FileRevision{
		{Commit: fixCommit, Patch: fixCommit.Diff, Additions: 1},
		{Commit: rootCommit, Patch: "+package main", Additions: 1},
	}, nil
}

func (h *fakeHistory) TrackedFiles() ([]string, error) {
	return h.files, nil
}

func (h *fakeHistory) Stats() (git.RepoStats, error) {
	return git.RepoStats{
		TotalCommits: 3, Contributors: 2, TrackedFiles: len(h.files),
		FirstCommit: day(1), LastCommit: day(3), BusiestDay: "2025-03-01", BusiestDayCommits: 1,
	}, nil
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{files: []string{"README.md", "cmd/app/main.go", "internal/util/strings.go", "main.go", "pkg/util.go"}}
}
