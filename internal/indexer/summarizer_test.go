package indexer

import (
	"context"
	"strings"
	"testing"

	"github.com/ishaan812/gitinsight/internal/cache"
)

func TestIsTrivial(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"Bump version to 1.2", true},
		{"Fix typo in docs", true},
		{"Update README", true},
		{"Merge branch 'main'", true},
		{"Add vector index", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsTrivial(tt.message); got != tt.want {
			t.Errorf("IsTrivial(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestTruncateDiff(t *testing.T) {
	lines := make([]string, 150)
	for i := range lines {
		lines[i] = "+x"
	}
	diff := strings.Join(lines, "\n")

	got := TruncateDiff(diff, 100)
	if !strings.HasSuffix(got, DiffTruncatedMarker) {
		t.Errorf("missing truncation marker")
	}
	if n := strings.Count(strings.TrimSuffix(got, DiffTruncatedMarker), "\n"); n != 99 {
		t.Errorf("kept %d newlines, want 99", n)
	}
	if short := TruncateDiff("+a\n+b", 100); short != "+a\n+b" {
		t.Errorf("short diff changed: %q", short)
	}
}

func TestSchedulerTrivialCommitsNeverSummarized(t *testing.T) {
	store := newStore(t, cache.Commit{Hash: hashN(0), Message: "Bump deps", Diff: "+x"})
	client := &fakeClient{respond: echoSummaries}
	s := NewScheduler(client, store, nil, SchedulerOptions{})

	for run := 1; run <= 2; run++ {
		res, err := s.Run(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if res.Trivial != 1 || res.Summarized != 0 || res.Batches != 0 {
			t.Errorf("run %d result = %+v", run, res)
		}
	}
	if client.calls() != 0 {
		t.Errorf("model called %d times for trivial commit", client.calls())
	}
	if got, _ := store.Get(hashN(0)); got.Summary != "" {
		t.Errorf("trivial commit summary = %q, want empty", got.Summary)
	}
}

func TestSchedulerBatchesAndIdempotence(t *testing.T) {
	store := newStore(t, makeCommits(23, "feature")...)
	client := &fakeClient{respond: echoSummaries}
	var progress []int

	s := NewScheduler(client, store, nil, SchedulerOptions{
		BatchSize:  10,
		OnProgress: func(done, total int) { progress = append(progress, done) },
	})
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.calls() != 3 || res.Batches != 3 || res.Summarized != 23 {
		t.Errorf("calls=%d result=%+v", client.calls(), res)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Errorf("progress went backwards: %v", progress)
		}
	}

	for _, c := range store.List(0) {
		if c.Summary != "summary of "+c.Hash {
			t.Errorf("commit %s summary = %q", c.Hash[:8], c.Summary)
		}
	}

	reloaded := cache.Open(store.Path(), nil)
	for _, c := range reloaded.List(0) {
		if c.Summary == "" {
			t.Errorf("summary for %s not persisted", c.Hash[:8])
		}
	}

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if client.calls() != 3 {
		t.Errorf("second run made %d extra calls", client.calls()-3)
	}
}

func TestSchedulerFailedBatchIsolated(t *testing.T) {
	store := newStore(t, makeCommits(20, "feature")...)
	client := &fakeClient{respond: func(call int, prompt string) (string, error) {
		if call == 1 {
			return "", errProvider
		}
		return echoSummaries(call, prompt)
	}}

	res, err := NewScheduler(client, store, nil, SchedulerOptions{BatchSize: 10}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FailedBatches != 1 || res.Summarized != 10 {
		t.Errorf("result = %+v", res)
	}

	missing := 0
	for _, c := range store.List(0) {
		if c.Summary == "" {
			missing++
		}
	}
	if missing != 10 {
		t.Errorf("%d commits unsummarized, want 10", missing)
	}
}

func TestSchedulerUnparseableReply(t *testing.T) {
	store := newStore(t, makeCommits(3, "feature")...)
	client := &fakeClient{respond: func(int, string) (string, error) {
		return "I'm sorry, I can't do that.", nil
	}}

	res, err := NewScheduler(client, store, nil, SchedulerOptions{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FailedBatches != 1 || res.Summarized != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestSchedulerIgnoresForeignAndAbbreviatedHashes(t *testing.T) {
	commits := makeCommits(2, "feature")
	store := newStore(t, commits...)
	client := &fakeClient{respond: func(int, string) (string, error) {
		return `{"` + commits[0].Hash[:10] + `": "short key", "ffffffffffffffffffffffffffffffffffffffff": "stranger"}`, nil
	}}

	res, err := NewScheduler(client, store, nil, SchedulerOptions{}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Summarized != 1 {
		t.Errorf("result = %+v", res)
	}
	got, _ := store.Get(commits[0].Hash)
	if got.Summary != "short key" {
		t.Errorf("summary = %q", got.Summary)
	}
	if store.Len() != 2 {
		t.Errorf("foreign hash created a record")
	}
}

func TestBuildBatchPromptTruncatesDiff(t *testing.T) {
	c := cache.Commit{Hash: hashN(0), Message: "feature", Diff: strings.Repeat("+x\n", 300)}
	s := NewScheduler(&fakeClient{}, newStore(t), nil, SchedulerOptions{MaxDiffLines: 100})
	prompt := s.BuildBatchPrompt([]cache.Commit{c})
	if !strings.Contains(prompt, DiffTruncatedMarker) {
		t.Error("prompt diff not truncated")
	}
	if !strings.Contains(prompt, "Commit "+c.Hash+":") {
		t.Error("prompt missing commit header")
	}
}
