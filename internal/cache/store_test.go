package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 12, 0, 0, 0, time.UTC)
}

func TestOpenTolerantOfBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{name: "missing file", content: "", want: 0},
		{name: "corrupt json", content: "{not json", want: 0},
		{name: "object instead of array", content: `{"hash":"abc"}`, want: 0},
		{name: "empty array", content: `[]`, want: 0},
		{
			name:    "bad element dropped",
			content: `[{"hash":"a1","message":"m","author":"x","date":"2025-03-01T00:00:00Z"},{"message":"no hash"},{"hash":"b2","date":"garbage"}]`,
			want:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			if tt.content != "" {
				if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
					t.Fatal(err)
				}
			}
			s := Open(path, nil)
			if got := s.Len(); got != tt.want {
				t.Errorf("Len() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUpsertRawDeduplicates(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), FileName), nil)

	added := s.UpsertRaw([]Commit{
		{Hash: "a", Message: "first", Date: day(1)},
		{Hash: "b", Message: "second", Date: day(2)},
		{Hash: "a", Message: "dup in batch", Date: day(3)},
		{Hash: OverallHash, Message: "reserved"},
		{Hash: "", Message: "empty"},
	})
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}

	s.SetSummary("a", "kept summary")
	if n := s.UpsertRaw([]Commit{{Hash: "a", Message: "replacement", Date: day(9)}}); n != 0 {
		t.Errorf("re-upsert added %d, want 0", n)
	}
	got, _ := s.Get("a")
	if got.Message != "first" || got.Summary != "kept summary" {
		t.Errorf("existing record modified: %+v", got)
	}
}

func TestListOrderAndLimit(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), FileName), nil)
	s.UpsertRaw([]Commit{
		{Hash: "old", Date: day(1)},
		{Hash: "new", Date: day(5)},
		{Hash: "mid", Date: day(3)},
	})

	all := s.List(0)
	want := []string{"new", "mid", "old"}
	for i, c := range all {
		if c.Hash != want[i] {
			t.Errorf("List(0)[%d] = %s, want %s", i, c.Hash, want[i])
		}
	}

	if got := s.List(2); len(got) != 2 || got[1].Hash != "mid" {
		t.Errorf("List(2) = %+v", got)
	}
}

func TestSetSummaryOnce(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), FileName), nil)
	s.UpsertRaw([]Commit{{Hash: "a", Date: day(1)}})

	if !s.SetSummary("a", "one") {
		t.Fatal("first SetSummary should succeed")
	}
	if s.SetSummary("a", "two") {
		t.Error("second SetSummary should be rejected")
	}
	if s.SetSummary("missing", "x") {
		t.Error("SetSummary on unknown hash should be rejected")
	}
	got, _ := s.Get("a")
	if got.Summary != "one" {
		t.Errorf("summary = %q, want %q", got.Summary, "one")
	}
}

func TestSaveRoundTripKeepsSingletons(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s := Open(path, nil)
	s.UpsertRaw([]Commit{{Hash: "a", Message: "m", Author: "dev", Date: day(1), Diff: "+x"}})
	s.PutOverall(OverallSummary{Summary: "v1", NumberOfCommits: 10, Date: day(2)})
	s.PutOverall(OverallSummary{Summary: "v2", NumberOfCommits: 10, Date: day(3)})
	s.PutChart(ChartSnapshot{Config: ChartConfig{Type: "line"}, Date: day(3)})
	s.PutChart(ChartSnapshot{Config: ChartConfig{Type: "line", Points: []ChartPoint{{Date: "2025-03-01", Count: 1}}}, Date: day(4)})

	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := Open(path, nil)
	if reloaded.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reloaded.Len())
	}

	records := reloaded.Records()
	var overalls, charts int
	for _, r := range records {
		switch r.Kind {
		case KindOverall:
			overalls++
		case KindChart:
			charts++
		}
	}
	if overalls != 1 || charts != 1 {
		t.Errorf("singletons: overall=%d chart=%d, want 1 each", overalls, charts)
	}

	o, ok := reloaded.Overall()
	if !ok || o.Summary != "v2" {
		t.Errorf("Overall() = %+v, %v", o, ok)
	}
	c, ok := reloaded.Chart()
	if !ok || len(c.Config.Points) != 1 {
		t.Errorf("Chart() = %+v, %v", c, ok)
	}
}

func TestPutSingletonRejectsCommitKind(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), FileName), nil)
	if err := s.PutSingleton(Record{Kind: KindCommit, Commit: &Commit{Hash: "a"}}); err == nil {
		t.Error("expected error for commit kind")
	}
}

func TestReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s := Open(path, nil)
	s.UpsertRaw([]Commit{{Hash: "a", Date: day(1)}})
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.Len() != 0 {
		t.Error("store not empty after Reset")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("cache file still present: %v", err)
	}
}
