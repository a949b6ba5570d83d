package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ishaan812/gitinsight/internal/cache"
)

// fakeEmbedder maps text to a 2-d vector; texts containing "parser" point
// along x, everything else along y.
type fakeEmbedder struct {
	mu      sync.Mutex
	batches []int
	failOn  func(call int) bool
}

func (f *fakeEmbedder) Model() string { return "fake-embed" }

func (f *fakeEmbedder) vector(text string) []float32 {
	if strings.Contains(text, "parser") {
		return []float32{1, 0.1}
	}
	return []float32{0.1, 1}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches = append(f.batches, len(texts))
	call := len(f.batches)
	f.mu.Unlock()
	if f.failOn != nil && f.failOn(call) {
		return nil, errors.New("rate limited")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func setupPipeline(t *testing.T, emb *fakeEmbedder, commits []cache.Commit, opts PipelineOptions) (*Pipeline, *Index) {
	t.Helper()
	dir := t.TempDir()
	store := cache.Open(filepath.Join(dir, cache.FileName), nil)
	store.UpsertRaw(commits)
	ix := Open(filepath.Join(dir, FileName), emb.Model(), nil)
	return NewPipeline(emb, ix, store, nil, opts), ix
}

func testCommits() []cache.Commit {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	return []cache.Commit{
		{Hash: "aaa", Message: "Add parser", Date: base, Diff: numberedLines(250)},
		{Hash: "bbb", Message: "Tweak styles", Date: base.Add(time.Hour), Diff: numberedLines(10)},
	}
}

func TestPipelineIngestsAndIsIdempotent(t *testing.T) {
	emb := &fakeEmbedder{}
	p, ix := setupPipeline(t, emb, testCommits(), PipelineOptions{BatchSize: 2})

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// bbb: 1 chunk -> batch of 1; aaa: 3 chunks -> batches of 2 and 1.
	if fmt.Sprint(emb.batches) != "[1 2 1]" {
		t.Errorf("batch sizes = %v", emb.batches)
	}
	if res.Embedded != 4 || ix.Len() != 4 {
		t.Errorf("result = %+v, index len = %d", res, ix.Len())
	}

	calls := len(emb.batches)
	res, err = p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(emb.batches) != calls || res.Skipped != 4 || ix.Len() != 4 {
		t.Errorf("second run: result=%+v batches=%v", res, emb.batches)
	}

	reloaded := Open(ix.Path(), emb.Model(), nil)
	if reloaded.Len() != 4 {
		t.Errorf("persisted %d entries, want 4", reloaded.Len())
	}
}

func TestPipelineFailedBatchRetriedLater(t *testing.T) {
	emb := &fakeEmbedder{failOn: func(call int) bool { return call == 2 }}
	p, ix := setupPipeline(t, emb, testCommits(), PipelineOptions{BatchSize: 2})

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FailedBatches != 1 || ix.Len() != 2 {
		t.Errorf("result = %+v, len = %d", res, ix.Len())
	}
	for _, id := range []string{"aaa_chunk_0", "aaa_chunk_1"} {
		if ix.Has(id) {
			t.Errorf("%s indexed despite failed batch", id)
		}
	}

	emb.failOn = nil
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 4 {
		t.Errorf("retry left %d entries, want 4", ix.Len())
	}
}

func TestPipelineQuery(t *testing.T) {
	emb := &fakeEmbedder{}
	p, _ := setupPipeline(t, emb, testCommits(), PipelineOptions{})

	if res, err := p.Query(context.Background(), "parser", 3); err != nil || len(res) != 0 {
		t.Errorf("query on empty index = %v, %v", res, err)
	}

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	results, err := p.Query(context.Background(), "where is the parser", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Metadata.Hash != "aaa" {
		t.Errorf("results = %+v", results)
	}
}

func TestPipelineRejectsForeignNamespace(t *testing.T) {
	emb := &fakeEmbedder{}
	dir := t.TempDir()
	store := cache.Open(filepath.Join(dir, cache.FileName), nil)
	ix := Open(filepath.Join(dir, FileName), "other-model", nil)
	if _, err := NewPipeline(emb, ix, store, nil, PipelineOptions{}).Run(context.Background()); err == nil {
		t.Error("expected namespace mismatch error")
	}
}
