package vectorstore

import (
	"context"
	"fmt"

	"github.com/ishaan812/gitinsight/internal/cache"
	"github.com/ishaan812/gitinsight/internal/constants"
	"github.com/ishaan812/gitinsight/internal/llm"
	"github.com/ishaan812/gitinsight/internal/logger"
)

type PipelineOptions struct {
	// Limit restricts ingestion to the newest Limit commits; zero means all.
	Limit      int
	BatchSize  int
	ChunkLines int
	// OnProgress is called after each commit with commits handled so far.
	OnProgress func(done, total int)
}

type IngestResult struct {
	Commits       int
	Embedded      int
	Skipped       int
	FailedBatches int
}

// Pipeline embeds commit chunks into the vector index, skipping chunks that
// are already indexed.
type Pipeline struct {
	embedder llm.Embedder
	index    *Index
	store    *cache.Store
	log      *logger.Logger
	opts     PipelineOptions
}

func NewPipeline(embedder llm.Embedder, index *Index, store *cache.Store, log *logger.Logger, opts PipelineOptions) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = constants.DefaultEmbeddingBatchSize
	}
	if opts.ChunkLines <= 0 {
		opts.ChunkLines = constants.DefaultChunkLines
	}
	return &Pipeline{embedder: embedder, index: index, store: store, log: logger.OrNop(log), opts: opts}
}

// Run ingests every commit in scope. A batch flushes when it is full or when
// a commit's chunks are exhausted. A failed embedding batch is logged and
// dropped so the next run retries it; an index write failure aborts.
func (p *Pipeline) Run(ctx context.Context) (IngestResult, error) {
	var res IngestResult
	if p.index.Model() != p.embedder.Model() {
		return res, fmt.Errorf("index namespace %q does not match embedding model %q", p.index.Model(), p.embedder.Model())
	}

	existing := p.index.IDs()
	commits := p.store.List(p.opts.Limit)
	res.Commits = len(commits)

	var pending []Document
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		batch := pending
		pending = nil

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Text
		}
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err == nil && len(vectors) != len(batch) {
			err = fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(batch))
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.FailedBatches++
			p.log.Warn("embedding batch failed, chunks left for next run",
				"chunks", len(batch), "first", batch[0].ID, "error", err)
			return nil
		}

		entries := make([]Entry, len(batch))
		for i, d := range batch {
			entries[i] = Entry{ID: d.ID, Embedding: vectors[i], Text: d.Text, Metadata: d.Metadata}
		}
		if err := p.index.Upsert(entries...); err != nil {
			return err
		}
		for _, d := range batch {
			existing[d.ID] = true
		}
		res.Embedded += len(batch)
		return nil
	}

	for i, c := range commits {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		for _, doc := range Documents(c, p.opts.ChunkLines) {
			if existing[doc.ID] {
				res.Skipped++
				continue
			}
			pending = append(pending, doc)
			if len(pending) >= p.opts.BatchSize {
				if err := flush(); err != nil {
					return res, err
				}
			}
		}
		if err := flush(); err != nil {
			return res, err
		}
		if p.opts.OnProgress != nil {
			p.opts.OnProgress(i+1, len(commits))
		}
	}
	return res, nil
}

// Query embeds text and returns the topK most similar chunks.
func (p *Pipeline) Query(ctx context.Context, text string, topK int) ([]Result, error) {
	if p.index.Len() == 0 {
		return nil, nil
	}
	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return p.index.Search(vec, topK), nil
}
