package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ishaan812/gitinsight/internal/cache"
	"github.com/ishaan812/gitinsight/internal/constants"
	"github.com/ishaan812/gitinsight/internal/llm"
	"github.com/ishaan812/gitinsight/internal/logger"
	"github.com/ishaan812/gitinsight/internal/prompts"
)

// DiffTruncatedMarker is appended when a diff is cut for a prompt.
const DiffTruncatedMarker = "\n[...diff truncated]"

// minHashPrefix is the shortest abbreviated hash accepted in model replies.
const minHashPrefix = 7

// IsTrivial reports whether a commit message marks housekeeping work that
// is never sent for summarization.
func IsTrivial(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range constants.TrivialKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// TruncateDiff keeps the first maxLines lines of diff.
func TruncateDiff(diff string, maxLines int) string {
	if maxLines <= 0 {
		return diff
	}
	lines := strings.Split(diff, "\n")
	if len(lines) <= maxLines {
		return diff
	}
	return strings.Join(lines[:maxLines], "\n") + DiffTruncatedMarker
}

type SchedulerOptions struct {
	// Limit restricts work to the newest Limit commits; zero means all.
	Limit        int
	BatchSize    int
	MaxDiffLines int
	CallTimeout  time.Duration
	// OnProgress is called after each batch with commits handled so far.
	OnProgress func(done, total int)
}

// SummaryResult reports what a scheduler run did.
type SummaryResult struct {
	Pending       int
	Trivial       int
	Summarized    int
	Batches       int
	FailedBatches int
}

// Scheduler fills in missing commit summaries, batching non-trivial commits
// into single model calls and checkpointing the cache after every batch.
type Scheduler struct {
	client llm.Client
	store  *cache.Store
	log    *logger.Logger
	opts   SchedulerOptions
}

func NewScheduler(client llm.Client, store *cache.Store, log *logger.Logger, opts SchedulerOptions) *Scheduler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = constants.DefaultSummaryBatchSize
	}
	if opts.MaxDiffLines <= 0 {
		opts.MaxDiffLines = constants.DefaultMaxDiffLines
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 120 * time.Second
	}
	return &Scheduler{client: client, store: store, log: logger.OrNop(log), opts: opts}
}

// Run summarizes every unsummarized commit in scope. A failed batch is
// logged and skipped; its commits stay unsummarized for the next run. Only
// a cache write failure or cancellation aborts the run.
func (s *Scheduler) Run(ctx context.Context) (SummaryResult, error) {
	var res SummaryResult

	var pending []cache.Commit
	for _, c := range s.store.List(s.opts.Limit) {
		if c.Summary == "" {
			pending = append(pending, c)
		}
	}
	res.Pending = len(pending)
	if len(pending) == 0 {
		return res, nil
	}

	var work []cache.Commit
	for _, c := range pending {
		if IsTrivial(c.Message) {
			res.Trivial++
			continue
		}
		work = append(work, c)
	}
	if res.Trivial > 0 {
		s.log.Debug("trivial commits skipped", "count", res.Trivial)
	}

	done := res.Trivial
	s.progress(done, res.Pending)

	for start := 0; start < len(work); start += s.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := start + s.opts.BatchSize
		if end > len(work) {
			end = len(work)
		}
		batch := work[start:end]
		res.Batches++

		applied, err := s.runBatch(ctx, batch)
		if err != nil {
			res.FailedBatches++
			s.log.Warn("summary batch failed, commits left for next run",
				"batch", res.Batches, "commits", len(batch), "error", err)
		} else {
			res.Summarized += applied
			if err := s.store.Save(); err != nil {
				return res, err
			}
		}

		done += len(batch)
		s.progress(done, res.Pending)
	}
	return res, nil
}

func (s *Scheduler) progress(done, total int) {
	if s.opts.OnProgress != nil {
		s.opts.OnProgress(done, total)
	}
}

func (s *Scheduler) runBatch(ctx context.Context, batch []cache.Commit) (int, error) {
	prompt := s.BuildBatchPrompt(batch)

	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	response, err := s.client.Complete(callCtx, prompt)
	if err != nil {
		return 0, fmt.Errorf("model call failed: %w", err)
	}

	var raw map[string]any
	if err := llm.DecodeJSON(response, &raw); err != nil {
		return 0, err
	}

	applied := 0
	for key, value := range raw {
		text, ok := value.(string)
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		hash, ok := matchHash(key, batch)
		if !ok || text == "" {
			s.log.Debug("ignoring summary for unknown hash", "key", key)
			continue
		}
		if s.store.SetSummary(hash, text) {
			applied++
		}
	}
	return applied, nil
}

// BuildBatchPrompt renders the summarization prompt for one batch.
func (s *Scheduler) BuildBatchPrompt(batch []cache.Commit) string {
	entries := make([]string, len(batch))
	for i, c := range batch {
		entries[i] = prompts.BuildCommitEntry(c.Hash, c.Message, TruncateDiff(c.Diff, s.opts.MaxDiffLines))
	}
	return prompts.BuildCommitBatchPrompt(strings.Join(entries, "\n\n"))
}

// matchHash maps a key from the model reply onto a commit of the batch,
// accepting a unique abbreviated hash.
func matchHash(key string, batch []cache.Commit) (string, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", false
	}
	for _, c := range batch {
		if c.Hash == key {
			return c.Hash, true
		}
	}
	if len(key) < minHashPrefix {
		return "", false
	}
	match := ""
	for _, c := range batch {
		if strings.HasPrefix(c.Hash, key) {
			if match != "" {
				return "", false
			}
			match = c.Hash
		}
	}
	return match, match != ""
}
