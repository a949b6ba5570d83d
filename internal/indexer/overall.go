package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ishaan812/gitinsight/internal/cache"
	"github.com/ishaan812/gitinsight/internal/llm"
	"github.com/ishaan812/gitinsight/internal/logger"
	"github.com/ishaan812/gitinsight/internal/prompts"
)

const (
	overallMessage = "High-level project summary"
	overallAuthor  = "gitinsight"
)

// SynthesisOutcome describes what a synthesizer run did.
type SynthesisOutcome int

const (
	OverallSkipped SynthesisOutcome = iota
	OverallGenerated
	OverallNoCommits
	OverallFailed
)

func (o SynthesisOutcome) String() string {
	switch o {
	case OverallSkipped:
		return "up to date"
	case OverallGenerated:
		return "generated"
	case OverallNoCommits:
		return "no commits"
	case OverallFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Synthesizer maintains the project-wide overall summary.
type Synthesizer struct {
	client      llm.Client
	store       *cache.Store
	log         *logger.Logger
	callTimeout time.Duration
	now         func() time.Time
}

func NewSynthesizer(client llm.Client, store *cache.Store, log *logger.Logger) *Synthesizer {
	return &Synthesizer{
		client:      client,
		store:       store,
		log:         logger.OrNop(log),
		callTimeout: 180 * time.Second,
		now:         time.Now,
	}
}

// summarized returns the newest limit commits that carry a summary.
func summarized(store *cache.Store, limit int) []cache.Commit {
	var out []cache.Commit
	for _, c := range store.List(0) {
		if strings.TrimSpace(c.Summary) == "" {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// IsStale reports whether the overall summary must be regenerated for the
// given summarized commits. It is fresh only when it is at least as new as the
// newest commit and was produced for the same limit.
func IsStale(existing cache.OverallSummary, ok bool, commits []cache.Commit, limit int) bool {
	if !ok {
		return true
	}
	var newest time.Time
	for _, c := range commits {
		if c.Date.After(newest) {
			newest = c.Date
		}
	}
	return existing.Date.Before(newest) || existing.NumberOfCommits != limit
}

// Run regenerates the overall summary from the newest limit summarized
// commits when stale. Model failures are logged
// and reported as OverallFailed, leaving the previous summary in place.
func (s *Synthesizer) Run(ctx context.Context, limit int) (SynthesisOutcome, error) {
	commits := summarized(s.store, limit)
	if len(commits) == 0 {
		return OverallNoCommits, nil
	}

	existing, ok := s.store.Overall()
	if !IsStale(existing, ok, commits, limit) {
		s.log.Debug("overall summary up to date", "limit", limit, "generated", existing.Date)
		return OverallSkipped, nil
	}

	summaries := make([]string, len(commits))
	for i, c := range commits {
		summaries[i] = strings.TrimSpace(c.Summary)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	response, err := s.client.Complete(callCtx, prompts.BuildOverallSummaryPrompt(summaries))
	if err != nil {
		if ctx.Err() != nil {
			return OverallFailed, ctx.Err()
		}
		s.log.Warn("overall summary generation failed", "error", err)
		return OverallFailed, nil
	}

	summary := llm.StripCodeFence(response)
	if summary == "" {
		s.log.Warn("overall summary generation returned empty text")
		return OverallFailed, nil
	}

	s.store.PutOverall(cache.OverallSummary{
		Summary:         summary,
		NumberOfCommits: limit,
		Date:            s.now().UTC(),
		Message:         overallMessage,
		Author:          overallAuthor,
	})
	if err := s.store.Save(); err != nil {
		return OverallGenerated, err
	}
	return OverallGenerated, nil
}
