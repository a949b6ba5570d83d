package insight

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ishaan812/gitinsight/internal/cache"
	"github.com/ishaan812/gitinsight/internal/constants"
	"github.com/ishaan812/gitinsight/internal/git"
	"github.com/ishaan812/gitinsight/internal/indexer"
	"github.com/ishaan812/gitinsight/internal/llm"
	"github.com/ishaan812/gitinsight/internal/logger"
	"github.com/ishaan812/gitinsight/internal/session"
	"github.com/ishaan812/gitinsight/internal/vectorstore"
)

// ErrRefreshInProgress is returned when a refresh is already running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// NoSummary is reported by Insights before an overall summary exists.
const NoSummary = "No overall summary available."

// Paths locates the data files kept inside a repository's .git directory.
type Paths struct {
	Cache    string
	Vectors  string
	Sessions string
}

func NewPaths(gitDir string) Paths {
	return Paths{
		Cache:    filepath.Join(gitDir, cache.FileName),
		Vectors:  filepath.Join(gitDir, vectorstore.FileName),
		Sessions: filepath.Join(gitDir, session.DirName),
	}
}

type Stage string

const (
	StageFetch     Stage = "fetch"
	StageSummarize Stage = "summarize"
	StageOverall   Stage = "overall"
	StageChart     Stage = "chart"
	StageIngest    Stage = "ingest"
)

type Options struct {
	// Limit bounds every stage to the newest Limit commits.
	Limit int
	// Since stops the history walk at this date. Zero means no bound.
	Since              time.Time
	SummaryBatchSize   int
	MaxDiffLines       int
	EmbeddingBatchSize int
	ChunkLines         int
	// OnStage is called when a stage starts.
	OnStage func(Stage)
	// OnProgress reports per-stage progress.
	OnProgress func(stage Stage, done, total int)
}

// Report summarizes one refresh.
type Report struct {
	Fetched  int
	Summary  indexer.SummaryResult
	Overall  indexer.SynthesisOutcome
	Days     int
	Ingest   vectorstore.IngestResult
	Embedded bool
	Duration time.Duration
}

// Service runs the incremental analysis of one repository.
type Service struct {
	repo  *git.Repository
	store *cache.Store
	index *vectorstore.Index
	log   *logger.Logger
	opts  Options

	scheduler   *indexer.Scheduler
	synthesizer *indexer.Synthesizer
	chart       *indexer.ChartAggregator
	pipeline    *vectorstore.Pipeline

	running sync.Mutex
}

// New wires the analysis stages. embedder and index may be nil, in which
// case the ingest stage is skipped.
func New(repo *git.Repository, store *cache.Store, client llm.Client, embedder llm.Embedder, index *vectorstore.Index, log *logger.Logger, opts Options) *Service {
	if opts.Limit <= 0 {
		opts.Limit = constants.DefaultCommitLimit
	}
	log = logger.OrNop(log)

	s := &Service{
		repo:  repo,
		store: store,
		index: index,
		log:   log,
		opts:  opts,
		scheduler: indexer.NewScheduler(client, store, log, indexer.SchedulerOptions{
			Limit:        opts.Limit,
			BatchSize:    opts.SummaryBatchSize,
			MaxDiffLines: opts.MaxDiffLines,
			OnProgress:   opts.progress(StageSummarize),
		}),
		synthesizer: indexer.NewSynthesizer(client, store, log),
		chart:       indexer.NewChartAggregator(store, log),
	}
	if embedder != nil && index != nil {
		s.pipeline = vectorstore.NewPipeline(embedder, index, store, log, vectorstore.PipelineOptions{
			Limit:      opts.Limit,
			BatchSize:  opts.EmbeddingBatchSize,
			ChunkLines: opts.ChunkLines,
			OnProgress: opts.progress(StageIngest),
		})
	}
	return s
}

func (o Options) progress(stage Stage) func(done, total int) {
	if o.OnProgress == nil {
		return nil
	}
	return func(done, total int) { o.OnProgress(stage, done, total) }
}

func (o Options) stage(st Stage) {
	if o.OnStage != nil {
		o.OnStage(st)
	}
}

func (s *Service) Store() *cache.Store {
	return s.store
}

func (s *Service) Limit() int {
	return s.opts.Limit
}

// Pipeline returns the ingestion pipeline, or nil when embeddings are off.
func (s *Service) Pipeline() *vectorstore.Pipeline {
	return s.pipeline
}

// Refresh reads new commits and brings every derived artifact up to date.
// Model failures inside a stage are logged by that stage; only git, cache
// write, or index write failures abort.
func (s *Service) Refresh(ctx context.Context) (Report, error) {
	if !s.running.TryLock() {
		return Report{}, ErrRefreshInProgress
	}
	defer s.running.Unlock()

	start := time.Now()
	var rep Report

	s.opts.stage(StageFetch)
	fetched, err := s.fetch()
	if err != nil {
		return rep, err
	}
	rep.Fetched = fetched

	s.opts.stage(StageSummarize)
	if rep.Summary, err = s.scheduler.Run(ctx); err != nil {
		return rep, fmt.Errorf("failed to summarize commits: %w", err)
	}

	s.opts.stage(StageOverall)
	if rep.Overall, err = s.synthesizer.Run(ctx, s.opts.Limit); err != nil {
		return rep, fmt.Errorf("failed to synthesize overall summary: %w", err)
	}

	s.opts.stage(StageChart)
	cfg, err := s.chart.Run(s.opts.Limit)
	if err != nil {
		return rep, fmt.Errorf("failed to build chart: %w", err)
	}
	rep.Days = len(cfg.Points)

	if s.pipeline != nil {
		s.opts.stage(StageIngest)
		if rep.Ingest, err = s.pipeline.Run(ctx); err != nil {
			return rep, fmt.Errorf("failed to ingest embeddings: %w", err)
		}
		rep.Embedded = true
	}

	rep.Duration = time.Since(start)
	s.log.Info("refresh complete",
		"fetched", rep.Fetched,
		"summarized", rep.Summary.Summarized,
		"failedBatches", rep.Summary.FailedBatches,
		"overall", rep.Overall.String(),
		"embedded", rep.Ingest.Embedded,
		"took", rep.Duration.Round(time.Millisecond))
	return rep, nil
}

func (s *Service) fetch() (int, error) {
	infos, err := git.ReadCommits(s.repo, git.ReadOptions{
		Limit:      s.opts.Limit,
		Since:      s.opts.Since,
		Skip:       s.store.Hashes(),
		OnProgress: s.opts.progress(StageFetch),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read commits: %w", err)
	}
	if len(infos) == 0 {
		return 0, nil
	}

	added := s.store.UpsertRaw(ToCommits(infos))
	if err := s.store.Save(); err != nil {
		return added, err
	}
	s.log.Debug("commits cached", "new", added)
	return added, nil
}

// ToCommits converts git reader output into cache records.
func ToCommits(infos []git.CommitInfo) []cache.Commit {
	out := make([]cache.Commit, 0, len(infos))
	for _, c := range infos {
		out = append(out, cache.Commit{
			Hash:    c.Hash,
			Message: strings.TrimSpace(c.Message),
			Author:  c.AuthorName,
			Date:    c.CommittedAt.UTC(),
			Diff:    c.Diff,
		})
	}
	return out
}

// Insights is the dashboard's view of the cache.
type Insights struct {
	Commits     []cache.Commit     `json:"commits"`
	Summary     string             `json:"summary"`
	ChartConfig *cache.ChartConfig `json:"chartConfig"`
}

// BuildInsights reads the newest limit commits with the overall summary and
// chart from store.
func BuildInsights(store *cache.Store, limit int) Insights {
	in := Insights{Commits: store.List(limit), Summary: NoSummary}
	if in.Commits == nil {
		in.Commits = []cache.Commit{}
	}
	if overall, ok := store.Overall(); ok && overall.Summary != "" {
		in.Summary = overall.Summary
	}
	if chart, ok := store.Chart(); ok {
		cfg := chart.Config
		in.ChartConfig = &cfg
	}
	return in
}
