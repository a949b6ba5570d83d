package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ishaan812/gitinsight/internal/fsutil"
	"github.com/ishaan812/gitinsight/internal/logger"
)

// FileName is the cache file created inside the repository's .git directory.
const FileName = "gitinsight.json"

// Store is the commit cache. It is loaded once per run, mutated in memory,
// and written back with Save at checkpoints chosen by the caller.
type Store struct {
	path string
	log  *logger.Logger

	mu      sync.RWMutex
	commits map[string]*Commit
	order   []string
	overall *OverallSummary
	chart   *ChartSnapshot
}

// Open loads the cache at path. A missing, unreadable, or non-array file
// yields an empty store; malformed elements are dropped individually.
func Open(path string, log *logger.Logger) *Store {
	s := &Store{
		path:    path,
		log:     logger.OrNop(log),
		commits: make(map[string]*Commit),
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("commit cache unreadable, starting empty", "path", s.path, "error", err)
		}
		return
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Warn("commit cache is not a JSON array, starting empty", "path", s.path, "error", err)
		return
	}

	dropped := 0
	for i, elem := range raw {
		rec, err := decodeRecord(elem)
		if err != nil {
			dropped++
			s.log.Debug("dropping cache element", "index", i, "error", err)
			continue
		}
		switch rec.Kind {
		case KindOverall:
			s.overall = rec.Overall
		case KindChart:
			s.chart = rec.Chart
		case KindCommit:
			if _, exists := s.commits[rec.Commit.Hash]; exists {
				continue
			}
			s.commits[rec.Commit.Hash] = rec.Commit
			s.order = append(s.order, rec.Commit.Hash)
		}
	}
	if dropped > 0 {
		s.log.Warn("dropped malformed cache elements", "count", dropped, "path", s.path)
	}
}

func (s *Store) Path() string {
	return s.path
}

// Len returns the number of commit records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) Has(hash string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.commits[hash]
	return ok
}

// Hashes returns the set of cached commit hashes.
func (s *Store) Hashes() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.commits))
	for h := range s.commits {
		out[h] = true
	}
	return out
}

// UpsertRaw adds commits whose hash is not cached yet and returns how many
// were added. Existing records are left untouched.
func (s *Store) UpsertRaw(commits []Commit) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, c := range commits {
		if c.Hash == "" || IsReservedHash(c.Hash) {
			continue
		}
		if _, exists := s.commits[c.Hash]; exists {
			continue
		}
		cp := c
		s.commits[c.Hash] = &cp
		s.order = append(s.order, c.Hash)
		added++
	}
	return added
}

// List returns up to limit commits, newest first. limit <= 0 means all.
func (s *Store) List(limit int) []Commit {
	s.mu.RLock()
	out := make([]Commit, 0, len(s.order))
	for _, h := range s.order {
		out = append(out, *s.commits[h])
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) Get(hash string) (Commit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.commits[hash]
	if !ok {
		return Commit{}, false
	}
	return *c, true
}

// SetSummary fills the summary of a cached commit. It reports false when the
// commit is unknown or already summarized.
func (s *Store) SetSummary(hash, summary string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commits[hash]
	if !ok || c.Summary != "" || summary == "" {
		return false
	}
	c.Summary = summary
	return true
}

// Singleton returns the overall or chart record if present.
func (s *Store) Singleton(kind Kind) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch kind {
	case KindOverall:
		if s.overall == nil {
			return Record{}, false
		}
		o := *s.overall
		return Record{Kind: KindOverall, Overall: &o}, true
	case KindChart:
		if s.chart == nil {
			return Record{}, false
		}
		c := *s.chart
		return Record{Kind: KindChart, Chart: &c}, true
	default:
		return Record{}, false
	}
}

// PutSingleton replaces the singleton of rec.Kind.
func (s *Store) PutSingleton(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch rec.Kind {
	case KindOverall:
		if rec.Overall == nil {
			return fmt.Errorf("%w: overall record without payload", errMalformedRecord)
		}
		o := *rec.Overall
		s.overall = &o
	case KindChart:
		if rec.Chart == nil {
			return fmt.Errorf("%w: chart record without payload", errMalformedRecord)
		}
		c := *rec.Chart
		s.chart = &c
	default:
		return fmt.Errorf("%s is not a singleton kind", rec.Kind)
	}
	return nil
}

func (s *Store) Overall() (OverallSummary, bool) {
	rec, ok := s.Singleton(KindOverall)
	if !ok {
		return OverallSummary{}, false
	}
	return *rec.Overall, true
}

func (s *Store) PutOverall(o OverallSummary) {
	_ = s.PutSingleton(Record{Kind: KindOverall, Overall: &o})
}

func (s *Store) Chart() (ChartSnapshot, bool) {
	rec, ok := s.Singleton(KindChart)
	if !ok {
		return ChartSnapshot{}, false
	}
	return *rec.Chart, true
}

func (s *Store) PutChart(c ChartSnapshot) {
	_ = s.PutSingleton(Record{Kind: KindChart, Chart: &c})
}

// Records returns every element in file order: commits, then singletons.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.order)+2)
	for _, h := range s.order {
		c := *s.commits[h]
		out = append(out, Record{Kind: KindCommit, Commit: &c})
	}
	if s.overall != nil {
		o := *s.overall
		out = append(out, Record{Kind: KindOverall, Overall: &o})
	}
	if s.chart != nil {
		c := *s.chart
		out = append(out, Record{Kind: KindChart, Chart: &c})
	}
	return out
}

// Save writes the whole cache atomically.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.Records(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal commit cache: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to save commit cache: %w", err)
	}
	return nil
}

// Reset empties the store and removes the file.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits = make(map[string]*Commit)
	s.order = nil
	s.overall = nil
	s.chart = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove commit cache: %w", err)
	}
	return nil
}
