package git

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// MaxDiffBytes bounds the diff text kept per commit.
const MaxDiffBytes = 256 * 1024

const diffTruncatedMarker = "\n... (diff truncated)"

// truncateDiff cuts text to at most limit bytes on a rune boundary.
func truncateDiff(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + diffTruncatedMarker
}

type CommitInfo struct {
	Hash        string
	Message     string
	AuthorName  string
	AuthorEmail string
	CommittedAt time.Time
	Diff        string
	Stats       CommitStats
	Files       []string
}

type CommitStats struct {
	TotalAdditions int
	TotalDeletions int
	FilesChanged   int
}

// Subject returns the first line of the commit message.
func (c CommitInfo) Subject() string {
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return subject
}

func (c CommitInfo) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

type ReadOptions struct {
	// Limit caps how many of the newest commits are considered. Zero means
	// no cap.
	Limit int
	// Since stops the walk at commits authored before this time.
	Since time.Time
	// Skip lists hashes that are already known; they count toward Limit but
	// are not diffed or returned.
	Skip       map[string]bool
	Workers    int
	OnProgress func(processed, total int)
}

// ReadCommits walks history from HEAD newest first and returns commits with
// their unified diffs, in walk order.
func ReadCommits(repo *Repository, opts ReadOptions) ([]CommitInfo, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	head, err := repo.HeadCommit()
	if err != nil {
		if errors.Is(err, ErrEmptyRepository) {
			return nil, nil
		}
		return nil, err
	}

	iter, err := repo.Git().Log(&git.LogOptions{
		From:  head.Hash,
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create log iterator: %w", err)
	}

	var commits []*object.Commit
	seen := 0
	err = iter.ForEach(func(c *object.Commit) error {
		if opts.Limit > 0 && seen >= opts.Limit {
			return storer.ErrStop
		}
		if !opts.Since.IsZero() && c.Author.When.Before(opts.Since) {
			return storer.ErrStop
		}
		seen++
		if opts.Skip[c.Hash.String()] {
			return nil
		}
		commits = append(commits, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}
	if len(commits) == 0 {
		return nil, nil
	}

	type job struct {
		index  int
		commit *object.Commit
	}
	jobs := make(chan job, len(commits))
	results := make([]CommitInfo, len(commits))
	errs := make([]error, len(commits))

	var wg sync.WaitGroup
	var processed int64
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index], errs[j.index] = processCommit(j.commit)
				current := atomic.AddInt64(&processed, 1)
				if opts.OnProgress != nil {
					opts.OnProgress(int(current), len(commits))
				}
			}
		}()
	}
	for i, c := range commits {
		jobs <- job{index: i, commit: c}
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func processCommit(c *object.Commit) (CommitInfo, error) {
	info := commitInfo(c)
	diff, err := diffCommit(c, "")
	if err != nil {
		return info, fmt.Errorf("failed to diff commit %s: %w", c.Hash.String()[:7], err)
	}
	info.Diff = diff.Patch
	info.Stats = diff.Stats
	info.Files = diff.Files
	return info, nil
}

func commitInfo(c *object.Commit) CommitInfo {
	return CommitInfo{
		Hash:        c.Hash.String(),
		Message:     strings.TrimSpace(c.Message),
		AuthorName:  c.Author.Name,
		AuthorEmail: c.Author.Email,
		CommittedAt: c.Author.When,
	}
}

type commitDiff struct {
	Patch string
	Stats CommitStats
	Files []string
}

// diffCommit diffs c against its first parent (or the empty tree for a root
// commit). When onlyPath is set, only changes touching that path are kept.
func diffCommit(c *object.Commit, onlyPath string) (commitDiff, error) {
	var out commitDiff

	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return out, fmt.Errorf("failed to load parent: %w", err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return out, fmt.Errorf("failed to load parent tree: %w", err)
		}
	}

	commitTree, err := c.Tree()
	if err != nil {
		return out, fmt.Errorf("failed to load tree: %w", err)
	}

	changes, err := object.DiffTree(parentTree, commitTree)
	if err != nil {
		return out, fmt.Errorf("failed to diff trees: %w", err)
	}

	if onlyPath != "" {
		var filtered object.Changes
		for _, change := range changes {
			if change.From.Name == onlyPath || change.To.Name == onlyPath {
				filtered = append(filtered, change)
			}
		}
		changes = filtered
	}
	if len(changes) == 0 {
		return out, nil
	}

	patch, err := changes.Patch()
	if err != nil {
		return out, fmt.Errorf("failed to build patch: %w", err)
	}

	for _, fileStat := range patch.Stats() {
		out.Stats.TotalAdditions += fileStat.Addition
		out.Stats.TotalDeletions += fileStat.Deletion
		out.Stats.FilesChanged++
		out.Files = append(out.Files, fileStat.Name)
	}

	out.Patch = truncateDiff(patch.String(), MaxDiffBytes)
	return out, nil
}
