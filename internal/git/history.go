package git

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ErrCommitNotFound is returned when a hash or prefix matches nothing.
var ErrCommitNotFound = errors.New("commit not found")

type Contributor struct {
	Name    string
	Email   string
	Commits int
	First   time.Time
	Last    time.Time
}

type RepoStats struct {
	TotalCommits int
	MergeCommits int
	Contributors int
	TrackedFiles int
	FirstCommit  time.Time
	LastCommit   time.Time
	// BusiestDay is the UTC day with the most commits, as YYYY-MM-DD.
	BusiestDay        string
	BusiestDayCommits int
}

// FileRevision is one commit that touched a file, with the file's patch.
type FileRevision struct {
	Commit    CommitInfo
	Patch     string
	Additions int
	Deletions int
}

// forEachCommit walks history from HEAD, newest first. fn may return
// storer.ErrStop to end the walk early.
func (r *Repository) forEachCommit(opts *git.LogOptions, fn func(*object.Commit) error) error {
	head, err := r.HeadCommit()
	if err != nil {
		return err
	}
	if opts == nil {
		opts = &git.LogOptions{}
	}
	opts.From = head.Hash
	if opts.Order == 0 {
		opts.Order = git.LogOrderCommitterTime
	}

	iter, err := r.repo.Log(opts)
	if err != nil {
		return fmt.Errorf("failed to create log iterator: %w", err)
	}
	defer iter.Close()
	if err := iter.ForEach(fn); err != nil {
		return fmt.Errorf("failed to iterate commits: %w", err)
	}
	return nil
}

// RootCommits returns the parentless commits reachable from HEAD.
func (r *Repository) RootCommits() ([]CommitInfo, error) {
	var roots []CommitInfo
	err := r.forEachCommit(nil, func(c *object.Commit) error {
		if c.NumParents() == 0 {
			roots = append(roots, commitInfo(c))
		}
		return nil
	})
	return roots, err
}

// LastCommit returns HEAD.
func (r *Repository) LastCommit() (CommitInfo, error) {
	c, err := r.HeadCommit()
	if err != nil {
		return CommitInfo{}, err
	}
	return commitInfo(c), nil
}

// Contributors aggregates authors by email, most active first.
func (r *Repository) Contributors() ([]Contributor, error) {
	byEmail := make(map[string]*Contributor)
	err := r.forEachCommit(nil, func(c *object.Commit) error {
		key := strings.ToLower(c.Author.Email)
		if key == "" {
			key = c.Author.Name
		}
		ct, ok := byEmail[key]
		if !ok {
			ct = &Contributor{Name: c.Author.Name, Email: c.Author.Email, First: c.Author.When, Last: c.Author.When}
			byEmail[key] = ct
		}
		ct.Commits++
		if c.Author.When.Before(ct.First) {
			ct.First = c.Author.When
		}
		if c.Author.When.After(ct.Last) {
			ct.Last = c.Author.When
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]Contributor, 0, len(byEmail))
	for _, ct := range byEmail {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Commits != out[j].Commits {
			return out[i].Commits > out[j].Commits
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// SearchCommits returns up to max commits whose message contains keyword,
// case-insensitively, newest first.
func (r *Repository) SearchCommits(keyword string, max int) ([]CommitInfo, error) {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return nil, fmt.Errorf("keyword is empty")
	}
	var found []CommitInfo
	err := r.forEachCommit(nil, func(c *object.Commit) error {
		if strings.Contains(strings.ToLower(c.Message), needle) {
			found = append(found, commitInfo(c))
			if max > 0 && len(found) >= max {
				return storer.ErrStop
			}
		}
		return nil
	})
	return found, err
}

// CommitDetails resolves a full or abbreviated hash and returns the commit
// with its diff.
func (r *Repository) CommitDetails(ref string) (CommitInfo, error) {
	prefix := strings.ToLower(strings.TrimSpace(ref))
	if len(prefix) < 4 {
		return CommitInfo{}, fmt.Errorf("hash %q is too short", ref)
	}

	var match *object.Commit
	err := r.forEachCommit(nil, func(c *object.Commit) error {
		if strings.HasPrefix(c.Hash.String(), prefix) {
			match = c
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return CommitInfo{}, err
	}
	if match == nil {
		return CommitInfo{}, fmt.Errorf("%w: %s", ErrCommitNotFound, ref)
	}
	return processCommit(match)
}

// FileHistory returns up to max revisions of path, newest first.
func (r *Repository) FileHistory(path string, max int) ([]FileRevision, error) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	if path == "" {
		return nil, fmt.Errorf("file path is empty")
	}

	var revisions []FileRevision
	err := r.forEachCommit(&git.LogOptions{FileName: &path}, func(c *object.Commit) error {
		diff, err := diffCommit(c, path)
		if err != nil {
			return err
		}
		revisions = append(revisions, FileRevision{
			Commit:    commitInfo(c),
			Patch:     diff.Patch,
			Additions: diff.Stats.TotalAdditions,
			Deletions: diff.Stats.TotalDeletions,
		})
		if max > 0 && len(revisions) >= max {
			return storer.ErrStop
		}
		return nil
	})
	return revisions, err
}

// TrackedFiles lists every file in the HEAD tree.
func (r *Repository) TrackedFiles() ([]string, error) {
	head, err := r.HeadCommit()
	if err != nil {
		if errors.Is(err, ErrEmptyRepository) {
			return nil, nil
		}
		return nil, err
	}
	tree, err := head.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load HEAD tree: %w", err)
	}

	var files []string
	err = tree.Files().ForEach(func(f *object.File) error {
		files = append(files, f.Name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Stats summarizes the whole history reachable from HEAD.
func (r *Repository) Stats() (RepoStats, error) {
	var stats RepoStats
	authors := make(map[string]bool)
	perDay := make(map[string]int)
	err := r.forEachCommit(nil, func(c *object.Commit) error {
		stats.TotalCommits++
		perDay[c.Author.When.UTC().Format("2006-01-02")]++
		if c.NumParents() > 1 {
			stats.MergeCommits++
		}
		authors[strings.ToLower(c.Author.Email)] = true
		when := c.Author.When
		if stats.FirstCommit.IsZero() || when.Before(stats.FirstCommit) {
			stats.FirstCommit = when
		}
		if when.After(stats.LastCommit) {
			stats.LastCommit = when
		}
		return nil
	})
	if err != nil {
		return stats, err
	}
	stats.Contributors = len(authors)
	for day, n := range perDay {
		if n > stats.BusiestDayCommits || (n == stats.BusiestDayCommits && day < stats.BusiestDay) {
			stats.BusiestDay, stats.BusiestDayCommits = day, n
		}
	}

	files, err := r.TrackedFiles()
	if err != nil {
		return stats, err
	}
	stats.TrackedFiles = len(files)
	return stats, nil
}

// CountSince counts the commits from HEAD back to the first one authored
// before since, using the same walk and stop rule as ReadCommits.
func (r *Repository) CountSince(since time.Time) (int, error) {
	n := 0
	err := r.forEachCommit(nil, func(c *object.Commit) error {
		if c.Author.When.Before(since) {
			return storer.ErrStop
		}
		n++
		return nil
	})
	if errors.Is(err, ErrEmptyRepository) {
		return 0, nil
	}
	return n, err
}
