package git

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type Repository struct {
	repo   *git.Repository
	path   string
	gitDir string
}

// OpenRepo opens the repository containing path, walking up to find .git.
func OpenRepo(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", absPath, err)
	}

	root := absPath
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}

	gitDir, err := resolveGitDir(root)
	if err != nil {
		return nil, err
	}

	return &Repository{
		repo:   repo,
		path:   root,
		gitDir: gitDir,
	}, nil
}

// resolveGitDir handles both a .git directory and a "gitdir:" pointer file.
func resolveGitDir(root string) (string, error) {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Stat(dotGit)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", dotGit, err)
	}
	if info.IsDir() {
		return dotGit, nil
	}

	f, err := os.Open(dotGit)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", dotGit, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if dir, ok := strings.CutPrefix(line, "gitdir:"); ok {
			dir = strings.TrimSpace(dir)
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(root, dir)
			}
			return filepath.Clean(dir), nil
		}
	}
	return "", fmt.Errorf("%s is neither a directory nor a gitdir file", dotGit)
}

// Path returns the worktree root.
func (r *Repository) Path() string {
	return r.path
}

// GitDir returns the .git directory where derived data is stored.
func (r *Repository) GitDir() string {
	return r.gitDir
}

func (r *Repository) Git() *git.Repository {
	return r.repo
}

func (r *Repository) Name() string {
	return filepath.Base(r.path)
}

// HeadCommit returns the commit HEAD points at. An empty repository yields
// ErrEmptyRepository.
func (r *Repository) HeadCommit() (*object.Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, ErrEmptyRepository
		}
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	c, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to load HEAD commit: %w", err)
	}
	return c, nil
}

// ErrEmptyRepository is returned when HEAD has no commits yet.
var ErrEmptyRepository = errors.New("repository has no commits")
