package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ishaan812/gitinsight/internal/cache"
	"github.com/ishaan812/gitinsight/internal/constants"
	"github.com/ishaan812/gitinsight/internal/git"
	"github.com/ishaan812/gitinsight/internal/indexer"
)

// FileTool is the tool whose file argument is resolved against the tracked
// files before it runs.
const FileTool = "summarizeFileEvolution"

const (
	maxKeywordMatches = 50
	maxFileRevisions  = 20
)

// History is the read side of the repository the tools query.
// *git.Repository implements it.
type History interface {
	RootCommits() ([]git.CommitInfo, error)
	LastCommit() (git.CommitInfo, error)
	Contributors() ([]git.Contributor, error)
	SearchCommits(keyword string, max int) ([]git.CommitInfo, error)
	CommitDetails(ref string) (git.CommitInfo, error)
	FileHistory(path string, max int) ([]git.FileRevision, error)
	TrackedFiles() ([]string, error)
	Stats() (git.RepoStats, error)
}

// Tool is a named repository query the router can pick.
type Tool struct {
	Name        string
	Description string
	Args        []string
	Run         func(ctx context.Context, args map[string]any) (string, error)
}

// Registry holds the tools in a fixed order.
type Registry struct {
	history History
	store   *cache.Store
	limit   int
	tools   []Tool
	byName  map[string]Tool
}

// NewRegistry builds the tool set over history. store supplies cached
// summaries for summarizeRepo; limit bounds how many it lists.
func NewRegistry(history History, store *cache.Store, limit int) *Registry {
	if limit <= 0 {
		limit = constants.DefaultCommitLimit
	}
	r := &Registry{history: history, store: store, limit: limit, byName: make(map[string]Tool)}
	r.register(
		Tool{Name: "getFirstCommit", Description: "Returns the first commit in the repository.", Run: r.firstCommit},
		Tool{Name: "getLastCommit", Description: "Returns the most recent commit in the repository.", Run: r.lastCommit},
		Tool{Name: "getFirstLastCommit", Description: "Returns both the first and the most recent commit.", Run: r.firstLastCommit},
		Tool{Name: "listContributors", Description: "Lists all contributors and their commit counts.", Run: r.listContributors},
		Tool{Name: "getCommitByKeyword", Description: "Finds commits whose message contains a keyword.", Args: []string{"keyword"}, Run: r.commitByKeyword},
		Tool{Name: "getCommitDetails", Description: "Shows the details and diff of one commit by hash.", Args: []string{"hash"}, Run: r.commitDetails},
		Tool{Name: FileTool, Description: "Summarizes how a file changed over time.", Args: []string{"file"}, Run: r.fileEvolution},
		Tool{Name: "getCommitStats", Description: "Shows commit count, contributor count, and the busiest day.", Run: r.commitStats},
		Tool{Name: "summarizeRepo", Description: "Summarizes the repository: first and last commits, contributors, stats, and commit summaries.", Args: []string{"limit"}, Run: r.summarizeRepo},
	)
	return r
}

func (r *Registry) register(tools ...Tool) {
	for _, t := range tools {
		r.tools = append(r.tools, t)
		r.byName[t.Name] = t
	}
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

func (r *Registry) Tools() []Tool {
	return append([]Tool(nil), r.tools...)
}

// TrackedFiles lists the files the path resolver chooses from.
func (r *Registry) TrackedFiles() ([]string, error) {
	return r.history.TrackedFiles()
}

// Describe renders the tool list for the router prompt.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, t := range r.tools {
		fmt.Fprintf(&b, "- %s: %s", t.Name, t.Description)
		if len(t.Args) > 0 {
			fmt.Fprintf(&b, " Args: %s", strings.Join(t.Args, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Invoke runs a tool and always returns text: failures are reported in the
// result instead of aborting the answer.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) string {
	t, ok := r.byName[name]
	if !ok {
		return fmt.Sprintf("Unknown tool: %s", name)
	}
	out, err := t.Run(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error running %s: %v", name, err)
	}
	return out
}

func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

func describeCommit(c git.CommitInfo) string {
	return fmt.Sprintf("%s %s by %s <%s>\n%s", c.ShortHash(), formatDate(c.CommittedAt), c.AuthorName, c.AuthorEmail, strings.TrimSpace(c.Message))
}

func (r *Registry) firstCommit(ctx context.Context, _ map[string]any) (string, error) {
	roots, err := r.history.RootCommits()
	if err != nil {
		return "", err
	}
	if len(roots) == 0 {
		return "No commits found.", nil
	}
	first := roots[len(roots)-1]
	return "First commit:\n" + describeCommit(first), nil
}

func (r *Registry) lastCommit(ctx context.Context, _ map[string]any) (string, error) {
	last, err := r.history.LastCommit()
	if err != nil {
		return "", err
	}
	return "Last commit:\n" + describeCommit(last), nil
}

func (r *Registry) firstLastCommit(ctx context.Context, args map[string]any) (string, error) {
	first, err := r.firstCommit(ctx, args)
	if err != nil {
		return "", err
	}
	last, err := r.lastCommit(ctx, args)
	if err != nil {
		return "", err
	}
	return first + "\n\n" + last, nil
}

func (r *Registry) listContributors(ctx context.Context, _ map[string]any) (string, error) {
	contributors, err := r.history.Contributors()
	if err != nil {
		return "", err
	}
	if len(contributors) == 0 {
		return "No contributors found.", nil
	}
	var b strings.Builder
	b.WriteString("Contributors:")
	for _, c := range contributors {
		fmt.Fprintf(&b, "\n%d commits by %s <%s> (%s to %s)", c.Commits, c.Name, c.Email,
			c.First.Format("2006-01-02"), c.Last.Format("2006-01-02"))
	}
	return b.String(), nil
}

func (r *Registry) commitByKeyword(ctx context.Context, args map[string]any) (string, error) {
	keyword := stringArg(args, "keyword")
	if keyword == "" {
		return "", fmt.Errorf("missing keyword argument")
	}
	found, err := r.history.SearchCommits(keyword, maxKeywordMatches)
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return fmt.Sprintf("No commits found with keyword: %s", keyword), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Commits mentioning %q:", keyword)
	for _, c := range found {
		fmt.Fprintf(&b, "\n- %s %s: %s", formatDate(c.CommittedAt), c.ShortHash(), c.Subject())
	}
	return b.String(), nil
}

func (r *Registry) commitDetails(ctx context.Context, args map[string]any) (string, error) {
	hash := stringArg(args, "hash")
	if hash == "" {
		return "", fmt.Errorf("missing hash argument")
	}
	c, err := r.history.CommitDetails(hash)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Commit details for %s:\n%s\nFiles changed: %d, +%d -%d\n\n%s",
		c.Hash, describeCommit(c), c.Stats.FilesChanged, c.Stats.TotalAdditions, c.Stats.TotalDeletions,
		indexer.TruncateDiff(c.Diff, constants.DefaultMaxDiffLines)), nil
}

func (r *Registry) fileEvolution(ctx context.Context, args map[string]any) (string, error) {
	file := strings.TrimPrefix(stringArg(args, "file"), "/")
	if file == "" {
		return "", fmt.Errorf("missing file argument")
	}
	revisions, err := r.history.FileHistory(file, maxFileRevisions)
	if err != nil {
		return "", err
	}
	if len(revisions) == 0 {
		return fmt.Sprintf("No changes found for file: %s", file), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "File evolution for %s (%d revisions, newest first):\n", file, len(revisions))
	for _, rev := range revisions {
		c := rev.Commit
		fmt.Fprintf(&b, "\nCommit %s by %s on %s\nMessage: %s\nLines added: %d, lines removed: %d\nDiff:\n%s\n",
			c.ShortHash(), c.AuthorName, c.CommittedAt.Format("2006-01-02"), c.Subject(),
			rev.Additions, rev.Deletions, indexer.TruncateDiff(strings.TrimSpace(rev.Patch), constants.DefaultMaxDiffLines))
	}
	return b.String(), nil
}

func (r *Registry) commitStats(ctx context.Context, _ map[string]any) (string, error) {
	stats, err := r.history.Stats()
	if err != nil {
		return "", err
	}
	out := fmt.Sprintf("Total commits: %d\nMerge commits: %d\nContributors: %d\nTracked files: %d",
		stats.TotalCommits, stats.MergeCommits, stats.Contributors, stats.TrackedFiles)
	if stats.TotalCommits > 0 {
		out += fmt.Sprintf("\nActive from %s to %s\nBusiest day: %s (%d commits)",
			stats.FirstCommit.Format("2006-01-02"), stats.LastCommit.Format("2006-01-02"),
			stats.BusiestDay, stats.BusiestDayCommits)
	}
	return out, nil
}

func (r *Registry) summarizeRepo(ctx context.Context, args map[string]any) (string, error) {
	limit := intArg(args, "limit", r.limit)

	var sections []string
	for _, run := range []func(context.Context, map[string]any) (string, error){
		r.firstLastCommit, r.listContributors, r.commitStats,
	} {
		out, err := run(ctx, args)
		if err != nil {
			return "", err
		}
		sections = append(sections, out)
	}

	if r.store != nil {
		if overall, ok := r.store.Overall(); ok && overall.Summary != "" {
			sections = append(sections, "Project summary:\n"+overall.Summary)
		}
		commits := r.store.List(limit)
		if len(commits) > 0 {
			var b strings.Builder
			b.WriteString("Commits:")
			for _, c := range commits {
				short := c.Hash
				if len(short) > 7 {
					short = short[:7]
				}
				subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
				fmt.Fprintf(&b, "\n- %s %s: %s. %s", c.Date.Format("2006-01-02"), short, subject, c.Summary)
			}
			sections = append(sections, b.String())
		}
	}
	return "Repository summary:\n\n" + strings.Join(sections, "\n\n"), nil
}
