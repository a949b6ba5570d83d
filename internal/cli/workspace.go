package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/ishaan812/gitinsight/internal/cache"
	"github.com/ishaan812/gitinsight/internal/chat"
	"github.com/ishaan812/gitinsight/internal/config"
	"github.com/ishaan812/gitinsight/internal/git"
	"github.com/ishaan812/gitinsight/internal/insight"
	"github.com/ishaan812/gitinsight/internal/llm"
	"github.com/ishaan812/gitinsight/internal/session"
	"github.com/ishaan812/gitinsight/internal/vectorstore"
)

var (
	titleColor   = color.New(color.FgHiCyan, color.Bold)
	successColor = color.New(color.FgHiGreen)
	warnColor    = color.New(color.FgHiYellow, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
	infoColor    = color.New(color.FgHiWhite)
	accentColor  = color.New(color.FgHiMagenta)
)

// workspace is everything a command needs to work on one repository.
type workspace struct {
	cfg      *config.Config
	repo     *git.Repository
	paths    insight.Paths
	store    *cache.Store
	sessions *session.Manager
}

func openWorkspace() (*workspace, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\n\nRun 'gitinsight configure' to set up your configuration", err)
	}

	repo, err := git.OpenRepo(repoPath)
	if err != nil {
		return nil, err
	}
	VerboseLog("Repository: %s (git dir %s)", repo.Path(), repo.GitDir())

	paths := insight.NewPaths(repo.GitDir())
	return &workspace{
		cfg:      cfg,
		repo:     repo,
		paths:    paths,
		store:    cache.Open(paths.Cache, appLog),
		sessions: session.NewManager(paths.Sessions, appLog),
	}, nil
}

// modelFlags are the per-run provider overrides shared by model commands.
type modelFlags struct {
	provider       string
	model          string
	embeddingModel string
}

type models struct {
	cfg      llm.Config
	client   llm.StreamingClient
	embedder llm.Embedder
}

// connect builds the generation client and, when withEmbeddings is set, the
// embedder. Configuration problems are returned before any work starts.
func (w *workspace) connect(flags modelFlags, withEmbeddings bool) (models, error) {
	llmCfg, err := w.cfg.LLMConfig(flags.provider, flags.model, flags.embeddingModel)
	if err != nil {
		return models{}, err
	}
	VerboseLog("Provider %s, model %s, embedding model %s", llmCfg.Provider, llmCfg.Model, llmCfg.EmbeddingModel)

	client, err := llm.NewClient(llmCfg)
	if err != nil {
		return models{}, fmt.Errorf("failed to create LLM client: %w", err)
	}
	m := models{cfg: llmCfg, client: client}
	if withEmbeddings {
		if m.embedder, err = llm.NewEmbedder(llmCfg); err != nil {
			return models{}, fmt.Errorf("failed to create embedder: %w", err)
		}
	}
	return m, nil
}

func (w *workspace) openIndex(embedder llm.Embedder) *vectorstore.Index {
	return vectorstore.Open(w.paths.Vectors, embedder.Model(), appLog)
}

func (w *workspace) pipeline(embedder llm.Embedder, index *vectorstore.Index) *vectorstore.Pipeline {
	return vectorstore.NewPipeline(embedder, index, w.store, appLog, vectorstore.PipelineOptions{
		Limit:      w.cfg.CommitLimit,
		BatchSize:  w.cfg.EmbeddingBatchSize,
		ChunkLines: w.cfg.ChunkLines,
	})
}

// agent wires the router, tools, retriever and session store for m. A nil
// index opens the one for m's embedding model.
func (w *workspace) agent(m models, index *vectorstore.Index) *chat.Agent {
	if index == nil {
		index = w.openIndex(m.embedder)
	}
	tools := chat.NewRegistry(w.repo, w.store, w.cfg.CommitLimit)
	router := chat.NewRouter(m.client, tools, appLog)
	retriever := w.pipeline(m.embedder, index)
	return chat.NewAgent(router, tools, retriever, m.client, w.sessions, appLog, chat.AgentOptions{
		TopK:         w.cfg.TopK,
		HistoryTurns: w.cfg.HistoryTurns,
	})
}

// requireCache reports whether analyze has run, printing a hint if not.
func (w *workspace) requireCache() bool {
	if w.store.Len() > 0 {
		return true
	}
	fmt.Println()
	dimColor.Println("  No commits cached yet. Run 'gitinsight analyze' first.")
	fmt.Println()
	return false
}

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	return s
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// renderMarkdown renders md for the terminal, or returns it unchanged when
// stdout is not a terminal.
func renderMarkdown(md string) string {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return md
	}
	width := 100
	if w, _, err := term.GetSize(fd); err == nil && w > 24 {
		width = w - 4
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
