package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ishaan812/gitinsight/internal/constants"
	"github.com/ishaan812/gitinsight/internal/llm"
	"github.com/ishaan812/gitinsight/internal/logger"
	"github.com/ishaan812/gitinsight/internal/prompts"
	"github.com/ishaan812/gitinsight/internal/session"
	"github.com/ishaan812/gitinsight/internal/vectorstore"
)

// ErrEmptyQuery is returned for blank questions.
var ErrEmptyQuery = errors.New("query is empty")

// Retriever finds commit chunks similar to a query.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]vectorstore.Result, error)
}

type AgentOptions struct {
	TopK int
	// HistoryTurns bounds the replayed session window; zero or less
	// replays every stored turn.
	HistoryTurns int
}

// Agent answers questions about the repository: it routes the query,
// gathers context, replays the session window, and streams the answer.
type Agent struct {
	router    *Router
	tools     *Registry
	retriever Retriever
	streamer  llm.Streamer
	sessions  *session.Manager
	log       *logger.Logger
	opts      AgentOptions
}

// NewAgent wires an agent. retriever and sessions may be nil: vector routes
// then answer without context, and nothing is remembered.
func NewAgent(router *Router, tools *Registry, retriever Retriever, streamer llm.Streamer, sessions *session.Manager, log *logger.Logger, opts AgentOptions) *Agent {
	if opts.TopK <= 0 {
		opts.TopK = constants.DefaultTopK
	}
	return &Agent{
		router:    router,
		tools:     tools,
		retriever: retriever,
		streamer:  streamer,
		sessions:  sessions,
		log:       logger.OrNop(log),
		opts:      opts,
	}
}

// Answer is the outcome of one question.
type Answer struct {
	Decision Decision
	Context  string
	Text     string
}

// Answer streams a reply to query through onDelta. When sessionID is set the
// session's recent turns are replayed and the raw query and reply are
// appended once the stream completes.
func (a *Agent) Answer(ctx context.Context, sessionID, query string, onDelta func(string) error) (Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Answer{}, ErrEmptyQuery
	}
	if sessionID != "" && a.sessions != nil {
		if err := session.ValidateID(sessionID); err != nil {
			return Answer{}, err
		}
	}

	decision := a.router.Classify(ctx, query)
	gathered := a.gather(ctx, decision, query)

	messages, err := a.conversation(sessionID)
	if err != nil {
		return Answer{}, err
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompts.BuildAnswerPrompt(gathered, query)})

	if onDelta == nil {
		onDelta = func(string) error { return nil }
	}
	text, err := a.streamer.StreamChat(ctx, messages, onDelta)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to generate answer: %w", err)
	}

	if sessionID != "" && a.sessions != nil {
		err := a.sessions.Append(sessionID,
			session.Turn{Role: session.RoleUser, Text: query},
			session.Turn{Role: session.RoleModel, Text: text},
		)
		if err != nil {
			return Answer{}, err
		}
	}
	return Answer{Decision: decision, Context: gathered, Text: text}, nil
}

func (a *Agent) gather(ctx context.Context, d Decision, query string) string {
	switch d.Type {
	case RouteTool:
		a.log.Debug("running tool", "tool", d.ToolName)
		return a.tools.Invoke(ctx, d.ToolName, d.Args)
	case RouteVector:
		if a.retriever == nil {
			return ""
		}
		results, err := a.retriever.Query(ctx, query, a.opts.TopK)
		if err != nil {
			a.log.Warn("retrieval failed, answering without context", "error", err)
			return ""
		}
		return FormatChunks(results)
	default:
		return ""
	}
}

func (a *Agent) conversation(sessionID string) ([]llm.Message, error) {
	if sessionID == "" || a.sessions == nil {
		return nil, nil
	}
	turns, err := a.sessions.Load(sessionID)
	if err != nil {
		return nil, err
	}
	turns = session.Window(turns, a.opts.HistoryTurns)

	messages := make([]llm.Message, 0, len(turns)+1)
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == session.RoleModel {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Text})
	}
	return messages, nil
}

// FormatChunks renders retrieved chunks as numbered context blocks.
func FormatChunks(results []vectorstore.Result) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Chunk %d (similarity %.3f) ---\n%s", i+1, r.Similarity, r.Text)
	}
	return b.String()
}
