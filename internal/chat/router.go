package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ishaan812/gitinsight/internal/llm"
	"github.com/ishaan812/gitinsight/internal/logger"
	"github.com/ishaan812/gitinsight/internal/prompts"
)

type RouteType string

const (
	RouteTool   RouteType = "tool"
	RouteVector RouteType = "vector"
	RouteChat   RouteType = "chat"
)

const defaultDecisionCacheSize = 128

// Decision is the router's classification of one query. It is also the JSON
// shape the model is asked to produce.
type Decision struct {
	Type     RouteType      `json:"type"`
	ToolName string         `json:"toolName,omitempty"`
	Args     map[string]any `json:"args,omitempty"`
}

// Router classifies queries into tool, vector, or chat routes.
type Router struct {
	client      llm.Client
	tools       *Registry
	log         *logger.Logger
	callTimeout time.Duration

	mu        sync.Mutex
	decisions map[string]Decision
	order     []string
	cacheSize int
}

type RouterOption func(*Router)

// WithDecisionCacheSize bounds how many decisions are memoized. Zero
// disables the cache.
func WithDecisionCacheSize(n int) RouterOption {
	return func(r *Router) { r.cacheSize = n }
}

func WithCallTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.callTimeout = d }
}

func NewRouter(client llm.Client, tools *Registry, log *logger.Logger, opts ...RouterOption) *Router {
	r := &Router{
		client:      client,
		tools:       tools,
		log:         logger.OrNop(log),
		callTimeout: 120 * time.Second,
		decisions:   make(map[string]Decision),
		cacheSize:   defaultDecisionCacheSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func cacheKey(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Classify decides how query should be answered. It never fails: any model
// error, unparseable reply, unknown route, or unknown tool yields a chat
// decision.
func (r *Router) Classify(ctx context.Context, query string) Decision {
	key := cacheKey(query)
	if d, ok := r.cached(key); ok {
		r.log.Debug("router cache hit", "query", key, "type", d.Type)
		return d
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	raw, err := r.client.Complete(callCtx, prompts.BuildRouterPrompt(r.tools.Describe(), query))
	cancel()
	if err != nil {
		r.log.Warn("router classification failed, falling back to chat", "error", err)
		return Decision{Type: RouteChat}
	}

	d, ok := r.parse(raw)
	if !ok {
		return d
	}
	if d.Type == RouteTool && d.ToolName == FileTool {
		mentioned := stringArg(d.Args, "file")
		d.Args = map[string]any{"file": r.ResolvePath(ctx, query, mentioned)}
	}

	r.log.Debug("router decision", "type", d.Type, "tool", d.ToolName, "args", d.Args)
	r.remember(key, d)
	return d
}

// parse extracts and validates a decision. ok is false when the reply had to
// be coerced to chat; such decisions are not cached.
func (r *Router) parse(raw string) (Decision, bool) {
	var d Decision
	if err := llm.DecodeJSON(raw, &d); err != nil {
		r.log.Warn("router reply unparseable, falling back to chat", "error", err)
		return Decision{Type: RouteChat}, false
	}

	d.Type = RouteType(strings.ToLower(strings.TrimSpace(string(d.Type))))
	switch d.Type {
	case RouteChat, RouteVector:
		return Decision{Type: d.Type}, true
	case RouteTool:
		if _, ok := r.tools.Get(d.ToolName); !ok {
			r.log.Warn("router picked unknown tool, falling back to chat", "tool", d.ToolName)
			return Decision{Type: RouteChat}, false
		}
		if d.Args == nil {
			d.Args = map[string]any{}
		}
		return d, true
	default:
		r.log.Warn("router returned unknown route, falling back to chat", "type", d.Type)
		return Decision{Type: RouteChat}, false
	}
}

// ResolvePath maps a user-supplied partial path onto a tracked file. A
// failed resolution degrades to the best guess available, never an error.
func (r *Router) ResolvePath(ctx context.Context, query, mentioned string) string {
	mentioned = strings.TrimPrefix(strings.TrimSpace(mentioned), "/")

	files, err := r.tools.TrackedFiles()
	if err != nil || len(files) == 0 {
		if err != nil {
			r.log.Warn("could not list tracked files", "error", err)
		}
		return mentioned
	}
	if match, ok := matchTracked(mentioned, files); ok {
		return match
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	raw, err := r.client.Complete(callCtx, prompts.BuildFilePathPrompt(query, mentioned, files))
	if err != nil {
		r.log.Warn("file path resolution failed", "file", mentioned, "error", err)
		return mentioned
	}

	guess := strings.TrimSpace(llm.StripCodeFence(raw))
	if line, _, _ := strings.Cut(guess, "\n"); line != "" {
		guess = line
	}
	guess = strings.TrimPrefix(strings.Trim(guess, "`'\" "), "/")
	if match, ok := matchTracked(guess, files); ok {
		return match
	}
	if guess == "" {
		return mentioned
	}
	return guess
}

// matchTracked finds path in files exactly, or as the unique file ending in
// "/"+path.
func matchTracked(path string, files []string) (string, bool) {
	if path == "" {
		return "", false
	}
	var suffixMatch string
	matches := 0
	for _, f := range files {
		if f == path {
			return f, true
		}
		if strings.HasSuffix(f, "/"+path) {
			suffixMatch = f
			matches++
		}
	}
	return suffixMatch, matches == 1
}

func (r *Router) cached(key string) (Decision, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.decisions[key]
	return d, ok
}

func (r *Router) remember(key string, d Decision) {
	if r.cacheSize <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.decisions[key]; !ok {
		r.order = append(r.order, key)
	}
	r.decisions[key] = d
	for len(r.order) > r.cacheSize {
		delete(r.decisions, r.order[0])
		r.order = r.order[1:]
	}
}
