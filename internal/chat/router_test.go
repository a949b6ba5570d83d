package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func newTestRouter(client *fakeClient, opts ...RouterOption) *Router {
	return NewRouter(client, NewRegistry(newFakeHistory(), nil, 0), nil, opts...)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		err      error
		wantType RouteType
		wantTool string
	}{
		{name: "fenced json", reply: "```json\n{\"type\":\"chat\"}\n```", wantType: RouteChat},
		{name: "prose wrapped", reply: "Sure thing! {\"type\":\"vector\"} enjoy", wantType: RouteVector},
		{name: "tool with args", reply: `{"type":"tool","toolName":"getCommitByKeyword","args":{"keyword":"crash"}}`, wantType: RouteTool, wantTool: "getCommitByKeyword"},
		{name: "upper case type", reply: `{"type":" Vector "}`, wantType: RouteVector},
		{name: "unrecognized type", reply: `{"type":"unrecognized-value"}`, wantType: RouteChat},
		{name: "unknown tool", reply: `{"type":"tool","toolName":"dropDatabase"}`, wantType: RouteChat},
		{name: "no json", reply: "I think you want a chat.", wantType: RouteChat},
		{name: "model error", err: errors.New("quota exceeded"), wantType: RouteChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeClient{route: tt.reply, err: tt.err})
			d := r.Classify(context.Background(), "what happened?")
			if d.Type != tt.wantType || d.ToolName != tt.wantTool {
				t.Errorf("Classify() = %+v, want type %q tool %q", d, tt.wantType, tt.wantTool)
			}
		})
	}
}

func TestClassifyCachesValidDecisions(t *testing.T) {
	client := &fakeClient{route: `{"type":"vector"}`}
	r := newTestRouter(client)

	r.Classify(context.Background(), "Who touched  the parser?")
	r.Classify(context.Background(), "who touched the parser?")
	if client.calls() != 1 {
		t.Errorf("model called %d times, want 1", client.calls())
	}

	client.route = `{"type":"bogus"}`
	r.Classify(context.Background(), "something else")
	r.Classify(context.Background(), "something else")
	if client.calls() != 3 {
		t.Errorf("coerced decisions should not be cached; calls = %d", client.calls())
	}
}

func TestDecisionCacheIsBounded(t *testing.T) {
	client := &fakeClient{route: `{"type":"chat"}`}
	r := newTestRouter(client, WithDecisionCacheSize(2))

	for _, q := range []string{"a", "b", "c"} {
		r.Classify(context.Background(), q)
	}
	r.Classify(context.Background(), "c")
	if client.calls() != 3 {
		t.Errorf("calls = %d, want 3", client.calls())
	}
	r.Classify(context.Background(), "a")
	if client.calls() != 4 {
		t.Errorf("evicted entry served from cache; calls = %d", client.calls())
	}
}

func TestClassifyResolvesFilePath(t *testing.T) {
	route := `{"type":"tool","toolName":"summarizeFileEvolution","args":{"file":"%s"}}`

	tests := []struct {
		name      string
		mentioned string
		pathReply string
		pathErr   bool
		want      string
		wantCalls int
	}{
		{name: "exact match skips model", mentioned: "/main.go", want: "main.go", wantCalls: 1},
		{name: "unique suffix skips model", mentioned: "strings.go", want: "internal/util/strings.go", wantCalls: 1},
		{name: "model picks path", mentioned: "the util file", pathReply: "`pkg/util.go`", want: "pkg/util.go", wantCalls: 2},
		{name: "model reply suffix matched", mentioned: "app entry", pathReply: "app/main.go", want: "cmd/app/main.go", wantCalls: 2},
		{name: "unmatched reply kept as best guess", mentioned: "docs", pathReply: "docs/guide.md", want: "docs/guide.md", wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{route: fmtRoute(route, tt.mentioned), path: tt.pathReply}
			d := newTestRouter(client).Classify(context.Background(), "how did it evolve?")
			if d.Type != RouteTool || d.Args["file"] != tt.want {
				t.Errorf("decision = %+v, want file %q", d, tt.want)
			}
			if client.calls() != tt.wantCalls {
				t.Errorf("model calls = %d, want %d", client.calls(), tt.wantCalls)
			}
		})
	}
}

func TestResolvePathFailureFallsBack(t *testing.T) {
	client := &fakeClient{err: errors.New("timeout")}
	r := newTestRouter(client)
	if got := r.ResolvePath(context.Background(), "q", "/somewhere/file.txt"); got != "somewhere/file.txt" {
		t.Errorf("ResolvePath() = %q", got)
	}
}

func TestMatchTracked(t *testing.T) {
	files := []string{"a/util.go", "b/util.go", "main.go"}
	if _, ok := matchTracked("util.go", files); ok {
		t.Error("ambiguous suffix should not match")
	}
	if got, ok := matchTracked("main.go", files); !ok || got != "main.go" {
		t.Errorf("matchTracked(main.go) = %q, %v", got, ok)
	}
	if _, ok := matchTracked("", files); ok {
		t.Error("empty path matched")
	}
}

func fmtRoute(format, file string) string {
	return fmt.Sprintf(format, file)
}
