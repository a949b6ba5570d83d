package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"github.com/ishaan812/gitinsight/internal/cache"
	"github.com/ishaan812/gitinsight/internal/chat"
	"github.com/ishaan812/gitinsight/internal/insight"
	"github.com/ishaan812/gitinsight/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// echoAgent streams the query back word by word and records sessions.
type echoAgent struct {
	mu       sync.Mutex
	sessions []string
	fail     bool
}

func (a *echoAgent) Answer(ctx context.Context, sessionID, query string, onDelta func(string) error) (chat.Answer, error) {
	a.mu.Lock()
	a.sessions = append(a.sessions, sessionID)
	fail := a.fail
	a.mu.Unlock()
	if fail {
		return chat.Answer{}, errors.New("model unavailable")
	}
	for _, w := range strings.Fields(query) {
		if err := onDelta(w + " "); err != nil {
			return chat.Answer{}, err
		}
	}
	return chat.Answer{Text: query}, nil
}

type fixture struct {
	cfg      Config
	sessions *session.Manager
	agent    *echoAgent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store := cache.Open(filepath.Join(dir, cache.FileName), nil)
	store.UpsertRaw([]cache.Commit{
		{Hash: "aaa", Message: "first", Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Hash: "bbb", Message: "second", Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
	})
	store.PutOverall(cache.OverallSummary{Summary: "Two commits.", NumberOfCommits: 10})
	sessions := session.NewManager(filepath.Join(dir, session.DirName), nil)
	agent := &echoAgent{}
	return &fixture{
		cfg:      Config{Store: store, Sessions: sessions, Agent: agent, Limit: 1},
		sessions: sessions,
		agent:    agent,
	}
}

func do(t *testing.T, r http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestInsightsEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := do(t, NewRouter(f.cfg), http.MethodGet, "/api/insights")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body insight.Insights
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Commits) != 1 || body.Commits[0].Hash != "bbb" || body.Summary != "Two commits." {
		t.Errorf("body = %+v", body)
	}
	if !strings.Contains(rec.Body.String(), `"chartConfig":null`) {
		t.Errorf("chartConfig should be null before aggregation: %s", rec.Body.String())
	}
}

func TestSessionEndpoints(t *testing.T) {
	f := newFixture(t)
	r := NewRouter(f.cfg)
	if err := f.sessions.Append("abc", session.Turn{Role: session.RoleUser, Text: "hi"}, session.Turn{Role: session.RoleModel, Text: "hello"}); err != nil {
		t.Fatal(err)
	}

	rec := do(t, r, http.MethodGet, "/api/sessions")
	var infos []session.Info
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].ID != "abc" || infos[0].Title != "hi" || infos[0].MessageCount != 2 {
		t.Errorf("sessions = %+v", infos)
	}

	rec = do(t, r, http.MethodGet, "/api/sessions/abc")
	want := `{"messages":[{"id":"abc-0","type":"user","content":"hi"},{"id":"abc-1","type":"ai","content":"hello"}]}`
	if rec.Code != http.StatusOK || rec.Body.String() != want {
		t.Errorf("GET session = %d %s", rec.Code, rec.Body.String())
	}

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/sessions/bad%20id", http.StatusBadRequest},
		{http.MethodDelete, "/api/sessions/abc", http.StatusOK},
		{http.MethodDelete, "/api/sessions/abc", http.StatusNotFound},
		{http.MethodDelete, "/api/sessions/bad%20id", http.StatusBadRequest},
		{http.MethodGet, "/healthcheck", http.StatusOK},
	}
	for _, tt := range tests {
		if rec := do(t, r, tt.method, tt.path); rec.Code != tt.status {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.status)
		}
	}

	rec = do(t, r, http.MethodGet, "/api/sessions")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("empty list = %s", rec.Body.String())
	}
}

func TestCORSAllowsDevOrigin(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/insights", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	NewRouter(f.cfg).ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow-origin = %q", got)
	}
}

func dial(t *testing.T, cfg Config) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn, ctx
}

// readUntil collects frames up to and including one of the given types.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, stop ...string) []Frame {
	t.Helper()
	var frames []Frame
	for {
		var f Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			t.Fatalf("read: %v (frames so far %+v)", err, frames)
		}
		frames = append(frames, f)
		for _, s := range stop {
			if f.Type == s {
				return frames
			}
		}
	}
}

func TestChatSocketNewSession(t *testing.T) {
	f := newFixture(t)
	conn, ctx := dial(t, f.cfg)

	if err := wsjson.Write(ctx, conn, Request{Query: "who wrote this"}); err != nil {
		t.Fatal(err)
	}
	frames := readUntil(t, ctx, conn, FrameDone, FrameError)

	if frames[0].Type != FrameSession || session.ValidateID(frames[0].SessionID) != nil {
		t.Fatalf("first frame = %+v", frames[0])
	}
	var text strings.Builder
	for _, fr := range frames[1 : len(frames)-1] {
		if fr.Type != FrameResponse {
			t.Errorf("unexpected frame %+v", fr)
		}
		text.WriteString(fr.Text)
	}
	if text.String() != "who wrote this " || frames[len(frames)-1].Type != FrameDone {
		t.Errorf("streamed %q, last frame %+v", text.String(), frames[len(frames)-1])
	}

	// The connection keeps its session for later queries.
	if err := wsjson.Write(ctx, conn, Request{Query: "and then"}); err != nil {
		t.Fatal(err)
	}
	frames = readUntil(t, ctx, conn, FrameDone, FrameError)
	if frames[0].Type != FrameResponse {
		t.Errorf("second query re-announced session: %+v", frames[0])
	}
	f.agent.mu.Lock()
	defer f.agent.mu.Unlock()
	if len(f.agent.sessions) != 2 || f.agent.sessions[0] != f.agent.sessions[1] {
		t.Errorf("sessions = %v", f.agent.sessions)
	}
}

func TestChatSocketErrors(t *testing.T) {
	f := newFixture(t)
	conn, ctx := dial(t, f.cfg)

	if err := wsjson.Write(ctx, conn, Request{SessionID: "given", Query: ""}); err != nil {
		t.Fatal(err)
	}
	frames := readUntil(t, ctx, conn, FrameError)
	if len(frames) != 1 || frames[0].Error != "Query is empty." {
		t.Errorf("frames = %+v", frames)
	}

	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if frames := readUntil(t, ctx, conn, FrameError); frames[0].Error != "Malformed request." {
		t.Errorf("frames = %+v", frames)
	}

	if err := wsjson.Write(ctx, conn, Request{SessionID: "../etc", Query: "x"}); err != nil {
		t.Fatal(err)
	}
	if frames := readUntil(t, ctx, conn, FrameError); frames[0].Error != "Invalid session id." {
		t.Errorf("frames = %+v", frames)
	}

	f.agent.mu.Lock()
	f.agent.fail = true
	f.agent.mu.Unlock()
	if err := wsjson.Write(ctx, conn, Request{SessionID: "given", Query: "x"}); err != nil {
		t.Fatal(err)
	}
	if frames := readUntil(t, ctx, conn, FrameError, FrameDone); frames[0].Type != FrameError {
		t.Errorf("frames = %+v", frames)
	}
}
