package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stellarlinkco/luma/internal/config"
	"github.com/stellarlinkco/luma/internal/engine"
	"github.com/stellarlinkco/luma/internal/llm"
	"github.com/stellarlinkco/luma/internal/memory"
	"github.com/stellarlinkco/luma/internal/persona"
)

type stubGenerator struct {
	text  string
	calls int
}

func (g *stubGenerator) Generate(ctx context.Context, systemPrompt string, history []memory.Turn) (*llm.Reply, error) {
	g.calls++
	return &llm.Reply{Text: g.text, Usage: llm.Usage{TotalTokens: 10}}, nil
}

func newTestServer(t *testing.T, gen llm.Generator) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	store := memory.NewStore(memory.NewInMemoryBackend(), cfg.Engine)
	pm := persona.NewManager(persona.DefaultConfig())
	eng := engine.New(cfg, pm, store, gen)
	return New(cfg.Server, eng)
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{text: "Sounds like a great day!"})

	rec := doJSON(t, srv, http.MethodPost, "/api/chat",
		`{"user_id":"u1","session_id":"s1","message":"today was awesome"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp engine.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Text != "Sounds like a great day!" {
		t.Fatalf("text = %q", resp.Text)
	}
	if resp.SessionID != "s1" {
		t.Fatalf("session id = %q", resp.SessionID)
	}
}

func TestChatMintsSessionID(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{text: "hey!"})

	rec := doJSON(t, srv, http.MethodPost, "/api/chat",
		`{"user_id":"u1","message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp engine.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected minted session id")
	}
}

func TestChatRejectsBadRequests(t *testing.T) {
	gen := &stubGenerator{text: "hi"}
	srv := newTestServer(t, gen)

	cases := []struct {
		name string
		body string
	}{
		{"missing user", `{"message":"hi"}`},
		{"missing message", `{"user_id":"u1"}`},
		{"bad user id", `{"user_id":"no spaces","message":"hi"}`},
		{"malformed json", `{"user_id":`},
	}
	for _, tc := range cases {
		rec := doJSON(t, srv, http.MethodPost, "/api/chat", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, rec.Code)
		}
	}
	if gen.calls != 0 {
		t.Fatalf("generator called %d times for invalid requests", gen.calls)
	}
}

func TestStartConversationEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{text: "unused"})

	rec := doJSON(t, srv, http.MethodPost, "/api/conversations/start",
		`{"user_id":"u1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp engine.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Text == "" {
		t.Fatal("expected an opener")
	}
}

func TestUserStatsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{text: "hey"})

	doJSON(t, srv, http.MethodPost, "/api/chat",
		`{"user_id":"statsuser","session_id":"s1","message":"hello there"}`)

	rec := doJSON(t, srv, http.MethodGet, "/api/users/statsuser/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var stats engine.UserStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.UserID != "statsuser" {
		t.Fatalf("user id = %q", stats.UserID)
	}
	if stats.InteractionCount != 1 {
		t.Fatalf("interaction count = %d", stats.InteractionCount)
	}
}

func TestResetMemoryEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{text: "hey"})

	doJSON(t, srv, http.MethodPost, "/api/chat",
		`{"user_id":"u1","session_id":"s1","message":"I'm Maya and I love hiking"}`)

	rec := doJSON(t, srv, http.MethodDelete, "/api/users/u1/memory?session_id=s1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/users/u1/stats", "")
	var stats engine.UserStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.InteractionCount != 0 {
		t.Fatalf("interaction count after reset = %d", stats.InteractionCount)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{text: "hey"})

	rec := doJSON(t, srv, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var checks map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &checks); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if !checks["overall"] {
		t.Fatalf("overall = false: %v", checks)
	}
}

func TestSystemStatsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{text: "hey"})

	rec := doJSON(t, srv, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Luna") {
		t.Fatalf("expected persona name in stats, got %s", rec.Body.String())
	}
}
