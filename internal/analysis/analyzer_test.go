package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yashwanth-reddy909/ghia/internal/types"
)

func sampleIssues() []*types.IssueSnapshot {
	body := "Steps to reproduce: open the app."
	created := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	return []*types.IssueSnapshot{
		{ID: 2, Repo: "acme/widgets", URL: "https://github.com/acme/widgets/issues/2", Title: "Crash on start", Body: &body, CreatedAt: created, UpdatedAt: created},
		{ID: 1, Repo: "acme/widgets", URL: "https://github.com/acme/widgets/issues/1", Title: "Docs typo", CreatedAt: created.Add(-time.Hour), UpdatedAt: created},
	}
}

func TestFormatPrompt(t *testing.T) {
	got, err := FormatPrompt(sampleIssues(), "What should we fix first?")
	if err != nil {
		t.Fatalf("FormatPrompt: %v", err)
	}

	for _, want := range []string{
		"Issue #1:\n- Title: Crash on start\n- Created: 2025-02-03T04:05:06Z",
		"- Description: Steps to reproduce: open the app.",
		"Issue #2:\n- Title: Docs typo",
		"- Description: (no description)",
		"User's request: What should we fix first?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "Crash on start") > strings.Index(got, "Docs typo") {
		t.Error("issues must keep their input order")
	}
}

func TestFormatPrompt_Empty(t *testing.T) {
	got, err := FormatPrompt(nil, "Summarize the backlog")
	if err != nil {
		t.Fatalf("FormatPrompt: %v", err)
	}
	if !strings.Contains(got, NoIssuesText) {
		t.Errorf("empty prompt should mention %q:\n%s", NoIssuesText, got)
	}
	if strings.Contains(got, "Issue #") {
		t.Errorf("empty prompt lists issues:\n%s", got)
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrAPIKeyRequired) {
		t.Errorf("New without key = %v, want ErrAPIKeyRequired", err)
	}
}

// messagesServer fakes the Messages endpoint and captures the last request.
func messagesServer(t *testing.T, status int, response string) (*httptest.Server, *map[string]any) {
	t.Helper()
	captured := map[string]any{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("X-Api-Key = %q, want test-key", got)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func newTestAnalyzer(t *testing.T, server *httptest.Server) *Analyzer {
	t.Helper()
	retries := 0
	temp := 0.2
	a, err := New(Config{
		APIKey:      "test-key",
		Model:       "test-model",
		MaxTokens:   512,
		Temperature: &temp,
		BaseURL:     server.URL,
		MaxRetries:  &retries,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestAnalyze(t *testing.T) {
	server, captured := messagesServer(t, http.StatusOK, `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "test-model",
		"content": [
			{"type": "text", "text": "Fix the crash first. "},
			{"type": "text", "text": "Then the docs."}
		],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 8}
	}`)
	analyzer := newTestAnalyzer(t, server)

	got, err := analyzer.Analyze(context.Background(), sampleIssues(), "What should we fix first?")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got != "Fix the crash first. Then the docs." {
		t.Errorf("Analyze = %q", got)
	}

	req := *captured
	if req["model"] != "test-model" {
		t.Errorf("model = %v, want test-model", req["model"])
	}
	if req["max_tokens"] != float64(512) {
		t.Errorf("max_tokens = %v, want 512", req["max_tokens"])
	}
	if req["temperature"] != 0.2 {
		t.Errorf("temperature = %v, want 0.2", req["temperature"])
	}
	messages, _ := req["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(messages))
	}
	raw, _ := json.Marshal(messages[0])
	if !strings.Contains(string(raw), "Crash on start") {
		t.Errorf("user message does not carry the issues: %s", raw)
	}
}

func TestAnalyze_APIError(t *testing.T) {
	server, _ := messagesServer(t, http.StatusBadRequest,
		`{"type":"error","error":{"type":"invalid_request_error","message":"prompt is too long"}}`)
	analyzer := newTestAnalyzer(t, server)

	_, err := analyzer.Analyze(context.Background(), sampleIssues(), "What should we fix first?")
	if !errors.Is(err, ErrAnalysis) {
		t.Errorf("Analyze error = %v, want ErrAnalysis", err)
	}
}

func TestAnalyze_NoRetryByDefault(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`))
	}))
	defer server.Close()

	analyzer, err := New(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = analyzer.Analyze(context.Background(), sampleIssues(), "What should we fix first?")
	if !errors.Is(err, ErrAnalysis) {
		t.Errorf("Analyze error = %v, want ErrAnalysis", err)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("model called %d times, want exactly 1", got)
	}
}

func TestAnalyze_PromptValidation(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer server.Close()
	analyzer := newTestAnalyzer(t, server)

	for _, prompt := range []string{"too short", strings.Repeat("x", 2001)} {
		_, err := analyzer.Analyze(context.Background(), nil, prompt)
		if !errors.Is(err, types.ErrValidation) {
			t.Errorf("Analyze(len=%d) error = %v, want validation failure", len(prompt), err)
		}
	}
	if called {
		t.Error("model was called for an invalid prompt")
	}
}
