package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nightowlworks/grindbot/internal/config"
	"github.com/nightowlworks/grindbot/internal/pipeline"
)

// mockInvoker implements Invoker for testing
type mockInvoker struct {
	reactiveCalls  int
	proactiveCalls int
	lastForce      bool
	summary        pipeline.Summary
	err            error
}

func (m *mockInvoker) Reactive(ctx context.Context, force bool) (pipeline.Summary, error) {
	m.reactiveCalls++
	m.lastForce = force
	return m.summary, m.err
}

func (m *mockInvoker) Proactive(ctx context.Context) (pipeline.Summary, error) {
	m.proactiveCalls++
	return m.summary, m.err
}

func newTestServer(inv Invoker) *Server {
	cfg := config.DefaultConfig()
	cfg.Trigger.APIKey = "secret"
	return NewServer(cfg, inv)
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHooks_BadKeyRejectedWithoutSideEffects(t *testing.T) {
	inv := &mockInvoker{}
	s := newTestServer(inv)

	for _, target := range []string{
		"/hooks/reply",
		"/hooks/reply?key=wrong",
		"/hooks/nag?key=",
	} {
		rec := do(t, s, http.MethodGet, target)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", target, rec.Code)
		}
	}

	if inv.reactiveCalls != 0 || inv.proactiveCalls != 0 {
		t.Fatalf("pipeline invoked on rejected requests: reactive=%d proactive=%d",
			inv.reactiveCalls, inv.proactiveCalls)
	}
}

func TestHooks_UnconfiguredKeyRefusesAll(t *testing.T) {
	inv := &mockInvoker{}
	cfg := config.DefaultConfig()
	s := NewServer(cfg, inv)

	rec := do(t, s, http.MethodGet, "/hooks/reply?key=")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 when no key configured", rec.Code)
	}
	if inv.reactiveCalls != 0 {
		t.Fatal("pipeline invoked with no key configured")
	}
}

func TestReplyHook_ReturnsSummary(t *testing.T) {
	inv := &mockInvoker{summary: pipeline.Summary{
		InvocationID:          "inv-1",
		ProcessedMessageCount: 2,
		SentCount:             1,
		MemoryUpdated:         true,
	}}
	s := newTestServer(inv)

	rec := do(t, s, http.MethodPost, "/hooks/reply?key=secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if inv.reactiveCalls != 1 {
		t.Fatalf("reactiveCalls = %d, want 1", inv.reactiveCalls)
	}
	if inv.lastForce {
		t.Fatal("force = true without flag")
	}

	var got pipeline.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.InvocationID != "inv-1" || got.SentCount != 1 || !got.MemoryUpdated {
		t.Fatalf("summary = %+v", got)
	}
}

func TestReplyHook_ForceFlagVariants(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"", false},
		{"&force=1", true},
		{"&force=true", true},
		{"&force=0", false},
		{"&test=yes", true},
	}

	for _, tt := range tests {
		inv := &mockInvoker{}
		s := newTestServer(inv)
		do(t, s, http.MethodGet, "/hooks/reply?key=secret"+tt.query)
		if inv.lastForce != tt.want {
			t.Errorf("query %q: force = %v, want %v", tt.query, inv.lastForce, tt.want)
		}
	}
}

func TestNagHook_InvokesProactive(t *testing.T) {
	inv := &mockInvoker{summary: pipeline.Summary{Tier: "average"}}
	s := newTestServer(inv)

	rec := do(t, s, http.MethodPost, "/hooks/nag?key=secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if inv.proactiveCalls != 1 || inv.reactiveCalls != 0 {
		t.Fatalf("calls: proactive=%d reactive=%d", inv.proactiveCalls, inv.reactiveCalls)
	}

	var got pipeline.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Tier != "average" {
		t.Fatalf("Tier = %q, want average", got.Tier)
	}
}

func TestHooks_PipelineErrorIs500WithDiagnostics(t *testing.T) {
	inv := &mockInvoker{
		summary: pipeline.Summary{Diagnostics: []string{"generation failed: boom"}},
		err:     errors.New("boom"),
	}
	s := newTestServer(inv)

	rec := do(t, s, http.MethodGet, "/hooks/reply?key=secret")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body struct {
		Error       string   `json:"error"`
		Diagnostics []string `json:"diagnostics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "boom" {
		t.Errorf("error = %q, want boom", body.Error)
	}
	if len(body.Diagnostics) != 1 {
		t.Errorf("diagnostics = %v, want the pipeline's", body.Diagnostics)
	}
}

func TestHealth_NoKeyRequired(t *testing.T) {
	s := newTestServer(&mockInvoker{})
	rec := do(t, s, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
}
