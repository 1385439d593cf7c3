package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"distill/internal/config"
	"distill/internal/engine"
	"distill/internal/gateway/handlers"
	"distill/internal/provider/providertest"
)

func newTestServer(t *testing.T, port int) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Transcript.Enabled = false
	cfg.Gateway.Port = port

	e, err := engine.Open(cfg, engine.WithProvider(&providertest.MockProvider{}), engine.WithoutCache())
	if err != nil {
		t.Fatalf("engine.Open failed: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	return NewServer(cfg, e, "v1.0.0-test")
}

func TestNewServer(t *testing.T) {
	server := newTestServer(t, 8080)

	if server.Router() == nil {
		t.Fatal("router is nil")
	}
	if got := server.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8080", got)
	}
}

func TestServerHealthEndpoint(t *testing.T) {
	server := newTestServer(t, 8080)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp handlers.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %v, want ok", resp.Status)
	}
	if resp.Version != "v1.0.0-test" {
		t.Errorf("version = %v, want v1.0.0-test", resp.Version)
	}
	if resp.Identity != "mock(model=test)" {
		t.Errorf("identity = %v, want mock(model=test)", resp.Identity)
	}
}

func TestServerAskThroughMiddleware(t *testing.T) {
	server := newTestServer(t, 8080)

	body := strings.NewReader(`{"prompt": "Please summarize the following paragraph for me."}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", body)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}
}

func TestServerMetrics(t *testing.T) {
	server := newTestServer(t, 8080)

	body := strings.NewReader(`{"prompt": "Please summarize the following paragraph for me."}`)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/ask", body))
	if w.Code != http.StatusOK {
		t.Fatalf("ask status = %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}

	out := w.Body.String()
	for _, want := range []string{
		`distill_counter_total{name="ask-mock(model=test)"} 1`,
		`distill_counter_total{name="ask-mock(model=test)-miss"} 1`,
		`distill_http_request_duration_seconds_count{method="POST",route="/v1/ask",status="200"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestServerNotFound(t *testing.T) {
	server := newTestServer(t, 8080)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var resp handlers.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if resp.Error.Code != handlers.ErrCodeNotFound {
		t.Errorf("code = %s, want %s", resp.Error.Code, handlers.ErrCodeNotFound)
	}
}

func TestServerShutdown(t *testing.T) {
	server := newTestServer(t, 0)

	done := make(chan error, 1)
	go func() {
		done <- server.Start()
	}()

	time.Sleep(50 * time.Millisecond)

	if err := server.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown error: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Start did not return after Shutdown")
	}
}
