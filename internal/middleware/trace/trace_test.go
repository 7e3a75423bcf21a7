package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "bilancio/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer) *Middleware {
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}), Component: "test"})
	return NewMiddleware(logger, func(*http.Request) string { return "198.51.100.7" })
}

func TestMiddleware_TagsRequestAndLogs(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		applog.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/transactions", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if got := rr.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("%s = %q, want %q", RequestIDHeader, got, seen)
	}

	out := buf.String()
	for _, want := range []string{"HTTP request started", "HTTP request completed", "status_code=201", "request_id=" + seen, "client_ip=198.51.100.7"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}

	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d, want 1", got)
	}
}

func TestMiddleware_KeepsIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "abc123" {
		t.Errorf("request id = %q, want abc123", seen)
	}
}
