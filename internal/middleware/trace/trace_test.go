package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	applog "finance/internal/log"
	"finance/internal/observability"
)

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Component: applog.ComponentHTTP, Output: &buf})
	reg := prometheus.NewRegistry()
	m := NewMiddleware(logger, func(*http.Request) string { return "192.0.2.10" }, observability.NewMetrics(reg))

	var seenID string
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/scheduled/{id}", func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNotFound)
	})

	t.Run("generates id", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scheduled/7", nil))

		id := rec.Header().Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("response id %q is not a uuid", id)
		}
		if seenID != id {
			t.Fatalf("context id %q != header id %q", seenID, id)
		}
		out := buf.String()
		if strings.Count(out, id) != 2 {
			t.Fatalf("expected handler and access log lines to carry the id:\n%s", out)
		}
		if !strings.Contains(out, `"route":"/api/scheduled/{id}"`) || !strings.Contains(out, `"status_code":404`) {
			t.Fatalf("access log missing route or status:\n%s", out)
		}
	})

	t.Run("keeps caller id", func(t *testing.T) {
		want := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/api/scheduled/8", nil)
		req.Header.Set(RequestIDHeader, want)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if got := rec.Header().Get(RequestIDHeader); got != want {
			t.Fatalf("id = %q, want %q", got, want)
		}
	})

	t.Run("replaces malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/scheduled/9", nil)
		req.Header.Set(RequestIDHeader, "x\ny")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if got := rec.Header().Get(RequestIDHeader); got == "x\ny" {
			t.Fatal("malformed id echoed back")
		}
	})

	if n := testutil.CollectAndCount(reg, "finance_http_requests_total"); n != 1 {
		t.Fatalf("request series = %d, want 1", n)
	}
}
