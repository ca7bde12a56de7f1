package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/nestfund/savings_layer/internal/logging"
	"github.com/nestfund/savings_layer/internal/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(1, 1, logging.NewDiscard())
	handler := rl.Handler(okHandler())

	send := func(wallet, remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/users/x", nil)
		req.RemoteAddr = remote
		if wallet != "" {
			req = req.WithContext(logging.WithWallet(req.Context(), wallet))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("alice", "10.0.0.1:1"); code != http.StatusOK {
		t.Fatalf("first request = %d", code)
	}
	if code := send("alice", "10.0.0.2:1"); code != http.StatusTooManyRequests {
		t.Errorf("second request for same wallet = %d, want 429", code)
	}
	if code := send("bob", "10.0.0.1:1"); code != http.StatusOK {
		t.Errorf("other wallet = %d, want 200", code)
	}
	if code := send("", "10.0.0.9:1"); code != http.StatusOK {
		t.Errorf("anonymous = %d, want 200", code)
	}
}

func TestRateLimiterRejectsWithEnvelope(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	handler := rl.Handler(okHandler())

	var rec *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		handler.ServeHTTP(rec, req)
	}

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if kind := errorKind(t, rec); kind != "RATE_LIMITED" {
		t.Errorf("kind = %q", kind)
	}
}

func TestRateLimiterCleanupEvictsIdle(t *testing.T) {
	rl := NewRateLimiter(10, 10, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getLimiter("old")
	now = now.Add(11 * time.Minute)
	rl.getLimiter("fresh")

	if removed := rl.Cleanup(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if rl.size() != 1 {
		t.Errorf("size = %d, want 1", rl.size())
	}

	stop := rl.StartCleanup(time.Hour)
	stop()
	stop()
}

func TestCORSPreflight(t *testing.T) {
	cors := NewCORSMiddleware([]string{"https://app.nestfund.io", ".nestfund.dev"})
	handler := cors.Handler(okHandler())

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://app.nestfund.io", true},
		{"https://preview.nestfund.dev", true},
		{"http://preview.nestfund.dev", false},
		{"https://evilnestfund.io", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/goals/create", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusNoContent {
				t.Errorf("status = %d, want 204", rec.Code)
			}
			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed && got != tt.origin {
				t.Errorf("allow-origin = %q", got)
			}
			if !tt.allowed && got != "" {
				t.Errorf("allow-origin = %q, want none", got)
			}
			if tt.allowed && !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), HeaderSignature) {
				t.Error("signature header not allowed")
			}
		})
	}
}

func TestTracingMiddleware(t *testing.T) {
	var seen string
	handler := NewTracingMiddleware(nil).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get(TraceHeader) != "abc-123" {
		t.Errorf("trace id = %q / %q, want abc-123", seen, rec.Header().Get(TraceHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, "bad id with spaces\n")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen == "" || strings.Contains(seen, " ") {
		t.Errorf("malformed trace id kept: %q", seen)
	}
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	m := metrics.New("savings")
	r := mux.NewRouter()
	r.Use(MetricsMiddleware("savings-gateway", m))
	r.Use(LoggingMiddleware(logging.NewDiscard()))
	r.Handle("/users/{address}", okHandler())

	for _, addr := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+addr, nil))
	}

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `savings_http_requests_total{method="GET",path="/users/{address}",service="savings-gateway",status="200"} 3`
	if !strings.Contains(scrape.Body.String(), want) {
		t.Errorf("metrics missing %q", want)
	}
}
