package shield

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/docdiff/kit"
)

func stackRouter(cfg Config, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	for _, mw := range Stack(cfg) {
		r.Use(mw)
	}
	r.Get("/test", h)
	r.Post("/upload", h)
	return r
}

func TestStack_SecurityHeaders(t *testing.T) {
	// WHAT: Responses carry the security headers and an 8-hex X-Trace-ID.
	// WHY: The HTML report is served from the same router as the JSON API.
	r := stackRouter(Config{}, func(w http.ResponseWriter, r *http.Request) {
		if kit.GetTraceID(r.Context()) == "" {
			t.Error("trace id missing from context")
		}
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	checks := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "no-referrer",
	}
	for header, expected := range checks {
		if got := w.Header().Get(header); got != expected {
			t.Errorf("%s: got %q, want %q", header, got, expected)
		}
	}
	if id := w.Header().Get("X-Trace-ID"); len(id) != 8 {
		t.Errorf("X-Trace-ID: got %q, want 8 hex chars", id)
	}
}

func TestTraceID_KeepsInbound(t *testing.T) {
	r := stackRouter(Config{}, func(w http.ResponseWriter, r *http.Request) {})
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Trace-ID", "caller-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Trace-ID"); got != "caller-1" {
		t.Fatalf("X-Trace-ID = %q", got)
	}
}

func TestHeadToGet(t *testing.T) {
	r := stackRouter(Config{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("HEAD", "/test", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("HEAD status = %d", w.Code)
	}
}

func TestMaxBody(t *testing.T) {
	r := stackRouter(Config{MaxUploadBytes: 8}, func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/upload", strings.NewReader("0123456789")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body: status %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/upload", strings.NewReader("0123")))
	if w.Code != http.StatusOK {
		t.Fatalf("small body: status %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(map[string]Limit{
		"POST /upload": {MaxRequests: 2, WindowSeconds: 60},
	}, nil, "/healthz")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	do := func(method, path, ip string) int {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	for i := range 2 {
		if code := do("POST", "/upload", "10.0.0.1"); code != http.StatusAccepted {
			t.Fatalf("request %d: %d", i, code)
		}
	}
	if code := do("POST", "/upload", "10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("third request: %d", code)
	}
	if code := do("POST", "/upload", "10.0.0.2"); code != http.StatusAccepted {
		t.Fatalf("other client: %d", code)
	}
	if code := do("GET", "/upload", "10.0.0.1"); code != http.StatusAccepted {
		t.Fatalf("unlimited endpoint: %d", code)
	}
	if code := do("POST", "/healthz", "10.0.0.1"); code != http.StatusAccepted {
		t.Fatalf("excluded prefix: %d", code)
	}

	now = now.Add(61 * time.Second)
	if code := do("POST", "/upload", "10.0.0.1"); code != http.StatusAccepted {
		t.Fatalf("after window: %d", code)
	}
}

func TestExtractIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	if got := ExtractIP(req); got != "192.0.2.1" {
		t.Errorf("RemoteAddr: %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ExtractIP(req); got != "203.0.113.7" {
		t.Errorf("X-Forwarded-For: %q", got)
	}
}
