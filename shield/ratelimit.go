package shield

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limit is a fixed-window budget for one endpoint, keyed by
// "METHOD /route" (e.g. "POST /api/v1/comparisons").
type Limit struct {
	MaxRequests   int `json:"max_requests" yaml:"max_requests"`
	WindowSeconds int `json:"window_seconds" yaml:"window_seconds"`
}

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter provides per-IP, per-endpoint rate limiting over fixed
// windows. Endpoints without a rule are not limited.
type RateLimiter struct {
	rules   map[string]Limit
	logger  *slog.Logger
	exclude []string // path prefixes excluded from rate limiting
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewRateLimiter creates a limiter for the given rules.
func NewRateLimiter(rules map[string]Limit, logger *slog.Logger, excludePrefixes ...string) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		rules:   rules,
		logger:  logger,
		exclude: excludePrefixes,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (rl *RateLimiter) allow(ip, endpoint string) bool {
	cfg, ok := rl.rules[endpoint]
	if !ok || cfg.MaxRequests <= 0 {
		return true
	}
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}

	now := rl.now()
	key := ip + ":" + endpoint

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || now.After(b.resetAt) {
		rl.gcLocked(now)
		rl.buckets[key] = &bucket{count: 1, resetAt: now.Add(window)}
		return true
	}
	b.count++
	return b.count <= cfg.MaxRequests
}

// gcLocked drops expired buckets once the map has grown.
func (rl *RateLimiter) gcLocked(now time.Time) {
	if len(rl.buckets) < 1024 {
		return
	}
	for k, b := range rl.buckets {
		if now.After(b.resetAt) {
			delete(rl.buckets, k)
		}
	}
}

// Middleware enforces the limits with a 429 JSON response.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range rl.exclude {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		endpoint := r.Method + " " + r.URL.Path
		ip := ExtractIP(r)
		if rl.allow(ip, endpoint) {
			next.ServeHTTP(w, r)
			return
		}

		rl.logger.Warn("ratelimit: request blocked", "ip", ip, "endpoint", endpoint)
		w.Header().Set("Retry-After", "60")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
	})
}

// ExtractIP returns the client IP from X-Forwarded-For or RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
