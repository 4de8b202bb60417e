package shield

import "net/http"

// HeaderConfig defines the security headers applied to every response.
type HeaderConfig struct {
	CSP                 string
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string
}

// DefaultHeaders suits a JSON API that also serves the self-contained HTML
// comparison report: inline styles only, no scripts, no framing.
func DefaultHeaders() HeaderConfig {
	return HeaderConfig{
		CSP:                 "default-src 'none'; style-src 'unsafe-inline'; img-src data:; frame-ancestors 'none'",
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
		PermissionsPolicy:   "camera=(), microphone=(), geolocation=()",
	}
}

// SecurityHeaders sets every non-empty header of cfg on the response.
func SecurityHeaders(cfg HeaderConfig) func(http.Handler) http.Handler {
	headers := [][2]string{
		{"X-Content-Type-Options", cfg.XContentTypeOptions},
		{"X-Frame-Options", cfg.XFrameOptions},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Content-Security-Policy", cfg.CSP},
		{"Permissions-Policy", cfg.PermissionsPolicy},
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range headers {
				if h[1] != "" {
					w.Header().Set(h[0], h[1])
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HeadToGet converts HEAD requests to GET so that routes registered with
// r.Get() answer HEAD too. net/http drops the body for HEAD responses.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}
