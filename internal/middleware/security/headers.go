package security

import (
	"net/http"
)

// HeadersConfig holds security headers configuration
type HeadersConfig struct {
	ContentSecurityPolicy string
	XFrameOptions         string
	XContentTypeOptions   string
	ReferrerPolicy        string
	CacheControl          string
}

// DefaultHeadersConfig returns defaults for a JSON API that serves no documents.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "no-referrer",
		CacheControl:          "no-store",
	}
}

// Headers returns middleware that applies cfg to every response.
func Headers(cfg HeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			set := func(name, value string) {
				if value != "" {
					h.Set(name, value)
				}
			}
			set("Content-Security-Policy", cfg.ContentSecurityPolicy)
			set("X-Frame-Options", cfg.XFrameOptions)
			set("X-Content-Type-Options", cfg.XContentTypeOptions)
			set("Referrer-Policy", cfg.ReferrerPolicy)
			set("Cache-Control", cfg.CacheControl)

			next.ServeHTTP(w, r)
		})
	}
}
