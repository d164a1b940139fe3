package middleware

import (
	"fmt"
	"net/http"

	"github.com/sanisidro/fiscal-api/internal/config"
)

// SecurityHeaders returns a middleware that adds security headers to API
// responses. The headers are set before the handler runs so handlers may
// override them for a single response.
func SecurityHeaders(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	hsts := hstsValue(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			// Served blobs carry uploader-chosen types; never let the browser guess
			if cfg.ContentTypeNosniff {
				h.Set("X-Content-Type-Options", "nosniff")
			}
			if cfg.FrameOptions != "" {
				h.Set("X-Frame-Options", cfg.FrameOptions)
			}
			if cfg.ContentSecurityPolicy != "" {
				h.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
			}
			if cfg.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			}
			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}

			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

// BlobContentHeaders hardens responses that stream stored blobs. Uploaded
// files are served from the API origin, so they get a sandboxing policy in
// place of the API one and may be embedded cross-origin.
func BlobContentHeaders(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			if cfg.BlobContentSecurityPolicy != "" {
				h.Set("Content-Security-Policy", cfg.BlobContentSecurityPolicy)
			}
			// The image widgets load blobs from other origins
			h.Set("Cross-Origin-Resource-Policy", "cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

func hstsValue(cfg *config.SecurityConfig) string {
	if !cfg.EnableHSTS {
		return ""
	}
	v := fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
	if cfg.HSTSIncludeSubdomains {
		v += "; includeSubDomains"
	}
	if cfg.HSTSPreload {
		v += "; preload"
	}
	return v
}
