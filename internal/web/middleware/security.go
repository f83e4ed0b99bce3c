package middleware

import (
	"net/http"

	"github.com/shindakun/loginform/internal/config"
)

// SecurityHeaders adds the configured HTTP security headers to all responses.
// HSTS is only sent when the public base URL is https.
func SecurityHeaders(cfg *config.Config) func(http.Handler) http.Handler {
	headers := cfg.Server.Security.Headers
	https := cfg.IsHTTPS()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if headers.XFrameOptions != "" {
				h.Set("X-Frame-Options", headers.XFrameOptions)
			}
			if headers.XContentTypeOptions != "" {
				h.Set("X-Content-Type-Options", headers.XContentTypeOptions)
			}
			if headers.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", headers.ReferrerPolicy)
			}
			if headers.ContentSecurityPolicy != "" {
				h.Set("Content-Security-Policy", headers.ContentSecurityPolicy)
			}
			if https && headers.StrictTransportSecurity != "" {
				h.Set("Strict-Transport-Security", headers.StrictTransportSecurity)
			}

			// Login pages and their answers must never be cached
			h.Set("Cache-Control", "no-store")

			next.ServeHTTP(w, r)
		})
	}
}
