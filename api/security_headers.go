package api

import (
	"net/http"
	"strings"
)

const (
	defaultCSP = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'"
	// The documentation pages load their assets from a CDN.
	docsCSP = "default-src 'self'; script-src 'self' 'unsafe-inline' https://unpkg.com https://cdn.jsdelivr.net; style-src 'self' 'unsafe-inline' https://unpkg.com https://fonts.googleapis.com; font-src https://fonts.gstatic.com; img-src 'self' data: https:; connect-src 'self'"
)

// SecurityHeaders returns middleware that sets standard security response
// headers on every response. HSTS is sent for requests that arrived over
// HTTPS, and for every request when forceHSTS is set.
func SecurityHeaders(forceHSTS bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if isDocsPath(r.URL.Path) {
				w.Header().Set("Content-Security-Policy", docsCSP)
			} else {
				w.Header().Set("Content-Security-Policy", defaultCSP)
			}

			if forceHSTS || requestIsSecure(r) {
				w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isDocsPath(path string) bool {
	return strings.HasPrefix(path, "/api/docs") || strings.HasPrefix(path, "/api/redoc")
}
