package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/ayo6706/fcy-position/internal/observability"
	"github.com/go-chi/chi/v5"
)

// MetricsMiddleware records request durations labelled by route pattern, so
// entry and bank ids do not explode label cardinality. Probe and scrape
// traffic is not recorded.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unmetered(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		observability.ObserveHTTP(r.Method, routePattern(r), rw.status, time.Since(start))
	})
}

func unmetered(path string) bool {
	return path == "/metrics" || strings.HasPrefix(path, "/health/")
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
