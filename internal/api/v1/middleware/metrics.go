package middleware

import (
	"net/http"
	"strconv"
	"time"

	"mcptoolbox/internal/metrics"
)

const unmatchedPath = "unmatched"

// Metrics records request counts and latency. Paths outside knownPaths share
// one label so scanners cannot blow up series cardinality.
func Metrics(knownPaths ...string) func(http.Handler) http.Handler {
	known := make(map[string]bool, len(knownPaths))
	for _, p := range knownPaths {
		known[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newStatusRecorder(w)

			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if !known[path] {
				path = unmatchedPath
			}
			metrics.ObserveHTTPRequest(path, r.Method, strconv.Itoa(rw.statusCode), time.Since(start))
		})
	}
}
