package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// RequestRecorder records HTTP request metrics
type RequestRecorder interface {
	RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware records method, route template, status and duration of
// every routed request.
func MetricsMiddleware(rec RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			rec.RecordHTTPRequest(r.Context(), r.Method, route, sw.status,
				float64(time.Since(start).Microseconds())/1000)
		})
	}
}
