package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mixmentor/mixmentor/pkg/contextkeys"
	"github.com/mixmentor/mixmentor/pkg/observability"
)

// statusWriter wraps http.ResponseWriter to capture the status code
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}

// RequestLogger assigns a request ID, stashes a request-scoped logger in the
// context, and logs each request with its status and duration
func RequestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := contextkeys.WithRequestID(r.Context(), requestID)
			ctx = observability.WithRequestID(ctx, requestID)
			ctx = observability.WithLogger(ctx, logger)
			ctx = contextkeys.WithLogger(ctx, logger)
			ctx = contextkeys.WithRequestStartTime(ctx, start)

			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			logger.WithFields(map[string]interface{}{
				"request_id": requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     sw.statusCode,
				"duration":   time.Since(start).String(),
				"remote":     r.RemoteAddr,
			}).Info("request completed")
		})
	}
}

// Recovery converts handler panics into 500 responses
func Recovery(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithField("panic", rec).
						WithField("path", r.URL.Path).
						Error("panic in handler")
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"internal server error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
