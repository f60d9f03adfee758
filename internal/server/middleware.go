package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags every request with an X-Request-ID and logs its outcome.
// An incoming X-Request-ID is kept so callers can correlate their own logs.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := s.logger.Info
		if rec.status >= http.StatusInternalServerError {
			level = s.logger.Error
		}
		level("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// withVersionCheck refuses clients whose X-Ghia-Client-Version this server
// cannot serve. Requests without the header pass.
func (s *Server) withVersionCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health always answers so clients can learn why they were refused
		if r.URL.Path != "/health" {
			if err := checkVersionCompatibility(s.version, r.Header.Get(HeaderClientVersion)); err != nil {
				s.writeError(w, err)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
