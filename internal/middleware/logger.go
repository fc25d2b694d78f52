// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package middleware

import (
	"net/http"
	"time"

	"github.com/trocker-app/trocker/internal/logging"
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
// Flush is forwarded so SSE streaming keeps working behind the wrapper.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Flush() {
	if flusher, ok := rec.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Logger writes one structured log line per completed request. Client errors
// log at debug to keep noisy scanners out of the default log level; server
// errors log at error.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		event := logging.Debug()
		if rec.statusCode >= 500 {
			event = logging.Error()
		} else if rec.statusCode < 400 {
			event = logging.Info()
		}

		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.statusCode).
			Dur("duration", time.Since(start)).
			Str("request_id", GetRequestID(r.Context())).
			Str("remote", r.RemoteAddr).
			Msg("HTTP request")
	})
}
