package apiserver

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// responseWriter is a minimal wrapper for http.ResponseWriter that allows the
// written HTTP status code to be captured for logging.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) Status() int {
	return rw.status
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}

	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
	rw.wroteHeader = true
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// loggingMiddleware logs the incoming HTTP request & its duration.
func loggingMiddleware(logger *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			requestLogger := logger
			if remoteAddr := realIP(r); remoteAddr != "" {
				requestLogger = requestLogger.WithField("remoteAddr", remoteAddr)
			}

			wrapped := wrapResponseWriter(w)

			defer func() {
				if err := recover(); err != nil {
					wrapped.WriteHeader(http.StatusInternalServerError)
					requestLogger.WithField("status", http.StatusInternalServerError).
						Errorf("recovered error: %v", err)
					requestLogger.Errorf("Stack %s", debug.Stack())
				}
			}()

			start := time.Now()
			next.ServeHTTP(wrapped, r)

			if !strings.Contains(r.URL.EscapedPath(), "healthz") {
				entry := requestLogger.WithFields(logrus.Fields{
					"status":   wrapped.status,
					"method":   r.Method,
					"path":     r.URL.EscapedPath(),
					"duration": time.Since(start),
				})

				msg := fmt.Sprintf("handled: %d", wrapped.status)
				if wrapped.status >= 400 {
					entry.Error(msg)
				} else {
					entry.Debug(msg)
				}
			}
		}

		return http.HandlerFunc(fn)
	}
}
