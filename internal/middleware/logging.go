// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// LogMiddleware logs one line per request with its status and latency.
// Server errors log at error level and client errors at warn.
func LogMiddleware(logger logrus.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}
			if id := chimw.GetReqID(r.Context()); id != "" {
				fields["request_id"] = id
			}

			entry := logger.WithFields(fields)
			switch status := ww.Status(); {
			case status >= 500:
				entry.Error("request failed")
			case status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request served")
			}
		})
	}
}

// SocketFields are the fields attached to every websocket lifecycle line.
func SocketFields(r *http.Request, connID string) logrus.Fields {
	return logrus.Fields{
		"conn":   connID,
		"remote": r.RemoteAddr,
		"path":   r.URL.Path,
	}
}

// LogSocketClosed records why a socket ended. A nil err is a clean close.
func LogSocketClosed(logger logrus.FieldLogger, r *http.Request, connID string, err error) {
	entry := logger.WithFields(SocketFields(r, connID))
	if err != nil {
		entry.WithError(err).Warn("socket closed")
		return
	}
	entry.Info("socket closed")
}
