package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// NewStructuredLogger is a middleware that logs every request with its outcome.
// Server errors log at error level and client errors at warn level.
func NewStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				requestAttrs := slog.Group("request",
					slog.String("id", middleware.GetReqID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("user_id", r.Header.Get("X-User-ID")),
					slog.String("remote_addr", r.RemoteAddr),
				)
				responseAttrs := slog.Group("response",
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("latency", time.Since(start)),
				)

				switch {
				case status >= 500:
					logger.Error("server error", requestAttrs, responseAttrs)
				case status >= 400:
					logger.Warn("request rejected", requestAttrs, responseAttrs)
				default:
					logger.Info("request completed", requestAttrs, responseAttrs)
				}
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
