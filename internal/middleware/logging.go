package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
	pkglogger "github.com/BradenHooton/healthdesk/pkg/logger"
)

// LoggerConfig controls what SecureLogger writes
type LoggerConfig struct {
	Env      string
	IPConfig *pkghttp.IPConfig
}

// SecureLogger logs one line per request. Query strings naming credentials
// are dropped and any other query is redacted in production, since client
// searches carry patient names.
func SecureLogger(logger *slog.Logger, cfg LoggerConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", wrapped.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("client_ip", pkghttp.ExtractClientIP(r, cfg.IPConfig)),
			}
			if raw := r.URL.RawQuery; raw != "" {
				if pkglogger.SanitizeQueryString(raw) {
					attrs = append(attrs, slog.String("query", "[REDACTED]"))
				} else {
					attrs = append(attrs, pkglogger.RedactedAttr("query", raw, cfg.Env))
				}
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "http_request", attrs...)
		})
	}
}
