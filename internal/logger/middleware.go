package logger

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey struct {
	name string
}

var (
	logAttrsKey         = contextKey{"log_attrs"}
	middlewareLoggerKey = contextKey{"middleware_logger"}
)

// ContextWithLogAttrs adds attributes to the request's final log entry (e.g. the signed-in email).
// It is a no-op outside RequestLogging.
func ContextWithLogAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if extra, ok := ctx.Value(logAttrsKey).(*[]slog.Attr); ok {
		*extra = append(*extra, attrs...)
		return ctx
	}
	slog.Warn("log attributes dropped: request logging middleware not installed")
	return ctx
}

func ContextLogAttrs(ctx context.Context) []slog.Attr {
	if extra, ok := ctx.Value(logAttrsKey).(*[]slog.Attr); ok {
		return *extra
	}
	return nil
}

// ContextMiddlewareLogger returns the logger tagged with the request id, falling back to slog.Default
func ContextMiddlewareLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(middlewareLoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// component names the gateway area a path belongs to
func component(path string) string {
	switch {
	case strings.HasPrefix(path, "/session"):
		return "session"
	case strings.HasPrefix(path, "/metrics"):
		return "metrics"
	default:
		return "api"
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// RequestLogging writes one "request completed" entry per gateway request. Health polls are not logged.
func RequestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			reqID := middleware.GetReqID(r.Context())

			extra := &[]slog.Attr{}
			ctx := context.WithValue(r.Context(), logAttrsKey, extra)
			ctx = context.WithValue(ctx, middlewareLoggerKey, logger.With(slog.String("request_id", reqID)))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			attrs := append([]slog.Attr{
				slog.String("component", component(r.URL.Path)),
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.String("remote_addr", r.RemoteAddr),
			}, *extra...)
			attrs = append(attrs,
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", ww.BytesWritten()),
			)
			logger.LogAttrs(r.Context(), levelForStatus(ww.Status()), "request completed", attrs...)
		})
	}
}
