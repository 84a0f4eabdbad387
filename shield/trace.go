package shield

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/forkify/idgen"
	"github.com/hazyhaar/forkify/kit"
)

// TraceID gives each request a trace id (kit.TraceIDKey, X-Trace-ID header)
// and a logger carrying it (LoggerKey). The request is logged on completion.
func TraceID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	newID := idgen.ObjectID()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := newID()
			w.Header().Set("X-Trace-ID", traceID)

			l := logger.With("trace_id", traceID, "method", r.Method, "path", r.URL.Path)
			ctx := kit.WithTraceID(r.Context(), traceID)
			ctx = context.WithValue(ctx, LoggerKey, l)

			start := time.Now()
			next.ServeHTTP(w, r.WithContext(ctx))
			l.Debug("shield: request", "duration", time.Since(start))
		})
	}
}

// GetLogger retrieves the per-request logger, slog.Default() if none.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
