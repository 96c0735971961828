package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger attaches a logger carrying the chi request id, method and path
// to each request context, echoes the id in the response and logs completion
// with status and duration. It expects middleware.RequestID to run first.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	base = defaultLogger(base)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attrs := []any{"method", r.Method, "path", r.URL.Path}
			if id := middleware.GetReqID(r.Context()); id != "" {
				attrs = append(attrs, "request_id", id)
				w.Header().Set(middleware.RequestIDHeader, id)
			}
			logger := base.With(attrs...)

			ctx := ContextWithLogger(r.Context(), logger)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed",
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// Recoverer turns handler panics into 500 responses carrying the same JSON
// error body as every other failure. chi's middleware.Recoverer answers with
// an empty body.
func Recoverer(base *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(base)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					responder.loggerFor(r.Context()).ErrorContext(r.Context(), "handler panicked", "panic", rec)
					responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{
						ErrorCode: "INTERNAL",
						Message:   "internal server error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
