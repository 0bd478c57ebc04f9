// Package middleware holds the HTTP middleware shared by every route.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HeaderName is the correlation id header, honored on requests and echoed
// on every response.
const HeaderName = "X-Correlation-ID"

type key int

// CorrelationKey is the context key under which the request's correlation
// id is stored.
const CorrelationKey key = 0

// CorrelationID assigns each request a correlation id (reusing the
// caller's if it sent one), stores it in the request context, and logs the
// request boundary with it.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderName)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := WithCorrelationID(r.Context(), id)
		w.Header().Set(HeaderName, id)

		start := time.Now()
		slog.InfoContext(ctx, "request started", "method", r.Method, "path", r.URL.Path)

		next.ServeHTTP(w, r.WithContext(ctx))

		slog.InfoContext(ctx, "request finished",
			"method", r.Method, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	})
}

// GetCorrelationID returns the id stored by the middleware, or "" outside a
// request.
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(CorrelationKey).(string)
	return id
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationKey, id)
}
