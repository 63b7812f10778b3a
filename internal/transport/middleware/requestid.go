package middleware

import (
	"context"
	"net/http"

	"github.com/frahmantamala/order-fulfillment/pkg/logger"

	"github.com/google/uuid"
)

const traceIDKey ctxKey = "traceID"

// RequestID honors an inbound X-Trace-ID (gateway webhook redeliveries
// arrive with the same trace id) and mints one otherwise. The id rides
// the context and is echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), traceIDKey, traceID)
		ctx = logger.With(ctx, "trace_id", traceID)

		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TraceIDFromContext returns the trace id stamped by RequestID, or "".
func TraceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}
