package app

import (
	"context"
	"net/http"
	"time"

	"paygate/internal/common/logging"
	"paygate/internal/common/types"
)

// CorrelationHeader carries the request correlation ID in both directions.
const CorrelationHeader = "X-Correlation-ID"

// CorrelationMiddleware adds a correlation ID and a request timeout to each request.
func CorrelationMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			corrID := types.CorrelationID(r.Header.Get(CorrelationHeader))
			if corrID.IsEmpty() {
				corrID = types.NewCorrelationID()
			}

			ctx := r.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			ctx = logging.WithCorrelationID(ctx, corrID)

			w.Header().Set(CorrelationHeader, corrID.String())

			logging.InfoContext(ctx, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
