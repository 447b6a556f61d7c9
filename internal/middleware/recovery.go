package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/observability"
	"github.com/alexindevs/roomey-api/internal/transport"
)

// Recovery turns a handler panic into a 500. http.ErrAbortHandler is
// re-raised so net/http can abort the response silently.
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				observability.GetLogger(r.Context()).Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.Stack("stack"),
				)
				transport.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
