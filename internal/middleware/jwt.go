package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/auth"
	"github.com/alexindevs/roomey-api/internal/observability"
	"github.com/alexindevs/roomey-api/internal/transport"
)

// JWT authenticates the bearer token and stores the caller's user id in the
// request context.
func JWT(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.Split(header, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing or malformed token")
				return
			}

			identity, err := verifier.Verify(parts[1])
			if err != nil {
				observability.GetLogger(r.Context()).Debug("jwt rejected", zap.Error(err))
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			ctx := InjectUserID(r.Context(), identity.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
