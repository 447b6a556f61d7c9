package transport

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/observability"
)

// Error writes the HTTP rendering of a service error.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	log := observability.GetLogger(r.Context())

	switch {
	case errors.Is(err, domain.ErrAuthentication):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication failed")
	case domain.IsNotFound(err):
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidJob):
		WriteError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, domain.ErrNotParticipant):
		WriteError(w, http.StatusForbidden, "forbidden", "access denied")
	case errors.Is(err, domain.ErrQueueUnavailable):
		log.Warn("dependency unavailable", zap.Error(err))
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out", zap.Error(err))
		WriteError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		log.Error("internal_error", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
