package observability

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger is a dependency the readiness probe checks.
type Pinger func(ctx context.Context) error

func HealthLiveHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func HealthReadyHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				GetLogger(ctx).Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(name + " unavailable"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
