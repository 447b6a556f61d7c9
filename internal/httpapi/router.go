package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alexindevs/roomey-api/internal/auth"
	"github.com/alexindevs/roomey-api/internal/config"
	"github.com/alexindevs/roomey-api/internal/handler"
	"github.com/alexindevs/roomey-api/internal/middleware"
	"github.com/alexindevs/roomey-api/internal/observability"
)

type Deps struct {
	Notifications *handler.NotificationHandler
	WebSocket     http.Handler
	Verifier      auth.Verifier
	Checks        map[string]observability.Pinger
}

func NewRouter(d Deps, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(observability.MetricsMiddleware(cfg.ServiceName))
	r.Use(middleware.Recovery())

	r.Get("/health/live", observability.HealthLiveHandler)
	r.Get("/health/ready", observability.HealthReadyHandler(d.Checks))

	// sockets authenticate inside the handshake
	if d.WebSocket != nil {
		r.Get("/ws/{namespace}", d.WebSocket.ServeHTTP)
	}

	r.Group(func(p chi.Router) {
		p.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		p.Use(middleware.JWT(d.Verifier))

		if d.Notifications != nil {
			p.Get("/notifications", d.Notifications.List)
			p.Put("/notifications/read", d.Notifications.MarkMultipleAsRead)
			p.Put("/notifications/{id}/read", d.Notifications.MarkAsRead)
		}
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
