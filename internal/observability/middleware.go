package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// unmatchedRoute labels requests no route claimed, so scanners probing
// random paths cannot grow the label set.
const unmatchedRoute = "unmatched"

// MetricsMiddleware records request count and latency per route pattern.
// Must be mounted on a chi router.
func MetricsMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := unmatchedRoute
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
				if r.Header.Get("Upgrade") == "websocket" {
					status = http.StatusSwitchingProtocols
				}
			}

			HttpRequestsTotal.WithLabelValues(serviceName, r.Method, route, strconv.Itoa(status)).Inc()
			HttpRequestDuration.WithLabelValues(serviceName, r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
