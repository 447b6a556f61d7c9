package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit limits requests per client IP. An unparsable window falls back
// to one minute.
func RateLimit(requests int, windowStr string) func(next http.Handler) http.Handler {
	window, err := time.ParseDuration(windowStr)
	if err != nil {
		window = time.Minute
	}
	if requests <= 0 {
		requests = 100
	}

	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limited","message":"too many requests"}`))
		}),
	)
}
