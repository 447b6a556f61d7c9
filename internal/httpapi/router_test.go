package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexindevs/roomey-api/internal/auth"
	"github.com/alexindevs/roomey-api/internal/config"
)

func TestRateLimiting(t *testing.T) {
	cfg := &config.Config{
		ServiceName:       "roomey-api-test",
		RateLimitRequests: 10,
		RateLimitWindow:   "1m",
	}

	// no handlers wired: the limiter and JWT run first
	handler := NewRouter(Deps{Verifier: auth.NewJWTVerifier("secret", "", "")}, cfg)

	server := httptest.NewServer(handler)
	defer server.Close()

	client := server.Client()

	for i := 0; i < 10; i++ {
		req, _ := http.NewRequest("GET", server.URL+"/notifications", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.100")
		res, err := client.Do(req)
		if err != nil {
			t.Fatalf("Failed request %d: %v", i, err)
		}
		if res.StatusCode == http.StatusTooManyRequests {
			t.Fatalf("Request %d got 429 too early", i)
		}
		res.Body.Close()
	}

	req, _ := http.NewRequest("GET", server.URL+"/notifications", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.100")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed 11th request: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 Too Many Requests, got %d", res.StatusCode)
	}
}

func TestHealthIsPublic(t *testing.T) {
	cfg := &config.Config{ServiceName: "roomey-api-test", RateLimitRequests: 10, RateLimitWindow: "1m"}
	handler := NewRouter(Deps{Verifier: auth.NewJWTVerifier("secret", "", "")}, cfg)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestNotificationsRequireToken(t *testing.T) {
	cfg := &config.Config{ServiceName: "roomey-api-test", RateLimitRequests: 10, RateLimitWindow: "1m"}
	handler := NewRouter(Deps{Verifier: auth.NewJWTVerifier("secret", "", "")}, cfg)

	expired, err := auth.GenerateAccess("secret", "bob", "", "", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	for _, header := range []string{"", "Bearer " + expired} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}
