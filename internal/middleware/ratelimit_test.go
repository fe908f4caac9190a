package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)
	defer rl.Stop()

	for i := range 3 {
		if !rl.allow("ip:a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("ip:a") {
		t.Error("4th request should be rate-limited")
	}
	if !rl.allow("ip:b") {
		t.Error("another client should be allowed")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter(1, 80*time.Millisecond)
	defer rl.Stop()

	rl.allow("k")
	if rl.allow("k") {
		t.Fatal("should be rate-limited")
	}
	time.Sleep(120 * time.Millisecond)
	if !rl.allow("k") {
		t.Error("should be allowed after the window")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/generate-article", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	if rr := do(""); rr.Code != http.StatusOK {
		t.Fatalf("first request: %d", rr.Code)
	}
	rr := do("")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
	if !strings.Contains(rr.Body.String(), `"success":false`) {
		t.Errorf("body = %s", rr.Body.String())
	}

	// Token callers have their own bucket even from the same address.
	if rr := do("secret"); rr.Code != http.StatusOK {
		t.Errorf("token request: got %d, want 200", rr.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff, xri   string
		remoteAddr string
		want       string
	}{
		{"x-forwarded-for single", "10.0.0.1", "", "192.168.1.1:1234", "10.0.0.1"},
		{"x-forwarded-for chain", "10.0.0.1, 172.16.0.1", "", "192.168.1.1:1234", "10.0.0.1"},
		{"x-real-ip", "", "10.0.0.2", "192.168.1.1:1234", "10.0.0.2"},
		{"remote addr", "", "", "192.168.1.1:1234", "192.168.1.1"},
		{"remote addr without port", "", "", "192.168.1.1", "192.168.1.1"},
		{"ipv6 remote addr", "", "", "[::1]:8080", "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiterRetryAfterShrinks(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	start := time.Now()
	rl.take("k", start)
	ok, wait := rl.take("k", start.Add(45*time.Second))
	if ok || wait != 15*time.Second {
		t.Errorf("take = %v, %v; want false, 15s", ok, wait)
	}
	if ok, _ := rl.take("k", start.Add(time.Minute)); !ok {
		t.Error("new window should allow the request")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(10, 100*time.Millisecond)
	defer rl.Stop()

	rl.allow("old")
	time.Sleep(150 * time.Millisecond)
	rl.allow("fresh")
	rl.cleanup()

	rl.mu.Lock()
	_, oldExists := rl.clients["old"]
	_, freshExists := rl.clients["fresh"]
	rl.mu.Unlock()

	if oldExists || !freshExists {
		t.Errorf("old kept = %v, fresh kept = %v", oldExists, freshExists)
	}
}
