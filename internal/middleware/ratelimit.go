// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// window is one caller's fixed counting window.
type window struct {
	start time.Time
	count int
}

// RateLimiter caps requests per caller in fixed windows. A full window
// rejects until it resets.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	period  time.Duration
	stopCh  chan struct{}
}

// NewRateLimiter allows limit requests per period and per caller. A
// background goroutine drops idle callers every five minutes until Stop.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		period:  period,
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-rl.stopCh:
				return
			}
		}
	}()

	return rl
}

// Stop terminates the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// take counts one request for key. When the window is full it returns
// false and the time left until it resets.
func (rl *RateLimiter) take(key string, now time.Time) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[key]
	if !ok || now.Sub(w.start) >= rl.period {
		w = &window{start: now}
		rl.clients[key] = w
	}
	if w.count >= rl.limit {
		return false, w.start.Add(rl.period).Sub(now)
	}
	w.count++
	return true, 0
}

func (rl *RateLimiter) allow(key string) bool {
	ok, _ := rl.take(key, time.Now())
	return ok
}

// cleanup removes callers whose window has ended.
func (rl *RateLimiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, w := range rl.clients {
		if now.Sub(w.start) >= rl.period {
			delete(rl.clients, key)
		}
	}
}

// Middleware rate-limits by bearer token, or by client IP for anonymous
// callers. Rejections carry Retry-After in whole seconds.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + clientIP(r)
		if tok := BearerToken(r); tok != "" {
			key = "token:" + tok
		}
		ok, wait := rl.take(key, time.Now())
		if !ok {
			secs := max(int(math.Ceil(wait.Seconds())), 1)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "リクエストが多すぎます。しばらく待ってから再試行してください")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the proxy headers: the leftmost X-Forwarded-For entry,
// then X-Real-IP, then the connection address without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
