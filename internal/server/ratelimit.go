package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter counts requests per client address over a fixed window.
// Stale entries are swept lazily when the map grows past sweepThreshold.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     int
	window    time.Duration
	lastSweep time.Time
}

type visitor struct {
	count   int
	resetAt time.Time
}

const sweepThreshold = 1024

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     limit,
		window:    window,
		lastSweep: time.Now(),
	}
}

// NewAuthRateLimiter is tight: credential endpoints are brute-force bait.
func NewAuthRateLimiter() *RateLimiter {
	return NewRateLimiter(5, time.Minute)
}

func NewAPIRateLimiter() *RateLimiter {
	return NewRateLimiter(100, time.Minute)
}

func (rl *RateLimiter) Allow(addr string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.maybeSweep(now)

	v, ok := rl.visitors[addr]
	if !ok || now.After(v.resetAt) {
		rl.visitors[addr] = &visitor{count: 1, resetAt: now.Add(rl.window)}
		return true
	}

	if v.count >= rl.limit {
		return false
	}
	v.count++
	return true
}

// maybeSweep drops expired visitors. Caller holds the lock.
func (rl *RateLimiter) maybeSweep(now time.Time) {
	if len(rl.visitors) < sweepThreshold && now.Sub(rl.lastSweep) < rl.window*2 {
		return
	}
	for addr, v := range rl.visitors {
		if now.After(v.resetAt) {
			delete(rl.visitors, addr)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientAddr(r)) {
			jsonError(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientAddr prefers proxy headers, falling back to the socket peer.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
