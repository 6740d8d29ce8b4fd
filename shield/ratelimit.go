package shield

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a fixed-window per-client request limiter. Clients are
// keyed by remote IP. Stale windows are pruned lazily on each request.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	clients map[string]*clientWindow
}

type clientWindow struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window
// per client IP.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientWindow),
	}
}

// Allow reports whether the given client may proceed, counting the call.
func (rl *RateLimiter) Allow(clientKey string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cw, ok := rl.clients[clientKey]
	if !ok || now.After(cw.resetAt) {
		rl.clients[clientKey] = &clientWindow{count: 1, resetAt: now.Add(rl.window)}
		rl.prune(now)
		return true
	}
	if cw.count >= rl.limit {
		return false
	}
	cw.count++
	return true
}

// prune drops expired windows. Caller holds the lock.
func (rl *RateLimiter) prune(now time.Time) {
	if len(rl.clients) < 1024 {
		return
	}
	for key, cw := range rl.clients {
		if now.After(cw.resetAt) {
			delete(rl.clients, key)
		}
	}
}

// Middleware rejects over-limit requests with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !rl.Allow(host) {
			w.Header().Set("Retry-After", rl.window.String())
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
