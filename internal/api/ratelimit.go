package api

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// rateLimiter applies a fixed per-minute request cap per client address.
// It protects the credential endpoints (login, register, approve, token)
// from online password and code guessing.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	windows map[string]*rateWindow
}

// rateWindow counts requests from one client in the current minute.
type rateWindow struct {
	start time.Time
	count int
}

// rateWindowDuration is the fixed-window size. Counts reset when a new
// window starts; there is no sliding behaviour.
const rateWindowDuration = time.Minute

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		windows: make(map[string]*rateWindow),
	}
}

// allow records one request from key and reports whether it is within the
// limit. Stale windows are dropped opportunistically to bound memory.
func (rl *rateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rateWindowDuration {
		// Sweep expired entries before starting a fresh window.
		for k, old := range rl.windows {
			if now.Sub(old.start) >= rateWindowDuration {
				delete(rl.windows, k)
			}
		}
		rl.windows[key] = &rateWindow{start: now, count: 1}
		return true
	}

	w.count++
	return w.count <= rl.limit
}

// rateLimitMiddleware rejects clients that exceed the configured request
// rate on credential endpoints. Disabled limiters pass everything through.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		if !s.limiter.allow(clientAddr(r), time.Now()) {
			s.logger.Warn("rate limit exceeded",
				"remote", r.RemoteAddr,
				"path", r.URL.Path,
				"request_id", r.Context().Value(ctxKeyRequestID),
			)
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientAddr returns the client host without the ephemeral port, so one
// client does not get a fresh window per connection.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
