package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig bounds write traffic per caller.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type mapLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newMapLimiter(cfg RateLimitConfig) *mapLimiter {
	return &mapLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(cfg.RPS),
		burst:    cfg.Burst,
	}
}

func (m *mapLimiter) allow(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(m.rps, m.burst)}
		m.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	if len(m.limiters) > 10000 {
		m.evictStale()
	}
	return entry.limiter.Allow()
}

func (m *mapLimiter) evictStale() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for key, entry := range m.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(m.limiters, key)
		}
	}
}

// newRateLimitMiddleware limits mutating requests per principal, falling
// back to the client IP before authentication resolves.
func newRateLimitMiddleware(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RPS)
		if cfg.Burst == 0 {
			cfg.Burst = 1
		}
	}
	limiter := newMapLimiter(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Method == http.MethodGet || req.Method == http.MethodHead || req.Method == http.MethodOptions {
				next.ServeHTTP(w, req)
				return
			}
			key := limiterKey(req)
			if !limiter.allow(key) {
				respondStatusError(w, newAPIError(http.StatusTooManyRequests, "rate_limited", "too many requests", nil))
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func limiterKey(req *http.Request) string {
	if p, ok := principalFromContext(req.Context()); ok && p.ID != "" {
		return "principal:" + p.ID
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		host = req.RemoteAddr
	}
	return "ip:" + host
}
