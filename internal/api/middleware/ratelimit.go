package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/w-gitops/grocyscan/internal/api/response"
	"github.com/w-gitops/grocyscan/internal/cache"
)

const (
	defaultRequestsPerMinute = 60
	resolveWindow            = time.Minute
)

// RateLimit provides per-minute rate limiting via Redis counters.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
}

// NewRateLimit creates a new RateLimit middleware.
func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, requestsPerMin: requestsPerMin}
}

// Limit applies rate limiting based on the key_prefix set by auth middleware.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix, ok := getKeyPrefix(r)
		if !ok {
			// No key prefix means auth middleware didn't run; pass through
			next.ServeHTTP(w, r)
			return
		}
		rl.enforce(w, r, next, cache.RateLimitKey(prefix))
	})
}

// LimitResolve rate-limits by client address rather than API key. The scan
// resolution endpoint accepts anonymous requests, and per-address counting is
// what slows down code enumeration attempts.
func (rl *RateLimit) LimitResolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl.enforce(w, r, next, cache.ResolveLimitKey(clientAddr(r)))
	})
}

func (rl *RateLimit) enforce(w http.ResponseWriter, r *http.Request, next http.Handler, key string) {
	count, err := rl.cache.IncrWithExpiry(r.Context(), key, resolveWindow)
	if err != nil {
		// On Redis error, allow the request (fail open)
		next.ServeHTTP(w, r)
		return
	}

	remaining := rl.requestsPerMin - int(count)
	if remaining < 0 {
		remaining = 0
	}
	resetTime := time.Now().Add(resolveWindow).Unix()

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))

	if count > int64(rl.requestsPerMin) {
		w.Header().Set("Retry-After", "60")
		response.Error(w, http.StatusTooManyRequests,
			"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
		return
	}

	next.ServeHTTP(w, r)
}

// clientAddr strips the port from RemoteAddr so one client maps to one
// counter regardless of ephemeral source ports.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
