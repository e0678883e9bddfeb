package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
)

// RateLimitConfig configures the rate limiting middleware
type RateLimitConfig struct {
	// Requests per minute per client
	RequestsPerMinute int
	// Burst size multiplier (burst = rate * multiplier)
	BurstMultiplier int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 120,
		BurstMultiplier:   3,
	}
}

// RateLimiter is a per-client token bucket
type RateLimiter struct {
	limiter ratelimit.RateLimiter
}

// NewRateLimiter creates a limiter allowing rate requests per interval with
// the given burst.
func NewRateLimiter(rate int, interval time.Duration, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    burst,
			Interval: interval,
		}),
	}
}

// Close stops the limiter
func (rl *RateLimiter) Close() error {
	return rl.limiter.Close()
}

// Middleware rejects clients over their budget with 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientIP(r)

		if !rl.limiter.Allow(r.Context(), key) {
			slog.Warn("rate limit exceeded",
				"ip", key,
				"path", r.URL.Path,
				"request_id", GetRequestID(r.Context()),
			)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"too many requests, please try again later"}}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRateLimitMiddleware builds a limiter from config
func NewRateLimitMiddleware(config RateLimitConfig) *RateLimiter {
	burst := config.RequestsPerMinute * max(config.BurstMultiplier, 1)
	return NewRateLimiter(config.RequestsPerMinute, time.Minute, burst)
}

// ClientIP extracts the client IP address from the request
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
