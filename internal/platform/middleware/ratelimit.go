package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 100, BurstSize: 200}
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimit applies a token-bucket limit per client IP. Buckets idle
// for ten minutes are dropped on the next sweep.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	var (
		mu        sync.Mutex
		buckets   = make(map[string]*bucket)
		lastSweep = time.Now()
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := time.Now()
			ip := c.RealIP()

			mu.Lock()
			if now.Sub(lastSweep) > time.Minute {
				for k, b := range buckets {
					if now.Sub(b.lastRefill) > 10*time.Minute {
						delete(buckets, k)
					}
				}
				lastSweep = now
			}

			b, ok := buckets[ip]
			if !ok {
				b = &bucket{tokens: float64(cfg.BurstSize), lastRefill: now}
				buckets[ip] = b
			}
			b.tokens += now.Sub(b.lastRefill).Seconds() * cfg.RequestsPerSecond
			if b.tokens > float64(cfg.BurstSize) {
				b.tokens = float64(cfg.BurstSize)
			}
			b.lastRefill = now

			allowed := b.tokens >= 1
			if allowed {
				b.tokens--
			}
			mu.Unlock()

			if !allowed {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
