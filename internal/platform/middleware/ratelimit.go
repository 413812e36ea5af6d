package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig tunes the per-client token buckets.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig matches the RATE_LIMIT_* config defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// bucket is a token bucket refilled lazily on each take.
type bucket struct {
	mu       sync.Mutex
	level    float64
	capacity float64
	rate     float64
	refilled time.Time
}

func newBucket(rate float64, burst int) *bucket {
	return &bucket{
		level:    float64(burst),
		capacity: float64(burst),
		rate:     rate,
		refilled: time.Now(),
	}
}

func (b *bucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.level += now.Sub(b.refilled).Seconds() * b.rate
	if b.level > b.capacity {
		b.level = b.capacity
	}
	b.refilled = now

	if b.level < 1 {
		return false
	}
	b.level--
	return true
}

// secondsUntilToken estimates the wait for the next whole token, used for the
// Retry-After header. Never less than one second.
func (b *bucket) secondsUntilToken() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rate <= 0 {
		return 1
	}
	return int((1-b.level)/b.rate) + 1
}

type limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     RateLimitConfig
}

func (l *limiter) bucketFor(key string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = newBucket(l.cfg.RequestsPerSecond, l.cfg.BurstSize)
		l.buckets[key] = b
	}
	return b
}

// limitKey buckets requests by organization and client address. The
// organization is resolved the same way the tenant middleware resolves it:
// the tenant_id JWT claim stashed by the auth middleware first, then the
// X-Org-ID header. Scoping the key to the client IP as well keeps one noisy
// client from exhausting its whole organization's budget.
func limitKey(c echo.Context) string {
	org := ""
	if tid, ok := c.Get("jwt_tenant_id").(string); ok && tid != "" {
		org = tid
	} else if tid := c.Request().Header.Get("X-Org-ID"); tid != "" {
		org = tid
	}
	return org + ":" + c.RealIP()
}

// RateLimit throttles requests with one token bucket per organization/client
// pair, answering 429 with a Retry-After estimate once a bucket runs dry.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	l := &limiter{buckets: make(map[string]*bucket), cfg: cfg}
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			b := l.bucketFor(limitKey(c))
			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)
			if !b.take() {
				c.Response().Header().Set("Retry-After", strconv.Itoa(b.secondsUntilToken()))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
