package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	apperrors "github.com/hrygo/flashdeck/server/internal/errors"
)

// RateLimiter provides per-key rate limiting.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter
	limit  rate.Limit
	burst  int
}

// NewRateLimiter creates a rate limiter allowing 10 requests per second with a burst of 20.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithLimit(rate.Every(time.Second/10), 20)
}

// NewRateLimiterWithLimit creates a rate limiter with the given rate and burst per key.
func NewRateLimiterWithLimit(limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
		limit:  limit,
		burst:  burst,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Wait waits for a request to be allowed.
// Returns error if the context is cancelled or rate limit exceeded.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.getLimiter(key).Wait(ctx)
}

// Middleware rejects requests from a client IP that exceeds its rate.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(c.RealIP()) {
				return apperrors.RateLimitExceeded("too many requests")
			}
			return next(c)
		}
	}
}
