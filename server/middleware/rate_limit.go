package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter provides per-key rate limiting functionality.
type RateLimiter struct {
	mu     sync.RWMutex
	limits map[string]*rate.Limiter
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}

	// 10 requests per second, with burst of 20
	limiter := rate.NewLimiter(rate.Every(time.Second/10), 20)
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

// Middleware returns an echo middleware enforcing the limiter per client IP.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"success": false,
					"error":   "too many requests",
				})
			}
			return next(c)
		}
	}
}
