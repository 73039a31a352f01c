package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	t.Run("AllowWithinBurst", func(t *testing.T) {
		rl := NewRateLimiter()
		for i := 0; i < 20; i++ {
			assert.True(t, rl.Allow("client-a"), "request %d within burst should pass", i)
		}
		assert.False(t, rl.Allow("client-a"))
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		rl := NewRateLimiter()
		for i := 0; i < 20; i++ {
			rl.Allow("client-a")
		}
		assert.False(t, rl.Allow("client-a"))
		assert.True(t, rl.Allow("client-b"))
	})

	t.Run("MiddlewareRejectsWith429", func(t *testing.T) {
		rl := NewRateLimiter()
		e := echo.New()
		e.Use(rl.Middleware())
		e.GET("/", func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})

		var last int
		for i := 0; i < 25; i++ {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.1:1234"
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			last = rec.Code
		}
		require.Equal(t, http.StatusTooManyRequests, last)
	})
}
