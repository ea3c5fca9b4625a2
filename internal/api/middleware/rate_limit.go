package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jalaleddinemaoukil/interventions-m1/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit buckets requests by client IP. It waits briefly for a token so
// short bursts smooth out instead of failing; sustained abuse gets 429.
func RateLimit(limiter *ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := limiter.Acquire(ctx, c.ClientIP()); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimitTimeout) {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": true, "message": "too many requests"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal Server Error"})
			}
			c.Abort()
			return
		}

		c.Next()
	}
}
