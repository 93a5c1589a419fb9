package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware applies one global token bucket. The event stream is
// exempt since a single connection stays open for its lifetime.
func RateLimitMiddleware(rps int, exempt ...string) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), rps)
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.FullPath()] {
			c.Next()
			return
		}
		if !limiter.Allow() {
			retry := math.Ceil(1 / float64(rps))
			c.Header("Retry-After", strconv.Itoa(int(retry)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
