package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"construction-invoice-api/internal/ratelimit"
)

// AbuseGuard applies the audit-backed rate limiter to one action. The
// identifier is the authenticated user when present, otherwise the
// client IP. A blocked request is rejected with 429 before the handler
// runs; allowed requests carry the remaining quota in a response header.
func AbuseGuard(limiter *ratelimit.Limiter, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		identifier := clientIdentifier(c)
		result := limiter.Check(c.Request.Context(), action, identifier)

		if result.ResetTime != nil {
			c.Header("X-RateLimit-Reset", result.ResetTime.UTC().Format(time.RFC3339))
		}

		if !result.Allowed {
			if result.ResetTime != nil {
				retryAfter := int(time.Until(*result.ResetTime).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				c.Header("Retry-After", strconv.Itoa(retryAfter))
			}
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":  "Too many attempts, try again later",
				"action": action,
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Next()
	}
}

// clientIdentifier resolves who the request is attributed to. The
// authenticated user ID wins over the network address so that limits
// follow accounts across IPs.
func clientIdentifier(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(string); ok && id != "" {
			return id
		}
	}
	return c.ClientIP()
}
