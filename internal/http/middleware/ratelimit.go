package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jackhunterking/adpilot/internal/service"
)

// RateLimit rejects requests over the per-user fixed window with 429 before
// the handler runs, so a limited request has no side effects. Must run after
// RequireAuth.
func RateLimit(limiter service.RateLimiter, endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c.Request.Context())
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), userID, endpoint)
		if err != nil || allowed {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}
