package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// PlayerRateLimit limits instruction submissions per wallet key, not per IP.
// Requires the JWT middleware to have run first.
func PlayerRateLimit(maxOps int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		playerVal, exists := c.Get(PlayerKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		player, ok := playerVal.(string)
		if !ok || player == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid player"})
			return
		}

		key := "op_rl:" + player + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		ctx := context.Background()

		val, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			c.Header("X-OpRateLimit-Error", "redis-error")
			c.Next()
			return
		}
		if val == 1 {
			redisClient.Expire(ctx, key, window)
		}

		c.Header("X-OpRateLimit-Limit", strconv.Itoa(maxOps))
		c.Header("X-OpRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxOps)-val), 10))

		if val > int64(maxOps) {
			RLBlocked.WithLabelValues("op:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "operation rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("op:" + c.FullPath()).Inc()
		c.Next()
	}
}
