package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/obaidsafi51/GigStream-sub003/internal/metrics"
	"github.com/obaidsafi51/GigStream-sub003/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimitPlatform meters the authenticated platform within one scope.
// Must run after PlatformAuth; unauthenticated requests pass through for the
// auth middleware to reject.
func RateLimitPlatform(lim ratelimit.Limiter, scope string, bucket ratelimit.Bucket) gin.HandlerFunc {
	return func(c *gin.Context) {
		if lim == nil || !bucket.Enabled() {
			c.Next()
			return
		}
		platform, ok := PlatformFrom(c)
		if !ok {
			c.Next()
			return
		}

		dec, err := lim.Allow(c.Request.Context(), scope, platform.ID, bucket)
		if err != nil {
			// Fail open so a Redis hiccup does not refuse payouts.
			slog.Default().Warn("rate limit check failed", "scope", scope, "platformId", platform.ID, "err", err)
			c.Next()
			return
		}
		if dec.Allowed {
			c.Next()
			return
		}

		retryAfterSeconds := int(dec.RetryAfter.Seconds())
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		metrics.RateLimitHitsTotal.WithLabelValues(scope).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":             gin.H{"code": "RATE_LIMITED", "message": "rate limit exceeded"},
			"scope":             scope,
			"retryAfterSeconds": retryAfterSeconds,
		})
	}
}
