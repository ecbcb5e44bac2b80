package middleware

import (
	"net/http"
	"strings"

	"github.com/obaidsafi51/GigStream-sub003/internal/repository"
	"github.com/obaidsafi51/GigStream-sub003/pkg/domain"

	"github.com/gin-gonic/gin"
)

const PlatformKey = "platform"

// PlatformAuth authenticates the calling platform by X-API-Key. The key is
// looked up by its sha256, so raw keys are never stored server-side. With
// requireSignature set the X-Signature header must also be present before
// any lookup happens; its actual verification needs the raw body and the
// platform's secret, so it lives in the webhook handler.
func PlatformAuth(platforms repository.PlatformRepository, requireSignature bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		signature := strings.TrimSpace(c.GetHeader("X-Signature"))
		if apiKey == "" || (requireSignature && signature == "") {
			abortWithCode(c, http.StatusUnauthorized, "MISSING_AUTH_HEADERS", "X-API-Key and X-Signature headers are required")
			return
		}

		platform, err := platforms.GetByAPIKeyHash(c.Request.Context(), repository.HashAPIKey(apiKey))
		if err != nil {
			abortWithCode(c, http.StatusUnauthorized, "INVALID_API_KEY", "unknown API key")
			return
		}
		if !platform.Active() {
			abortWithCode(c, http.StatusForbidden, "PLATFORM_INACTIVE", "platform is not active")
			return
		}
		if requireSignature && !platform.WebhooksEnabled {
			abortWithCode(c, http.StatusForbidden, "WEBHOOKS_DISABLED", "webhooks are disabled for this platform")
			return
		}

		c.Set(PlatformKey, *platform)
		c.Next()
	}
}

// PlatformFrom returns the authenticated platform set by PlatformAuth.
func PlatformFrom(c *gin.Context) (domain.Platform, bool) {
	v, ok := c.Get(PlatformKey)
	if !ok {
		return domain.Platform{}, false
	}
	p, ok := v.(domain.Platform)
	return p, ok
}

func abortWithCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}
