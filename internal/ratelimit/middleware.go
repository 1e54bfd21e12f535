package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ReasonRateLimited is the denial reason returned to throttled clients.
const ReasonRateLimited = "rate_limited"

// Guard throttles requests using the limit selected from the settings and a per-request key.
// Requests with an empty key are not throttled.
func (m *Manager) Guard(limitFn func(SettingsConfig) int, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := limitFn(m.Settings())
		key := keyFn(c)
		result, errAllow := m.Allow(c.Request.Context(), key, limit)
		if errAllow != nil {
			log.WithError(errAllow).Warn("rate limit: check failed, allowing request")
			c.Next()
			return
		}
		if !result.Allowed {
			retryAfter := int(time.Until(result.Reset).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Too many attempts, please slow down",
				"reason":  ReasonRateLimited,
			})
			return
		}
		c.Next()
	}
}

// SubmissionLimit selects the flag submission limit.
func SubmissionLimit(cfg SettingsConfig) int { return cfg.SubmissionLimit }

// LoginLimit selects the login attempt limit.
func LoginLimit(cfg SettingsConfig) int { return cfg.LoginLimit }
