package access

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CTFPlatform/internal/models"
	"github.com/router-for-me/CTFPlatform/internal/session"
	internalsettings "github.com/router-for-me/CTFPlatform/internal/settings"
	log "github.com/sirupsen/logrus"
)

// userContextKey stores the resolved principal on the gin context.
const userContextKey = "currentUser"

// Require enforces the gate at the given level for every request in the group.
func (g *Gate) Require(level Level) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := session.UserID(c)
		decision := g.Evaluate(c.Request.Context(), Request{
			Path:   c.Request.URL.Path,
			Level:  level,
			UserID: userID,
		})

		if decision.DestroySession {
			if errDestroy := session.Destroy(c); errDestroy != nil {
				log.WithError(errDestroy).Warn("access: destroy session failed")
			}
		}

		switch decision.Outcome {
		case OutcomeAllow:
			if decision.User != nil {
				c.Set(userContextKey, decision.User)
			}
			c.Next()
		case OutcomeServiceUnavailable:
			log.WithError(decision.Err).Error("access: gate storage failure")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		default:
			deny(c, decision)
		}
	}
}

func deny(c *gin.Context, decision Decision) {
	api := IsAPIPath(c.Request.URL.Path)
	switch decision.Outcome {
	case OutcomeRedirectToLogin:
		if !api {
			target := internalsettings.LoginPath
			if decision.Reason == ReasonBanned {
				target += "?" + url.Values{"error": {ReasonBanned}}.Encode()
			}
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		if decision.Reason == ReasonBanned {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Your account has been banned", "reason": ReasonBanned})
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication required", "reason": ReasonAuthRequired})
	case OutcomeForbidden:
		if !api {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin access required", "reason": decision.Reason})
	case OutcomeSiteGated:
		if !api {
			c.Redirect(http.StatusFound, internalsettings.LeaderboardPath)
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "The competition is closed; only the leaderboard is available", "reason": ReasonSiteGated})
	default:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden", "reason": decision.Reason})
	}
}

// CurrentUser returns the principal resolved by Require, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
