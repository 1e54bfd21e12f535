package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CTFPlatform/internal/access"
	handlers "github.com/router-for-me/CTFPlatform/internal/http/api/admin/handlers"
	"github.com/router-for-me/CTFPlatform/internal/uploads"
	"gorm.io/gorm"
)

// Deps groups the collaborators shared by admin routes.
type Deps struct {
	DB        *gorm.DB
	Gate      *access.Gate
	Files     *uploads.Storage
	MFAIssuer string
}

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil || deps.Gate == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	siteConfigHandler := handlers.NewSiteConfigHandler(deps.DB)
	r.GET("/api/admin/site-config/public", deps.Gate.Require(access.LevelPublic), siteConfigHandler.Public)

	authed := r.Group("/api/admin")
	authed.Use(deps.Gate.Require(access.LevelAdmin))

	authed.GET("/site-config", siteConfigHandler.Get)
	authed.PUT("/site-config", siteConfigHandler.Update)

	challengeHandler := handlers.NewChallengeHandler(deps.DB, deps.Files)
	authed.GET("/challenges", challengeHandler.List)
	authed.POST("/challenges", challengeHandler.Create)
	authed.GET("/challenges/:id", challengeHandler.Get)
	authed.PUT("/challenges/:id", challengeHandler.Update)
	authed.DELETE("/challenges/:id", challengeHandler.Delete)

	userHandler := handlers.NewUserHandler(deps.DB)
	authed.GET("/users", userHandler.List)
	authed.PUT("/users/:id/ban", userHandler.Ban)

	submissionHandler := handlers.NewSubmissionHandler(deps.DB)
	authed.GET("/submissions", submissionHandler.List)

	mfaHandler := handlers.NewMFAHandler(deps.DB, deps.MFAIssuer)
	authed.GET("/mfa/status", mfaHandler.Status)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)
}
