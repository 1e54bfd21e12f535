package front

import (
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CTFPlatform/internal/access"
	"github.com/router-for-me/CTFPlatform/internal/http/api/front/handlers"
	"github.com/router-for-me/CTFPlatform/internal/ratelimit"
	"github.com/router-for-me/CTFPlatform/internal/submission"
	"github.com/router-for-me/CTFPlatform/internal/uploads"
	"gorm.io/gorm"
)

// Deps groups the collaborators shared by competitor-facing routes.
type Deps struct {
	DB        *gorm.DB
	Gate      *access.Gate
	Engine    *submission.Engine
	Limiter   *ratelimit.Manager
	Files     *uploads.Storage
	Downloads handlers.DownloadLinkOptions
}

// RegisterFrontRoutes registers auth, challenge and leaderboard routes.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil || deps.Gate == nil {
		return
	}

	loginGuard := func(c *gin.Context) { c.Next() }
	submitGuard := loginGuard
	if deps.Limiter != nil {
		loginGuard = deps.Limiter.Guard(ratelimit.LoginLimit, func(c *gin.Context) string {
			return ratelimit.LoginKey(c.ClientIP())
		})
		submitGuard = deps.Limiter.Guard(ratelimit.SubmissionLimit, func(c *gin.Context) string {
			if user := access.CurrentUser(c); user != nil {
				return ratelimit.SubmissionKey(user.ID)
			}
			return ""
		})
	}

	authHandler := handlers.NewAuthHandler(deps.DB)
	auth := r.Group("/api/auth")
	auth.Use(deps.Gate.Require(access.LevelPublic))
	auth.POST("/register", loginGuard, authHandler.Register)
	auth.POST("/login", loginGuard, authHandler.Login)
	auth.POST("/admin/login", loginGuard, authHandler.AdminLogin)
	auth.GET("/logout", authHandler.Logout)
	auth.POST("/logout", authHandler.Logout)

	authAuthed := r.Group("/api/auth")
	authAuthed.Use(deps.Gate.Require(access.LevelUser))
	authAuthed.GET("/me", authHandler.Me)

	leaderboardHandler := handlers.NewLeaderboardHandler(deps.DB)
	r.GET("/api/leaderboard", deps.Gate.Require(access.LevelPublic), leaderboardHandler.Get)

	challengeHandler := handlers.NewChallengeHandler(deps.DB, deps.Engine, deps.Files, deps.Downloads)
	r.GET("/api/challenges/download/:id", deps.Gate.Require(access.LevelPublic), challengeHandler.Download)

	challenges := r.Group("/api/challenges")
	challenges.Use(deps.Gate.Require(access.LevelUser))
	challenges.GET("", challengeHandler.List)
	challenges.POST("/submit/:id", submitGuard, challengeHandler.Submit)
	challenges.GET("/:id/download-link", challengeHandler.DownloadLink)
}
