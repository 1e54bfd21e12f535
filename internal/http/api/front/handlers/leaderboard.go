package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CTFPlatform/internal/http/respond"
	"github.com/router-for-me/CTFPlatform/internal/leaderboard"
	"gorm.io/gorm"
)

// LeaderboardHandler serves the public ranking.
type LeaderboardHandler struct {
	projector *leaderboard.Projector
}

// NewLeaderboardHandler constructs a LeaderboardHandler.
func NewLeaderboardHandler(db *gorm.DB) *LeaderboardHandler {
	return &LeaderboardHandler{projector: leaderboard.NewProjector(db)}
}

// Get returns the current leaderboard.
func (h *LeaderboardHandler) Get(c *gin.Context) {
	entries, errProject := h.projector.Project(c.Request.Context())
	if errProject != nil {
		respond.ServerError(c, errProject, "leaderboard: project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
