package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CTFPlatform/internal/access"
	"github.com/router-for-me/CTFPlatform/internal/http/respond"
	"github.com/router-for-me/CTFPlatform/internal/models"
	"github.com/router-for-me/CTFPlatform/internal/store"
	"gorm.io/gorm"
)

// UserHandler manages competitor accounts.
type UserHandler struct {
	users *store.UserStore
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{users: store.NewUserStore(db)}
}

// banRequest defines the request body for ban changes.
type banRequest struct {
	Banned *bool `json:"banned" binding:"required"`
}

// List returns users without password hashes.
func (h *UserHandler) List(c *gin.Context) {
	rows, errList := h.users.List(c.Request.Context(), c.Query("search"))
	if errList != nil {
		respond.ServerError(c, errList, "admin users: list")
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		solved := make([]gin.H, 0, len(row.SolvedChallenges))
		for _, entry := range row.SolvedChallenges {
			solved = append(solved, gin.H{
				"challengeId":     entry.ChallengeID,
				"submissionIndex": entry.SubmissionIndex,
				"solvedAt":        entry.CreatedAt,
			})
		}
		out = append(out, gin.H{
			"id":               row.ID,
			"username":         row.Username,
			"email":            row.Email,
			"isAdmin":          row.IsAdmin,
			"isBanned":         row.IsBanned,
			"totpEnabled":      row.TOTPEnabled,
			"solvedChallenges": solved,
			"createdAt":        row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// Ban sets or clears the ban flag. Admins cannot ban themselves.
func (h *UserHandler) Ban(c *gin.Context) {
	id, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	var body banRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respond.BadRequest(c, "banned is required")
		return
	}
	banned := *body.Banned
	if admin := access.CurrentUser(c); admin != nil && admin.ID == id && banned {
		respond.BadRequest(c, "You cannot ban yourself")
		return
	}

	user, errBan := h.users.SetBanned(c.Request.Context(), id, banned)
	if errBan != nil {
		if errors.Is(errBan, store.ErrNotFound) {
			respond.NotFound(c, "User not found")
			return
		}
		respond.ServerError(c, errBan, "admin users: ban")
		return
	}
	message := "User unbanned successfully"
	if banned {
		message = "User banned successfully"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "user": banView(user)})
}

func banView(user *models.User) gin.H {
	return gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"isBanned": user.IsBanned,
	}
}
