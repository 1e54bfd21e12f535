package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CTFPlatform/internal/access"
	"github.com/router-for-me/CTFPlatform/internal/http/respond"
	"github.com/router-for-me/CTFPlatform/internal/models"
	"github.com/router-for-me/CTFPlatform/internal/security"
	"github.com/router-for-me/CTFPlatform/internal/store"
	"github.com/router-for-me/CTFPlatform/internal/submission"
	"github.com/router-for-me/CTFPlatform/internal/uploads"
	"gorm.io/gorm"
)

// Reasons specific to flag submission.
const (
	ReasonAlreadySolved = "already_solved"
	ReasonIncorrectFlag = "incorrect_flag"
)

// DownloadLinkOptions configures signed download links.
type DownloadLinkOptions struct {
	Secret string
	Expiry time.Duration
}

// ChallengeHandler serves the competitor view of challenges.
type ChallengeHandler struct {
	users      *store.UserStore
	challenges *store.ChallengeStore
	engine     *submission.Engine
	files      *uploads.Storage
	links      DownloadLinkOptions
	nowFn      func() time.Time
}

// NewChallengeHandler constructs a ChallengeHandler.
func NewChallengeHandler(db *gorm.DB, engine *submission.Engine, files *uploads.Storage, links DownloadLinkOptions) *ChallengeHandler {
	return &ChallengeHandler{
		users:      store.NewUserStore(db),
		challenges: store.NewChallengeStore(db),
		engine:     engine,
		files:      files,
		links:      links,
		nowFn:      time.Now,
	}
}

// submitRequest defines the request body for flag submission.
type submitRequest struct {
	Flag string `json:"flag" binding:"required"`
}

// List returns all challenges without flags, marking the caller's solves.
func (h *ChallengeHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	user := access.CurrentUser(c)
	rows, errList := h.challenges.List(ctx)
	if errList != nil {
		respond.ServerError(c, errList, "challenges: list")
		return
	}
	solved := map[uint64]struct{}{}
	if user != nil {
		ids, errSolved := h.users.SolvedChallengeIDs(ctx, user.ID)
		if errSolved != nil {
			respond.ServerError(c, errSolved, "challenges: list solved")
			return
		}
		solved = ids
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		view := PublicChallengeView(&rows[i])
		_, view["solved"] = solved[rows[i].ID]
		out = append(out, view)
	}
	c.JSON(http.StatusOK, gin.H{"challenges": out})
}

// Submit evaluates a flag for the current user.
func (h *ChallengeHandler) Submit(c *gin.Context) {
	id, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	user := access.CurrentUser(c)
	if user == nil {
		respond.Error(c, http.StatusUnauthorized, "Authentication required", access.ReasonAuthRequired)
		return
	}
	var body submitRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respond.BadRequest(c, "Flag is required")
		return
	}

	result, errSubmit := h.engine.Submit(c.Request.Context(), submission.Attempt{
		UserID:      user.ID,
		ChallengeID: id,
		Flag:        body.Flag,
		ClientIP:    c.ClientIP(),
	})
	switch {
	case errSubmit == nil:
		c.JSON(http.StatusOK, gin.H{
			"message":         "Flag correct!",
			"submissionIndex": result.SubmissionIndex,
		})
	case errors.Is(errSubmit, submission.ErrAlreadySolved):
		respond.Error(c, http.StatusBadRequest, "Challenge already solved", ReasonAlreadySolved)
	case errors.Is(errSubmit, submission.ErrIncorrectFlag):
		respond.Error(c, http.StatusBadRequest, "Incorrect flag", ReasonIncorrectFlag)
	case errors.Is(errSubmit, submission.ErrChallengeNotFound):
		respond.NotFound(c, "Challenge not found")
	case errors.Is(errSubmit, submission.ErrUserNotFound):
		respond.NotFound(c, "User not found")
	case errors.Is(errSubmit, submission.ErrSiteGated):
		respond.Error(c, http.StatusForbidden, "The competition is closed; only the leaderboard is available", access.ReasonSiteGated)
	default:
		respond.ServerError(c, errSubmit, "challenges: submit")
	}
}

// DownloadLink issues a short-lived signed URL for the challenge file.
func (h *ChallengeHandler) DownloadLink(c *gin.Context) {
	id, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	user := access.CurrentUser(c)
	if user == nil {
		respond.Error(c, http.StatusUnauthorized, "Authentication required", access.ReasonAuthRequired)
		return
	}
	challenge, ok := h.loadWithFile(c, id)
	if !ok {
		return
	}
	token, expiresAt, errIssue := security.IssueDownloadToken(h.links.Secret, user.ID, challenge.ID, h.nowFn(), h.links.Expiry)
	if errIssue != nil {
		respond.ServerError(c, errIssue, "challenges: issue download token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":       fmt.Sprintf("/api/challenges/download/%d?%s", challenge.ID, url.Values{"token": {token}}.Encode()),
		"expiresAt": expiresAt,
	})
}

// Download streams the stored challenge file as an attachment. A signed token
// query parameter authenticates callers without a session cookie.
func (h *ChallengeHandler) Download(c *gin.Context) {
	id, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	if access.CurrentUser(c) == nil {
		if !h.authorizeToken(c, id) {
			return
		}
	}

	challenge, ok := h.loadWithFile(c, id)
	if !ok {
		return
	}
	file, _ := challenge.StoredFile()
	path, errPath := h.files.Path(file.Filename)
	if errPath != nil {
		respond.NotFound(c, "File not found")
		return
	}
	if _, errStat := os.Stat(path); errStat != nil {
		if errors.Is(errStat, os.ErrNotExist) {
			respond.NotFound(c, "File not found")
			return
		}
		respond.ServerError(c, errStat, "challenges: stat file")
		return
	}
	c.FileAttachment(path, file.OriginalName)
}

func (h *ChallengeHandler) authorizeToken(c *gin.Context, challengeID uint64) bool {
	raw := strings.TrimSpace(c.Query("token"))
	if raw == "" {
		respond.Error(c, http.StatusUnauthorized, "Authentication required", access.ReasonAuthRequired)
		return false
	}
	claims, errParse := security.ParseDownloadToken(h.links.Secret, raw, challengeID, h.nowFn())
	if errParse != nil {
		respond.Error(c, http.StatusUnauthorized, "Invalid or expired download link", access.ReasonAuthRequired)
		return false
	}
	user, errUser := h.users.Get(c.Request.Context(), claims.UserID)
	if errUser != nil {
		if errors.Is(errUser, store.ErrNotFound) {
			respond.Error(c, http.StatusUnauthorized, "Invalid or expired download link", access.ReasonAuthRequired)
			return false
		}
		respond.ServerError(c, errUser, "challenges: load token user")
		return false
	}
	if user.IsBanned {
		respond.Error(c, http.StatusForbidden, "Your account has been banned", access.ReasonBanned)
		return false
	}
	return true
}

func (h *ChallengeHandler) loadWithFile(c *gin.Context, id uint64) (*models.Challenge, bool) {
	challenge, errGet := h.challenges.Get(c.Request.Context(), id)
	if errGet != nil {
		if errors.Is(errGet, store.ErrNotFound) {
			respond.NotFound(c, "Challenge not found")
			return nil, false
		}
		respond.ServerError(c, errGet, "challenges: get")
		return nil, false
	}
	if _, hasFile := challenge.StoredFile(); !hasFile {
		respond.NotFound(c, "File not found")
		return nil, false
	}
	return challenge, true
}

// PublicChallengeView renders a challenge without its flag.
func PublicChallengeView(ch *models.Challenge) gin.H {
	view := gin.H{
		"id":          ch.ID,
		"title":       ch.Title,
		"description": ch.Description,
		"category":    ch.Category,
		"hint":        ch.Hint,
		"deadline":    ch.Deadline,
		"author":      ch.Author,
		"fileUrl":     ch.FileURL,
		"file":        nil,
		"createdAt":   ch.CreatedAt,
		"updatedAt":   ch.UpdatedAt,
	}
	if file, ok := ch.StoredFile(); ok {
		view["file"] = gin.H{
			"originalName": file.OriginalName,
			"size":         file.Size,
			"downloadUrl":  fmt.Sprintf("/api/challenges/download/%d", ch.ID),
		}
	}
	return view
}
