package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CTFPlatform/internal/http/respond"
	"github.com/router-for-me/CTFPlatform/internal/store"
	"gorm.io/gorm"
)

// SubmissionHandler exposes the flag attempt log.
type SubmissionHandler struct {
	logs *store.SubmissionLogStore
}

// NewSubmissionHandler constructs a SubmissionHandler.
func NewSubmissionHandler(db *gorm.DB) *SubmissionHandler {
	return &SubmissionHandler{logs: store.NewSubmissionLogStore(db)}
}

// List returns attempts newest first, filtered by userId and challengeId.
func (h *SubmissionHandler) List(c *gin.Context) {
	var filter store.SubmissionLogFilter
	var ok bool
	if filter.UserID, ok = optionalUint(c, "userId"); !ok {
		return
	}
	if filter.ChallengeID, ok = optionalUint(c, "challengeId"); !ok {
		return
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, errParse := strconv.Atoi(raw)
		if errParse != nil || limit < 0 {
			respond.BadRequest(c, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	rows, errList := h.logs.List(c.Request.Context(), filter)
	if errList != nil {
		respond.ServerError(c, errList, "admin submissions: list")
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":              row.ID,
			"userId":          row.UserID,
			"challengeId":     row.ChallengeID,
			"flag":            row.Flag,
			"result":          row.Result,
			"clientIp":        row.ClientIP,
			"submissionIndex": row.SubmissionIndex,
			"createdAt":       row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"submissions": out})
}

func optionalUint(c *gin.Context, name string) (uint64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	v, errParse := strconv.ParseUint(raw, 10, 64)
	if errParse != nil {
		respond.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return v, true
}
