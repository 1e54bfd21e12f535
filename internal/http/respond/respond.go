package respond

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Stable reasons shared by handlers.
const (
	ReasonValidation = "validation"
	ReasonNotFound   = "not_found"
	ReasonDuplicate  = "duplicate"
)

// Error writes a {message, reason} body.
func Error(c *gin.Context, status int, message, reason string) {
	body := gin.H{"message": message}
	if reason != "" {
		body["reason"] = reason
	}
	c.AbortWithStatusJSON(status, body)
}

// BadRequest writes a 400 validation error.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message, ReasonValidation)
}

// NotFound writes a 404.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, ReasonNotFound)
}

// ServerError logs err with context and hides it from the client.
func ServerError(c *gin.Context, err error, op string) {
	log.WithError(err).WithField("path", c.Request.URL.Path).Error(op)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
}

// ParamID parses a positive numeric path parameter, writing a 400 when invalid.
func ParamID(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		BadRequest(c, "Invalid id")
		return 0, false
	}
	return id, true
}
