package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CTFPlatform/internal/access"
	"github.com/router-for-me/CTFPlatform/internal/http/respond"
	"github.com/router-for-me/CTFPlatform/internal/models"
	"github.com/router-for-me/CTFPlatform/internal/security"
	"github.com/router-for-me/CTFPlatform/internal/store"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MFAHandler manages TOTP enrollment for the signed-in admin.
type MFAHandler struct {
	users  *store.UserStore
	issuer string
	nowFn  func() time.Time
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(db *gorm.DB, issuer string) *MFAHandler {
	return &MFAHandler{users: store.NewUserStore(db), issuer: issuer, nowFn: time.Now}
}

// totpCodeRequest carries a one-time code.
type totpCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Status reports whether TOTP is enabled or pending confirmation.
func (h *MFAHandler) Status(c *gin.Context) {
	admin, ok := h.admin(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totpEnabled": admin.TOTPEnabled,
		"totpPending": !admin.TOTPEnabled && admin.TOTPSecret != "",
	})
}

// PrepareTOTP generates a pending secret; it is not enforced until confirmed.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	admin, ok := h.admin(c)
	if !ok {
		return
	}
	if admin.TOTPEnabled {
		respond.Error(c, http.StatusConflict, "TOTP is already enabled", "totp_enabled")
		return
	}
	key, errGen := security.GenerateTOTP(h.issuer, admin.Username)
	if errGen != nil {
		respond.ServerError(c, errGen, "mfa: generate totp")
		return
	}
	if errSet := h.users.SetTOTP(c.Request.Context(), admin.ID, key.Secret, false); errSet != nil {
		respond.ServerError(c, errSet, "mfa: store pending totp")
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": key.Secret, "url": key.URL})
}

// ConfirmTOTP enables the pending secret once a valid code is supplied.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	admin, code, ok := h.adminWithCode(c)
	if !ok {
		return
	}
	if admin.TOTPEnabled {
		respond.Error(c, http.StatusConflict, "TOTP is already enabled", "totp_enabled")
		return
	}
	if strings.TrimSpace(admin.TOTPSecret) == "" {
		respond.BadRequest(c, "No pending TOTP setup")
		return
	}
	if !security.ValidateTOTP(admin.TOTPSecret, code, h.nowFn()) {
		respond.Error(c, http.StatusBadRequest, "Invalid TOTP code", "invalid_totp")
		return
	}
	if errSet := h.users.SetTOTP(c.Request.Context(), admin.ID, admin.TOTPSecret, true); errSet != nil {
		respond.ServerError(c, errSet, "mfa: enable totp")
		return
	}
	log.WithField("user_id", admin.ID).Info("totp enabled")
	c.JSON(http.StatusOK, gin.H{"message": "TOTP enabled"})
}

// DisableTOTP clears the secret after verifying a current code.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	admin, code, ok := h.adminWithCode(c)
	if !ok {
		return
	}
	if !admin.TOTPEnabled {
		respond.BadRequest(c, "TOTP is not enabled")
		return
	}
	if !security.ValidateTOTP(admin.TOTPSecret, code, h.nowFn()) {
		respond.Error(c, http.StatusBadRequest, "Invalid TOTP code", "invalid_totp")
		return
	}
	if errSet := h.users.SetTOTP(c.Request.Context(), admin.ID, "", false); errSet != nil {
		respond.ServerError(c, errSet, "mfa: disable totp")
		return
	}
	log.WithField("user_id", admin.ID).Info("totp disabled")
	c.JSON(http.StatusOK, gin.H{"message": "TOTP disabled"})
}

func (h *MFAHandler) admin(c *gin.Context) (*models.User, bool) {
	admin := access.CurrentUser(c)
	if admin == nil {
		respond.Error(c, http.StatusUnauthorized, "Authentication required", access.ReasonAuthRequired)
		return nil, false
	}
	return admin, true
}

func (h *MFAHandler) adminWithCode(c *gin.Context) (*models.User, string, bool) {
	admin, ok := h.admin(c)
	if !ok {
		return nil, "", false
	}
	var body totpCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respond.BadRequest(c, "code is required")
		return nil, "", false
	}
	return admin, strings.TrimSpace(body.Code), true
}
