package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CTFPlatform/internal/http/respond"
	"github.com/router-for-me/CTFPlatform/internal/models"
	"github.com/router-for-me/CTFPlatform/internal/store"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SiteConfigHandler reads and updates the site mode.
type SiteConfigHandler struct {
	site *store.SiteConfigStore
}

// NewSiteConfigHandler constructs a SiteConfigHandler.
func NewSiteConfigHandler(db *gorm.DB) *SiteConfigHandler {
	return &SiteConfigHandler{site: store.NewSiteConfigStore(db)}
}

// updateSiteConfigRequest defines the request body for mode changes.
type updateSiteConfigRequest struct {
	SiteMode string `json:"siteMode"`
}

// Get returns the full site configuration.
func (h *SiteConfigHandler) Get(c *gin.Context) {
	cfg, errGet := h.site.Get(c.Request.Context())
	if errGet != nil {
		respond.ServerError(c, errGet, "site config: get")
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": siteConfigView(cfg)})
}

// Public returns the fields any visitor may see.
func (h *SiteConfigHandler) Public(c *gin.Context) {
	cfg, errGet := h.site.Get(c.Request.Context())
	if errGet != nil {
		respond.ServerError(c, errGet, "site config: get public")
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": gin.H{
		"siteMode":  cfg.SiteMode,
		"updatedAt": cfg.UpdatedAt,
	}})
}

// Update switches the site mode.
func (h *SiteConfigHandler) Update(c *gin.Context) {
	var body updateSiteConfigRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respond.BadRequest(c, "Invalid site mode")
		return
	}
	cfg, errSet := h.site.SetMode(c.Request.Context(), strings.TrimSpace(body.SiteMode))
	if errSet != nil {
		if errors.Is(errSet, store.ErrInvalidSiteMode) {
			respond.BadRequest(c, "Invalid site mode")
			return
		}
		respond.ServerError(c, errSet, "site config: update")
		return
	}
	log.WithField("site_mode", cfg.SiteMode).Info("site mode changed")
	c.JSON(http.StatusOK, gin.H{
		"message": "Site configuration updated successfully",
		"config":  siteConfigView(cfg),
	})
}

func siteConfigView(cfg *models.SiteConfig) gin.H {
	return gin.H{
		"siteMode":        cfg.SiteMode,
		"submissionCount": cfg.SubmissionCount,
		"createdAt":       cfg.CreatedAt,
		"updatedAt":       cfg.UpdatedAt,
	}
}
