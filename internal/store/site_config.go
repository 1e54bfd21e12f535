package store

import (
	"context"
	"fmt"
	"time"

	"github.com/router-for-me/CTFPlatform/internal/models"
	internalsettings "github.com/router-for-me/CTFPlatform/internal/settings"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidSiteMode is returned when a mode outside the enum is written.
var ErrInvalidSiteMode = fmt.Errorf("store: invalid site mode")

// ValidSiteMode reports whether mode is one of the supported site modes.
func ValidSiteMode(mode string) bool {
	return mode == internalsettings.SiteModeLive || mode == internalsettings.SiteModeLeaderboardOnly
}

// SiteConfigStore reads and writes the site configuration singleton.
type SiteConfigStore struct {
	db *gorm.DB
}

// NewSiteConfigStore constructs a SiteConfigStore.
func NewSiteConfigStore(db *gorm.DB) *SiteConfigStore {
	return &SiteConfigStore{db: db}
}

// Get returns the singleton, creating it with defaults when absent.
// Concurrent first calls converge on one row through the fixed primary key.
func (s *SiteConfigStore) Get(ctx context.Context) (*models.SiteConfig, error) {
	return getOrCreateSiteConfig(s.db.WithContext(ctx))
}

// SetMode updates the site mode.
func (s *SiteConfigStore) SetMode(ctx context.Context, mode string) (*models.SiteConfig, error) {
	if !ValidSiteMode(mode) {
		return nil, ErrInvalidSiteMode
	}
	conn := s.db.WithContext(ctx)
	if _, errGet := getOrCreateSiteConfig(conn); errGet != nil {
		return nil, errGet
	}
	errUpdate := conn.Model(&models.SiteConfig{}).
		Where("id = ?", internalsettings.SiteConfigID).
		Updates(map[string]any{"site_mode": mode, "updated_at": time.Now().UTC()}).Error
	if errUpdate != nil {
		return nil, wrap("set site mode", errUpdate)
	}
	return getOrCreateSiteConfig(conn)
}

// NextSubmissionIndex increments the global counter inside tx and returns the
// pre-increment value. The UPDATE takes the row's write lock, so the value read
// back belongs to this transaction until it commits or rolls back.
func NextSubmissionIndex(tx *gorm.DB) (int64, error) {
	if _, errGet := getOrCreateSiteConfig(tx); errGet != nil {
		return 0, errGet
	}
	res := tx.Model(&models.SiteConfig{}).
		Where("id = ?", internalsettings.SiteConfigID).
		Updates(map[string]any{
			"submission_count": gorm.Expr("submission_count + ?", 1),
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, wrap("increment submission count", res.Error)
	}
	if res.RowsAffected != 1 {
		return 0, fmt.Errorf("store: increment submission count: affected %d rows", res.RowsAffected)
	}
	var count int64
	errRead := tx.Model(&models.SiteConfig{}).
		Where("id = ?", internalsettings.SiteConfigID).
		Pluck("submission_count", &count).Error
	if errRead != nil {
		return 0, wrap("read submission count", errRead)
	}
	return count - 1, nil
}

func getOrCreateSiteConfig(conn *gorm.DB) (*models.SiteConfig, error) {
	var cfg models.SiteConfig
	errFind := conn.Where("id = ?", internalsettings.SiteConfigID).Limit(1).Find(&cfg).Error
	if errFind != nil {
		return nil, wrap("get site config", errFind)
	}
	if cfg.ID == internalsettings.SiteConfigID {
		return &cfg, nil
	}
	seed := models.SiteConfig{
		ID:       internalsettings.SiteConfigID,
		SiteMode: internalsettings.DefaultSiteMode,
	}
	if errCreate := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; errCreate != nil {
		return nil, wrap("create site config", errCreate)
	}
	if errFind = conn.Where("id = ?", internalsettings.SiteConfigID).First(&cfg).Error; errFind != nil {
		return nil, wrap("get site config", errFind)
	}
	return &cfg, nil
}
