package db

import (
	"fmt"

	"github.com/router-for-me/CTFPlatform/internal/models"
	internalsettings "github.com/router-for-me/CTFPlatform/internal/settings"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite, DialectPostgres, "":
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.SolvedChallenge{},
		&models.SiteConfig{},
		&models.SubmissionLog{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if DialectName(conn) == DialectPostgres {
		if errCheck := ensureSiteConfigCheckPostgres(conn); errCheck != nil {
			return errCheck
		}
	}
	if errSeed := ensureSiteConfig(conn); errSeed != nil {
		return errSeed
	}
	return nil
}

// ensureSiteConfig inserts the singleton site configuration row if it is missing.
func ensureSiteConfig(conn *gorm.DB) error {
	row := models.SiteConfig{
		ID:       internalsettings.SiteConfigID,
		SiteMode: internalsettings.DefaultSiteMode,
	}
	if errCreate := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; errCreate != nil {
		return fmt.Errorf("db: seed site config: %w", errCreate)
	}
	return nil
}

// ensureSiteConfigCheckPostgres keeps the counter non-negative and the mode within the enum.
func ensureSiteConfigCheckPostgres(conn *gorm.DB) error {
	if errCheck := conn.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'chk_site_configs_state'
			) THEN
				ALTER TABLE site_configs
				ADD CONSTRAINT chk_site_configs_state
				CHECK (submission_count >= 0 AND site_mode IN ('live', 'leaderboard_only'));
			END IF;
		END $$;
	`).Error; errCheck != nil {
		return fmt.Errorf("db: add site config check: %w", errCheck)
	}
	return nil
}
