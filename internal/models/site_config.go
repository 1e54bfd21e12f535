package models

import "time"

// SiteConfig is the singleton row holding the site mode and the global submission counter.
type SiteConfig struct {
	ID uint64 `gorm:"primaryKey"` // Fixed primary key; exactly one row exists.

	SiteMode        string `gorm:"type:text;not null;default:live"` // live or leaderboard_only.
	SubmissionCount int64  `gorm:"not null;default:0"`              // Accepted submissions so far.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
