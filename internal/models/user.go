package models

import "time"

// User represents a competitor or administrator account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Email    string `gorm:"type:text;not null;uniqueIndex"` // Unique email address.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	IsAdmin  bool `gorm:"not null;default:false;index"` // Grants admin routes.
	IsBanned bool `gorm:"not null;default:false;index"` // Banned users cannot sign in or rank.

	TOTPSecret  string `gorm:"type:text"`              // TOTP secret; pending until TOTPEnabled.
	TOTPEnabled bool   `gorm:"not null;default:false"` // Whether admin login requires a TOTP code.

	SolvedChallenges []SolvedChallenge `gorm:"foreignKey:UserID"` // Accepted submissions, ordered by index.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// SolvedChallenge records one accepted submission and its global order index.
type SolvedChallenge struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID          uint64 `gorm:"not null;uniqueIndex:idx_solved_user_challenge,priority:1"` // Solving user.
	ChallengeID     uint64 `gorm:"not null;uniqueIndex:idx_solved_user_challenge,priority:2"` // Solved challenge.
	SubmissionIndex int64  `gorm:"not null;uniqueIndex"`                                      // Global acceptance order.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Acceptance timestamp.
}
