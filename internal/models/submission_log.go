package models

import "time"

// Submission attempt results.
const (
	SubmissionResultCorrect   = "correct"
	SubmissionResultIncorrect = "incorrect"
	SubmissionResultDuplicate = "duplicate"
)

// SubmissionLog records every evaluated flag submission.
type SubmissionLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID      uint64 `gorm:"not null;index"`     // Submitting user.
	ChallengeID uint64 `gorm:"not null;index"`     // Target challenge.
	Flag        string `gorm:"type:text;not null"` // Submitted value, trimmed.
	Result      string `gorm:"type:text;not null"` // correct, incorrect or duplicate.
	ClientIP    string `gorm:"type:text"`          // Request origin.

	// SubmissionIndex is set only for correct attempts.
	SubmissionIndex *int64

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Attempt timestamp.
}
