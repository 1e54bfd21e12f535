package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChallengeFile describes a stored attachment.
type ChallengeFile struct {
	Filename     string `json:"filename"`     // Stored name under the uploads directory.
	OriginalName string `json:"originalName"` // Name supplied by the uploader.
	Size         int64  `json:"size"`         // Size in bytes.
}

// Challenge represents a CTF challenge with its secret flag.
type Challenge struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Title       string `gorm:"type:text;not null"`        // Display title.
	Description string `gorm:"type:text;not null"`        // Prompt shown to competitors.
	Category    string `gorm:"type:text;not null;index"`  // One of the configured categories.
	Flag        string `gorm:"type:text;not null"`        // Secret flag; never exposed to non-admins.
	Hint        string `gorm:"type:text"`                 // Optional hint.
	Author      string `gorm:"type:text;not null"`        // Challenge author.
	FileURL     string `gorm:"type:text"`                 // Optional external resource URL.

	Deadline *time.Time // Optional display deadline.

	File datatypes.JSONType[ChallengeFile] `gorm:"not null"` // Stored attachment metadata; empty filename means none.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// StoredFile returns the attachment metadata when a file is stored.
func (c *Challenge) StoredFile() (ChallengeFile, bool) {
	if c == nil {
		return ChallengeFile{}, false
	}
	file := c.File.Data()
	if file.Filename == "" {
		return ChallengeFile{}, false
	}
	return file, true
}

// SetStoredFile replaces or clears the attachment metadata.
func (c *Challenge) SetStoredFile(file *ChallengeFile) {
	if file == nil {
		c.File = datatypes.NewJSONType(ChallengeFile{})
		return
	}
	c.File = datatypes.NewJSONType(*file)
}
