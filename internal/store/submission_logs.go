package store

import (
	"context"

	"github.com/router-for-me/CTFPlatform/internal/models"
	"gorm.io/gorm"
)

// defaultSubmissionLogLimit caps list queries without an explicit limit.
const defaultSubmissionLogLimit = 100

// SubmissionLogFilter narrows a submission log listing.
type SubmissionLogFilter struct {
	UserID      uint64
	ChallengeID uint64
	Limit       int
}

// SubmissionLogStore persists submission attempts.
type SubmissionLogStore struct {
	db *gorm.DB
}

// NewSubmissionLogStore constructs a SubmissionLogStore.
func NewSubmissionLogStore(db *gorm.DB) *SubmissionLogStore {
	return &SubmissionLogStore{db: db}
}

// Record stores one attempt.
func (s *SubmissionLogStore) Record(ctx context.Context, entry *models.SubmissionLog) error {
	return wrap("record submission", s.db.WithContext(ctx).Create(entry).Error)
}

// List returns attempts newest first.
func (s *SubmissionLogStore) List(ctx context.Context, filter SubmissionLogFilter) ([]models.SubmissionLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = defaultSubmissionLogLimit
	}
	q := s.db.WithContext(ctx).Model(&models.SubmissionLog{})
	if filter.UserID > 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.ChallengeID > 0 {
		q = q.Where("challenge_id = ?", filter.ChallengeID)
	}
	var rows []models.SubmissionLog
	if errFind := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		return nil, wrap("list submissions", errFind)
	}
	return rows, nil
}
