package store

import (
	"context"

	"github.com/router-for-me/CTFPlatform/internal/models"
	"gorm.io/gorm"
)

// ChallengeStore persists challenges.
type ChallengeStore struct {
	db *gorm.DB
}

// NewChallengeStore constructs a ChallengeStore.
func NewChallengeStore(db *gorm.DB) *ChallengeStore {
	return &ChallengeStore{db: db}
}

// Create inserts a challenge.
func (s *ChallengeStore) Create(ctx context.Context, challenge *models.Challenge) error {
	return wrap("create challenge", s.db.WithContext(ctx).Create(challenge).Error)
}

// Get loads a challenge by id.
func (s *ChallengeStore) Get(ctx context.Context, id uint64) (*models.Challenge, error) {
	var challenge models.Challenge
	if errFind := s.db.WithContext(ctx).First(&challenge, id).Error; errFind != nil {
		return nil, wrap("get challenge", errFind)
	}
	return &challenge, nil
}

// List returns all challenges ordered by category then creation.
func (s *ChallengeStore) List(ctx context.Context) ([]models.Challenge, error) {
	var rows []models.Challenge
	if errFind := s.db.WithContext(ctx).Order("category ASC").Order("created_at ASC").Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, wrap("list challenges", errFind)
	}
	return rows, nil
}

// Save persists every column of an existing challenge.
func (s *ChallengeStore) Save(ctx context.Context, challenge *models.Challenge) error {
	res := s.db.WithContext(ctx).Model(challenge).Select("*").Omit("id", "created_at").Updates(challenge)
	if res.Error != nil {
		return wrap("update challenge", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("update challenge", gorm.ErrRecordNotFound)
	}
	return nil
}

// Delete removes a challenge. Solved entries referencing it are kept.
func (s *ChallengeStore) Delete(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&models.Challenge{}, id)
	if res.Error != nil {
		return wrap("delete challenge", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("delete challenge", gorm.ErrRecordNotFound)
	}
	return nil
}
