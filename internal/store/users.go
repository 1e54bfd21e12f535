package store

import (
	"context"
	"strings"

	dbutil "github.com/router-for-me/CTFPlatform/internal/db"
	"github.com/router-for-me/CTFPlatform/internal/models"
	"gorm.io/gorm"
)

// UserStore persists user accounts.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore constructs a UserStore.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new user; username or email collisions return ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	return wrap("create user", s.db.WithContext(ctx).Create(user).Error)
}

// Get loads a user by id.
func (s *UserStore) Get(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).First(&user, id).Error; errFind != nil {
		return nil, wrap("get user", errFind)
	}
	return &user, nil
}

// GetWithSolved loads a user and its solved entries ordered by submission index.
func (s *UserStore) GetWithSolved(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	errFind := s.db.WithContext(ctx).
		Preload("SolvedChallenges", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("submission_index ASC")
		}).
		First(&user, id).Error
	if errFind != nil {
		return nil, wrap("get user", errFind)
	}
	return &user, nil
}

// FindByUsername loads a user by exact username.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error; errFind != nil {
		return nil, wrap("find user", errFind)
	}
	return &user, nil
}

// ExistsByUsernameOrEmail reports whether either identifier is taken.
func (s *UserStore) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	errCount := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if errCount != nil {
		return false, wrap("check user", errCount)
	}
	return count > 0, nil
}

// List returns users with their solved entries, newest first. A non-empty
// search matches username or email case-insensitively.
func (s *UserStore) List(ctx context.Context, search string) ([]models.User, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if search = strings.TrimSpace(search); search != "" {
		pattern := dbutil.NormalizeLikePattern(s.db, "%"+search+"%")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(s.db, "username")+" OR "+dbutil.CaseInsensitiveLikeExpr(s.db, "email"),
			pattern, pattern,
		)
	}
	var rows []models.User
	errFind := q.
		Preload("SolvedChallenges", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("submission_index ASC")
		}).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if errFind != nil {
		return nil, wrap("list users", errFind)
	}
	return rows, nil
}

// SetBanned updates the ban flag and returns the updated user.
func (s *UserStore) SetBanned(ctx context.Context, id uint64, banned bool) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_banned", banned)
	if res.Error != nil {
		return nil, wrap("ban user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, wrap("ban user", gorm.ErrRecordNotFound)
	}
	return s.Get(ctx, id)
}

// SetTOTP stores the TOTP secret and its enabled flag.
func (s *UserStore) SetTOTP(ctx context.Context, id uint64, secret string, enabled bool) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"totp_secret": secret, "totp_enabled": enabled})
	if res.Error != nil {
		return wrap("set totp", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("set totp", gorm.ErrRecordNotFound)
	}
	return nil
}

// HasAdmin reports whether at least one admin account exists.
func (s *UserStore) HasAdmin(ctx context.Context) (bool, error) {
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error; errCount != nil {
		return false, wrap("count admins", errCount)
	}
	return count > 0, nil
}

// HasSolved reports whether the user already has an entry for the challenge.
func (s *UserStore) HasSolved(ctx context.Context, userID, challengeID uint64) (bool, error) {
	var count int64
	errCount := s.db.WithContext(ctx).Model(&models.SolvedChallenge{}).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Count(&count).Error
	if errCount != nil {
		return false, wrap("check solved", errCount)
	}
	return count > 0, nil
}

// SolvedChallengeIDs returns the set of challenge ids solved by the user.
func (s *UserStore) SolvedChallengeIDs(ctx context.Context, userID uint64) (map[uint64]struct{}, error) {
	var ids []uint64
	errPluck := s.db.WithContext(ctx).Model(&models.SolvedChallenge{}).
		Where("user_id = ?", userID).
		Pluck("challenge_id", &ids).Error
	if errPluck != nil {
		return nil, wrap("list solved", errPluck)
	}
	out := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}
