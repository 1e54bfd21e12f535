package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dbutil "github.com/router-for-me/CTFPlatform/internal/db"
	"github.com/router-for-me/CTFPlatform/internal/models"
	internalsettings "github.com/router-for-me/CTFPlatform/internal/settings"
	"github.com/router-for-me/CTFPlatform/internal/store"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Rejection outcomes of Submit. Anything else returned is a storage failure.
var (
	ErrSiteGated         = errors.New("submission: site is in leaderboard-only mode")
	ErrChallengeNotFound = errors.New("submission: challenge not found")
	ErrUserNotFound      = errors.New("submission: user not found")
	ErrAlreadySolved     = errors.New("submission: challenge already solved")
	ErrIncorrectFlag     = errors.New("submission: incorrect flag")
)

// Attempt is one flag submission.
type Attempt struct {
	UserID      uint64
	ChallengeID uint64
	Flag        string
	ClientIP    string
}

// Result describes an accepted submission.
type Result struct {
	SubmissionIndex int64
}

// Engine evaluates flag submissions and records accepted solves.
type Engine struct {
	db         *gorm.DB
	users      *store.UserStore
	challenges *store.ChallengeStore
	site       *store.SiteConfigStore
	logs       *store.SubmissionLogStore
}

// NewEngine constructs an Engine over the shared database.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{
		db:         db,
		users:      store.NewUserStore(db),
		challenges: store.NewChallengeStore(db),
		site:       store.NewSiteConfigStore(db),
		logs:       store.NewSubmissionLogStore(db),
	}
}

// Submit checks, in order, site mode, challenge, user, prior solve and flag,
// then stamps the next global submission index and records the solve in one
// transaction. A concurrent duplicate loses on the unique (user, challenge)
// index and its counter increment is rolled back with it, so indices stay
// gap-free.
func (e *Engine) Submit(ctx context.Context, attempt Attempt) (Result, error) {
	cfg, errSite := e.site.Get(ctx)
	if errSite != nil {
		return Result{}, errSite
	}
	if cfg.SiteMode == internalsettings.SiteModeLeaderboardOnly {
		return Result{}, ErrSiteGated
	}

	challenge, errChallenge := e.challenges.Get(ctx, attempt.ChallengeID)
	if errChallenge != nil {
		if errors.Is(errChallenge, store.ErrNotFound) {
			return Result{}, ErrChallengeNotFound
		}
		return Result{}, errChallenge
	}

	if _, errUser := e.users.Get(ctx, attempt.UserID); errUser != nil {
		if errors.Is(errUser, store.ErrNotFound) {
			return Result{}, ErrUserNotFound
		}
		return Result{}, errUser
	}

	flag := strings.TrimSpace(attempt.Flag)

	solved, errSolved := e.users.HasSolved(ctx, attempt.UserID, attempt.ChallengeID)
	if errSolved != nil {
		return Result{}, errSolved
	}
	if solved {
		e.record(ctx, attempt, flag, models.SubmissionResultDuplicate, nil)
		return Result{}, ErrAlreadySolved
	}

	if flag != challenge.Flag {
		e.record(ctx, attempt, flag, models.SubmissionResultIncorrect, nil)
		return Result{}, ErrIncorrectFlag
	}

	var index int64
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, errNext := store.NextSubmissionIndex(tx)
		if errNext != nil {
			return errNext
		}
		entry := models.SolvedChallenge{
			UserID:          attempt.UserID,
			ChallengeID:     attempt.ChallengeID,
			SubmissionIndex: next,
		}
		if errCreate := tx.Create(&entry).Error; errCreate != nil {
			if dbutil.IsUniqueViolation(errCreate) {
				return ErrAlreadySolved
			}
			return fmt.Errorf("submission: record solve: %w", errCreate)
		}
		index = next
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, ErrAlreadySolved) {
			e.record(ctx, attempt, flag, models.SubmissionResultDuplicate, nil)
			return Result{}, ErrAlreadySolved
		}
		return Result{}, errTx
	}

	e.record(ctx, attempt, flag, models.SubmissionResultCorrect, &index)
	log.WithFields(log.Fields{
		"user":      attempt.UserID,
		"challenge": attempt.ChallengeID,
		"index":     index,
	}).Info("flag accepted")
	return Result{SubmissionIndex: index}, nil
}

// record writes the attempt log; failures are logged and never change the outcome.
func (e *Engine) record(ctx context.Context, attempt Attempt, flag, result string, index *int64) {
	entry := models.SubmissionLog{
		UserID:          attempt.UserID,
		ChallengeID:     attempt.ChallengeID,
		Flag:            flag,
		Result:          result,
		ClientIP:        attempt.ClientIP,
		SubmissionIndex: index,
	}
	if errRecord := e.logs.Record(ctx, &entry); errRecord != nil {
		log.WithError(errRecord).Warn("submission: record attempt failed")
	}
}
