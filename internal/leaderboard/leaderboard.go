package leaderboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/router-for-me/CTFPlatform/internal/models"
	"gorm.io/gorm"
)

// Standing is one aggregated leaderboard input row.
type Standing struct {
	UserID           uint64
	Username         string
	ChallengesSolved int64
	// FirstSolveIndex is the smallest submission index the user holds.
	FirstSolveIndex int64
}

// Entry is a ranked leaderboard row.
type Entry struct {
	Username         string `json:"username"`
	ChallengesSolved int64  `json:"challengesSolved"`
	SubmissionIndex  int64  `json:"submissionIndex"`
	Rank             int    `json:"rank"`
}

// Projector derives the leaderboard from solved entries on every call.
type Projector struct {
	db *gorm.DB
}

// NewProjector constructs a Projector.
func NewProjector(db *gorm.DB) *Projector {
	return &Projector{db: db}
}

// Project returns non-banned users with at least one solve, ranked.
func (p *Projector) Project(ctx context.Context) ([]Entry, error) {
	var rows []Standing
	errScan := p.db.WithContext(ctx).
		Model(&models.SolvedChallenge{}).
		Select("users.id AS user_id, users.username AS username, COUNT(solved_challenges.id) AS challenges_solved, MIN(solved_challenges.submission_index) AS first_solve_index").
		Joins("JOIN users ON users.id = solved_challenges.user_id").
		Where("users.is_banned = ?", false).
		Group("users.id, users.username").
		Scan(&rows).Error
	if errScan != nil {
		return nil, fmt.Errorf("leaderboard: aggregate: %w", errScan)
	}
	return Rank(rows), nil
}

// Rank orders standings by solve count descending, then earliest first solve,
// and assigns 1-based positions. Indices are unique, so no two rows tie.
func Rank(rows []Standing) []Entry {
	sorted := make([]Standing, 0, len(rows))
	for _, row := range rows {
		if row.ChallengesSolved > 0 {
			sorted = append(sorted, row)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ChallengesSolved != sorted[j].ChallengesSolved {
			return sorted[i].ChallengesSolved > sorted[j].ChallengesSolved
		}
		return sorted[i].FirstSolveIndex < sorted[j].FirstSolveIndex
	})
	out := make([]Entry, 0, len(sorted))
	for i, row := range sorted {
		out = append(out, Entry{
			Username:         row.Username,
			ChallengesSolved: row.ChallengesSolved,
			SubmissionIndex:  row.FirstSolveIndex,
			Rank:             i + 1,
		})
	}
	return out
}
