package access

import (
	"context"
	"errors"
	"strings"

	"github.com/router-for-me/CTFPlatform/internal/models"
	internalsettings "github.com/router-for-me/CTFPlatform/internal/settings"
	"github.com/router-for-me/CTFPlatform/internal/store"
)

// Level is the minimum principal a route requires.
type Level int

const (
	// LevelPublic routes are reachable anonymously but still site-gated.
	LevelPublic Level = iota
	// LevelUser routes require an authenticated, non-banned user.
	LevelUser
	// LevelAdmin routes require an authenticated, non-banned admin.
	LevelAdmin
)

// Outcome is the gate's verdict.
type Outcome int

const (
	OutcomeAllow Outcome = iota
	OutcomeRedirectToLogin
	OutcomeForbidden
	OutcomeSiteGated
	OutcomeServiceUnavailable
)

// Stable denial reasons exposed to clients.
const (
	ReasonAuthRequired = "auth_required"
	ReasonBanned       = "banned"
	ReasonAccessDenied = "access_denied"
	ReasonSiteGated    = "site_gated"
)

// Request is the input of a gate evaluation.
type Request struct {
	Path   string
	Level  Level
	UserID uint64 // zero when the request carries no session
}

// Decision is the result of a gate evaluation.
type Decision struct {
	Outcome Outcome
	Reason  string
	// User is the resolved principal; nil for anonymous requests.
	User *models.User
	// DestroySession is set when the session must be invalidated before responding.
	DestroySession bool
	Err            error
}

// UserSource loads users by id.
type UserSource interface {
	Get(ctx context.Context, id uint64) (*models.User, error)
}

// SiteConfigSource loads the site configuration singleton.
type SiteConfigSource interface {
	Get(ctx context.Context) (*models.SiteConfig, error)
}

// Gate evaluates access rules against fresh user and site state.
type Gate struct {
	users UserSource
	site  SiteConfigSource
}

// NewGate constructs a Gate.
func NewGate(users UserSource, site SiteConfigSource) *Gate {
	return &Gate{users: users, site: site}
}

// Evaluate applies, in order: authentication, ban, admin role, then site mode.
// Storage failures never allow.
func (g *Gate) Evaluate(ctx context.Context, req Request) Decision {
	var (
		user    *models.User
		destroy bool
	)
	if req.UserID > 0 {
		loaded, errGet := g.users.Get(ctx, req.UserID)
		switch {
		case errGet == nil:
			user = loaded
		case errors.Is(errGet, store.ErrNotFound):
			destroy = true
		default:
			return Decision{Outcome: OutcomeServiceUnavailable, Err: errGet}
		}
	}

	if user != nil && user.IsBanned {
		if req.Level >= LevelUser {
			return Decision{Outcome: OutcomeRedirectToLogin, Reason: ReasonBanned, DestroySession: true}
		}
		user = nil
		destroy = true
	}

	if req.Level >= LevelUser && user == nil {
		return Decision{Outcome: OutcomeRedirectToLogin, Reason: ReasonAuthRequired, DestroySession: destroy}
	}
	if req.Level == LevelAdmin && !user.IsAdmin {
		return Decision{Outcome: OutcomeForbidden, Reason: ReasonAccessDenied, User: user}
	}

	if (user == nil || !user.IsAdmin) && !AllowedInLeaderboardOnly(req.Path) {
		cfg, errSite := g.site.Get(ctx)
		if errSite != nil {
			return Decision{Outcome: OutcomeServiceUnavailable, Err: errSite}
		}
		if cfg.SiteMode == internalsettings.SiteModeLeaderboardOnly {
			return Decision{Outcome: OutcomeSiteGated, Reason: ReasonSiteGated, User: user, DestroySession: destroy}
		}
	}

	return Decision{Outcome: OutcomeAllow, User: user, DestroySession: destroy}
}

// AllowedInLeaderboardOnly reports whether path stays reachable for non-admins
// while the site is in leaderboard_only mode.
func AllowedInLeaderboardOnly(path string) bool {
	normalized := normalizePath(path)
	for _, allowed := range internalsettings.LeaderboardOnlyAllowedPaths {
		if normalized == allowed {
			return true
		}
	}
	for _, prefix := range internalsettings.PublicPathPrefixes {
		if strings.HasPrefix(normalized+"/", prefix) {
			return true
		}
	}
	return false
}

// IsAPIPath reports whether path is a JSON API route.
func IsAPIPath(path string) bool {
	return strings.HasPrefix(normalizePath(path)+"/", internalsettings.APIPrefix)
}

func normalizePath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "/"
	}
	if len(trimmed) > 1 {
		trimmed = strings.TrimRight(trimmed, "/")
		if trimmed == "" {
			return "/"
		}
	}
	return trimmed
}
