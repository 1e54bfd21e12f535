package access

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/router-for-me/CTFPlatform/internal/models"
	internalsettings "github.com/router-for-me/CTFPlatform/internal/settings"
	"github.com/router-for-me/CTFPlatform/internal/store"
)

type fakeUsers map[uint64]*models.User

func (f fakeUsers) Get(_ context.Context, id uint64) (*models.User, error) {
	if user, ok := f[id]; ok {
		return user, nil
	}
	return nil, fmt.Errorf("fake: %w", store.ErrNotFound)
}

type fakeSite struct {
	mode string
	err  error
}

func (f fakeSite) Get(context.Context) (*models.SiteConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.SiteConfig{ID: 1, SiteMode: f.mode}, nil
}

type failingUsers struct{}

func (failingUsers) Get(context.Context, uint64) (*models.User, error) {
	return nil, errors.New("connection refused")
}

func TestGateEvaluate(t *testing.T) {
	users := fakeUsers{
		1: {ID: 1, Username: "player"},
		2: {ID: 2, Username: "root", IsAdmin: true},
		3: {ID: 3, Username: "cheater", IsBanned: true},
	}
	live := fakeSite{mode: internalsettings.SiteModeLive}
	closed := fakeSite{mode: internalsettings.SiteModeLeaderboardOnly}

	cases := []struct {
		name        string
		site        fakeSite
		req         Request
		wantOutcome Outcome
		wantReason  string
		wantDestroy bool
	}{
		{"anonymous on user route", live, Request{Path: "/api/challenges", Level: LevelUser}, OutcomeRedirectToLogin, ReasonAuthRequired, false},
		{"stale session on user route", live, Request{Path: "/api/challenges", Level: LevelUser, UserID: 99}, OutcomeRedirectToLogin, ReasonAuthRequired, true},
		{"banned on user route", live, Request{Path: "/api/challenges", Level: LevelUser, UserID: 3}, OutcomeRedirectToLogin, ReasonBanned, true},
		{"banned on public route", live, Request{Path: "/api/leaderboard", Level: LevelPublic, UserID: 3}, OutcomeAllow, "", true},
		{"player on admin route", live, Request{Path: "/api/admin/users", Level: LevelAdmin, UserID: 1}, OutcomeForbidden, ReasonAccessDenied, false},
		{"admin on admin route", live, Request{Path: "/api/admin/users", Level: LevelAdmin, UserID: 2}, OutcomeAllow, "", false},
		{"player in live mode", live, Request{Path: "/api/challenges", Level: LevelUser, UserID: 1}, OutcomeAllow, "", false},
		{"player in leaderboard mode", closed, Request{Path: "/api/challenges", Level: LevelUser, UserID: 1}, OutcomeSiteGated, ReasonSiteGated, false},
		{"player submit in leaderboard mode", closed, Request{Path: "/api/challenges/submit/4", Level: LevelUser, UserID: 1}, OutcomeSiteGated, ReasonSiteGated, false},
		{"leaderboard in leaderboard mode", closed, Request{Path: "/api/leaderboard", Level: LevelPublic}, OutcomeAllow, "", false},
		{"login page in leaderboard mode", closed, Request{Path: "/login", Level: LevelPublic}, OutcomeAllow, "", false},
		{"asset in leaderboard mode", closed, Request{Path: "/public/uploads/a.zip", Level: LevelPublic}, OutcomeAllow, "", false},
		{"browser page in leaderboard mode", closed, Request{Path: "/challenges", Level: LevelPublic}, OutcomeSiteGated, ReasonSiteGated, false},
		{"admin in leaderboard mode", closed, Request{Path: "/api/challenges", Level: LevelUser, UserID: 2}, OutcomeAllow, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate := NewGate(users, tc.site)
			got := gate.Evaluate(context.Background(), tc.req)
			if got.Outcome != tc.wantOutcome {
				t.Fatalf("expected outcome %d, got %d", tc.wantOutcome, got.Outcome)
			}
			if got.Reason != tc.wantReason {
				t.Fatalf("expected reason %q, got %q", tc.wantReason, got.Reason)
			}
			if got.DestroySession != tc.wantDestroy {
				t.Fatalf("expected destroy=%v, got %v", tc.wantDestroy, got.DestroySession)
			}
		})
	}
}

func TestGateStorageFailureNeverAllows(t *testing.T) {
	gate := NewGate(failingUsers{}, fakeSite{mode: internalsettings.SiteModeLive})
	got := gate.Evaluate(context.Background(), Request{Path: "/api/challenges", Level: LevelUser, UserID: 1})
	if got.Outcome != OutcomeServiceUnavailable {
		t.Fatalf("expected service unavailable, got %d", got.Outcome)
	}

	gate = NewGate(fakeUsers{1: {ID: 1}}, fakeSite{err: errors.New("timeout")})
	got = gate.Evaluate(context.Background(), Request{Path: "/api/challenges", Level: LevelUser, UserID: 1})
	if got.Outcome != OutcomeServiceUnavailable {
		t.Fatalf("expected service unavailable on site config failure, got %d", got.Outcome)
	}
}

func TestPathClassification(t *testing.T) {
	if !IsAPIPath("/api/leaderboard") || !IsAPIPath("/api") || IsAPIPath("/apiary") || IsAPIPath("/leaderboard") {
		t.Fatalf("unexpected api path classification")
	}
	allowed := []string{"/", "/leaderboard", "/leaderboard/", "/login", "/register", "/public/x.png", "/api/auth/login"}
	for _, p := range allowed {
		if !AllowedInLeaderboardOnly(p) {
			t.Fatalf("expected %q to be allowed", p)
		}
	}
	denied := []string{"/challenges", "/api/challenges", "/publicity", "/api/admin/users"}
	for _, p := range denied {
		if AllowedInLeaderboardOnly(p) {
			t.Fatalf("expected %q to be gated", p)
		}
	}
}
