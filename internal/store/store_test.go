package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/router-for-me/CTFPlatform/internal/db"
	"github.com/router-for-me/CTFPlatform/internal/models"
	internalsettings "github.com/router-for-me/CTFPlatform/internal/settings"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "ctf-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestSiteConfigGetCreatesWhenMissing(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	if errDelete := conn.Where("1 = 1").Delete(&models.SiteConfig{}).Error; errDelete != nil {
		t.Fatalf("delete seed: %v", errDelete)
	}

	s := NewSiteConfigStore(conn)
	cfg, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.SiteMode != internalsettings.SiteModeLive || cfg.SubmissionCount != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, errAgain := s.Get(ctx); errAgain != nil {
		t.Fatalf("second Get: %v", errAgain)
	}
	var count int64
	conn.Model(&models.SiteConfig{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one row, got %d", count)
	}
}

func TestSiteConfigSetMode(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	s := NewSiteConfigStore(conn)

	cfg, err := s.SetMode(ctx, internalsettings.SiteModeLeaderboardOnly)
	if err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if cfg.SiteMode != internalsettings.SiteModeLeaderboardOnly {
		t.Fatalf("expected leaderboard_only, got %s", cfg.SiteMode)
	}
	if _, errInvalid := s.SetMode(ctx, "paused"); !errors.Is(errInvalid, ErrInvalidSiteMode) {
		t.Fatalf("expected ErrInvalidSiteMode, got %v", errInvalid)
	}
	again, _ := s.Get(ctx)
	if again.SiteMode != internalsettings.SiteModeLeaderboardOnly {
		t.Fatalf("invalid write must not change mode, got %s", again.SiteMode)
	}
}

func TestNextSubmissionIndexRollsBackWithTransaction(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	for want := int64(0); want < 3; want++ {
		var got int64
		errTx := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			idx, errNext := NextSubmissionIndex(tx)
			got = idx
			return errNext
		})
		if errTx != nil {
			t.Fatalf("transaction: %v", errTx)
		}
		if got != want {
			t.Fatalf("expected index %d, got %d", want, got)
		}
	}

	errAbort := errors.New("abort")
	errTx := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, errNext := NextSubmissionIndex(tx); errNext != nil {
			return errNext
		}
		return errAbort
	})
	if !errors.Is(errTx, errAbort) {
		t.Fatalf("expected abort, got %v", errTx)
	}

	cfg, err := NewSiteConfigStore(conn).Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.SubmissionCount != 3 {
		t.Fatalf("expected rolled back counter 3, got %d", cfg.SubmissionCount)
	}
}

func TestUserStoreDuplicateAndBan(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	users := NewUserStore(conn)

	alice := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	if err := users.Create(ctx, alice); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &models.User{Username: "bob", Email: "alice@example.com", Password: "hash"}
	if err := users.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	exists, err := users.ExistsByUsernameOrEmail(ctx, "alice", "nobody@example.com")
	if err != nil || !exists {
		t.Fatalf("expected alice to exist, got %v %v", exists, err)
	}

	banned, err := users.SetBanned(ctx, alice.ID, true)
	if err != nil {
		t.Fatalf("SetBanned: %v", err)
	}
	if !banned.IsBanned {
		t.Fatalf("expected banned user")
	}
	if _, errMissing := users.SetBanned(ctx, 9999, true); !errors.Is(errMissing, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", errMissing)
	}
	if _, errMissing := users.Get(ctx, 9999); !errors.Is(errMissing, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", errMissing)
	}
}

func TestChallengeStoreCRUD(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	challenges := NewChallengeStore(conn)

	deadline := time.Now().Add(24 * time.Hour).UTC()
	ch := &models.Challenge{
		Title:       "Warmup",
		Description: "find it",
		Category:    "Web",
		Flag:        "FLAG{x}",
		Author:      "ops",
		Deadline:    &deadline,
	}
	ch.SetStoredFile(&models.ChallengeFile{Filename: "1-a.zip", OriginalName: "a.zip", Size: 3})
	if err := challenges.Create(ctx, ch); err != nil {
		t.Fatalf("create: %v", err)
	}

	loaded, err := challenges.Get(ctx, ch.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	file, ok := loaded.StoredFile()
	if !ok || file.OriginalName != "a.zip" {
		t.Fatalf("expected stored file metadata, got %+v %v", file, ok)
	}

	loaded.Hint = ""
	loaded.SetStoredFile(nil)
	if err := challenges.Save(ctx, loaded); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded, _ := challenges.Get(ctx, ch.ID)
	if _, ok := reloaded.StoredFile(); ok {
		t.Fatalf("expected file metadata to be cleared")
	}

	if err := challenges.Delete(ctx, ch.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := challenges.Delete(ctx, ch.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUserStoreListSearch(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	users := NewUserStore(conn)

	for _, name := range []string{"Alice", "bob", "carol"} {
		u := &models.User{Username: name, Email: strings.ToLower(name) + "@example.com", Password: "hash"}
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	all, err := users.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 users, got %d", len(all))
	}

	found, err := users.List(ctx, "ALI")
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if len(found) != 1 || found[0].Username != "Alice" {
		t.Fatalf("expected Alice only, got %+v", found)
	}
}
