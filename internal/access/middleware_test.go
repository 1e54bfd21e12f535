package access

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CTFPlatform/internal/db"
	"github.com/router-for-me/CTFPlatform/internal/models"
	"github.com/router-for-me/CTFPlatform/internal/session"
	"github.com/router-for-me/CTFPlatform/internal/store"
)

func TestRequireMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "ctf-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	sessionStore, err := session.NewStore(conn, session.Options{Secret: "0123456789abcdef0123456789abcdef", TTL: time.Hour})
	if err != nil {
		t.Fatalf("session store: %v", err)
	}

	player := models.User{Username: "player", Email: "p@example.com", Password: "x"}
	if errCreate := conn.Create(&player).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}

	gate := NewGate(store.NewUserStore(conn), store.NewSiteConfigStore(conn))
	r := gin.New()
	r.Use(session.Middleware("ctf_session", sessionStore))
	r.POST("/test-login/:id", func(c *gin.Context) {
		id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
		_ = session.Login(c, id)
		c.Status(http.StatusOK)
	})
	r.GET("/api/me", gate.Require(LevelUser), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).Username)
	})
	r.GET("/dashboard", gate.Require(LevelUser), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous api call, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", w.Code, w.Header().Get("Location"))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test-login/"+strconv.FormatUint(player.ID, 10), nil))
	cookie := w.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "player" {
		t.Fatalf("expected player, got %d %q", w.Code, w.Body.String())
	}

	if errBan := conn.Model(&models.User{}).Where("id = ?", player.ID).Update("is_banned", true).Error; errBan != nil {
		t.Fatalf("ban: %v", errBan)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for banned user, got %d", w.Code)
	}

	// Unbanning does not revive the destroyed session.
	if errUnban := conn.Model(&models.User{}).Where("id = ?", player.ID).Update("is_banned", false).Error; errUnban != nil {
		t.Fatalf("unban: %v", errUnban)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected destroyed session to require login, got %d", w.Code)
	}
}
