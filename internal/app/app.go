package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CTFPlatform/internal/access"
	"github.com/router-for-me/CTFPlatform/internal/config"
	"github.com/router-for-me/CTFPlatform/internal/db"
	"github.com/router-for-me/CTFPlatform/internal/http/api/admin"
	"github.com/router-for-me/CTFPlatform/internal/http/api/front"
	"github.com/router-for-me/CTFPlatform/internal/http/api/front/handlers"
	"github.com/router-for-me/CTFPlatform/internal/logging"
	"github.com/router-for-me/CTFPlatform/internal/ratelimit"
	"github.com/router-for-me/CTFPlatform/internal/security"
	"github.com/router-for-me/CTFPlatform/internal/session"
	"github.com/router-for-me/CTFPlatform/internal/store"
	"github.com/router-for-me/CTFPlatform/internal/submission"
	"github.com/router-for-me/CTFPlatform/internal/uploads"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// Options carries the collaborators wired into the HTTP engine.
type Options struct {
	Config  config.AppConfig
	DB      *gorm.DB
	DSN     string
	Limiter *ratelimit.Manager
	Files   *uploads.Storage

	// CleanupSessions starts the background purge of expired session rows.
	CleanupSessions bool
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, dsn string) error {
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	return db.Migrate(conn.WithContext(ctx))
}

// RunServer opens the database, builds the engine and serves until ctx is done.
func RunServer(ctx context.Context, cfg config.AppConfig, dsn string) error {
	if errSecrets := ensureSecrets(&cfg); errSecrets != nil {
		return errSecrets
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}

	files, errFiles := uploads.NewStorage(cfg.Uploads.Dir, cfg.Uploads.MaxSize)
	if errFiles != nil {
		return errFiles
	}
	limiter := ratelimit.NewManager(ratelimit.StaticSettings(ratelimit.SettingsFromConfig(cfg.RateLimit)), nil, nil)
	defer func() {
		if errClose := limiter.Close(); errClose != nil {
			log.WithError(errClose).Warn("rate limit: close redis client")
		}
	}()
	limiter.StartSweeper(ctx)

	engine, errEngine := NewEngine(Options{
		Config:          cfg,
		DB:              conn,
		DSN:             dsn,
		Limiter:         limiter,
		Files:           files,
		CleanupSessions: true,
	})
	if errEngine != nil {
		return errEngine
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting server on %s (database=%s)", srv.Addr, db.DialectName(conn))
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	return nil
}

// NewEngine builds the gin engine with every route registered.
func NewEngine(opts Options) (*gin.Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("app: nil db")
	}
	if opts.Files == nil {
		return nil, fmt.Errorf("app: nil upload storage")
	}
	cfg := opts.Config
	sessionStore, errStore := session.NewStore(opts.DB, session.Options{
		Name:           cfg.Session.Name,
		Secret:         cfg.Session.Secret,
		TTL:            cfg.Session.TTL,
		Secure:         cfg.Session.Secure,
		CleanupExpired: opts.CleanupSessions,
	})
	if errStore != nil {
		return nil, errStore
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logging.GinLogger())
	engine.Use(session.Middleware(cfg.Session.Name, sessionStore))

	gate := access.NewGate(store.NewUserStore(opts.DB), store.NewSiteConfigStore(opts.DB))

	front.RegisterFrontRoutes(engine, front.Deps{
		DB:      opts.DB,
		Gate:    gate,
		Engine:  submission.NewEngine(opts.DB),
		Limiter: opts.Limiter,
		Files:   opts.Files,
		Downloads: handlers.DownloadLinkOptions{
			Secret: cfg.DownloadLinks.Secret,
			Expiry: cfg.DownloadLinks.Expiry,
		},
	})
	admin.RegisterAdminRoutes(engine, admin.Deps{
		DB:        opts.DB,
		Gate:      gate,
		Files:     opts.Files,
		MFAIssuer: cfg.MFA.Issuer,
	})
	registerInitRoutes(engine, opts.DB, opts.DSN)
	registerWebRoutes(engine, gate, cfg.WebDir)
	return engine, nil
}

// ensureSecrets fills missing signing secrets. Production requires an explicit
// session secret; elsewhere a random one is generated per process.
func ensureSecrets(cfg *config.AppConfig) error {
	if cfg.Session.Secret == "" {
		if cfg.Production {
			return fmt.Errorf("app: %s is required in production", config.EnvSessionSecret)
		}
		secret, errGen := security.GenerateRandomString(32)
		if errGen != nil {
			return fmt.Errorf("app: generate session secret: %w", errGen)
		}
		log.Warn("no session secret configured; sessions will not survive a restart")
		cfg.Session.Secret = secret
	}
	if cfg.DownloadLinks.Secret == "" {
		cfg.DownloadLinks.Secret = cfg.Session.Secret
	}
	return nil
}

// registerWebRoutes serves the browser shell behind the same gate as the API.
func registerWebRoutes(r *gin.Engine, gate *access.Gate, webDir string) {
	page := func(c *gin.Context) { serveIndex(c, webDir) }
	for _, p := range []string{"/", "/login", "/register", "/leaderboard"} {
		r.GET(p, gate.Require(access.LevelPublic), page)
	}
	r.GET("/challenges", gate.Require(access.LevelUser), page)
	r.GET("/admin", gate.Require(access.LevelAdmin), page)
	r.Static("/assets", filepath.Join(webDir, "assets"))

	r.NoRoute(gate.Require(access.LevelPublic), func(c *gin.Context) {
		if access.IsAPIPath(c.Request.URL.Path) || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
			return
		}
		page(c)
	})
}

func serveIndex(c *gin.Context, webDir string) {
	index := filepath.Join(webDir, "index.html")
	if info, errStat := os.Stat(index); errStat != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	c.File(index)
}

func closeDB(conn *gorm.DB) {
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		return
	}
	if errClose := sqlDB.Close(); errClose != nil {
		log.Errorf("sql db close error: %v", errClose)
	}
}
