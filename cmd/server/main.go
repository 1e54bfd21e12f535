package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/router-for-me/CTFPlatform/internal/app"
	"github.com/router-for-me/CTFPlatform/internal/config"
	"github.com/router-for-me/CTFPlatform/internal/db"
	"github.com/router-for-me/CTFPlatform/internal/logging"

	log "github.com/sirupsen/logrus"
)

// defaultSQLitePath is used when no database DSN is configured.
const defaultSQLitePath = "ctf.db"

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if errRun := run(ctx, os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run parses flags, loads config, and starts the server or runs migrations.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ctf", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	port := fs.Int("port", 0, "server port (overrides config and PORT)")
	migrateOnly := fs.Bool("migrate", false, "run database migrations and exit")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	if errEnv := godotenv.Load(); errEnv != nil && !errors.Is(errEnv, os.ErrNotExist) {
		log.WithError(errEnv).Warn("load .env failed")
	}

	appCfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(*cfgPath)
	}
	configPath := config.ResolveConfigPath(appCfg.ConfigPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		if errValidate := validatePort(*port); errValidate != nil {
			return errValidate
		}
		cfg.Port = *port
	}

	closer := logging.Setup(logging.Options{Debug: cfg.Debug, ToFile: cfg.LoggingToFile, Dir: cfg.LogDir})
	defer func() { _ = closer.Close() }()
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	dsn, errDSN := config.LoadDatabaseDSN(configPath)
	if errDSN != nil {
		if !errors.Is(errDSN, config.ErrMissingDatabaseDSN) && !errors.Is(errDSN, os.ErrNotExist) {
			return errDSN
		}
		dsn = db.BuildSQLiteDSN(defaultSQLitePath)
		log.Infof("no database configured, using %s", defaultSQLitePath)
	}

	if *migrateOnly {
		return app.Migrate(ctx, dsn)
	}
	return app.RunServer(ctx, cfg, dsn)
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
