package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	internalsettings "github.com/router-for-me/CTFPlatform/internal/settings"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath         = "CONFIG_PATH"
	EnvDBConnection       = "DB_CONNECTION"
	EnvPort               = "PORT"
	EnvAppEnv             = "APP_ENV"
	EnvSessionSecret      = "SESSION_SECRET"
	EnvSessionTTL         = "SESSION_TTL"
	EnvDownloadLinkSecret = "DOWNLOAD_LINK_SECRET"
	EnvRedisAddr          = "REDIS_ADDR"
)

// defaultPort is used when neither flags, file, nor env set a port.
const defaultPort = 3000

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string

	Host          string
	Port          int
	DatabaseDSN   string
	Debug         bool
	Production    bool
	LoggingToFile bool
	LogDir        string
	WebDir        string

	Session       SessionConfig
	Uploads       UploadsConfig
	DownloadLinks DownloadLinkConfig
	RateLimit     RateLimitConfig
	MFA           MFAConfig
}

// SessionConfig controls the session cookie and server-side record lifetime.
type SessionConfig struct {
	Name   string        `yaml:"name"`
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
	Secure bool          `yaml:"secure"`
}

// UploadsConfig controls where challenge files are stored.
type UploadsConfig struct {
	Dir     string `yaml:"dir"`
	MaxSize int64  `yaml:"max-size"`
}

// DownloadLinkConfig holds the signing secret and expiry of download links.
type DownloadLinkConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// RateLimitConfig holds throttling limits and the optional Redis backend.
type RateLimitConfig struct {
	Submissions int           `yaml:"submissions"`
	Login       int           `yaml:"login"`
	Window      time.Duration `yaml:"window"`
	Redis       RedisConfig   `yaml:"redis"`
}

// RedisConfig describes the Redis connection used by rate limiting.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// MFAConfig holds TOTP settings.
type MFAConfig struct {
	Issuer string `yaml:"issuer"`
}

// fileConfig maps the YAML config file.
type fileConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	DatabaseDSN   string `yaml:"database-dsn"`
	Database      struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Debug         bool               `yaml:"debug"`
	Production    bool               `yaml:"production"`
	LoggingToFile bool               `yaml:"logging-to-file"`
	LogDir        string             `yaml:"log-dir"`
	WebDir        string             `yaml:"web-dir"`
	Session       SessionConfig      `yaml:"session"`
	Uploads       UploadsConfig      `yaml:"uploads"`
	DownloadLinks DownloadLinkConfig `yaml:"download-links"`
	RateLimit     struct {
		Submissions *int          `yaml:"submissions"`
		Login       *int          `yaml:"login"`
		Window      time.Duration `yaml:"window"`
		Redis       RedisConfig   `yaml:"redis"`
	} `yaml:"rate-limit"`
	MFA MFAConfig `yaml:"mfa"`
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// LoadDatabaseDSN reads the database DSN from the environment or the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// Load reads the YAML config file (optional) and applies env overrides and defaults.
// The DSN is not resolved here; see LoadDatabaseDSN.
func Load(configPath string) (AppConfig, error) {
	var file fileConfig
	data, errRead := os.ReadFile(configPath)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &file); errUnmarshal != nil {
			return AppConfig{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return AppConfig{}, fmt.Errorf("read config file: %w", errRead)
	}

	cfg := AppConfig{
		ConfigPath:    configPath,
		Host:          strings.TrimSpace(file.Host),
		Port:          file.Port,
		Debug:         file.Debug,
		Production:    file.Production,
		LoggingToFile: file.LoggingToFile,
		LogDir:        strings.TrimSpace(file.LogDir),
		WebDir:        strings.TrimSpace(file.WebDir),
		Session:       file.Session,
		Uploads:       file.Uploads,
		DownloadLinks: file.DownloadLinks,
		MFA:           file.MFA,
	}
	cfg.RateLimit = RateLimitConfig{
		Submissions: internalsettings.DefaultSubmissionRateLimit,
		Login:       internalsettings.DefaultLoginRateLimit,
		Window:      file.RateLimit.Window,
		Redis:       file.RateLimit.Redis,
	}
	if file.RateLimit.Submissions != nil {
		cfg.RateLimit.Submissions = *file.RateLimit.Submissions
	}
	if file.RateLimit.Login != nil {
		cfg.RateLimit.Login = *file.RateLimit.Login
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if raw := strings.TrimSpace(os.Getenv(EnvPort)); raw != "" {
		if port, errParse := strconv.Atoi(raw); errParse == nil {
			cfg.Port = port
		}
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(EnvAppEnv)), "production") {
		cfg.Production = true
	}
	if secret := strings.TrimSpace(os.Getenv(EnvSessionSecret)); secret != "" {
		cfg.Session.Secret = secret
	}
	if ttlRaw := strings.TrimSpace(os.Getenv(EnvSessionTTL)); ttlRaw != "" {
		if ttl, errParse := time.ParseDuration(ttlRaw); errParse == nil && ttl > 0 {
			cfg.Session.TTL = ttl
		}
	}
	if secret := strings.TrimSpace(os.Getenv(EnvDownloadLinkSecret)); secret != "" {
		cfg.DownloadLinks.Secret = secret
	}
	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		cfg.RateLimit.Redis.Addr = addr
		cfg.RateLimit.Redis.Enabled = true
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}
	if cfg.WebDir == "" {
		cfg.WebDir = "views"
	}
	if strings.TrimSpace(cfg.Session.Name) == "" {
		cfg.Session.Name = internalsettings.DefaultSessionName
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = internalsettings.DefaultSessionTTL
	}
	if cfg.Production {
		cfg.Session.Secure = true
	}
	if strings.TrimSpace(cfg.Uploads.Dir) == "" {
		cfg.Uploads.Dir = internalsettings.DefaultUploadDir
	}
	if cfg.Uploads.MaxSize <= 0 {
		cfg.Uploads.MaxSize = internalsettings.DefaultUploadMaxSize
	}
	if cfg.DownloadLinks.Expiry <= 0 {
		cfg.DownloadLinks.Expiry = internalsettings.DefaultDownloadLinkExpiry
	}
	if strings.TrimSpace(cfg.DownloadLinks.Secret) == "" {
		cfg.DownloadLinks.Secret = cfg.Session.Secret
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = internalsettings.DefaultRateLimitWindow
	}
	if cfg.RateLimit.Submissions < 0 {
		cfg.RateLimit.Submissions = 0
	}
	if cfg.RateLimit.Login < 0 {
		cfg.RateLimit.Login = 0
	}
	if strings.TrimSpace(cfg.RateLimit.Redis.Prefix) == "" {
		cfg.RateLimit.Redis.Prefix = internalsettings.DefaultRateLimitRedisPrefix
	}
	if cfg.RateLimit.Redis.DB < 0 {
		cfg.RateLimit.Redis.DB = 0
	}
	if strings.TrimSpace(cfg.MFA.Issuer) == "" {
		cfg.MFA.Issuer = internalsettings.DefaultMFAIssuer
	}
}

// Addr returns the listen address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
