package ratelimit

import (
	"strings"
	"time"

	"github.com/router-for-me/CTFPlatform/internal/config"
	internalsettings "github.com/router-for-me/CTFPlatform/internal/settings"
)

// SettingsConfig captures rate limit settings.
type SettingsConfig struct {
	SubmissionLimit int           // Flag submissions per user per window; 0 disables.
	LoginLimit      int           // Sign-in attempts per client IP per window; 0 disables.
	Window          time.Duration // Fixed window length.
	Redis           RedisSettings
}

// RedisSettings selects the shared Redis backend. It is comparable so the
// manager can tell when it must redial.
type RedisSettings struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// SettingsFromConfig normalizes the rate limit section of the app config.
func SettingsFromConfig(cfg config.RateLimitConfig) SettingsConfig {
	out := SettingsConfig{
		SubmissionLimit: max(cfg.Submissions, 0),
		LoginLimit:      max(cfg.Login, 0),
		Window:          cfg.Window,
		Redis: RedisSettings{
			Enabled:  cfg.Redis.Enabled,
			Addr:     strings.TrimSpace(cfg.Redis.Addr),
			Password: strings.TrimSpace(cfg.Redis.Password),
			DB:       max(cfg.Redis.DB, 0),
			Prefix:   strings.TrimSpace(cfg.Redis.Prefix),
		},
	}
	if out.Window <= 0 {
		out.Window = internalsettings.DefaultRateLimitWindow
	}
	if out.Redis.Prefix == "" {
		out.Redis.Prefix = internalsettings.DefaultRateLimitRedisPrefix
	}
	return out
}

// StaticSettings returns a provider that always yields cfg.
func StaticSettings(cfg SettingsConfig) SettingsProvider {
	return func() SettingsConfig { return cfg }
}
