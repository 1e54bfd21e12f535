package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisCooldown    = 30 * time.Second
	redisPingTimeout = 2 * time.Second
)

// SettingsProvider supplies the latest settings snapshot.
type SettingsProvider func() SettingsConfig

// RedisClientFactory constructs a Redis client for the given options.
type RedisClientFactory func(options *redis.Options) *redis.Client

// Manager counts attempts in Redis when configured and reachable, and in
// process memory otherwise.
type Manager struct {
	settings  SettingsProvider
	nowFn     func() time.Time
	dial      RedisClientFactory
	local     *MemoryLimiter
	redisDown breaker

	mu     sync.Mutex
	shared *RedisLimiter
	dialed RedisSettings
}

// NewManager constructs a Manager; nil arguments select the defaults.
func NewManager(settings SettingsProvider, nowFn func() time.Time, dial RedisClientFactory) *Manager {
	if settings == nil {
		settings = StaticSettings(SettingsConfig{Window: time.Minute})
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if dial == nil {
		dial = redis.NewClient
	}
	return &Manager{
		settings:  settings,
		nowFn:     nowFn,
		dial:      dial,
		local:     NewMemoryLimiter(),
		redisDown: breaker{cooldown: redisCooldown},
	}
}

// Settings returns the current settings snapshot.
func (m *Manager) Settings() SettingsConfig {
	if m == nil {
		return SettingsConfig{}
	}
	return m.settings()
}

// Allow records one attempt for key and reports whether it fits in limit.
func (m *Manager) Allow(ctx context.Context, key string, limit int) (Result, error) {
	if m == nil || limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	now := m.nowFn()
	cfg := m.settings()

	if cfg.Redis.Enabled && !m.redisDown.open(now) {
		result, errShared := m.allowShared(ctx, cfg, key, limit, now)
		if errShared == nil {
			return result, nil
		}
		m.redisDown.trip(errShared, now)
	}
	return m.local.Allow(ctx, key, limit, cfg.Window, now)
}

func (m *Manager) allowShared(ctx context.Context, cfg SettingsConfig, key string, limit int, now time.Time) (Result, error) {
	limiter, errConnect := m.connect(ctx, cfg.Redis)
	if errConnect != nil {
		return Result{}, errConnect
	}
	return limiter.Allow(ctx, key, limit, cfg.Window, now)
}

// connect returns the Redis limiter for target, redialing when the settings changed.
func (m *Manager) connect(ctx context.Context, target RedisSettings) (*RedisLimiter, error) {
	if target.Addr == "" {
		return nil, errors.New("rate limit redis: missing address")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shared != nil && m.dialed == target {
		return m.shared, nil
	}
	m.closeSharedLocked()

	client := m.dial(&redis.Options{
		Addr:     target.Addr,
		Password: target.Password,
		DB:       target.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, errPing
	}
	m.shared = NewRedisLimiter(client, target.Prefix)
	m.dialed = target
	return m.shared, nil
}

func (m *Manager) closeSharedLocked() error {
	if m.shared == nil {
		return nil
	}
	errClose := m.shared.client.Close()
	m.shared = nil
	m.dialed = RedisSettings{}
	return errClose
}

// StartSweeper drops expired in-memory counters once per window until ctx ends.
func (m *Manager) StartSweeper(ctx context.Context) {
	if m == nil {
		return
	}
	window := m.settings().Window
	if window <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.local.Sweep(m.nowFn(), window)
			}
		}
	}()
}

// Close releases the Redis client, if any.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeSharedLocked()
}
