package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/router-for-me/CTFPlatform/internal/config"
)

func configWithRedis(addr string) config.RateLimitConfig {
	return config.RateLimitConfig{
		Submissions: 10,
		Redis:       config.RedisConfig{Enabled: true, Addr: addr},
	}
}

func TestMemoryLimiterFixedWindow(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 5, 0, time.UTC)

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "k", 3, time.Minute, base.Add(time.Duration(i)*time.Second))
		if err != nil || !res.Allowed {
			t.Fatalf("attempt %d: expected allowed, got %+v %v", i, res, err)
		}
	}
	res, _ := l.Allow(ctx, "k", 3, time.Minute, base.Add(10*time.Second))
	if res.Allowed {
		t.Fatalf("expected 4th attempt in window to be denied")
	}
	if !res.Reset.Equal(time.Date(2026, 5, 1, 10, 1, 0, 0, time.UTC)) {
		t.Fatalf("unexpected reset %s", res.Reset)
	}

	res, _ = l.Allow(ctx, "other", 3, time.Minute, base)
	if !res.Allowed {
		t.Fatalf("expected independent key to be allowed")
	}
	res, _ = l.Allow(ctx, "k", 3, time.Minute, base.Add(time.Minute))
	if !res.Allowed || res.Remaining != 2 {
		t.Fatalf("expected next window to reset, got %+v", res)
	}

	l.Sweep(base.Add(3*time.Minute), time.Minute)
	if len(l.counters) != 0 {
		t.Fatalf("expected sweep to drop stale counters, got %d", len(l.counters))
	}
}

func TestManagerFallsBackToMemoryWhenRedisDown(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	settings := SettingsFromConfig(configWithRedis("127.0.0.1:1"))
	settings.SubmissionLimit = 1
	dialed := 0
	m := NewManager(StaticSettings(settings), func() time.Time { return now }, func(options *redis.Options) *redis.Client {
		dialed++
		options.DialTimeout = 50 * time.Millisecond
		options.MaxRetries = -1
		return redis.NewClient(options)
	})

	res, err := m.Allow(context.Background(), SubmissionKey(1), 1)
	if err != nil || !res.Allowed {
		t.Fatalf("expected first attempt allowed via memory, got %+v %v", res, err)
	}
	res, _ = m.Allow(context.Background(), SubmissionKey(1), 1)
	if res.Allowed {
		t.Fatalf("expected second attempt denied via memory")
	}
	if dialed != 1 {
		t.Fatalf("expected breaker to stop redis retries, dialed %d times", dialed)
	}
}

func TestKeys(t *testing.T) {
	if SubmissionKey(0) != "" || LoginKey(" ") != "" {
		t.Fatalf("expected empty keys for missing identity")
	}
	if SubmissionKey(7) != "submit:u:7" || LoginKey("10.0.0.1") != "login:ip:10.0.0.1" {
		t.Fatalf("unexpected key format")
	}
}

func TestBreakerReopensAfterCooldown(t *testing.T) {
	b := breaker{cooldown: time.Minute}
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	if b.open(now) {
		t.Fatalf("expected closed breaker before any failure")
	}
	b.trip(context.DeadlineExceeded, now)
	if !b.open(now.Add(59 * time.Second)) {
		t.Fatalf("expected breaker open during cooldown")
	}
	if b.open(now.Add(time.Minute)) {
		t.Fatalf("expected breaker closed after cooldown")
	}
}

func TestSettingsFromConfigDefaults(t *testing.T) {
	got := SettingsFromConfig(config.RateLimitConfig{Submissions: -3, Redis: config.RedisConfig{Addr: " redis:6379 ", DB: -1}})
	if got.SubmissionLimit != 0 || got.Window != time.Minute {
		t.Fatalf("unexpected normalized limits: %+v", got)
	}
	if got.Redis.Addr != "redis:6379" || got.Redis.DB != 0 || got.Redis.Prefix == "" {
		t.Fatalf("unexpected redis settings: %+v", got.Redis)
	}
}
