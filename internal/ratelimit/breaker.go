package ratelimit

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// breaker suspends the shared backend for a cool-down after a failure.
type breaker struct {
	mu       sync.Mutex
	cooldown time.Duration
	openTill time.Time
}

func (b *breaker) open(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openTill.IsZero() {
		return false
	}
	if now.Before(b.openTill) {
		return true
	}
	b.openTill = time.Time{}
	return false
}

func (b *breaker) trip(err error, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Before(b.openTill) {
		return
	}
	b.openTill = now.Add(b.cooldown)
	log.WithError(err).WithField("cooldown", b.cooldown).Warn("rate limit: redis unavailable, using in-process counters")
}
