// Package ratelimit throttles credential-guessing endpoints (login,
// registration, password reset) per (client address, submitted identifier)
// pair. It is a denial-of-service guard, independent of the per-principal
// lockout policy in the identity domain.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether another attempt is allowed for a key.
type Limiter interface {
	// Allow reports whether the attempt identified by key may proceed.
	Allow(ctx context.Context, key string) (bool, error)
}

// Key builds the canonical attempt key from client address and the
// identifier submitted in the request body.
func Key(clientAddr, identifier string) string {
	return clientAddr + "|" + strings.ToLower(strings.TrimSpace(identifier))
}

// Config holds limiter parameters.
type Config struct {
	// Attempts allowed per Window for one key.
	Attempts int
	// Window is the rolling time window.
	Window time.Duration
}

// DefaultConfig allows 10 attempts per 15 minutes per key.
func DefaultConfig() Config {
	return Config{
		Attempts: 10,
		Window:   15 * time.Minute,
	}
}

// MemoryLimiter is an in-process limiter holding one token bucket per key.
// Entries idle longer than the window are swept on access. Suitable only
// for single-process deployments; multi-instance deployments use
// RedisLimiter so the attempt table lives in shared storage.
type MemoryLimiter struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*memoryEntry

	// sweepEvery bounds how often the full table is scanned.
	sweepEvery time.Duration
	lastSweep  time.Time

	now func() time.Time
}

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter creates an in-memory limiter.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	if cfg.Attempts <= 0 {
		cfg = DefaultConfig()
	}
	return &MemoryLimiter{
		cfg:        cfg,
		entries:    make(map[string]*memoryEntry),
		sweepEvery: cfg.Window,
		now:        time.Now,
	}
}

// Allow consumes one attempt for key, refilling at Attempts per Window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	e, ok := l.entries[key]
	if !ok {
		e = &memoryEntry{
			limiter: rate.NewLimiter(
				rate.Every(l.cfg.Window/time.Duration(l.cfg.Attempts)),
				l.cfg.Attempts,
			),
		}
		l.entries[key] = e
	}
	e.lastSeen = now

	return e.limiter.AllowN(now, 1), nil
}

// sweepLocked evicts entries idle past the window. Called with mu held.
func (l *MemoryLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.sweepEvery {
		return
	}
	for key, e := range l.entries {
		if now.Sub(e.lastSeen) > l.cfg.Window {
			delete(l.entries, key)
		}
	}
	l.lastSweep = now
}

// Len returns the current attempt-table size. Exposed for tests and
// health reporting.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
