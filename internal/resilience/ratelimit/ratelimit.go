// Package ratelimit enforces fixed-window request quotas per caller.
// A Redis-backed limiter coordinates across replicas; the in-memory limiter
// serves single-node deployments and doubles as the fallback when Redis is
// unreachable.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Default quotas per window.
const (
	DefaultAnonymousLimit     = 60
	DefaultAuthenticatedLimit = 120
	DefaultWindow             = time.Minute
)

// Decision is the outcome of one quota check.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long the caller should wait when denied.
	RetryAfter time.Duration
}

// Limiter checks whether a caller identified by key may proceed under the
// given per-window limit.
type Limiter interface {
	Check(ctx context.Context, key string, limit int) (Decision, error)
}

type window struct {
	count   int
	resetAt time.Time
}

// Memory is a thread-safe in-process fixed-window limiter.
type Memory struct {
	mu          sync.Mutex
	windowLen   time.Duration
	entries     map[string]*window
	lastCleanup time.Time
	now         func() time.Time
}

// cleanupInterval bounds how often expired windows are swept.
const cleanupInterval = 2 * time.Minute

// NewMemory creates an in-memory limiter with the given window length.
func NewMemory(windowLen time.Duration) *Memory {
	if windowLen <= 0 {
		windowLen = DefaultWindow
	}
	return &Memory{
		windowLen: windowLen,
		entries:   make(map[string]*window),
		now:       time.Now,
	}
}

// Check counts the request against the caller's current window.
func (m *Memory) Check(_ context.Context, key string, limit int) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.cleanup(now)

	w, ok := m.entries[key]
	if !ok || w.resetAt.Before(now) {
		m.entries[key] = &window{count: 1, resetAt: now.Add(m.windowLen)}
		return Decision{Allowed: true, Remaining: limit - 1}, nil
	}

	w.count++
	if w.count <= limit {
		return Decision{Allowed: true, Remaining: limit - w.count}, nil
	}
	return Decision{Allowed: false, RetryAfter: w.resetAt.Sub(now).Round(time.Second)}, nil
}

func (m *Memory) cleanup(now time.Time) {
	if now.Sub(m.lastCleanup) < cleanupInterval {
		return
	}
	m.lastCleanup = now
	for key, w := range m.entries {
		if w.resetAt.Before(now) {
			delete(m.entries, key)
		}
	}
}
