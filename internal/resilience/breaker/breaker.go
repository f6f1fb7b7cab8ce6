// Package breaker implements a circuit breaker around the index backend.
// Each query-serving endpoint owns an independent instance so a failure storm
// on one path never starves the other.
package breaker

import (
	"sync"
	"time"
)

// State of the circuit.
type State string

// Circuit states.
const (
	// StateClosed passes every call through.
	StateClosed State = "closed"
	// StateOpen short-circuits every call until the cooldown elapses.
	StateOpen State = "open"
	// StateHalfOpen admits probe calls; the next recorded outcome decides
	// the transition.
	StateHalfOpen State = "half-open"
)

// Config tunes one breaker instance.
type Config struct {
	// FailureThreshold is how many failures within Window trip the circuit.
	FailureThreshold int
	// Window is the rolling interval failures are counted over.
	Window time.Duration
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration
}

// DefaultSearch matches the search endpoint tuning.
func DefaultSearch() Config {
	return Config{FailureThreshold: 5, Window: time.Minute, Cooldown: 30 * time.Second}
}

// DefaultSuggest tolerates more failures and recovers faster: suggestions are
// advisory and cheap to retry.
func DefaultSuggest() Config {
	return Config{FailureThreshold: 8, Window: time.Minute, Cooldown: 15 * time.Second}
}

// Breaker is a thread-safe circuit breaker. Construct with New.
type Breaker struct {
	mu       sync.Mutex
	cfg      Config
	state    State
	failures []time.Time
	openedAt time.Time
	now      func() time.Time

	// onTransition, when set, observes every state change.
	onTransition func(State)
}

// New creates a closed breaker with the given config.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg, state: StateClosed, now: time.Now}
}

// OnTransition registers a callback invoked (under the breaker's lock) on
// every state change. Used to export the state as a metric.
func (b *Breaker) OnTransition(fn func(State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTransition = fn
}

// Allow reports whether a call may proceed. While open, callers must not
// attempt the backend at all.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evaluate()
	return b.state != StateOpen
}

// State returns the current state, applying the open-to-half-open timeout.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evaluate()
	return b.state
}

// RecordSuccess notes a successful backend call. Closes the circuit and
// clears the failure window.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = b.failures[:0]
	b.transition(StateClosed)
}

// RecordFailure notes a failed backend call. Trips the circuit when the
// windowed failure count crosses the threshold; from half-open a single
// failure reopens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.state == StateHalfOpen {
		b.open(now)
		return
	}

	b.failures = append(b.failures, now)
	b.pruneWindow(now)
	if len(b.failures) >= b.cfg.FailureThreshold {
		b.open(now)
	}
}

// Reset restores the initial closed state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = b.failures[:0]
	b.openedAt = time.Time{}
	b.transition(StateClosed)
}

func (b *Breaker) evaluate() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.transition(StateHalfOpen)
	}
}

func (b *Breaker) open(now time.Time) {
	b.openedAt = now
	b.failures = b.failures[:0]
	b.transition(StateOpen)
}

func (b *Breaker) pruneWindow(now time.Time) {
	cutoff := now.Add(-b.cfg.Window)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = kept
}

func (b *Breaker) transition(next State) {
	if b.state == next {
		return
	}
	b.state = next
	if b.onTransition != nil {
		b.onTransition(next)
	}
}
