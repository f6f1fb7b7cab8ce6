package breaker

import (
	"testing"
	"time"
)

func newTestBreaker(cfg Config) (*Breaker, *time.Time) {
	b := New(cfg)
	now := time.Unix(1000, 0)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestStaysClosedBelowThreshold(t *testing.T) {
	b, _ := newTestBreaker(DefaultSearch())

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("state = %q, want closed", got)
	}
	if !b.Allow() {
		t.Fatal("expected calls allowed while closed")
	}
}

func TestOpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(DefaultSearch())

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %q, want open", got)
	}
	if b.Allow() {
		t.Fatal("expected calls blocked while open")
	}
}

func TestRollingWindowForgetsOldFailures(t *testing.T) {
	b, now := newTestBreaker(DefaultSearch())

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	*now = now.Add(61 * time.Second)
	b.RecordFailure()

	if got := b.State(); got != StateClosed {
		t.Fatalf("state = %q, want closed after window rolled", got)
	}
}

func TestHalfOpenAfterCooldown(t *testing.T) {
	b, now := newTestBreaker(DefaultSearch())

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	*now = now.Add(29 * time.Second)
	if b.Allow() {
		t.Fatal("expected still open before cooldown")
	}

	*now = now.Add(2 * time.Second)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state = %q, want half-open", got)
	}
	if !b.Allow() {
		t.Fatal("expected probe allowed while half-open")
	}
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	b, now := newTestBreaker(DefaultSearch())

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	*now = now.Add(31 * time.Second)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state = %q, want half-open", got)
	}

	b.RecordSuccess()
	if got := b.State(); got != StateClosed {
		t.Fatalf("state = %q, want closed after probe success", got)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(DefaultSearch())

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	*now = now.Add(31 * time.Second)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("state = %q, want half-open", got)
	}

	b.RecordFailure()
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %q, want reopened after probe failure", got)
	}
	if b.Allow() {
		t.Fatal("expected calls blocked after reopen")
	}
}

func TestTransitionCallback(t *testing.T) {
	b, now := newTestBreaker(DefaultSearch())

	var seen []State
	b.OnTransition(func(s State) { seen = append(seen, s) })

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	*now = now.Add(31 * time.Second)
	b.State()
	b.RecordSuccess()

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", seen, want)
		}
	}
}
