package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestMemory() (*Memory, *time.Time) {
	m := NewMemory(time.Minute)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMemoryAllowsUnderLimit(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	for i := 0; i < DefaultAnonymousLimit; i++ {
		d, err := m.Check(ctx, "1.2.3.4", DefaultAnonymousLimit)
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("request %d denied under limit", i+1)
		}
	}

	d, err := m.Check(ctx, "1.2.3.4", DefaultAnonymousLimit)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected denial over limit")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("RetryAfter = %v", d.RetryAfter)
	}
}

func TestMemoryWindowResets(t *testing.T) {
	m, now := newTestMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		m.Check(ctx, "ip", 2)
	}
	if d, _ := m.Check(ctx, "ip", 2); d.Allowed {
		t.Fatal("expected denial")
	}

	*now = now.Add(61 * time.Second)
	d, _ := m.Check(ctx, "ip", 2)
	if !d.Allowed || d.Remaining != 1 {
		t.Fatalf("Decision = %+v, want fresh window", d)
	}
}

func TestMemoryIsolatesKeys(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	m.Check(ctx, "a", 1)
	if d, _ := m.Check(ctx, "a", 1); d.Allowed {
		t.Fatal("expected a exhausted")
	}
	if d, _ := m.Check(ctx, "b", 1); !d.Allowed {
		t.Fatal("expected b unaffected")
	}
}

type stubLimiter struct {
	d   Decision
	err error
}

func (s *stubLimiter) Check(context.Context, string, int) (Decision, error) {
	return s.d, s.err
}

func TestFallbackUsesSecondaryOnError(t *testing.T) {
	primaryErr := errors.New("connection refused")
	var observed error

	f := &Fallback{
		Primary:   &stubLimiter{err: primaryErr},
		Secondary: &stubLimiter{d: Decision{Allowed: true, Remaining: 5}},
		OnError:   func(err error) { observed = err },
	}

	d, err := f.Check(context.Background(), "ip", 60)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed || d.Remaining != 5 {
		t.Fatalf("Decision = %+v, want secondary's", d)
	}
	if !errors.Is(observed, primaryErr) {
		t.Fatalf("observed = %v, want primary error", observed)
	}
}

func TestFallbackPrefersPrimary(t *testing.T) {
	f := &Fallback{
		Primary:   &stubLimiter{d: Decision{Allowed: false, RetryAfter: 7 * time.Second}},
		Secondary: &stubLimiter{d: Decision{Allowed: true}},
	}

	d, err := f.Check(context.Background(), "ip", 60)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected primary decision honored")
	}
}
