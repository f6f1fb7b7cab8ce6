package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// Redis is a fixed-window limiter coordinated through a shared Redis
// instance, so quotas hold across replicas.
type Redis struct {
	client    rueidis.Client
	windowLen time.Duration
	prefix    string
}

// NewRedis creates a Redis-backed limiter. Keys are namespaced under prefix.
func NewRedis(client rueidis.Client, windowLen time.Duration, prefix string) *Redis {
	if windowLen <= 0 {
		windowLen = DefaultWindow
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &Redis{client: client, windowLen: windowLen, prefix: prefix}
}

// Check increments the caller's window counter. The expiry is set with NX so
// the window anchors to the first request in it.
func (r *Redis) Check(ctx context.Context, key string, limit int) (Decision, error) {
	k := r.prefix + ":" + key

	cmd := r.client.B().Incr().Key(k).Build()
	count, err := r.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit incr: %w", err)
	}

	expire := r.client.B().Expire().Key(k).Seconds(int64(r.windowLen.Seconds())).Nx().Build()
	if err := r.client.Do(ctx, expire).Error(); err != nil {
		return Decision{}, fmt.Errorf("ratelimit expire: %w", err)
	}

	if count <= int64(limit) {
		return Decision{Allowed: true, Remaining: limit - int(count)}, nil
	}

	ttlCmd := r.client.B().Ttl().Key(k).Build()
	ttl, err := r.client.Do(ctx, ttlCmd).AsInt64()
	if err != nil || ttl < 1 {
		ttl = int64(r.windowLen.Seconds())
	}
	return Decision{Allowed: false, RetryAfter: time.Duration(ttl) * time.Second}, nil
}

// Fallback tries the primary limiter and degrades to the secondary when the
// primary errors. A broken Redis must never take the search path down.
type Fallback struct {
	Primary   Limiter
	Secondary Limiter
	// OnError observes primary failures, e.g. to log them.
	OnError func(error)
}

// Check consults the primary, then the secondary on error.
func (f *Fallback) Check(ctx context.Context, key string, limit int) (Decision, error) {
	d, err := f.Primary.Check(ctx, key, limit)
	if err == nil {
		return d, nil
	}
	if f.OnError != nil {
		f.OnError(err)
	}
	return f.Secondary.Check(ctx, key, limit)
}
