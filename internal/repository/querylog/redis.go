package querylog

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/rueidis"
)

// scanDepth is how many of the most-searched queries are fetched before
// prefix filtering. Popular prefixes resolve from the head of the set.
const scanDepth = 200

// Redis keeps the frequency log in a sorted set so counts aggregate across
// replicas.
type Redis struct {
	client rueidis.Client
	key    string
}

// NewRedis creates a log stored under the given sorted-set key.
func NewRedis(client rueidis.Client, key string) *Redis {
	if key == "" {
		key = "querylog:frequency"
	}
	return &Redis{client: client, key: key}
}

// Increment bumps the query's score by one.
func (r *Redis) Increment(ctx context.Context, normalized string) error {
	if normalized == "" {
		return nil
	}
	cmd := r.client.B().Zincrby().Key(r.key).Increment(1).Member(normalized).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("querylog incr: %w", err)
	}
	return nil
}

// TopMatching fetches the most-searched queries and filters them by prefix.
func (r *Redis) TopMatching(ctx context.Context, prefix string, limit int) ([]Entry, error) {
	cmd := r.client.B().Zrevrange().Key(r.key).Start(0).Stop(scanDepth - 1).Withscores().Build()
	scores, err := r.client.Do(ctx, cmd).AsZScores()
	if err != nil {
		return nil, fmt.Errorf("querylog range: %w", err)
	}

	out := make([]Entry, 0, limit)
	for _, zs := range scores {
		if !strings.HasPrefix(zs.Member, prefix) {
			continue
		}
		out = append(out, Entry{Query: zs.Member, Count: zs.Score})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
