package health

import "context"

// IndexPinger checks the agent index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// RedisPinger checks the shared Redis availability.
type RedisPinger interface {
	Ping(ctx context.Context) error
}
