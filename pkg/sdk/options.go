package agentdex

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	dbPath        string
	redisAddrs    []string
	redisPassword string

	cacheTTL       time.Duration
	suggestMin     int
	suggestMax     int
	heuristicsPath string

	logger *zap.Logger
}

// WithDatabase sets the SQLite index path. Required.
func WithDatabase(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dbPath = path
	})
}

// WithRedis shares query history and rate state through a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithCacheTTL overrides how long search and suggest responses stay fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithSuggestBounds overrides the minimum and maximum completion counts.
func WithSuggestBounds(minResults, maxResults int) Option {
	return optionFunc(func(c *clientConfig) {
		c.suggestMin = minResults
		c.suggestMax = maxResults
	})
}

// WithHeuristics loads suggestion keyword tables from a YAML file instead
// of the built-ins.
func WithHeuristics(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.heuristicsPath = path
	})
}

// WithLogger sets the client logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = logger
	})
}
