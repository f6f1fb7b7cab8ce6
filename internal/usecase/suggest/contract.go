package suggest

import (
	"context"

	"github.com/xpersona/agentdex/internal/domain/agent"
	domsuggest "github.com/xpersona/agentdex/internal/domain/suggest"
	"github.com/xpersona/agentdex/internal/repository/querylog"
)

// Sampler fetches agents matching the query for entity suggestions and
// candidate token mining.
type Sampler interface {
	SuggestSample(ctx context.Context, q string, limit int) ([]agent.Record, error)
}

// History reads the query-frequency log for the history candidate source.
type History interface {
	TopMatching(ctx context.Context, prefix string, limit int) ([]querylog.Entry, error)
}

// Breaker guards backend attempts.
type Breaker interface {
	Allow() bool
	RecordSuccess()
	RecordFailure()
}

// ResponseCache stores computed suggest responses keyed by request hash.
type ResponseCache interface {
	Get(key string) (Response, bool)
	GetStale(key string) (value Response, ok bool, stale bool)
	Set(key string, value Response)
}

// HeuristicsProvider supplies the current keyword tables. Implementations may
// hot-reload them from configuration.
type HeuristicsProvider interface {
	Heuristics() domsuggest.Heuristics
}
