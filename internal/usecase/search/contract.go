package search

import (
	"context"

	"github.com/xpersona/agentdex/internal/domain/agent"
	"github.com/xpersona/agentdex/internal/domain/search/index"
	"github.com/xpersona/agentdex/internal/domain/search/result"
	"github.com/xpersona/agentdex/internal/repository/querylog"
)

// Index defines the datastore contract for the ranking core.
type Index interface {
	// Search returns up to q.Limit records ordered by the composite sort
	// key descending, plus the full filtered match count.
	Search(ctx context.Context, q index.Query) ([]agent.Record, int, error)

	// Facets aggregates value histograms over the full match set.
	Facets(ctx context.Context, q index.Query) (result.Facets, error)
}

// Breaker guards backend attempts.
type Breaker interface {
	Allow() bool
	RecordSuccess()
	RecordFailure()
}

// PageCache stores computed result pages keyed by request hash.
type PageCache interface {
	Get(key string) (result.Page, bool)
	GetStale(key string) (value result.Page, ok bool, stale bool)
	Set(key string, value result.Page)
}

// FrequencyRecorder persists how often normalized queries are searched.
type FrequencyRecorder interface {
	Increment(ctx context.Context, normalized string) error
}

// HistoryReader reads the query-frequency log; it feeds the did-you-mean
// fallback when synonyms offer nothing.
type HistoryReader interface {
	TopMatching(ctx context.Context, prefix string, limit int) ([]querylog.Entry, error)
}
