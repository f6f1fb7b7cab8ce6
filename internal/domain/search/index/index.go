// Package index defines the query shape the ranking core hands to the
// indexed datastore. It belongs to the domain so the usecase contract and
// the storage backend share it without coupling to each other.
package index

import (
	"github.com/xpersona/agentdex/internal/domain/query"
	"github.com/xpersona/agentdex/internal/domain/search/mode"
	"github.com/xpersona/agentdex/internal/domain/search/sortkey"
)

// Query is the assembled predicate set for one index read.
type Query struct {
	Parsed         *query.Parsed
	Protocols      []string
	Capabilities   []string
	Languages      []string
	Source         string
	MinSafety      *float64
	MinRank        *float64
	IncludePending bool
	Sort           mode.Mode
	// After, when set, restricts results to rows strictly after the cursor
	// position in descending sort order.
	After *sortkey.Key
	// Limit is the number of rows to fetch. Callers pass pageSize+1 to
	// detect whether another page exists.
	Limit int
}
