package agentdex

import "time"

// Agent is one indexed agent listing.
type Agent struct {
	ID          string
	Name        string
	Slug        string
	Description string
	HomepageURL string

	Protocols    []string
	Capabilities []string
	Languages    []string

	// Source names the crawler or registry the listing came from.
	Source string

	SafetyScore     int
	PopularityScore int
	FreshnessScore  int
	OverallRank     float64

	Status    string
	CreatedAt time.Time

	// Snippet holds a relevance excerpt with match markers. Populated on
	// search results for free-text queries.
	Snippet string
}

// SearchParams selects and orders agents.
type SearchParams struct {
	Query        string
	Protocols    []string
	Capabilities []string
	MinSafety    *float64
	MinRank      *float64
	// Sort is one of relevance (default), rank, safety, popularity,
	// freshness.
	Sort string
	// Cursor continues a previous page; take it from SearchPage.NextCursor.
	Cursor         string
	Limit          int
	IncludePending bool
}

// FacetBucket is one facet value with its match count.
type FacetBucket struct {
	Value string
	Count int
}

// Facets are value histograms over the full match set.
type Facets struct {
	Protocols    []FacetBucket
	Capabilities []FacetBucket
	Languages    []FacetBucket
}

// SearchPage is one keyset-paginated slice of ranked results.
type SearchPage struct {
	Agents     []Agent
	Total      int
	HasMore    bool
	NextCursor string
	Facets     Facets
	// DidYouMean carries a spelling suggestion when nothing matched.
	DidYouMean string
	// Stale marks a page replayed from an expired cache entry while the
	// index was unavailable.
	Stale bool
	// Degraded marks an empty placeholder served with the circuit open.
	Degraded bool
}

// SuggestParams asks for query completions.
type SuggestParams struct {
	Query string
	Limit int
	// Intent is "discover" (default) or "execute".
	Intent string
}

// AgentSuggestion is one matched agent offered alongside completions.
type AgentSuggestion struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Protocols   []string
}

// Suggestions is the autocomplete result.
type Suggestions struct {
	Queries     []string
	Agents      []AgentSuggestion
	SourcesUsed []string
	Stale       bool
	Degraded    bool
}

// HealthReport aggregates component health.
type HealthReport struct {
	// Status is "ok" or "degraded".
	Status string
	// Checks maps component name to "ok" or "error".
	Checks map[string]string
}
