// Package agent defines the read-only projection of an indexed agent that
// the search core ranks and returns. The index owns the canonical record;
// the core never writes it on the query path.
package agent

import "time"

// Status values an agent record may carry in the index.
const (
	StatusActive  = "ACTIVE"
	StatusPending = "PENDING"
)

// Record is a single indexed agent as seen by the ranking core.
type Record struct {
	ID          string
	Name        string
	Slug        string
	Description string
	HomepageURL string

	Protocols    []string
	Capabilities []string
	Languages    []string

	// Source names the crawler or registry the record came from. The
	// diversifier bounds how many records of one source lead a page.
	Source string

	SafetyScore     int
	PopularityScore int
	FreshnessScore  int
	OverallRank     float64

	Status    string
	CreatedAt time.Time

	// SortPrimary is the mode-dependent primary ordering value the index
	// computed for this row (text-match score, safety, popularity or
	// freshness). It feeds the pagination cursor.
	SortPrimary float64

	// Snippet holds a relevance excerpt with match-highlight markers.
	// Populated only when the query carried free text.
	Snippet string
}

// HomepagePriority is 1 when the record has a non-empty homepage URL, else 0.
// It is the outermost sort key: listings with a homepage are promoted ahead
// of raw relevance.
func (r *Record) HomepagePriority() int {
	if r.HomepageURL != "" {
		return 1
	}
	return 0
}
