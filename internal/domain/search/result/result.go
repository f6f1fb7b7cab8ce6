// Package result defines the search result page and its aggregations.
package result

import (
	"github.com/xpersona/agentdex/internal/domain/agent"
	"github.com/xpersona/agentdex/internal/domain/search/sortkey"
)

// Bucket is one facet value with its match count.
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Facets are value histograms over the full (unpaginated) match set.
type Facets struct {
	Protocols    []Bucket `json:"protocols,omitempty"`
	Capabilities []Bucket `json:"capabilities,omitempty"`
	Languages    []Bucket `json:"languages,omitempty"`
}

// Page is one keyset-paginated slice of search results.
type Page struct {
	records    []agent.Record
	total      int
	hasMore    bool
	nextCursor string
	facets     Facets
	didYouMean string
	stale      bool
	degraded   bool
}

// NewPage builds a page from ranked records. The next-page cursor is derived
// from the last record's sort key; an empty or final page carries none.
func NewPage(records []agent.Record, total int, hasMore bool, facets Facets) Page {
	p := Page{records: records, total: total, hasMore: hasMore, facets: facets}
	if hasMore && len(records) > 0 {
		last := records[len(records)-1]
		p.nextCursor = sortkey.Key{
			HomepagePriority: last.HomepagePriority(),
			Primary:          last.SortPrimary,
			Rank:             last.OverallRank,
			CreatedAtNanos:   last.CreatedAt.UnixNano(),
			ID:               last.ID,
		}.Encode()
	}
	return p
}

// Records returns the page's ranked records in display order.
func (p *Page) Records() []agent.Record { return p.records }

// Total is the full match count ignoring pagination.
func (p *Page) Total() int { return p.total }

// HasMore reports whether another page exists.
func (p *Page) HasMore() bool { return p.hasMore }

// NextCursor returns the opaque cursor for the next page, empty when HasMore
// is false.
func (p *Page) NextCursor() string { return p.nextCursor }

// FacetCounts returns the aggregations computed over the full match set.
func (p *Page) FacetCounts() Facets { return p.facets }

// DidYouMean returns the spelling suggestion, empty when none applies.
func (p *Page) DidYouMean() string { return p.didYouMean }

// Stale reports whether the page was served from an expired cache entry while
// the backend was unavailable.
func (p *Page) Stale() bool { return p.stale }

// Degraded reports whether the backend was skipped entirely and the page is
// an empty placeholder.
func (p *Page) Degraded() bool { return p.degraded }

// WithRecords returns a copy with the records replaced, keeping the cursor
// and counts. Used after in-page reordering: the cursor must stay anchored to
// the ranking-order boundary, not whatever record ends up last.
func (p Page) WithRecords(records []agent.Record) Page {
	p.records = records
	return p
}

// WithDidYouMean returns a copy carrying a spelling suggestion.
func (p Page) WithDidYouMean(s string) Page {
	p.didYouMean = s
	return p
}

// MarkStale returns a copy flagged as served stale.
func (p Page) MarkStale() Page {
	p.stale = true
	return p
}

// NewDegraded returns an empty page flagged as degraded, served when the
// circuit is open and no cached copy exists.
func NewDegraded() Page {
	return Page{records: []agent.Record{}, degraded: true}
}
