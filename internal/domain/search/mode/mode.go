// Package mode defines the search sort policy enumeration.
package mode

// Mode selects the primary ordering of search results.
type Mode string

// Sort mode constants.
const (
	// Relevance orders by text-match score when free text is present and
	// falls back to Rank otherwise.
	Relevance  Mode = "relevance"
	Rank       Mode = "rank"
	Safety     Mode = "safety"
	Popularity Mode = "popularity"
	Freshness  Mode = "freshness"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Relevance || m == Rank || m == Safety || m == Popularity || m == Freshness
}
