// Package suggest holds the pure candidate model and scoring for query
// autocompletion. Everything here is side-effect free; candidate generation
// against live stores lives in the usecase layer.
package suggest

// Source identifies which generator produced a candidate. Each source carries
// a fixed weight folded into the candidate score.
type Source string

// Candidate sources, weakest signal last.
const (
	SourceHistory    Source = "history"
	SourceNamePrefix Source = "name_prefix"
	SourceCapability Source = "capability"
	SourceProtocol   Source = "protocol"
	SourceTemplate   Source = "template"
	SourceFallback   Source = "fallback"
)

// Source weights. History reflects real user demand and outranks synthesized
// candidates; fallback exists only to meet the minimum count.
const (
	weightHistory    = 3.0
	weightNamePrefix = 2.5
	weightCapability = 2.0
	weightProtocol   = 1.5
	weightTemplate   = 1.0
	weightFallback   = 0.5
)

// Weight returns the scoring weight for the source.
func (s Source) Weight() float64 {
	switch s {
	case SourceHistory:
		return weightHistory
	case SourceNamePrefix:
		return weightNamePrefix
	case SourceCapability:
		return weightCapability
	case SourceProtocol:
		return weightProtocol
	case SourceTemplate:
		return weightTemplate
	case SourceFallback:
		return weightFallback
	}
	return 0
}

// Candidate is one completion proposal before filtering and ranking.
// Ephemeral: generated, scored and discarded per request.
type Candidate struct {
	Text   string
	Source Source
	// Confidence in [0,1] expresses the generator's own certainty, e.g.
	// normalized historical frequency. Scaled into the score as a bonus.
	Confidence float64
	// Template names the pattern that produced a templated candidate.
	Template string
	// Tags carry semantic signals for diagnostics.
	Tags []string
}
