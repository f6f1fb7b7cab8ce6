package search

import "github.com/xpersona/agentdex/internal/domain/agent"

// Diversification bounds: at most maxPerSource records from one origin
// source within the first headWindow positions. Pages of bypassThreshold or
// fewer records skip diversification.
const (
	maxPerSource    = 2
	headWindow      = 10
	bypassThreshold = 2
)

// diversify re-orders a ranked page so no source dominates its head. Excess
// records from an over-represented source are demoted to the page tail in
// their original relative order; nothing is dropped. Positions beyond
// headWindow are unconstrained.
func diversify(records []agent.Record) []agent.Record {
	if len(records) <= bypassThreshold {
		return records
	}

	out := make([]agent.Record, 0, len(records))
	var demoted []agent.Record
	counts := make(map[string]int)

	i := 0
	for ; i < len(records) && len(out) < headWindow; i++ {
		r := records[i]
		if counts[r.Source] < maxPerSource {
			counts[r.Source]++
			out = append(out, r)
			continue
		}
		demoted = append(demoted, r)
	}

	out = append(out, records[i:]...)
	return append(out, demoted...)
}
