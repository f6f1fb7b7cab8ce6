package suggest

import (
	"sort"
	"strings"
	"unicode"
)

// maxProtocolCandidates caps protocol-token suggestions on non-technical
// queries so jargon never crowds out natural completions.
const maxProtocolCandidates = 2

// Rank scores, filters, dedupes and orders candidates, returning at most max
// completion strings. The sort is stable: ties keep insertion order, so
// generator precedence breaks them.
func Rank(candidates []Candidate, ctx Context, max int) []string {
	type scored struct {
		cand  Candidate
		score float64
	}

	pool := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if !acceptable(c.Text, ctx) {
			continue
		}
		s := Score(c.Text, ctx) + c.Source.Weight() + c.Confidence*confidenceScale
		pool = append(pool, scored{cand: c, score: s})
	}

	sort.SliceStable(pool, func(i, j int) bool { return pool[i].score > pool[j].score })

	seen := make(map[string]struct{}, len(pool))
	protocolCount := 0
	out := make([]string, 0, max)
	for _, sc := range pool {
		if len(out) >= max {
			break
		}
		key := skeleton(sc.cand.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		if sc.cand.Source == SourceProtocol && !ctx.Technical {
			if protocolCount >= maxProtocolCandidates {
				continue
			}
			protocolCount++
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(sc.cand.Text))
	}
	return out
}

// acceptable applies the hard rejection filters from ranking.
func acceptable(text string, ctx Context) bool {
	trimmed := strings.TrimSpace(text)
	key := skeleton(trimmed)
	if len(key) < 2 || key == skeleton(ctx.Query) {
		return false
	}
	if malformed(trimmed) {
		return false
	}

	words := strings.Fields(strings.ToLower(trimmed))
	if allStopWords(words, ctx.heur) {
		return false
	}
	// A trailing stop word reads as an incomplete phrase.
	if len(words) > 1 && ctx.heur.isStopWord(words[len(words)-1]) {
		return false
	}

	if ctx.Question {
		// Question askers want their question extended, not redirected
		// into jargon or tutorial padding.
		if !strings.HasPrefix(strings.ToLower(trimmed), ctx.Query) {
			return false
		}
		for _, w := range words {
			if ctx.heur.isProtocolName(w) || w == "tutorial" || w == "guide" {
				return false
			}
		}
	}
	return true
}

func allStopWords(words []string, h Heuristics) bool {
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if !h.isStopWord(w) {
			return false
		}
	}
	return true
}

// malformed rejects control characters and punctuation-only text.
func malformed(s string) bool {
	hasAlnum := false
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			hasAlnum = true
		}
	}
	return !hasAlnum
}

// skeleton normalizes for dedup: lower-cased, punctuation stripped,
// whitespace collapsed.
func skeleton(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			sb.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(sb.String())
}
