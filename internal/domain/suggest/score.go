package suggest

import "strings"

// Scoring constants. Kept named and table-like so thresholds are testable in
// isolation from candidate generation.
const (
	// Phrase-like length window, in characters.
	phraseMinLen = 10
	phraseMaxLen = 60

	bonusPhraseLength    = 1.0
	bonusMultiWord       = 1.0
	bonusIntentTerm      = 0.8
	bonusStartsWithQuery = 1.2
	confidenceScale      = 1.0

	penaltyShortToken    = 1.5
	penaltyPackageShaped = 2.0
	shortTokenMaxLen     = 4
)

// Intent terms whose presence marks a candidate as a natural search phrase.
var intentTerms = []string{"how to", "best", "for", "with", "top"}

// Context is the per-request query profile that parameterizes scoring.
type Context struct {
	// Query is the normalized (lower-cased, collapsed) query text.
	Query string
	// Technical is true when the query itself looks like tooling or
	// package-identifier input.
	Technical bool
	// Question is true when the query reads as a natural-language question.
	Question bool

	heur Heuristics
}

// NewContext profiles a normalized query against the heuristic tables.
func NewContext(normalized string, h Heuristics) Context {
	ctx := Context{Query: normalized, heur: h}
	tokens := strings.Fields(normalized)
	if len(tokens) > 0 {
		ctx.Question = h.isQuestionWord(tokens[0])
	}
	ctx.Technical = isTechnical(tokens, h)
	return ctx
}

// isTechnical checks for package-manager tokens, punctuation clusters and
// version-like suffixes.
func isTechnical(tokens []string, h Heuristics) bool {
	for _, tok := range tokens {
		if h.isTechnicalToken(tok) || versionSuffix(tok) {
			return true
		}
		if strings.Count(tok, "-")+strings.Count(tok, "_")+strings.Count(tok, ".")+strings.Count(tok, "/") >= 2 {
			return true
		}
	}
	return false
}

// Score rates one candidate text for naturalness against the query context.
// Pure: same inputs, same score.
func Score(text string, ctx Context) float64 {
	lower := strings.ToLower(strings.TrimSpace(text))
	words := strings.Fields(lower)

	var score float64
	if n := len(lower); n >= phraseMinLen && n <= phraseMaxLen {
		score += bonusPhraseLength
	}
	if len(words) >= 2 {
		score += bonusMultiWord
	}
	for _, term := range intentTerms {
		if containsTerm(lower, term) {
			score += bonusIntentTerm
			break
		}
	}
	if ctx.Query != "" && strings.HasPrefix(lower, ctx.Query) {
		score += bonusStartsWithQuery
	}

	if len(words) == 1 && len(lower) <= shortTokenMaxLen && !strings.HasPrefix(lower, ctx.Query) {
		score -= penaltyShortToken
	}
	if !ctx.Technical && packageShaped(words) {
		score -= penaltyPackageShaped
	}
	return score
}

// packageShaped reports identifier-looking text: hyphen/underscore chains or
// version suffixes with no natural spacing.
func packageShaped(words []string) bool {
	for _, w := range words {
		if versionSuffix(w) {
			return true
		}
		if strings.Count(w, "-")+strings.Count(w, "_") >= 2 {
			return true
		}
	}
	return false
}

// containsTerm matches term on word boundaries within lower-cased text.
func containsTerm(lower, term string) bool {
	idx := strings.Index(lower, term)
	for idx >= 0 {
		before := idx == 0 || lower[idx-1] == ' '
		end := idx + len(term)
		after := end == len(lower) || lower[end] == ' '
		if before && after {
			return true
		}
		next := strings.Index(lower[idx+1:], term)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}
