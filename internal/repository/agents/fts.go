package agents

import (
	"strings"

	"github.com/xpersona/agentdex/internal/domain/query"
)

// matchExpression builds an FTS5 MATCH expression from the parsed query.
// Every token is double-quoted so user input can never produce FTS syntax
// errors; phrases stay atomic; OR groups become parenthesized alternatives.
// Terms with known synonyms expand into an OR group so domain shorthand
// ("llm", "rag") reaches records indexed under the long form. Returns ""
// when no searchable text remains (punctuation-only input), leaving the
// caller's substring arms as the only text predicate.
func matchExpression(p *query.Parsed) string {
	var parts []string
	for _, t := range p.Terms {
		q := quoteToken(t)
		if q == "" {
			continue
		}
		alts := []string{q}
		for _, syn := range query.Synonyms(strings.ToLower(t)) {
			if s := quoteToken(syn); s != "" {
				alts = append(alts, s)
			}
		}
		if len(alts) > 1 {
			parts = append(parts, "("+strings.Join(alts, " OR ")+")")
		} else {
			parts = append(parts, q)
		}
	}
	for _, ph := range p.Phrases {
		if q := quoteToken(ph); q != "" {
			parts = append(parts, q)
		}
	}
	for _, group := range p.OrGroups {
		var alts []string
		for _, alt := range group {
			if q := quoteToken(alt); q != "" {
				alts = append(alts, q)
			}
		}
		if len(alts) > 0 {
			parts = append(parts, "("+strings.Join(alts, " OR ")+")")
		}
	}
	return strings.Join(parts, " ")
}

// quoteToken wraps a token for FTS5, dropping ones with no indexable
// characters. Embedded quotes are doubled per FTS5 string rules.
func quoteToken(tok string) string {
	if !hasAlnum(tok) {
		return ""
	}
	return `"` + strings.ReplaceAll(tok, `"`, `""`) + `"`
}

func hasAlnum(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r > 127 {
			return true
		}
	}
	return false
}

// escapeLike escapes %, _ and \ for LIKE patterns using '\' as the escape
// character.
func escapeLike(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
