// Package query parses raw search input into a structured intent: free-text
// terms, quoted phrases, exclusions, OR groups, and inline field operators.
// Parsing is forgiving: unrecognized operator keys stay in the text instead
// of erroring, so natural-language queries from autonomous callers survive.
package query

import (
	"strconv"
	"strings"
)

// Query length bounds enforced upstream by request validation.
const (
	MaxSearchQueryLength  = 500
	MaxSuggestQueryLength = 100
)

// Fields holds the recognized inline field operators of a query.
type Fields struct {
	Protocol   string
	Capability string
	Lang       string
	Source     string
	MinSafety  *float64
}

// IsZero reports whether no field operator was present.
func (f Fields) IsZero() bool {
	return f.Protocol == "" && f.Capability == "" && f.Lang == "" &&
		f.Source == "" && f.MinSafety == nil
}

// Parsed is the structured intent derived from a raw query string.
// It is immutable once built.
type Parsed struct {
	// Terms are plain free-text tokens, operator syntax stripped.
	Terms []string
	// Phrases are quoted spans treated as atomic units for relevance.
	Phrases []string
	// Excluded are tokens prefixed with '-'.
	Excluded []string
	// OrGroups are alternatives joined by the OR keyword.
	OrGroups [][]string
	// Fields are the recognized inline operators.
	Fields Fields
	// Original is the raw input, untouched.
	Original string
	// Normalized is the lower-cased, whitespace-collapsed residue with
	// operator syntax stripped. Used for cache keys and query-log tracking.
	Normalized string
}

// HasText reports whether any free text remains for relevance scoring.
func (p *Parsed) HasText() bool {
	return len(p.Terms) > 0 || len(p.Phrases) > 0 || len(p.OrGroups) > 0
}

// FreeText returns the residual text joined for substring predicates.
func (p *Parsed) FreeText() string {
	parts := make([]string, 0, len(p.Terms)+len(p.Phrases))
	parts = append(parts, p.Terms...)
	parts = append(parts, p.Phrases...)
	for _, g := range p.OrGroups {
		parts = append(parts, g...)
	}
	return strings.Join(parts, " ")
}

// Canonical renders the full intent in one deterministic string: terms,
// quoted phrases, OR groups, exclusions and field operators, lower-cased and
// single-spaced. Cosmetically different inputs with the same meaning produce
// the same canonical form, which makes it the right cache-key component
// where Original would fragment the cache.
func (p *Parsed) Canonical() string {
	parts := make([]string, 0, len(p.Terms)+len(p.Phrases)+len(p.OrGroups)+len(p.Excluded))
	for _, t := range p.Terms {
		parts = append(parts, strings.ToLower(t))
	}
	for _, ph := range p.Phrases {
		parts = append(parts, `"`+strings.ToLower(ph)+`"`)
	}
	for _, g := range p.OrGroups {
		alts := make([]string, len(g))
		for i, alt := range g {
			alts[i] = strings.ToLower(alt)
		}
		parts = append(parts, "("+strings.Join(alts, "|")+")")
	}
	for _, x := range p.Excluded {
		parts = append(parts, "-"+x)
	}
	f := p.Fields
	if f.Protocol != "" {
		parts = append(parts, "protocol="+f.Protocol)
	}
	if f.Capability != "" {
		parts = append(parts, "capability="+f.Capability)
	}
	if f.Lang != "" {
		parts = append(parts, "lang="+f.Lang)
	}
	if f.Source != "" {
		parts = append(parts, "source="+f.Source)
	}
	if f.MinSafety != nil {
		parts = append(parts, "safety>="+strconv.FormatFloat(*f.MinSafety, 'f', -1, 64))
	}
	return strings.Join(parts, " ")
}

// Parse turns a raw query string into a Parsed intent. It never fails:
// malformed operator values degrade to plain text tokens.
func Parse(raw string) Parsed {
	p := Parsed{Original: raw}

	tokens := tokenize(stripAngles(raw))

	var residue []string
	i := 0
	for i < len(tokens) {
		tok := tokens[i]

		switch {
		case tok.quoted:
			p.Phrases = append(p.Phrases, tok.text)
			residue = append(residue, tok.text)
			i++
		case strings.HasPrefix(tok.text, "-") && len(tok.text) > 1:
			p.Excluded = append(p.Excluded, strings.ToLower(tok.text[1:]))
			i++
		case isOrHead(tokens, i):
			group, next := collectOrGroup(tokens, i)
			p.OrGroups = append(p.OrGroups, group)
			residue = append(residue, group...)
			i = next
		default:
			if key, value, ok := splitOperator(tok.text); ok {
				if applyOperator(&p.Fields, key, value) {
					i++
					continue
				}
			}
			p.Terms = append(p.Terms, tok.text)
			residue = append(residue, tok.text)
			i++
		}
	}

	p.Normalized = Normalize(strings.Join(residue, " "))
	return p
}

// Normalize lower-cases, collapses whitespace and strips angle brackets.
// Operator syntax must already be stripped by the caller.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(stripAngles(s)), " "))
}

// token is a single lexed unit of the query.
type token struct {
	text   string
	quoted bool
}

// tokenize splits on whitespace, keeping double-quoted spans intact.
func tokenize(s string) []token {
	var out []token
	var sb strings.Builder
	inQuote := false

	flush := func(quoted bool) {
		if sb.Len() > 0 {
			out = append(out, token{text: sb.String(), quoted: quoted})
			sb.Reset()
		}
	}

	for _, r := range s {
		switch {
		case r == '"':
			flush(inQuote)
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush(false)
		default:
			sb.WriteRune(r)
		}
	}
	// Unterminated quote degrades to plain text.
	flush(false)
	return out
}

func isOrHead(tokens []token, i int) bool {
	return i+2 < len(tokens) &&
		!tokens[i].quoted && !tokens[i+2].quoted &&
		tokens[i+1].text == "OR" && !tokens[i+1].quoted
}

// collectOrGroup gathers "a OR b OR c" starting at i. Returns the group and
// the index of the first token after it.
func collectOrGroup(tokens []token, i int) ([]string, int) {
	group := []string{tokens[i].text}
	i++
	for i+1 < len(tokens) && tokens[i].text == "OR" && !tokens[i].quoted && !tokens[i+1].quoted {
		group = append(group, tokens[i+1].text)
		i += 2
	}
	return group, i
}

// splitOperator splits "key:value" into its parts. A leading or trailing
// colon is not an operator.
func splitOperator(s string) (key, value string, ok bool) {
	idx := strings.IndexByte(s, ':')
	if idx <= 0 || idx == len(s)-1 {
		return "", "", false
	}
	return strings.ToLower(s[:idx]), s[idx+1:], true
}

// applyOperator records a recognized operator into fields. Returns false for
// unknown keys or unparsable values so the token survives as plain text.
func applyOperator(f *Fields, key, value string) bool {
	switch key {
	case "protocol":
		v := strings.ToUpper(value)
		// Legacy alias from the crawl era.
		if v == "OPENCLAW" {
			v = "OPENCLEW"
		}
		f.Protocol = v
	case "capability":
		f.Capability = strings.ToLower(value)
	case "lang", "language":
		f.Lang = strings.ToLower(value)
	case "source":
		f.Source = strings.ToUpper(value)
	case "safety":
		min, ok := parseSafety(value)
		if !ok {
			return false
		}
		f.MinSafety = &min
	default:
		return false
	}
	return true
}

// parseSafety accepts "80", ">80" and ">=80" as a minimum threshold.
func parseSafety(v string) (float64, bool) {
	v = strings.TrimPrefix(strings.TrimPrefix(v, ">="), ">")
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}

func stripAngles(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r != '<' && r != '>' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
