package suggest

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xpersona/agentdex/internal/domain/agent"
	domsuggest "github.com/xpersona/agentdex/internal/domain/suggest"
	"github.com/xpersona/agentdex/internal/repository/querylog"
)

// predefinedTerms seed templated suggestions when the sample yields too few
// capability tokens.
var predefinedTerms = []string{
	"games", "trading", "coding", "AI agents", "MCP servers", "agents",
}

// templates substitute the query and a term into natural phrasings.
var templates = []struct {
	name  string
	apply func(q, term string) string
}{
	{name: "term_on_query", apply: func(q, term string) string { return term + " on " + q }},
	{name: "query_for_term", apply: func(q, term string) string { return q + " for " + term }},
	{name: "query_term", apply: func(q, term string) string { return q + " " + term }},
	{name: "term_with_query", apply: func(q, term string) string { return term + " with " + q }},
}

// capTermBounds filter mined capability tokens.
const (
	minCapTermLen   = 2
	maxCapTerms     = 8
	minMinedTerms   = 3
	executeConfBump = 0.3
)

// generator accumulates candidates from every source for one request.
type generator struct {
	normalized string
	display    string
	sctx       domsuggest.Context
	intent     Intent

	candidates []domsuggest.Candidate
	bySkeleton map[string]domsuggest.Source
	generated  map[domsuggest.Source]int
	terms      []string
}

func newGenerator(normalized string, sctx domsuggest.Context, intent Intent) *generator {
	return &generator{
		normalized: normalized,
		display:    domsuggest.Display(normalized),
		sctx:       sctx,
		intent:     intent,
		bySkeleton: make(map[string]domsuggest.Source),
		generated:  make(map[domsuggest.Source]int),
	}
}

func (g *generator) add(c domsuggest.Candidate) {
	g.candidates = append(g.candidates, c)
	g.generated[c.Source]++
	key := normalizeSkeleton(c.Text)
	if _, ok := g.bySkeleton[key]; !ok {
		g.bySkeleton[key] = c.Source
	}
}

// addHistory turns frequency-log entries into candidates. Confidence scales
// by count relative to the most searched entry.
func (g *generator) addHistory(entries []querylog.Entry) {
	var max float64
	for _, e := range entries {
		if e.Count > max {
			max = e.Count
		}
	}
	for _, e := range entries {
		conf := 0.0
		if max > 0 {
			conf = e.Count / max
		}
		g.add(domsuggest.Candidate{Text: e.Query, Source: domsuggest.SourceHistory, Confidence: conf})
	}
}

// addSample mines the agent sample for name-prefix, capability-token,
// protocol-token and templated candidates.
func (g *generator) addSample(sample []agent.Record) {
	for _, rec := range sample {
		if strings.HasPrefix(strings.ToLower(rec.Name), g.normalized) {
			g.add(domsuggest.Candidate{Text: rec.Name, Source: domsuggest.SourceNamePrefix})
		}
	}

	g.terms = minedTerms(sample)
	capConf := 0.0
	if g.intent == IntentExecute {
		capConf = executeConfBump
	}
	for _, term := range g.terms {
		g.add(domsuggest.Candidate{
			Text:       g.display + " for " + term,
			Source:     domsuggest.SourceCapability,
			Confidence: capConf,
			Tags:       []string{"capability:" + term},
		})
	}

	protoConf := 0.0
	if g.intent == IntentExecute {
		protoConf = executeConfBump
	}
	for _, proto := range sampleProtocols(sample) {
		g.add(domsuggest.Candidate{
			Text:       g.display + " on " + domsuggest.Display(proto),
			Source:     domsuggest.SourceProtocol,
			Confidence: protoConf,
		})
	}

	for _, term := range g.templateTerms() {
		termDisplay := domsuggest.TitleWord(term)
		for _, tmpl := range templates {
			g.add(domsuggest.Candidate{
				Text:     tmpl.apply(g.display, termDisplay),
				Source:   domsuggest.SourceTemplate,
				Template: tmpl.name,
			})
		}
	}
}

// addFallback hard-fills with predefined-term substitutions.
func (g *generator) addFallback() {
	for _, term := range predefinedTerms {
		termDisplay := domsuggest.TitleWord(term)
		for _, tmpl := range templates {
			g.add(domsuggest.Candidate{
				Text:     tmpl.apply(g.display, termDisplay),
				Source:   domsuggest.SourceFallback,
				Template: tmpl.name,
			})
		}
	}
}

// templateTerms prefers mined capability tokens, padding with predefined
// terms only when mining came up short.
func (g *generator) templateTerms() []string {
	if len(g.terms) >= minMinedTerms {
		return g.terms
	}
	seen := make(map[string]struct{}, len(g.terms))
	out := append([]string{}, g.terms...)
	for _, t := range g.terms {
		seen[t] = struct{}{}
	}
	for _, t := range predefinedTerms {
		if _, dup := seen[strings.ToLower(t)]; !dup {
			out = append(out, t)
		}
	}
	return out
}

// sourcesUsed reports which sources contributed to the final ranked list.
func (g *generator) sourcesUsed(ranked []string) []string {
	seen := make(map[domsuggest.Source]struct{})
	var out []string
	for _, text := range ranked {
		src, ok := g.bySkeleton[normalizeSkeleton(text)]
		if !ok {
			continue
		}
		if _, dup := seen[src]; !dup {
			seen[src] = struct{}{}
			out = append(out, string(src))
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// minedTerms counts capability tokens across the sample and returns the most
// frequent well-formed ones.
func minedTerms(sample []agent.Record) []string {
	counts := make(map[string]int)
	for _, rec := range sample {
		for _, c := range rec.Capabilities {
			normalized := strings.ToLower(strings.TrimSpace(c))
			if len(normalized) >= minCapTermLen && wellFormedTerm(normalized) {
				counts[normalized]++
			}
		}
	}

	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxCapTerms {
		terms = terms[:maxCapTerms]
	}
	return terms
}

func sampleProtocols(sample []agent.Record) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range sample {
		for _, p := range rec.Protocols {
			if _, dup := seen[p]; dup || p == "" {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// wellFormedTerm rejects tokens with punctuation beyond word separators.
func wellFormedTerm(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// entitySuggestions projects the sample head into the response, truncating
// long descriptions.
func entitySuggestions(sample []agent.Record) []EntitySuggestion {
	out := make([]EntitySuggestion, 0, MaxAgentSuggestions)
	for _, rec := range sample {
		if len(out) >= MaxAgentSuggestions {
			break
		}
		desc := rec.Description
		if len(desc) > descTruncate {
			cut := descTruncate
			for cut > 0 && !utf8.RuneStart(desc[cut]) {
				cut--
			}
			desc = desc[:cut] + "…"
		}
		protocols := rec.Protocols
		if protocols == nil {
			protocols = []string{}
		}
		out = append(out, EntitySuggestion{
			ID:          rec.ID,
			Name:        rec.Name,
			Slug:        rec.Slug,
			Description: desc,
			Protocols:   protocols,
		})
	}
	return out
}

func normalizeSkeleton(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			sb.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(sb.String())
}
