package suggest

import "strings"

// Heuristics are the keyword tables behind technical-query and question-mode
// detection. They are configuration, loaded at startup and hot-reloadable, so
// tuning them never requires a redeploy.
type Heuristics struct {
	// TechnicalTokens mark a query as technical (package managers, tooling
	// shorthand). Technical queries keep identifier-shaped candidates.
	TechnicalTokens []string
	// QuestionWords at the head of a query switch on question mode.
	QuestionWords []string
	// StopWords never stand alone as a suggestion and never end one.
	StopWords []string
	// ProtocolNames are rejected as padding in question mode.
	ProtocolNames []string
}

// DefaultHeuristics returns the built-in tables used when the config omits
// them.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		TechnicalTokens: []string{
			"npm", "pip", "cargo", "yarn", "pnpm", "brew", "apt",
			"sdk", "cli", "api", "repo", "github", "docker",
		},
		QuestionWords: []string{
			"how", "what", "which", "why", "where", "when", "can", "does", "is",
		},
		StopWords: []string{
			"a", "an", "the", "for", "on", "with", "to", "of", "in", "and", "or",
		},
		ProtocolNames: []string{"mcp", "a2a", "anp", "openclew", "openclaw"},
	}
}

func (h Heuristics) isStopWord(w string) bool      { return contains(h.StopWords, w) }
func (h Heuristics) isQuestionWord(w string) bool  { return contains(h.QuestionWords, w) }
func (h Heuristics) isProtocolName(w string) bool  { return contains(h.ProtocolNames, w) }
func (h Heuristics) isTechnicalToken(w string) bool { return contains(h.TechnicalTokens, w) }

func contains(list []string, w string) bool {
	for _, s := range list {
		if s == w {
			return true
		}
	}
	return false
}

// versionSuffix reports identifier text like "v2", "2.0" or "sdk-v3".
func versionSuffix(tok string) bool {
	if len(tok) >= 2 && (tok[0] == 'v' || tok[0] == 'V') && isDigits(tok[1:]) {
		return true
	}
	return strings.ContainsAny(tok, "0123456789") && strings.Contains(tok, ".")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
