package suggest

import "strings"

// Display returns user-facing casing for known protocol shorthand, leaving
// anything else untouched.
func Display(q string) string {
	switch strings.ToLower(q) {
	case "openclaw", "openclew":
		return "OpenClaw"
	case "mcp":
		return "MCP"
	case "a2a":
		return "A2A"
	case "anp":
		return "ANP"
	}
	return q
}

// TitleWord upper-cases the first letter of a term for templated phrases.
func TitleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
