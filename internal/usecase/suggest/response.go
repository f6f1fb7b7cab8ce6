package suggest

// EntitySuggestion is one matched agent offered alongside the query
// completions.
type EntitySuggestion struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description,omitempty"`
	Protocols   []string `json:"protocols"`
}

// Meta describes how the response was assembled.
type Meta struct {
	CountRequested int      `json:"countRequested"`
	CountReturned  int      `json:"countReturned"`
	SourcesUsed    []string `json:"sourcesUsed"`
}

// Response is the suggest endpoint envelope.
type Response struct {
	QuerySuggestions []string           `json:"querySuggestions"`
	AgentSuggestions []EntitySuggestion `json:"agentSuggestions"`
	Meta             Meta               `json:"meta"`

	// Stale marks a response replayed from an expired cache entry while the
	// backend was unavailable.
	Stale bool `json:"stale,omitempty"`
	// Degraded marks an empty placeholder served with the circuit open.
	Degraded bool `json:"degraded,omitempty"`
}

func degradedResponse(requested int) Response {
	return Response{
		QuerySuggestions: []string{},
		AgentSuggestions: []EntitySuggestion{},
		Meta:             Meta{CountRequested: requested, SourcesUsed: []string{}},
		Degraded:         true,
	}
}
