// Package metrics exports Prometheus instrumentation for the HTTP surface
// and the search core.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentdex",
			Name:      "cache_events_total",
			Help:      "Cache lookups by endpoint and outcome (hit, miss, stale)",
		},
		[]string{"endpoint", "event"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "agentdex",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per endpoint (0 closed, 1 half-open, 2 open)",
		},
		[]string{"endpoint"},
	)

	breakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentdex",
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions per endpoint",
		},
		[]string{"endpoint", "state"},
	)

	degradedResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentdex",
			Name:      "degraded_responses_total",
			Help:      "Responses served degraded while the backend was unavailable",
		},
		[]string{"endpoint"},
	)

	suggestCandidates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentdex",
			Name:      "suggest_candidates_total",
			Help:      "Suggestion candidates generated per source",
		},
		[]string{"source"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentdex",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(cacheEvents)
	prometheus.MustRegister(breakerState)
	prometheus.MustRegister(breakerTransitions)
	prometheus.MustRegister(degradedResponses)
	prometheus.MustRegister(suggestCandidates)
	prometheus.MustRegister(rateLimited)
}

// CacheEvent counts one cache lookup outcome.
func CacheEvent(endpoint, event string) {
	cacheEvents.WithLabelValues(endpoint, event).Inc()
}

// BreakerState publishes the breaker state for an endpoint.
func BreakerState(endpoint string, state float64) {
	breakerState.WithLabelValues(endpoint).Set(state)
}

// BreakerTransition counts one breaker state change.
func BreakerTransition(endpoint, state string) {
	breakerTransitions.WithLabelValues(endpoint, state).Inc()
}

// DegradedResponse counts a response served without the backend.
func DegradedResponse(endpoint string) {
	degradedResponses.WithLabelValues(endpoint).Inc()
}

// SuggestCandidates counts generated candidates for a source.
func SuggestCandidates(source string, n int) {
	suggestCandidates.WithLabelValues(source).Add(float64(n))
}

// RateLimited counts a rejected request.
func RateLimited(endpoint string) {
	rateLimited.WithLabelValues(endpoint).Inc()
}
