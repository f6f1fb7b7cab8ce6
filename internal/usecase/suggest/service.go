// Package suggest assembles query completions from weak signal sources:
// historical popular queries, entity name prefixes, capability and protocol
// tokens, templated substitutions and a hard-fill fallback.
package suggest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xpersona/agentdex/internal/cache"
	"github.com/xpersona/agentdex/internal/domain"
	"github.com/xpersona/agentdex/internal/domain/query"
	domsuggest "github.com/xpersona/agentdex/internal/domain/suggest"
	"github.com/xpersona/agentdex/internal/metrics"
)

// Result-count bounds and sampling limits.
const (
	DefaultMinSuggestions = 3
	DefaultMaxSuggestions = 8
	MaxLimit              = 12
	MaxAgentSuggestions   = 3
	descTruncate          = 80
	historyDepth          = 20
)

// Intent hints what the caller will do with the completion.
type Intent string

// Intents. Discover favors exploratory phrases; Execute favors capability
// and protocol tokens an autonomous caller can act on directly.
const (
	IntentDiscover Intent = "discover"
	IntentExecute  Intent = "execute"
)

// Params carries the unvalidated suggest request.
type Params struct {
	Query  string
	Limit  int
	Intent string
}

// Service generates ranked query completions.
type Service struct {
	sampler Sampler
	history History
	cache   ResponseCache
	breaker Breaker
	heur    HeuristicsProvider

	minResults int
	maxResults int
}

// New creates a suggest service with the given result-count bounds.
// Bounds outside their valid range fall back to the defaults.
func New(sampler Sampler, history History, respCache ResponseCache, brk Breaker,
	heur HeuristicsProvider, minResults, maxResults int) *Service {
	if minResults <= 0 {
		minResults = DefaultMinSuggestions
	}
	if maxResults <= 0 || maxResults < minResults {
		maxResults = DefaultMaxSuggestions
	}
	return &Service{
		sampler:    sampler,
		history:    history,
		cache:      respCache,
		breaker:    brk,
		heur:       heur,
		minResults: minResults,
		maxResults: maxResults,
	}
}

// Suggest validates the request and runs the candidate pipeline.
func (s *Service) Suggest(ctx context.Context, p Params) (Response, error) {
	q := strings.TrimSpace(p.Query)
	if len(q) < 2 {
		return Response{}, fmt.Errorf("%w: query must be at least 2 characters", domain.ErrValidation)
	}
	if len(q) > query.MaxSuggestQueryLength {
		return Response{}, fmt.Errorf("%w: query too long (max %d chars)",
			domain.ErrValidation, query.MaxSuggestQueryLength)
	}

	limit := p.Limit
	if limit == 0 {
		limit = s.maxResults
	}
	if limit < 1 || limit > MaxLimit {
		return Response{}, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, MaxLimit)
	}
	if limit > s.maxResults {
		limit = s.maxResults
	}

	intent := Intent(p.Intent)
	if p.Intent == "" {
		intent = IntentDiscover
	}
	if intent != IntentDiscover && intent != IntentExecute {
		return Response{}, fmt.Errorf("%w: invalid intent %q", domain.ErrValidation, p.Intent)
	}

	key := cache.Key(map[string]string{
		"q":      query.Normalize(q),
		"limit":  strconv.Itoa(limit),
		"intent": string(intent),
	})
	if resp, ok := s.cache.Get(key); ok {
		metrics.CacheEvent("suggest", "hit")
		return resp, nil
	}
	metrics.CacheEvent("suggest", "miss")

	if !s.breaker.Allow() {
		if resp, ok := s.serveStale(key); ok {
			return resp, nil
		}
		metrics.DegradedResponse("suggest")
		return degradedResponse(limit), domain.ErrCircuitOpen
	}

	resp, err := s.compute(ctx, q, limit, intent)
	if err != nil {
		s.breaker.RecordFailure()
		if resp, ok := s.serveStale(key); ok {
			return resp, nil
		}
		return Response{}, fmt.Errorf("%w: %w", domain.ErrBackend, err)
	}
	s.breaker.RecordSuccess()

	s.cache.Set(key, resp)
	return resp, nil
}

func (s *Service) compute(ctx context.Context, q string, limit int, intent Intent) (Response, error) {
	normalized := query.Normalize(q)
	heur := s.heur.Heuristics()
	sctx := domsuggest.NewContext(normalized, heur)

	gen := newGenerator(normalized, sctx, intent)

	entries, err := s.history.TopMatching(ctx, normalized, historyDepth)
	if err != nil {
		return Response{}, fmt.Errorf("history source: %w", err)
	}
	gen.addHistory(entries)

	sample, err := s.sampler.SuggestSample(ctx, q, 0)
	if err != nil {
		return Response{}, fmt.Errorf("agent sample: %w", err)
	}
	gen.addSample(sample)

	ranked := domsuggest.Rank(gen.candidates, sctx, limit)

	// Hard-fill only when the ranked pool is short of the minimum; never
	// beyond the defined fallback sources.
	if min := s.minResults; len(ranked) < min && min <= limit {
		gen.addFallback()
		ranked = domsuggest.Rank(gen.candidates, sctx, limit)
	}

	for src, n := range gen.generated {
		metrics.SuggestCandidates(string(src), n)
	}

	return Response{
		QuerySuggestions: ranked,
		AgentSuggestions: entitySuggestions(sample),
		Meta: Meta{
			CountRequested: limit,
			CountReturned:  len(ranked),
			SourcesUsed:    gen.sourcesUsed(ranked),
		},
	}, nil
}

func (s *Service) serveStale(key string) (Response, bool) {
	resp, ok, _ := s.cache.GetStale(key)
	if !ok {
		return Response{}, false
	}
	metrics.CacheEvent("suggest", "stale")
	resp.Stale = true
	return resp, true
}
