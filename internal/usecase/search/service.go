// Package search orchestrates the query-serving pipeline: parse, cache,
// circuit breaker, index read, diversification and facet aggregation.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xpersona/agentdex/internal/cache"
	"github.com/xpersona/agentdex/internal/domain"
	"github.com/xpersona/agentdex/internal/domain/query"
	"github.com/xpersona/agentdex/internal/domain/search/index"
	"github.com/xpersona/agentdex/internal/domain/search/request"
	"github.com/xpersona/agentdex/internal/domain/search/result"
	"github.com/xpersona/agentdex/internal/logger"
	"github.com/xpersona/agentdex/internal/metrics"
)

// incrementTimeout bounds the fire-and-forget frequency write.
const incrementTimeout = 2 * time.Second

// Did-you-mean tuning: pages with fewer results get a suggestion; history
// entries within the edit distance qualify.
const (
	didYouMeanThreshold   = 3
	didYouMeanScanLimit   = 50
	didYouMeanMaxDistance = 2
)

// Service executes validated search requests.
type Service struct {
	idx     Index
	cache   PageCache
	breaker Breaker
	freq    FrequencyRecorder
	history HistoryReader
}

// New creates a search service.
func New(idx Index, pageCache PageCache, brk Breaker, freq FrequencyRecorder) *Service {
	return &Service{idx: idx, cache: pageCache, breaker: brk, freq: freq}
}

// WithHistory enables the history-backed did-you-mean fallback.
func (s *Service) WithHistory(h HistoryReader) *Service {
	s.history = h
	return s
}

// Search runs the full pipeline for one request. On a healthy backend it
// returns a fresh page; when the backend is unavailable it serves the same
// key's last cached page flagged stale, and only fails hard when no cached
// copy exists.
func (s *Service) Search(ctx context.Context, req *request.Request) (result.Page, error) {
	parsed := query.Parse(req.RawQuery())
	s.trackFrequency(ctx, parsed.Normalized)

	key := cacheKey(req, &parsed)
	if page, ok := s.cache.Get(key); ok {
		metrics.CacheEvent("search", "hit")
		return page, nil
	}
	metrics.CacheEvent("search", "miss")

	if !s.breaker.Allow() {
		if page, ok := s.serveStale(key); ok {
			return page, nil
		}
		metrics.DegradedResponse("search")
		return result.NewDegraded(), domain.ErrCircuitOpen
	}

	page, err := s.compute(ctx, req, &parsed)
	if err != nil {
		s.breaker.RecordFailure()
		if page, ok := s.serveStale(key); ok {
			logger.FromContext(ctx).Warn("serving stale search page",
				zap.Error(err))
			return page, nil
		}
		return result.Page{}, fmt.Errorf("%w: %w", domain.ErrBackend, err)
	}
	s.breaker.RecordSuccess()

	s.cache.Set(key, page)
	return page, nil
}

// compute performs the real backend attempt: ranking read, diversification,
// facets and the did-you-mean hint.
func (s *Service) compute(ctx context.Context, req *request.Request, parsed *query.Parsed) (result.Page, error) {
	q := buildIndexQuery(req, parsed)

	records, total, err := s.idx.Search(ctx, q)
	if err != nil {
		return result.Page{}, fmt.Errorf("index search: %w", err)
	}

	hasMore := len(records) > req.Limit()
	if hasMore {
		records = records[:req.Limit()]
	}

	facets, err := s.idx.Facets(ctx, q)
	if err != nil {
		return result.Page{}, fmt.Errorf("index facets: %w", err)
	}

	// The cursor comes from the ranking-order boundary; diversification only
	// reorders what this page displays.
	page := result.NewPage(records, total, hasMore, facets).
		WithRecords(diversify(records))
	if total < didYouMeanThreshold && parsed.HasText() {
		if hint := s.didYouMean(ctx, parsed.Normalized); hint != "" {
			page = page.WithDidYouMean(hint)
		}
	}
	return page, nil
}

// didYouMean suggests an alternative for a near-empty result set: a known
// synonym first, then the closest popular logged query. Best-effort; history
// errors are swallowed.
func (s *Service) didYouMean(ctx context.Context, normalized string) string {
	if syns := query.Synonyms(normalized); len(syns) > 0 {
		return syns[0]
	}
	if s.history == nil || normalized == "" {
		return ""
	}

	prefix := normalized[:1]
	entries, err := s.history.TopMatching(ctx, prefix, didYouMeanScanLimit)
	if err != nil {
		return ""
	}

	best, bestDist := "", didYouMeanMaxDistance+1
	for _, e := range entries {
		if e.Query == normalized {
			continue
		}
		if d := editDistance(normalized, e.Query); d < bestDist {
			best, bestDist = e.Query, d
		}
	}
	return best
}

// editDistance is the Levenshtein distance over bytes, early-capped by the
// shorter dimension of the usual DP table.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func (s *Service) serveStale(key string) (result.Page, bool) {
	page, ok, _ := s.cache.GetStale(key)
	if !ok {
		return result.Page{}, false
	}
	metrics.CacheEvent("search", "stale")
	return page.MarkStale(), true
}

// trackFrequency records the normalized query off the critical path. Failure
// is logged at debug and never surfaces.
func (s *Service) trackFrequency(ctx context.Context, normalized string) {
	if normalized == "" || s.freq == nil {
		return
	}
	log := logger.FromContext(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), incrementTimeout)
		defer cancel()
		if err := s.freq.Increment(ctx, normalized); err != nil {
			log.Debug("query frequency increment failed", zap.Error(err))
		}
	}()
}

// buildIndexQuery merges request filters with inline query operators.
// Operator values extend, never override, the request's explicit filters.
func buildIndexQuery(req *request.Request, parsed *query.Parsed) index.Query {
	q := index.Query{
		Parsed:         parsed,
		Protocols:      req.Protocols(),
		Capabilities:   req.Capabilities(),
		MinSafety:      req.MinSafety(),
		MinRank:        req.MinRank(),
		IncludePending: req.IncludePending(),
		Sort:           req.Sort(),
		After:          req.Cursor(),
		Limit:          req.Limit() + 1,
	}

	f := parsed.Fields
	if f.Protocol != "" {
		q.Protocols = appendMissing(q.Protocols, f.Protocol)
	}
	if f.Capability != "" {
		q.Capabilities = appendMissing(q.Capabilities, f.Capability)
	}
	if f.Lang != "" {
		q.Languages = appendMissing(q.Languages, f.Lang)
	}
	if f.Source != "" {
		q.Source = f.Source
	}
	if f.MinSafety != nil && q.MinSafety == nil {
		q.MinSafety = f.MinSafety
	}
	return q
}

func appendMissing(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

// cacheKey hashes every request-shaping parameter so semantically identical
// requests collide and different ones never do. The query component is the
// canonical parsed form, not the raw text, so extra whitespace or operator
// spacing cannot fragment the cache.
func cacheKey(req *request.Request, parsed *query.Parsed) string {
	params := map[string]string{
		"q":       parsed.Canonical(),
		"proto":   strings.Join(req.Protocols(), ","),
		"caps":    strings.Join(req.Capabilities(), ","),
		"sort":    string(req.Sort()),
		"limit":   strconv.Itoa(req.Limit()),
		"pending": strconv.FormatBool(req.IncludePending()),
		"compact": strconv.FormatBool(req.Compact()),
	}
	if req.Cursor() != nil {
		params["cursor"] = req.Cursor().Encode()
	}
	if req.MinSafety() != nil {
		params["minSafety"] = strconv.FormatFloat(*req.MinSafety(), 'f', -1, 64)
	}
	if req.MinRank() != nil {
		params["minRank"] = strconv.FormatFloat(*req.MinRank(), 'f', -1, 64)
	}
	return cache.Key(params)
}
