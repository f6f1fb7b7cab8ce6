// Package chi exposes the search and autocomplete pipelines over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xpersona/agentdex/internal/domain"
	"github.com/xpersona/agentdex/internal/domain/agent"
	"github.com/xpersona/agentdex/internal/domain/search/request"
	"github.com/xpersona/agentdex/internal/domain/search/result"
	healthuc "github.com/xpersona/agentdex/internal/usecase/health"
	searchuc "github.com/xpersona/agentdex/internal/usecase/search"
	suggestuc "github.com/xpersona/agentdex/internal/usecase/suggest"
)

// Error codes returned to clients.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeRateLimited      = "rate_limited"
	codeDegraded         = "degraded"
	codeSearchDegraded   = "search_degraded"
	codeSuggestDegraded  = "suggest_degraded"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server wires the use case services to HTTP handlers.
type Server struct {
	search  *searchuc.Service
	suggest *suggestuc.Service
	health  *healthuc.Service
	logger  *zap.Logger
	verbose bool

	pageDefault int
	pageMax     int
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	suggest *suggestuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		search:  search,
		suggest: suggest,
		health:  health,
		logger:  logger,
	}
}

// WithVerboseErrors includes backend error text in 5xx responses. Enabled
// outside production; production responses stay sanitized.
func (s *Server) WithVerboseErrors() *Server {
	s.verbose = true
	return s
}

// WithPageSizes sets the configured default and maximum search page size.
// Zero values keep the built-in bounds.
func (s *Server) WithPageSizes(def, max int) *Server {
	s.pageDefault = def
	s.pageMax = max
	return s
}

// Mount attaches all routes to the router.
func (s *Server) Mount(r chirouter.Router) {
	r.Get("/v1/search", s.SearchAgents)
	r.Get("/v1/suggest", s.SuggestQueries)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchAgents handles GET /v1/search.
func (s *Server) SearchAgents(w http.ResponseWriter, r *http.Request) {
	params, err := searchParamsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	params.DefaultLimit = s.pageDefault
	params.MaxLimit = s.pageMax

	req, err := request.New(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	page, err := s.search.Search(r.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrCircuitOpen) {
			// The degraded envelope still renders so clients keep a
			// stable shape during an outage.
			resp := searchResponseFromPage(&page, req.Compact())
			resp.Code = codeSearchDegraded
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponseFromPage(&page, req.Compact()))
}

// SuggestQueries handles GET /v1/suggest.
func (s *Server) SuggestQueries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	resp, err := s.suggest.Suggest(r.Context(), suggestuc.Params{
		Query:  q.Get("q"),
		Limit:  limit,
		Intent: q.Get("intent"),
	})
	if err != nil {
		if errors.Is(err, domain.ErrCircuitOpen) {
			writeJSON(w, http.StatusServiceUnavailable, struct {
				suggestuc.Response
				Code string `json:"code"`
			}{resp, codeSuggestDegraded})
			return
		}
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))

	var rle *domain.RateLimitError
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
	case errors.As(err, &rle):
		w.Header().Set("Retry-After", strconv.Itoa(rle.RetryAfterSec))
		writeError(w, http.StatusTooManyRequests, codeRateLimited, domain.ErrRateLimited.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, codeRateLimited, domain.ErrRateLimited.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeBadRequest, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrCircuitOpen):
		writeError(w, http.StatusServiceUnavailable, codeDegraded, domain.ErrCircuitOpen.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		msg := "internal error"
		if s.verbose {
			msg = err.Error()
		}
		writeError(w, http.StatusInternalServerError, codeInternalError, msg)
	}
}

// searchParamsFromQuery reads the query string into unvalidated request
// parameters. Type errors are reported here; semantic validation belongs
// to request.New.
func searchParamsFromQuery(r *http.Request) (request.Params, error) {
	q := r.URL.Query()

	p := request.Params{
		Query:        q.Get("q"),
		Protocols:    splitList(q.Get("protocols")),
		Capabilities: splitList(q.Get("capabilities")),
		Sort:         q.Get("sort"),
		Cursor:       q.Get("cursor"),
		Compact:      q.Get("fields") == "compact",
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return request.Params{}, errors.New("limit must be an integer")
		}
		p.Limit = n
	}
	if raw := q.Get("minSafety"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return request.Params{}, errors.New("minSafety must be a number")
		}
		p.MinSafety = &f
	}
	if raw := q.Get("minRank"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return request.Params{}, errors.New("minRank must be a number")
		}
		p.MinRank = &f
	}
	if raw := q.Get("includePending"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return request.Params{}, errors.New("includePending must be a boolean")
		}
		p.IncludePending = b
	}

	return p, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type agentScores struct {
	Safety     int     `json:"safety"`
	Popularity int     `json:"popularity"`
	Freshness  int     `json:"freshness"`
	Overall    float64 `json:"overall"`
}

type agentItem struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	Description  string       `json:"description,omitempty"`
	HomepageURL  string       `json:"homepageUrl,omitempty"`
	Protocols    []string     `json:"protocols,omitempty"`
	Capabilities []string     `json:"capabilities,omitempty"`
	Languages    []string     `json:"languages,omitempty"`
	Scores       *agentScores `json:"scores,omitempty"`
	Status       string       `json:"status,omitempty"`
	CreatedAt    *time.Time   `json:"createdAt,omitempty"`
	Snippet      string       `json:"snippet,omitempty"`

	// Compact projection keeps only identity and rank.
	OverallRank *float64 `json:"overallRank,omitempty"`
}

type pagination struct {
	Total      int    `json:"total"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}

type searchResponse struct {
	Results    []agentItem   `json:"results"`
	Pagination pagination    `json:"pagination"`
	Facets     result.Facets `json:"facets"`
	DidYouMean string        `json:"didYouMean,omitempty"`
	Stale      bool          `json:"stale,omitempty"`
	Degraded   bool          `json:"degraded,omitempty"`
	// Code names the degradation reason on 503 responses.
	Code string `json:"code,omitempty"`
}

func searchResponseFromPage(page *result.Page, compact bool) searchResponse {
	records := page.Records()
	items := make([]agentItem, len(records))
	for i := range records {
		if compact {
			items[i] = compactItem(&records[i])
		} else {
			items[i] = fullItem(&records[i])
		}
	}

	return searchResponse{
		Results: items,
		Pagination: pagination{
			Total:      page.Total(),
			HasMore:    page.HasMore(),
			NextCursor: page.NextCursor(),
		},
		Facets:     page.FacetCounts(),
		DidYouMean: page.DidYouMean(),
		Stale:      page.Stale(),
		Degraded:   page.Degraded(),
	}
}

func fullItem(rec *agent.Record) agentItem {
	created := rec.CreatedAt
	return agentItem{
		ID:           rec.ID,
		Name:         rec.Name,
		Slug:         rec.Slug,
		Description:  rec.Description,
		HomepageURL:  rec.HomepageURL,
		Protocols:    rec.Protocols,
		Capabilities: rec.Capabilities,
		Languages:    rec.Languages,
		Scores: &agentScores{
			Safety:     rec.SafetyScore,
			Popularity: rec.PopularityScore,
			Freshness:  rec.FreshnessScore,
			Overall:    rec.OverallRank,
		},
		Status:    rec.Status,
		CreatedAt: &created,
		Snippet:   rec.Snippet,
	}
}

func compactItem(rec *agent.Record) agentItem {
	rank := rec.OverallRank
	return agentItem{
		ID:          rec.ID,
		Name:        rec.Name,
		Slug:        rec.Slug,
		OverallRank: &rank,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
