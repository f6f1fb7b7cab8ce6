// Package request defines the validated, immutable search request.
package request

import (
	"fmt"
	"strings"

	"github.com/xpersona/agentdex/internal/domain"
	"github.com/xpersona/agentdex/internal/domain/query"
	"github.com/xpersona/agentdex/internal/domain/search/mode"
	"github.com/xpersona/agentdex/internal/domain/search/sortkey"
)

// Search parameter limits, used when the caller supplies no overrides.
const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// Request is a validated search request. Immutable once parsed.
type Request struct {
	rawQuery       string
	protocols      []string
	capabilities   []string
	minSafety      *float64
	minRank        *float64
	sortMode       mode.Mode
	cursor         *sortkey.Key
	limit          int
	includePending bool
	compact        bool
}

// Params carries the unvalidated inbound parameters for New.
type Params struct {
	Query          string
	Protocols      []string
	Capabilities   []string
	MinSafety      *float64
	MinRank        *float64
	Sort           string
	Cursor         string
	Limit          int
	IncludePending bool
	Compact        bool

	// DefaultLimit and MaxLimit override the package bounds when positive.
	// The transport sets them from configuration.
	DefaultLimit int
	MaxLimit     int
}

// New validates and normalizes search parameters.
// Defaults: sort=relevance, limit=20. Out-of-bounds limits and malformed
// cursors are validation errors, never silently clamped.
func New(p Params) (Request, error) {
	if len(p.Query) > query.MaxSearchQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)",
			domain.ErrValidation, query.MaxSearchQueryLength)
	}

	m := mode.Mode(p.Sort)
	if p.Sort == "" {
		m = mode.Relevance
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid sort mode %q", domain.ErrValidation, p.Sort)
	}

	defLimit, maxLimit := DefaultLimit, MaxLimit
	if p.DefaultLimit > 0 {
		defLimit = p.DefaultLimit
	}
	if p.MaxLimit > 0 {
		maxLimit = p.MaxLimit
	}
	limit := p.Limit
	if limit == 0 {
		limit = defLimit
	}
	if limit < 1 || limit > maxLimit {
		return Request{}, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxLimit)
	}

	if err := validateScore("minSafety", p.MinSafety); err != nil {
		return Request{}, err
	}
	if err := validateScore("minRank", p.MinRank); err != nil {
		return Request{}, err
	}

	var cursor *sortkey.Key
	if p.Cursor != "" {
		k, err := sortkey.Decode(p.Cursor)
		if err != nil {
			return Request{}, fmt.Errorf("%w: malformed cursor", domain.ErrValidation)
		}
		cursor = &k
	}

	return Request{
		rawQuery:       strings.TrimSpace(p.Query),
		protocols:      cleanList(p.Protocols, strings.ToUpper),
		capabilities:   cleanList(p.Capabilities, strings.ToLower),
		minSafety:      p.MinSafety,
		minRank:        p.MinRank,
		sortMode:       m,
		cursor:         cursor,
		limit:          limit,
		includePending: p.IncludePending,
		compact:        p.Compact,
	}, nil
}

// RawQuery returns the trimmed query text (may be empty).
func (r *Request) RawQuery() string { return r.rawQuery }

// Protocols returns the protocol membership filter.
func (r *Request) Protocols() []string { return r.protocols }

// Capabilities returns the capability membership filter.
func (r *Request) Capabilities() []string { return r.capabilities }

// MinSafety returns the minimum safety score threshold, if any.
func (r *Request) MinSafety() *float64 { return r.minSafety }

// MinRank returns the minimum overall rank threshold, if any.
func (r *Request) MinRank() *float64 { return r.minRank }

// Sort returns the requested sort mode.
func (r *Request) Sort() mode.Mode { return r.sortMode }

// Cursor returns the decoded keyset cursor (nil for the first page).
func (r *Request) Cursor() *sortkey.Key { return r.cursor }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }

// IncludePending reports whether pending (unverified) agents are included.
func (r *Request) IncludePending() bool { return r.includePending }

// Compact reports whether the caller asked for the compact projection.
func (r *Request) Compact() bool { return r.compact }

func validateScore(name string, v *float64) error {
	if v != nil && (*v < 0 || *v > 100) {
		return fmt.Errorf("%w: %s must be between 0 and 100", domain.ErrValidation, name)
	}
	return nil
}

func cleanList(in []string, canon func(string) string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, canon(s))
		}
	}
	return out
}
