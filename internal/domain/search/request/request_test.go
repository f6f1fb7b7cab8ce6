package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/xpersona/agentdex/internal/domain"
	"github.com/xpersona/agentdex/internal/domain/search/mode"
	"github.com/xpersona/agentdex/internal/domain/search/sortkey"
)

func TestNewDefaults(t *testing.T) {
	r, err := New(Params{Query: "  trading bots  "})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if r.RawQuery() != "trading bots" {
		t.Fatalf("rawQuery = %q", r.RawQuery())
	}
	if r.Sort() != mode.Relevance {
		t.Fatalf("sort = %q", r.Sort())
	}
	if r.Limit() != DefaultLimit {
		t.Fatalf("limit = %d", r.Limit())
	}
	if r.Cursor() != nil {
		t.Fatal("expected nil cursor")
	}
}

func TestNewConfiguredBounds(t *testing.T) {
	r, err := New(Params{DefaultLimit: 10, MaxLimit: 25})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Limit() != 10 {
		t.Fatalf("limit = %d, want configured default 10", r.Limit())
	}

	_, err = New(Params{Limit: 26, MaxLimit: 25})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation above configured max", err)
	}
}

func TestNewCanonicalizesFilters(t *testing.T) {
	r, err := New(Params{
		Protocols:    []string{" mcp ", "", "a2a"},
		Capabilities: []string{" Trading ", "Games"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := r.Protocols(); len(got) != 2 || got[0] != "MCP" || got[1] != "A2A" {
		t.Fatalf("protocols = %v", got)
	}
	if got := r.Capabilities(); len(got) != 2 || got[0] != "trading" || got[1] != "games" {
		t.Fatalf("capabilities = %v", got)
	}
}

func TestNewCursorRoundTrip(t *testing.T) {
	k := sortkey.Key{HomepagePriority: 1, Primary: 2, Rank: 90, CreatedAtNanos: 42, ID: "abc"}

	r, err := New(Params{Cursor: k.Encode()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Cursor() == nil || *r.Cursor() != k {
		t.Fatalf("cursor = %+v", r.Cursor())
	}
}

func TestNewValidation(t *testing.T) {
	minus := -1.0

	tests := []struct {
		name   string
		params Params
	}{
		{name: "query too long", params: Params{Query: strings.Repeat("x", 501)}},
		{name: "unknown sort mode", params: Params{Sort: "magic"}},
		{name: "limit below bounds", params: Params{Limit: -3}},
		{name: "limit above bounds", params: Params{Limit: 51}},
		{name: "minSafety out of range", params: Params{MinSafety: &minus}},
		{name: "malformed cursor", params: Params{Cursor: "not-a-cursor!!"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.params)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}
