// Package sortkey defines the composite tuple that both orders search
// results and encodes pagination cursors. The tuple forms a strict total
// order: identity is the final, unique tiebreaker, which is what makes
// keyset pagination race-free across pages.
package sortkey

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Key is the ordered tuple (homepage_priority, primary, rank, created_at,
// id). All fields sort descending; comparison is lexicographic.
type Key struct {
	HomepagePriority int     `json:"h"`
	Primary          float64 `json:"p"`
	Rank             float64 `json:"r"`
	CreatedAtNanos   int64   `json:"c"`
	ID               string  `json:"id"`
}

// Compare returns -1, 0 or 1 ordering k against other by ascending
// lexicographic tuple comparison. Two keys compare equal only when every
// field matches, which for distinct records cannot happen because ID is
// unique.
func (k Key) Compare(other Key) int {
	if c := cmpInt(k.HomepagePriority, other.HomepagePriority); c != 0 {
		return c
	}
	if c := cmpFloat(k.Primary, other.Primary); c != 0 {
		return c
	}
	if c := cmpFloat(k.Rank, other.Rank); c != 0 {
		return c
	}
	if c := cmpInt64(k.CreatedAtNanos, other.CreatedAtNanos); c != 0 {
		return c
	}
	switch {
	case k.ID < other.ID:
		return -1
	case k.ID > other.ID:
		return 1
	}
	return 0
}

// Before reports whether k appears after other in descending display order,
// i.e. k belongs to a later page than other.
func (k Key) Before(other Key) bool { return k.Compare(other) < 0 }

// Encode serializes the key into an opaque URL-safe cursor token.
func (k Key) Encode() string {
	raw, _ := json.Marshal(k)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a cursor token produced by Encode. Malformed tokens are an
// error: a corrupted cursor must never be silently clamped, that would
// desynchronize pagination.
func Decode(cursor string) (Key, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return Key{}, fmt.Errorf("decode cursor: %w", err)
	}
	var k Key
	if err := json.Unmarshal(raw, &k); err != nil {
		return Key{}, fmt.Errorf("decode cursor: %w", err)
	}
	if k.ID == "" {
		return Key{}, fmt.Errorf("decode cursor: missing identity")
	}
	return k, nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
