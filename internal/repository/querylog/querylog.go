// Package querylog tracks how often normalized queries are searched. The
// counts feed the suggestion engine's history source. Writes happen off the
// request's critical path and are allowed to fail silently.
package querylog

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Entry is one historical query with its accumulated search count.
type Entry struct {
	Query string
	Count float64
}

// defaultMemoryEntries caps the in-memory log: query text is user-controlled
// and must not grow the map without bound.
const defaultMemoryEntries = 10000

// Memory is an in-process frequency log for single-node deployments and
// tests.
type Memory struct {
	mu     sync.RWMutex
	counts map[string]float64
	max    int
}

// NewMemory creates an empty in-memory log.
func NewMemory() *Memory {
	return &Memory{counts: make(map[string]float64), max: defaultMemoryEntries}
}

// WithCapacity overrides the entry cap.
func (m *Memory) WithCapacity(n int) *Memory {
	if n > 0 {
		m.max = n
	}
	return m
}

// Increment bumps the count for a normalized query. At capacity the least
// searched entry is evicted so new queries can still accumulate history.
func (m *Memory) Increment(_ context.Context, normalized string) error {
	if normalized == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.counts[normalized]; !ok && len(m.counts) >= m.max {
		m.evictColdest()
	}
	m.counts[normalized]++
	return nil
}

// evictColdest removes the lowest-count entry, ties broken lexicographically
// so eviction is deterministic. Caller holds the lock.
func (m *Memory) evictColdest() {
	victim := ""
	var victimCount float64
	for q, c := range m.counts {
		if victim == "" || c < victimCount || (c == victimCount && q > victim) {
			victim, victimCount = q, c
		}
	}
	if victim != "" {
		delete(m.counts, victim)
	}
}

// TopMatching returns up to limit entries whose query starts with prefix,
// most searched first. Ties order lexicographically for determinism.
func (m *Memory) TopMatching(_ context.Context, prefix string, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for q, c := range m.counts {
		if strings.HasPrefix(q, prefix) {
			out = append(out, Entry{Query: q, Count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
