package search

import (
	"context"
	"sync"

	"github.com/xpersona/agentdex/internal/domain/agent"
	"github.com/xpersona/agentdex/internal/domain/search/index"
	"github.com/xpersona/agentdex/internal/domain/search/result"
	"github.com/xpersona/agentdex/internal/repository/querylog"
)

// mockIndex is a hand-written test double for the datastore.
type mockIndex struct {
	records []agent.Record
	total   int
	err     error
	facets  result.Facets

	searchCalls int
	facetCalls  int
	lastQuery   index.Query
}

func (m *mockIndex) Search(_ context.Context, q index.Query) ([]agent.Record, int, error) {
	m.searchCalls++
	m.lastQuery = q
	if m.err != nil {
		return nil, 0, m.err
	}
	records := m.records
	if len(records) > q.Limit {
		records = records[:q.Limit]
	}
	return records, m.total, nil
}

func (m *mockIndex) Facets(_ context.Context, q index.Query) (result.Facets, error) {
	m.facetCalls++
	if m.err != nil {
		return result.Facets{}, m.err
	}
	return m.facets, nil
}

// mockCache is a map-backed page cache with controllable staleness.
type mockCache struct {
	fresh map[string]result.Page
	old   map[string]result.Page
}

func newMockCache() *mockCache {
	return &mockCache{fresh: make(map[string]result.Page), old: make(map[string]result.Page)}
}

func (m *mockCache) Get(key string) (result.Page, bool) {
	p, ok := m.fresh[key]
	return p, ok
}

func (m *mockCache) GetStale(key string) (result.Page, bool, bool) {
	if p, ok := m.fresh[key]; ok {
		return p, true, false
	}
	p, ok := m.old[key]
	return p, ok, true
}

func (m *mockCache) Set(key string, value result.Page) {
	m.fresh[key] = value
}

// expireAll moves every fresh entry to the stale shelf.
func (m *mockCache) expireAll() {
	for k, v := range m.fresh {
		m.old[k] = v
		delete(m.fresh, k)
	}
}

// mockBreaker records outcomes without any windowing logic.
type mockBreaker struct {
	allow     bool
	successes int
	failures  int
}

func (m *mockBreaker) Allow() bool    { return m.allow }
func (m *mockBreaker) RecordSuccess() { m.successes++ }
func (m *mockBreaker) RecordFailure() { m.failures++ }

// mockHistory serves canned frequency-log entries.
type mockHistory struct {
	entries []querylog.Entry
	err     error
}

func (m *mockHistory) TopMatching(context.Context, string, int) ([]querylog.Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

// mockFrequency captures increments synchronously for assertions.
type mockFrequency struct {
	mu      sync.Mutex
	queries []string
	done    chan struct{}
}

func newMockFrequency(capacity int) *mockFrequency {
	return &mockFrequency{done: make(chan struct{}, capacity)}
}

func (m *mockFrequency) Increment(_ context.Context, normalized string) error {
	m.mu.Lock()
	m.queries = append(m.queries, normalized)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func (m *mockFrequency) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.queries))
	copy(out, m.queries)
	return out
}
