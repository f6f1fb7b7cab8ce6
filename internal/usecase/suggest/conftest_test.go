package suggest

import (
	"context"

	"github.com/xpersona/agentdex/internal/domain/agent"
	domsuggest "github.com/xpersona/agentdex/internal/domain/suggest"
	"github.com/xpersona/agentdex/internal/repository/querylog"
)

type mockSampler struct {
	records []agent.Record
	err     error
	calls   int
}

func (m *mockSampler) SuggestSample(context.Context, string, int) ([]agent.Record, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

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

type mockBreaker struct {
	allow     bool
	successes int
	failures  int
}

func (m *mockBreaker) Allow() bool    { return m.allow }
func (m *mockBreaker) RecordSuccess() { m.successes++ }
func (m *mockBreaker) RecordFailure() { m.failures++ }

type mockCache struct {
	fresh map[string]Response
	old   map[string]Response
}

func newMockCache() *mockCache {
	return &mockCache{fresh: make(map[string]Response), old: make(map[string]Response)}
}

func (m *mockCache) Get(key string) (Response, bool) {
	r, ok := m.fresh[key]
	return r, ok
}

func (m *mockCache) GetStale(key string) (Response, bool, bool) {
	if r, ok := m.fresh[key]; ok {
		return r, true, false
	}
	r, ok := m.old[key]
	return r, ok, true
}

func (m *mockCache) Set(key string, value Response) {
	m.fresh[key] = value
}

func (m *mockCache) expireAll() {
	for k, v := range m.fresh {
		m.old[k] = v
		delete(m.fresh, k)
	}
}

type staticHeuristics struct{}

func (staticHeuristics) Heuristics() domsuggest.Heuristics {
	return domsuggest.DefaultHeuristics()
}
