package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xpersona/agentdex/internal/domain"
	"github.com/xpersona/agentdex/internal/domain/agent"
	"github.com/xpersona/agentdex/internal/domain/search/request"
	"github.com/xpersona/agentdex/internal/domain/search/sortkey"
	"github.com/xpersona/agentdex/internal/repository/querylog"
)

func testRecords(n int) []agent.Record {
	out := make([]agent.Record, n)
	for i := range out {
		out[i] = agent.Record{
			ID:          string(rune('a' + i)),
			Name:        "Agent " + string(rune('A'+i)),
			Source:      "GITHUB",
			OverallRank: float64(100 - i),
			CreatedAt:   time.Unix(1700000000, 0),
		}
	}
	return out
}

func mustRequest(t *testing.T, p request.Params) *request.Request {
	t.Helper()
	req, err := request.New(p)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &req
}

func TestSearchHappyPath(t *testing.T) {
	idx := &mockIndex{records: testRecords(3), total: 3}
	brk := &mockBreaker{allow: true}
	svc := New(idx, newMockCache(), brk, nil)

	req := mustRequest(t, request.Params{Query: "agent", Limit: 10})
	page, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(page.Records()) != 3 || page.Total() != 3 {
		t.Fatalf("records = %d, total = %d", len(page.Records()), page.Total())
	}
	if page.HasMore() || page.NextCursor() != "" {
		t.Fatalf("hasMore = %v, cursor = %q", page.HasMore(), page.NextCursor())
	}
	if brk.successes != 1 || brk.failures != 0 {
		t.Fatalf("breaker: %d successes, %d failures", brk.successes, brk.failures)
	}
}

func TestSearchHasMoreTrimsAndSetsCursor(t *testing.T) {
	idx := &mockIndex{records: testRecords(4), total: 9}
	svc := New(idx, newMockCache(), &mockBreaker{allow: true}, nil)

	req := mustRequest(t, request.Params{Limit: 3})
	page, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(page.Records()) != 3 {
		t.Fatalf("records = %d, want trimmed to 3", len(page.Records()))
	}
	if !page.HasMore() || page.NextCursor() == "" {
		t.Fatalf("hasMore = %v, cursor = %q", page.HasMore(), page.NextCursor())
	}
	if idx.lastQuery.Limit != 4 {
		t.Fatalf("index limit = %d, want pageSize+1", idx.lastQuery.Limit)
	}
}

func TestSearchCursorAnchoredToRankedBoundary(t *testing.T) {
	recs := testRecords(5)
	recs[3].Source = "MANUAL"
	idx := &mockIndex{records: recs, total: 9}
	svc := New(idx, newMockCache(), &mockBreaker{allow: true}, nil)

	req := mustRequest(t, request.Params{Limit: 4})
	page, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	// The source cap demotes the third GITHUB record behind the MANUAL one,
	// so the last displayed record is not the ranking-order boundary.
	got := page.Records()
	if got[len(got)-1].ID != recs[2].ID {
		t.Fatalf("last displayed = %q, want demoted record %q", got[len(got)-1].ID, recs[2].ID)
	}

	key, err := sortkey.Decode(page.NextCursor())
	if err != nil {
		t.Fatalf("Decode cursor: %v", err)
	}
	if key.ID != recs[3].ID {
		t.Fatalf("cursor ID = %q, want ranked boundary %q", key.ID, recs[3].ID)
	}
}

func TestSearchCacheHitSkipsBackend(t *testing.T) {
	idx := &mockIndex{records: testRecords(2), total: 2}
	c := newMockCache()
	svc := New(idx, c, &mockBreaker{allow: true}, nil)

	req := mustRequest(t, request.Params{Query: "trading"})
	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("first Search: %v", err)
	}
	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("second Search: %v", err)
	}

	if idx.searchCalls != 1 {
		t.Fatalf("searchCalls = %d, want cache to absorb the second", idx.searchCalls)
	}
}

func TestSearchCacheHitAcrossCosmeticWhitespace(t *testing.T) {
	idx := &mockIndex{records: testRecords(2), total: 2}
	svc := New(idx, newMockCache(), &mockBreaker{allow: true}, nil)

	if _, err := svc.Search(context.Background(), mustRequest(t, request.Params{Query: "trading bots"})); err != nil {
		t.Fatalf("first Search: %v", err)
	}
	if _, err := svc.Search(context.Background(), mustRequest(t, request.Params{Query: "  Trading   bots "})); err != nil {
		t.Fatalf("second Search: %v", err)
	}

	if idx.searchCalls != 1 {
		t.Fatalf("searchCalls = %d, want whitespace variants to share a cache entry", idx.searchCalls)
	}
}

func TestSearchCircuitOpenNoBackendAttempt(t *testing.T) {
	idx := &mockIndex{records: testRecords(2), total: 2}
	svc := New(idx, newMockCache(), &mockBreaker{allow: false}, nil)

	req := mustRequest(t, request.Params{Query: "trading"})
	page, err := svc.Search(context.Background(), req)

	if !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if len(page.Records()) != 0 || page.HasMore() || !page.Degraded() {
		t.Fatalf("page = %+v, want empty degraded page", page)
	}
	if idx.searchCalls != 0 {
		t.Fatalf("searchCalls = %d, want no backend attempt while open", idx.searchCalls)
	}
}

func TestSearchCircuitOpenServesStale(t *testing.T) {
	idx := &mockIndex{records: testRecords(2), total: 2}
	c := newMockCache()
	brk := &mockBreaker{allow: true}
	svc := New(idx, c, brk, nil)

	req := mustRequest(t, request.Params{Query: "trading"})
	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("warm-up Search: %v", err)
	}

	c.expireAll()
	brk.allow = false

	page, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !page.Stale() {
		t.Fatal("expected stale flag")
	}
	if len(page.Records()) != 2 {
		t.Fatalf("records = %d, want cached page content", len(page.Records()))
	}
	if idx.searchCalls != 1 {
		t.Fatalf("searchCalls = %d, want no second attempt", idx.searchCalls)
	}
}

func TestSearchBackendFailureFallsBackToStale(t *testing.T) {
	idx := &mockIndex{records: testRecords(2), total: 2}
	c := newMockCache()
	brk := &mockBreaker{allow: true}
	svc := New(idx, c, brk, nil)

	req := mustRequest(t, request.Params{Query: "trading"})
	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("warm-up Search: %v", err)
	}

	c.expireAll()
	idx.err = errors.New("disk I/O error")

	page, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !page.Stale() {
		t.Fatal("expected stale flag")
	}
	if brk.failures != 1 {
		t.Fatalf("failures = %d, want failure recorded", brk.failures)
	}
}

func TestSearchBackendFailureWithoutCacheIsBackendError(t *testing.T) {
	idx := &mockIndex{err: errors.New("disk I/O error")}
	brk := &mockBreaker{allow: true}
	svc := New(idx, newMockCache(), brk, nil)

	req := mustRequest(t, request.Params{Query: "trading"})
	_, err := svc.Search(context.Background(), req)

	if !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("err = %v, want ErrBackend", err)
	}
	if brk.failures != 1 {
		t.Fatalf("failures = %d", brk.failures)
	}
}

func TestSearchDidYouMeanOnEmptyResults(t *testing.T) {
	idx := &mockIndex{records: nil, total: 0}
	svc := New(idx, newMockCache(), &mockBreaker{allow: true}, nil)

	req := mustRequest(t, request.Params{Query: "llm"})
	page, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.DidYouMean() != "large language model" {
		t.Fatalf("didYouMean = %q", page.DidYouMean())
	}
}

func TestSearchDidYouMeanFromHistory(t *testing.T) {
	idx := &mockIndex{records: nil, total: 0}
	history := &mockHistory{entries: []querylog.Entry{
		{Query: "weather", Count: 80},
		{Query: "tradding", Count: 10},
		{Query: "trading", Count: 60},
	}}
	svc := New(idx, newMockCache(), &mockBreaker{allow: true}, nil).WithHistory(history)

	// No synonym for "tradin"; the closest logged query wins.
	req := mustRequest(t, request.Params{Query: "tradin"})
	page, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.DidYouMean() != "trading" {
		t.Fatalf("didYouMean = %q", page.DidYouMean())
	}
}

func TestSearchDidYouMeanHistoryErrorIgnored(t *testing.T) {
	idx := &mockIndex{records: nil, total: 0}
	history := &mockHistory{err: errors.New("redis down")}
	svc := New(idx, newMockCache(), &mockBreaker{allow: true}, nil).WithHistory(history)

	req := mustRequest(t, request.Params{Query: "tradin"})
	page, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.DidYouMean() != "" {
		t.Fatalf("didYouMean = %q, want empty", page.DidYouMean())
	}
}

func TestSearchOperatorFiltersMergeIntoQuery(t *testing.T) {
	idx := &mockIndex{records: testRecords(1), total: 1}
	svc := New(idx, newMockCache(), &mockBreaker{allow: true}, nil)

	req := mustRequest(t, request.Params{Query: "protocol:openclaw safety:>=70 trading"})
	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := idx.lastQuery
	if len(q.Protocols) != 1 || q.Protocols[0] != "OPENCLEW" {
		t.Fatalf("protocols = %v", q.Protocols)
	}
	if q.MinSafety == nil || *q.MinSafety != 70 {
		t.Fatalf("minSafety = %v", q.MinSafety)
	}
}

func TestSearchTracksQueryFrequency(t *testing.T) {
	idx := &mockIndex{records: testRecords(1), total: 1}
	freq := newMockFrequency(1)
	svc := New(idx, newMockCache(), &mockBreaker{allow: true}, freq)

	req := mustRequest(t, request.Params{Query: "  Trading   Bots "})
	if _, err := svc.Search(context.Background(), req); err != nil {
		t.Fatalf("Search: %v", err)
	}

	select {
	case <-freq.done:
	case <-time.After(2 * time.Second):
		t.Fatal("frequency increment never happened")
	}
	got := freq.recorded()
	if len(got) != 1 || got[0] != "trading bots" {
		t.Fatalf("recorded = %v", got)
	}
}

func TestCacheKeyDistinguishesParameters(t *testing.T) {
	idx := &mockIndex{records: testRecords(1), total: 1}
	svc := New(idx, newMockCache(), &mockBreaker{allow: true}, nil)

	a := mustRequest(t, request.Params{Query: "trading", Sort: "rank"})
	b := mustRequest(t, request.Params{Query: "trading", Sort: "safety"})

	if _, err := svc.Search(context.Background(), a); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := svc.Search(context.Background(), b); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if idx.searchCalls != 2 {
		t.Fatalf("searchCalls = %d, want different sort modes to miss", idx.searchCalls)
	}
}
