package agentdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/xpersona/agentdex/internal/cache"
	"github.com/xpersona/agentdex/internal/config"
	"github.com/xpersona/agentdex/internal/domain/agent"
	"github.com/xpersona/agentdex/internal/domain/search/request"
	"github.com/xpersona/agentdex/internal/domain/search/result"
	agentsrepo "github.com/xpersona/agentdex/internal/repository/agents"
	"github.com/xpersona/agentdex/internal/repository/querylog"
	"github.com/xpersona/agentdex/internal/resilience/breaker"
	healthuc "github.com/xpersona/agentdex/internal/usecase/health"
	searchuc "github.com/xpersona/agentdex/internal/usecase/search"
	suggestuc "github.com/xpersona/agentdex/internal/usecase/suggest"
)

const (
	defaultCacheTTL     = 30 * time.Second
	searchCacheEntries  = 500
	suggestCacheEntries = 200
)

// Internal interfaces for test substitution.
type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) (result.Page, error)
}

type suggestUseCase interface {
	Suggest(ctx context.Context, p suggestuc.Params) (suggestuc.Response, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type indexStore interface {
	Upsert(ctx context.Context, rec agent.Record) (string, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Client is the agentdex SDK entry point.
type Client struct {
	store      indexStore
	searchSvc  searchUseCase
	suggestSvc suggestUseCase
	healthSvc  healthUseCase

	redis rueidis.Client
}

// New opens the index and wires the full query pipeline in-process.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		cacheTTL: defaultCacheTTL,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.dbPath == "" {
		return nil, errors.New("agentdex: database path required (use WithDatabase)")
	}

	store, err := agentsrepo.Open(cfg.dbPath)
	if err != nil {
		return nil, fmt.Errorf("agentdex: open index: %w", err)
	}

	var (
		redisClient rueidis.Client
		freq        searchuc.FrequencyRecorder
		history     suggestuc.History
		redisPinger healthuc.RedisPinger
	)
	if len(cfg.redisAddrs) > 0 {
		redisClient, err = rueidis.NewClient(rueidis.ClientOption{
			InitAddress: cfg.redisAddrs,
			Password:    cfg.redisPassword,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("agentdex: connect redis: %w", err)
		}
		if err := redisClient.Do(ctx, redisClient.B().Ping().Build()).Error(); err != nil {
			redisClient.Close()
			_ = store.Close()
			return nil, fmt.Errorf("agentdex: redis not ready: %w", err)
		}
		log := querylog.NewRedis(redisClient, "")
		freq, history = log, log
		redisPinger = redisHealth{client: redisClient}
	} else {
		log := querylog.NewMemory()
		freq, history = log, log
	}

	heuristics, err := config.NewHeuristicsWatcher(cfg.heuristicsPath, cfg.logger)
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		_ = store.Close()
		return nil, fmt.Errorf("agentdex: load heuristics: %w", err)
	}

	searchSvc := searchuc.New(store,
		cache.New[result.Page](searchCacheEntries, cfg.cacheTTL),
		breaker.New(breaker.DefaultSearch()), freq).WithHistory(history)
	suggestSvc := suggestuc.New(store, history,
		cache.New[suggestuc.Response](suggestCacheEntries, cfg.cacheTTL),
		breaker.New(breaker.DefaultSuggest()),
		heuristics, cfg.suggestMin, cfg.suggestMax)
	healthSvc := healthuc.New(store, redisPinger)

	return &Client{
		store:      store,
		searchSvc:  searchSvc,
		suggestSvc: suggestSvc,
		healthSvc:  healthSvc,
		redis:      redisClient,
	}, nil
}

// Close releases the index and the Redis connection.
func (c *Client) Close() error {
	if c.redis != nil {
		c.redis.Close()
	}
	return c.store.Close()
}

// Search runs one ranked, paginated query against the index.
func (c *Client) Search(ctx context.Context, p SearchParams) (SearchPage, error) {
	req, err := request.New(request.Params{
		Query:          p.Query,
		Protocols:      p.Protocols,
		Capabilities:   p.Capabilities,
		MinSafety:      p.MinSafety,
		MinRank:        p.MinRank,
		Sort:           p.Sort,
		Cursor:         p.Cursor,
		Limit:          p.Limit,
		IncludePending: p.IncludePending,
	})
	if err != nil {
		return SearchPage{}, err
	}

	page, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return SearchPage{}, err
	}
	return pageToSDK(&page), nil
}

// Suggest returns ranked query completions and matching agents for a
// partial query.
func (c *Client) Suggest(ctx context.Context, p SuggestParams) (Suggestions, error) {
	resp, err := c.suggestSvc.Suggest(ctx, suggestuc.Params{
		Query:  p.Query,
		Limit:  p.Limit,
		Intent: p.Intent,
	})
	if err != nil {
		return Suggestions{}, err
	}
	return suggestionsToSDK(&resp), nil
}

// Upsert writes one agent listing to the index, returning its ID. A zero
// ID gets a generated one; an existing ID replaces the stored listing.
func (c *Client) Upsert(ctx context.Context, a Agent) (string, error) {
	id, err := c.store.Upsert(ctx, recordFromSDK(&a))
	if err != nil {
		return "", fmt.Errorf("agentdex: upsert: %w", err)
	}
	return id, nil
}

// Delete removes an agent listing from the index.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("agentdex: delete: %w", err)
	}
	return nil
}

// Health checks the index and, when configured, Redis.
func (c *Client) Health(ctx context.Context) HealthReport {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthReport{Status: string(report.Status), Checks: checks}
}

type redisHealth struct {
	client rueidis.Client
}

func (r redisHealth) Ping(ctx context.Context) error {
	return r.client.Do(ctx, r.client.B().Ping().Build()).Error()
}

func pageToSDK(page *result.Page) SearchPage {
	records := page.Records()
	agents := make([]Agent, len(records))
	for i := range records {
		agents[i] = agentToSDK(&records[i])
	}
	return SearchPage{
		Agents:     agents,
		Total:      page.Total(),
		HasMore:    page.HasMore(),
		NextCursor: page.NextCursor(),
		Facets:     facetsToSDK(page.FacetCounts()),
		DidYouMean: page.DidYouMean(),
		Stale:      page.Stale(),
		Degraded:   page.Degraded(),
	}
}

func agentToSDK(rec *agent.Record) Agent {
	return Agent{
		ID:              rec.ID,
		Name:            rec.Name,
		Slug:            rec.Slug,
		Description:     rec.Description,
		HomepageURL:     rec.HomepageURL,
		Protocols:       rec.Protocols,
		Capabilities:    rec.Capabilities,
		Languages:       rec.Languages,
		Source:          rec.Source,
		SafetyScore:     rec.SafetyScore,
		PopularityScore: rec.PopularityScore,
		FreshnessScore:  rec.FreshnessScore,
		OverallRank:     rec.OverallRank,
		Status:          rec.Status,
		CreatedAt:       rec.CreatedAt,
		Snippet:         rec.Snippet,
	}
}

func recordFromSDK(a *Agent) agent.Record {
	return agent.Record{
		ID:              a.ID,
		Name:            a.Name,
		Slug:            a.Slug,
		Description:     a.Description,
		HomepageURL:     a.HomepageURL,
		Protocols:       a.Protocols,
		Capabilities:    a.Capabilities,
		Languages:       a.Languages,
		Source:          a.Source,
		SafetyScore:     a.SafetyScore,
		PopularityScore: a.PopularityScore,
		FreshnessScore:  a.FreshnessScore,
		OverallRank:     a.OverallRank,
		Status:          a.Status,
		CreatedAt:       a.CreatedAt,
	}
}

func facetsToSDK(f result.Facets) Facets {
	return Facets{
		Protocols:    bucketsToSDK(f.Protocols),
		Capabilities: bucketsToSDK(f.Capabilities),
		Languages:    bucketsToSDK(f.Languages),
	}
}

func bucketsToSDK(in []result.Bucket) []FacetBucket {
	if len(in) == 0 {
		return nil
	}
	out := make([]FacetBucket, len(in))
	for i, b := range in {
		out[i] = FacetBucket{Value: b.Value, Count: b.Count}
	}
	return out
}

func suggestionsToSDK(resp *suggestuc.Response) Suggestions {
	agents := make([]AgentSuggestion, len(resp.AgentSuggestions))
	for i, a := range resp.AgentSuggestions {
		agents[i] = AgentSuggestion{
			ID:          a.ID,
			Name:        a.Name,
			Slug:        a.Slug,
			Description: a.Description,
			Protocols:   a.Protocols,
		}
	}
	return Suggestions{
		Queries:     resp.QuerySuggestions,
		Agents:      agents,
		SourcesUsed: resp.Meta.SourcesUsed,
		Stale:       resp.Stale,
		Degraded:    resp.Degraded,
	}
}
