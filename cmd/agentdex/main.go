package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/xpersona/agentdex/internal/cache"
	"github.com/xpersona/agentdex/internal/config"
	"github.com/xpersona/agentdex/internal/domain/search/result"
	logpkg "github.com/xpersona/agentdex/internal/logger"
	"github.com/xpersona/agentdex/internal/metrics"
	agentsrepo "github.com/xpersona/agentdex/internal/repository/agents"
	"github.com/xpersona/agentdex/internal/repository/querylog"
	"github.com/xpersona/agentdex/internal/resilience/breaker"
	"github.com/xpersona/agentdex/internal/resilience/ratelimit"
	chiTransport "github.com/xpersona/agentdex/internal/transport/chi"
	healthuc "github.com/xpersona/agentdex/internal/usecase/health"
	searchuc "github.com/xpersona/agentdex/internal/usecase/search"
	suggestuc "github.com/xpersona/agentdex/internal/usecase/suggest"
	"github.com/xpersona/agentdex/internal/version"
)

// cachePruneInterval bounds how long expired page entries linger.
const cachePruneInterval = time.Minute

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting agentdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_path", cfg.Database.Path),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	store, err := agentsrepo.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to open agent index", zap.Error(err))
	}
	defer func() { _ = store.Close() }()
	logger.Info("Agent index opened")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional: without it query history and rate limiting run
	// in-process only.
	var (
		redisClient rueidis.Client
		freq        searchuc.FrequencyRecorder
		history     suggestuc.History
		limiter     ratelimit.Limiter
		redisPinger healthuc.RedisPinger
	)
	windowLen := time.Duration(cfg.RateLimit.WindowSec) * time.Second
	if len(cfg.Redis.Addrs) > 0 {
		redisClient, err = rueidis.NewClient(rueidis.ClientOption{
			InitAddress: cfg.Redis.Addrs,
			Password:    cfg.Redis.Password,
		})
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()

		log := querylog.NewRedis(redisClient, "")
		freq, history = log, log
		limiter = &ratelimit.Fallback{
			Primary:   ratelimit.NewRedis(redisClient, windowLen, ""),
			Secondary: ratelimit.NewMemory(windowLen),
			OnError: func(err error) {
				logger.Warn("redis rate limiter failed, using in-memory fallback", zap.Error(err))
			},
		}
		redisPinger = redisHealth{client: redisClient}
		logger.Info("Connected to redis")
	} else {
		log := querylog.NewMemory()
		freq, history = log, log
		limiter = ratelimit.NewMemory(windowLen)
		logger.Info("No redis configured, using in-process history and rate limiting")
	}

	searchCache := cache.New[result.Page](
		cfg.Cache.SearchEntries, time.Duration(cfg.Cache.SearchTTLSec)*time.Second)
	suggestCache := cache.New[suggestuc.Response](
		cfg.Cache.SuggestEntries, time.Duration(cfg.Cache.SuggestTTLSec)*time.Second)
	go pruneLoop(ctx, searchCache.Prune, suggestCache.Prune)

	searchBreaker := breaker.New(breakerConfig(cfg.Breaker.Search))
	searchBreaker.OnTransition(breakerGauge("search"))
	suggestBreaker := breaker.New(breakerConfig(cfg.Breaker.Suggest))
	suggestBreaker.OnTransition(breakerGauge("suggest"))

	heuristics, err := config.NewHeuristicsWatcher(cfg.Suggest.HeuristicsPath, logger)
	if err != nil {
		logger.Fatal("Failed to load suggestion heuristics", zap.Error(err))
	}
	go func() {
		if err := heuristics.Watch(ctx); err != nil {
			logger.Warn("heuristics watcher stopped", zap.Error(err))
		}
	}()

	searchSvc := searchuc.New(store, searchCache, searchBreaker, freq).WithHistory(history)
	suggestSvc := suggestuc.New(store, history, suggestCache, suggestBreaker,
		heuristics, cfg.Suggest.MinResults, cfg.Suggest.MaxResults)
	healthSvc := healthuc.New(store, redisPinger)

	server := chiTransport.NewServer(searchSvc, suggestSvc, healthSvc, logger).
		WithPageSizes(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)
	if env != "prod" {
		server = server.WithVerboseErrors()
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.RateLimitMiddleware(limiter, chiTransport.RateLimitConfig{
		AnonymousLimit:     cfg.RateLimit.Anonymous,
		AuthenticatedLimit: cfg.RateLimit.Authenticated,
		APIKeys:            cfg.Auth.APIKeys,
	}, logger))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func breakerConfig(t config.BreakerTuning) breaker.Config {
	return breaker.Config{
		FailureThreshold: t.FailureThreshold,
		Window:           time.Duration(t.WindowSec) * time.Second,
		Cooldown:         time.Duration(t.CooldownSec) * time.Second,
	}
}

// breakerGauge maps breaker states onto the exported gauge.
func breakerGauge(endpoint string) func(breaker.State) {
	return func(s breaker.State) {
		var v float64
		switch s {
		case breaker.StateHalfOpen:
			v = 1
		case breaker.StateOpen:
			v = 2
		}
		metrics.BreakerState(endpoint, v)
		metrics.BreakerTransition(endpoint, string(s))
	}
}

func pruneLoop(ctx context.Context, prune ...func() int) {
	ticker := time.NewTicker(cachePruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range prune {
				p()
			}
		}
	}
}

// redisHealth adapts the rueidis client to the health check interface.
type redisHealth struct {
	client rueidis.Client
}

func (r redisHealth) Ping(ctx context.Context) error {
	return r.client.Do(ctx, r.client.B().Ping().Build()).Error()
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// One canonical log line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
