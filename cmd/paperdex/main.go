package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/config"
	dbRedis "github.com/kailas-cloud/paperdex/internal/db/redis"
	"github.com/kailas-cloud/paperdex/internal/domain"
	logpkg "github.com/kailas-cloud/paperdex/internal/logger"
	"github.com/kailas-cloud/paperdex/internal/metrics"
	"github.com/kailas-cloud/paperdex/internal/repository/embcache"
	"github.com/kailas-cloud/paperdex/internal/repository/papercache"
	"github.com/kailas-cloud/paperdex/internal/source/arxiv"
	"github.com/kailas-cloud/paperdex/internal/source/pubmed"
	chiTransport "github.com/kailas-cloud/paperdex/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/paperdex/internal/transport/openai"
	cacheuc "github.com/kailas-cloud/paperdex/internal/usecase/cache"
	fetchuc "github.com/kailas-cloud/paperdex/internal/usecase/fetch"
	healthuc "github.com/kailas-cloud/paperdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/paperdex/internal/usecase/search"
	summarizeuc "github.com/kailas-cloud/paperdex/internal/usecase/summarize"
	"github.com/kailas-cloud/paperdex/internal/version"
	"github.com/kailas-cloud/paperdex/web"
)

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

	logger.Info("Starting paperdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Register domain metrics explicitly (no init())
	metrics.RegisterDomainMetrics()

	// Connect the vector store. Unlike the LLM key, the store is optional:
	// an unreachable or unconfigured store starts the service degraded.
	ctx := context.Background()
	store := connectStore(ctx, cfg, logger)
	if store != nil {
		defer store.Close()
	}

	embedder := buildEmbedder(cfg, store, logger)

	chat := openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.ChatModel,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Logger:            logger,
	})

	// Upstream catalogs share one HTTP client; per-call deadlines come
	// from the fetch service.
	httpClient := &http.Client{Timeout: time.Duration(cfg.Sources.TimeoutSec) * time.Second}
	sources := []fetchuc.Source{
		arxiv.New(httpClient, cfg.Sources.UserAgent, cfg.Sources.MaxResults),
		pubmed.New(httpClient, cfg.Sources.UserAgent, cfg.Sources.PubmedAPIKey, cfg.Sources.MaxResults),
	}

	// Pass nil interface (not typed nil pointer!) if no store is configured.
	var paperRepo cacheuc.Repository
	var cachePinger healthuc.CachePinger
	if store != nil {
		repo := papercache.New(store, cfg.Cache.KeyPrefix, cfg.Cache.Collection)
		paperRepo = repo
		cachePinger = repo

		// Best effort: the cache service retries lazily on first insert.
		if err := repo.EnsureIndex(ctx, cfg.LLM.EmbeddingDimensions); err != nil {
			logger.Warn("Failed to create vector index at startup", zap.Error(err))
		}
	}

	fetchSvc := fetchuc.New(sources, time.Duration(cfg.Sources.TimeoutSec)*time.Second, logger)
	summarizeSvc := summarizeuc.New(chat, time.Duration(cfg.LLM.TimeoutSec)*time.Second, logger)
	cacheSvc := cacheuc.New(cacheuc.Config{
		Repo:       paperRepo,
		Embedder:   embedder,
		Dimensions: cfg.LLM.EmbeddingDimensions,
		LookupK:    cfg.Cache.LookupK,
		Collection: cfg.Cache.Collection,
		Timeout:    time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	searchSvc := searchuc.New(cacheSvc, fetchSvc, summarizeSvc, logger)
	healthSvc := healthuc.New(cachePinger, chat)

	// Bind the listener first so the health endpoint can report the
	// actual port when the configured one was taken.
	ln, port, err := listenWithFallback(cfg.HTTP.Port, cfg.HTTP.PortFallbackAttempts, logger)
	if err != nil {
		logger.Fatal("Failed to bind HTTP listener", zap.Error(err))
	}

	server := chiTransport.NewServer(searchSvc, cacheSvc, healthSvc, func() int { return port }, env, logger)

	rateLimiter := chiTransport.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(corsHandler(cfg.HTTP.AllowedOrigin))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(rateLimiter.Middleware())
	r.Use(metrics.Middleware())
	r.Handle("/", web.Handler())
	server.RegisterRoutes(r)

	srv := &http.Server{
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", port))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// connectStore dials Redis and waits for readiness. Any failure logs a
// warning and returns nil; the caller runs without a cache.
func connectStore(ctx context.Context, cfg config.Config, logger *zap.Logger) *dbRedis.Store {
	if len(cfg.Database.Addrs) == 0 {
		logger.Warn("No vector store configured, caching disabled")
		return nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Warn("Failed to create vector store client, caching disabled", zap.Error(err))
		return nil
	}

	timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		logger.Warn("Vector store not ready, caching disabled", zap.Error(err))
		store.Close()
		return nil
	}

	logger.Info("Connected to vector store")
	return store
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached
func buildEmbedder(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.EmbeddingModel,
		Dimensions: cfg.LLM.EmbeddingDimensions,
		Logger:     logger,
	})

	if store == nil {
		return base
	}
	return embcache.New(base, store, cfg.Cache.KeyPrefix, metrics.EmbeddingCacheTotal, logger)
}

// listenWithFallback binds the configured port, trying successive ports
// on bind conflicts. Returns the listener and the port actually bound.
func listenWithFallback(port, attempts int, logger *zap.Logger) (net.Listener, int, error) {
	var lastErr error
	for i := 0; i <= attempts; i++ {
		p := port + i
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", p))
		if err == nil {
			if i > 0 {
				logger.Warn("Configured port taken, using fallback",
					zap.Int("configured_port", port),
					zap.Int("bound_port", p))
			}
			return ln, p, nil
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("no free port in %d..%d: %w", port, port+attempts, lastErr)
}

func corsHandler(allowedOrigin string) func(http.Handler) http.Handler {
	origins := []string{"*"}
	if allowedOrigin != "" {
		origins = []string{allowedOrigin}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	})
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

			// Canonical log line — one line per request
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
