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
	"go.uber.org/zap"

	"github.com/jmrlabs/fsdgen/internal/config"
	dbRedis "github.com/jmrlabs/fsdgen/internal/db/redis"
	"github.com/jmrlabs/fsdgen/internal/domain"
	logpkg "github.com/jmrlabs/fsdgen/internal/logger"
	"github.com/jmrlabs/fsdgen/internal/metrics"
	"github.com/jmrlabs/fsdgen/internal/repository/embcache"
	retrievalrepo "github.com/jmrlabs/fsdgen/internal/repository/retrieval"
	chiTransport "github.com/jmrlabs/fsdgen/internal/transport/chi"
	openaiTransport "github.com/jmrlabs/fsdgen/internal/transport/openai"
	funcdocuc "github.com/jmrlabs/fsdgen/internal/usecase/funcdoc"
	healthuc "github.com/jmrlabs/fsdgen/internal/usecase/health"
	pipelineuc "github.com/jmrlabs/fsdgen/internal/usecase/pipeline"
	retrievaluc "github.com/jmrlabs/fsdgen/internal/usecase/retrieval"
	testcaseuc "github.com/jmrlabs/fsdgen/internal/usecase/testcase"
	"github.com/jmrlabs/fsdgen/internal/version"
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

	logger.Info("Starting fsdgen API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("llm_model", cfg.LLM.Model),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create vector store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Vector store not ready", zap.Error(err))
	}
	logger.Info("Connected to vector store")

	// Register LLM metrics explicitly (no init())
	metrics.RegisterLLMMetrics()

	// Embedder chain: OpenAI provider -> cache decorator. A missing API key
	// disables retrieval rather than failing startup; the pipeline then runs
	// without context.
	var base *openaiTransport.Embedder
	var embedder domain.Embedder
	if cfg.Embedding.APIKey != "" {
		base = openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
		embedder = embcache.New(
			base, store,
			time.Duration(cfg.Embedding.CacheTTLHrs)*time.Hour,
			metrics.EmbeddingCacheTotal, logger,
		)
		logger.Info("Embedder created",
			zap.String("model", cfg.Embedding.Model),
			zap.Int("target_dim", cfg.Embedding.TargetDim),
		)
	} else {
		logger.Warn("Embedding API key not configured, retrieval disabled")
	}

	completer := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Logger:  logger,
	})

	// One retrieval service shared by all generators; each passes its own
	// collections and topK.
	repo := retrievalrepo.New(store)
	warnMissingCollections(ctx, repo, &cfg, logger)
	retriever := retrievaluc.New(repo, embedder, cfg.Embedding.TargetDim, logger)

	codeSvc := pipelineuc.New(retriever, completer, pipelineuc.Config{
		Collections: cfg.CodeGen.Collections,
		TopK:        cfg.CodeGen.TopK,
		Temperature: cfg.CodeGen.Temperature,
		MaxTokens:   cfg.CodeGen.MaxTokens,
		StageDelay:  time.Duration(cfg.CodeGen.StageDelayMS) * time.Millisecond,
	}, logger)

	casesSvc := testcaseuc.New(retriever, completer, testcaseuc.Config{
		Collections:   cfg.TestCases.Collections,
		TopK:          cfg.TestCases.TopK,
		Temperature:   cfg.TestCases.Temperature,
		MaxTokens:     cfg.TestCases.MaxTokens,
		ScenarioCount: cfg.TestCases.ScenarioCount,
	}, logger)

	docSvc := funcdocuc.New(retriever, completer, funcdocuc.Config{
		Collections: cfg.FuncDoc.Collections,
		TopK:        cfg.FuncDoc.TopK,
		Temperature: cfg.FuncDoc.Temperature,
		MaxTokens:   cfg.FuncDoc.MaxTokens,
	}, logger)

	// Pass nil interface (not typed nil pointer!) when the embedder is
	// not configured.
	var embChecker healthuc.ProviderChecker
	if base != nil {
		embChecker = base
	}
	healthSvc := healthuc.New(store, embChecker, completer)

	server := chiTransport.NewServer(codeSvc, casesSvc, docSvc, healthSvc)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())

	r.Post("/v1/code", server.GenerateCode)
	r.Post("/v1/test-cases", server.GenerateTestCases)
	r.Post("/v1/function-doc", server.GenerateFunctionDoc)
	r.Get("/health", server.HealthCheck)
	r.Get("/metrics", server.Metrics)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// warnMissingCollections logs configured collections whose index is missing
// from the store. Retrieval skips them at query time, so startup proceeds.
func warnMissingCollections(ctx context.Context, repo *retrievalrepo.Repo, cfg *config.Config, logger *zap.Logger) {
	seen := make(map[string]struct{})
	for _, group := range [][]string{
		cfg.CodeGen.Collections,
		cfg.TestCases.Collections,
		cfg.FuncDoc.Collections,
	} {
		for _, name := range group {
			if _, done := seen[name]; done {
				continue
			}
			seen[name] = struct{}{}

			exists, err := repo.CollectionExists(ctx, name)
			if err != nil {
				logger.Warn("Failed to check collection", zap.String("collection", name), zap.Error(err))
				continue
			}
			if !exists {
				logger.Warn("Configured collection has no index in the store",
					zap.String("collection", name))
			}
		}
	}
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
