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

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/parkridge-hoa/bylaws-assistant/internal/config"
	dbRedis "github.com/parkridge-hoa/bylaws-assistant/internal/db/redis"
	logpkg "github.com/parkridge-hoa/bylaws-assistant/internal/logger"
	"github.com/parkridge-hoa/bylaws-assistant/internal/metrics"
	"github.com/parkridge-hoa/bylaws-assistant/internal/repository/embcache"
	indexrepo "github.com/parkridge-hoa/bylaws-assistant/internal/repository/index"
	chiTransport "github.com/parkridge-hoa/bylaws-assistant/internal/transport/chi"
	openaiTransport "github.com/parkridge-hoa/bylaws-assistant/internal/transport/openai"
	answeruc "github.com/parkridge-hoa/bylaws-assistant/internal/usecase/answer"
	"github.com/parkridge-hoa/bylaws-assistant/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting bylaws assistant API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Provider chain — composition root
	var embedder answeruc.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.EmbeddingModel,
		Dimensions: cfg.OpenAI.EmbeddingDimensions,
		Logger:     logger,
	})
	if cfg.OpenAI.CacheEmbeddings {
		embedder = embcache.New(embedder, store, logger)
	}

	completer := openaiTransport.NewCompleter(&openaiTransport.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.ChatModel,
		Logger:  logger,
	})
	logger.Info("Providers created",
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		zap.Int("dimensions", cfg.OpenAI.EmbeddingDimensions),
		zap.String("chat_model", cfg.OpenAI.ChatModel),
		zap.Bool("embedding_cache", cfg.OpenAI.CacheEmbeddings),
	)

	repo := indexrepo.New(store, indexrepo.Config{
		Name:            cfg.Index.Name,
		KeyPrefix:       cfg.Index.KeyPrefix,
		VectorDim:       cfg.OpenAI.EmbeddingDimensions,
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
	}, logger)

	answers := answeruc.New(embedder, repo, completer, answeruc.Timeouts{
		Embed:    time.Duration(cfg.OpenAI.EmbedTimeoutSec) * time.Second,
		Search:   time.Duration(cfg.Index.SearchTimeoutSec) * time.Second,
		Generate: time.Duration(cfg.OpenAI.GenerateTimeoutSec) * time.Second,
	}, logger)

	opts := answeruc.Options{
		TopK:                  cfg.Retrieval.TopK,
		Threshold:             cfg.Retrieval.Threshold,
		MaxResponseTokens:     cfg.Retrieval.MaxResponseTokens,
		CitationFallbackLimit: cfg.Retrieval.CitationFallbackLimit,
	}

	server := chiTransport.NewServer(answers, store, opts, chiTransport.StatusInfo{
		Service:           "HOA Bylaws Assistant API",
		EmbeddingModel:    cfg.OpenAI.EmbeddingModel,
		ChatModel:         cfg.OpenAI.ChatModel,
		IndexName:         cfg.Index.Name,
		MaxRetrievedCh:    cfg.Retrieval.TopK,
		MinSimilarity:     cfg.Retrieval.Threshold,
		MaxResponseTokens: cfg.Retrieval.MaxResponseTokens,
	}, logger)

	r := chiTransport.NewRouter(server,
		jsonRecoverer(logger),
		chiMiddleware.RequestID,
		wideEventMiddleware(logger),
		chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys),
		metrics.Middleware(),
	)

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
						"error": "internal error",
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
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
