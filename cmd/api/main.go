package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/wxsales/copilot/internal/api/handlers"
	"github.com/wxsales/copilot/internal/api/router"
	appconfig "github.com/wxsales/copilot/internal/config"
	"github.com/wxsales/copilot/internal/knowledge"
	"github.com/wxsales/copilot/internal/listener"
	"github.com/wxsales/copilot/internal/observability/metrics"
	"github.com/wxsales/copilot/internal/profile"
	"github.com/wxsales/copilot/internal/queue"
	"github.com/wxsales/copilot/internal/ratelimit"
	"github.com/wxsales/copilot/internal/reply"
	"github.com/wxsales/copilot/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting copilot API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	var history *reply.HistoryStore
	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, conversation history disabled", "error", err)
	} else {
		history = reply.NewHistoryStore(redisClient, reply.DefaultHistoryTTL)
	}
	pingCancel()

	taskStore := queue.NewPostgresStore(pool)
	profileStore := profile.NewStore(pool)
	suggestionStore := reply.NewPostgresSuggestionStore(pool)
	goldenStore := reply.NewPostgresGoldenStore(pool)
	memoryStore := reply.NewPostgresMemoryStore(pool)
	chunkStore := knowledge.NewChunkStore(pool)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	deepseek, err := reply.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL, cfg.DeepSeekModel)
	if err != nil {
		logger.Error("deepseek client init failed", "error", err)
		os.Exit(1)
	}
	var llm reply.LLMClient = deepseek
	if cfg.GeminiAPIKey != "" {
		gemini, err := reply.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("gemini fallback init failed, running without fallback", "error", err)
		} else {
			defer gemini.Close()
			llm = reply.NewFallbackClient(deepseek, gemini, logger)
		}
	}

	var (
		index    *knowledge.Index
		embedder knowledge.Embedder
	)
	if cfg.OpenAIAPIKey != "" {
		embedder = knowledge.NewOpenAIEmbedder(openai.NewClient(cfg.OpenAIAPIKey), cfg.EmbeddingModel)
		index = knowledge.NewIndex(embedder)
		chunks, err := chunkStore.LoadAll(ctx)
		if err != nil {
			logger.Warn("knowledge index warm-up failed", "error", err)
		} else {
			index.Add(chunks...)
			logger.Info("knowledge index warmed", "chunks", index.Len())
		}
	} else {
		logger.Info("no embedding key configured, retrieval disabled")
	}

	generatorOpts := []reply.GeneratorOption{
		reply.WithKeywordExtractor(deepseek),
		reply.WithGenerationTimeout(cfg.GenerationTimeout),
		reply.WithSelectorBudget(cfg.ContextMaxTokens, cfg.ContextMinMessages),
		reply.WithGeneratorMetrics(pipelineMetrics),
	}
	if index != nil {
		generatorOpts = append(generatorOpts, reply.WithRetriever(index))
	}
	generator := reply.NewGenerator(llm, memoryStore, goldenStore, suggestionStore, logger, generatorOpts...)
	learner := reply.NewFeedbackLearner(suggestionStore, goldenStore, logger)

	labelBuffer := listener.NewBuffer()
	chatListener := listener.New(labelBuffer, taskStore, logger,
		listener.WithInterval(cfg.PollInterval),
		listener.WithMonitorFilter(cfg.MonitorKeyword, listener.MatchMode(cfg.MonitorMatchMode)),
		listener.WithMetrics(pipelineMetrics),
	)
	chatListener.Start(ctx)

	h := handlers.New(logger, taskStore, profileStore, generator, suggestionStore, learner,
		history, index, chunkStore, embedder, labelBuffer)

	r := router.New(h, router.Options{
		Logger:         logger,
		Limiter:        ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow),
		AdminJWTSecret: cfg.AdminJWTSecret,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MetricsReg:     registry,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancel()
	chatListener.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
