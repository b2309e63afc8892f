package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	appconfig "github.com/wxsales/copilot/internal/config"
	"github.com/wxsales/copilot/internal/knowledge"
	"github.com/wxsales/copilot/internal/observability/metrics"
	"github.com/wxsales/copilot/internal/profile"
	"github.com/wxsales/copilot/internal/queue"
	"github.com/wxsales/copilot/internal/reply"
	"github.com/wxsales/copilot/pkg/logging"
)

const janitorSweepInterval = time.Hour

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting copilot reply worker", "env", cfg.Env)

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

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.NewRegistry())

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

	generatorOpts := []reply.GeneratorOption{
		reply.WithKeywordExtractor(deepseek),
		reply.WithGenerationTimeout(cfg.GenerationTimeout),
		reply.WithSelectorBudget(cfg.ContextMaxTokens, cfg.ContextMinMessages),
		reply.WithGeneratorMetrics(pipelineMetrics),
	}
	if cfg.OpenAIAPIKey != "" {
		embedder := knowledge.NewOpenAIEmbedder(openai.NewClient(cfg.OpenAIAPIKey), cfg.EmbeddingModel)
		index := knowledge.NewIndex(embedder)
		chunks, err := chunkStore.LoadAll(ctx)
		if err != nil {
			logger.Warn("knowledge index warm-up failed", "error", err)
		} else {
			index.Add(chunks...)
			logger.Info("knowledge index warmed", "chunks", index.Len())
		}
		generatorOpts = append(generatorOpts, reply.WithRetriever(index))
	}
	generator := reply.NewGenerator(llm, memoryStore, goldenStore, suggestionStore, logger, generatorOpts...)

	workerOpts := []reply.WorkerOption{
		reply.WithPollInterval(cfg.WorkerPollInterval),
		reply.WithWorkerMetrics(pipelineMetrics),
	}
	if history != nil {
		workerOpts = append(workerOpts, reply.WithHistoryStore(history))
	}
	worker := reply.NewWorker(taskStore, generator, profileStore, logger, workerOpts...)
	worker.Start(ctx)

	janitor := queue.NewJanitor(taskStore, cfg.TaskRetention, janitorSweepInterval, logger)
	janitor.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	cancel()
	worker.Wait()
	janitor.Wait()
	logger.Info("worker stopped")
}
