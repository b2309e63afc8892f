package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	DeepSeekAPIKey  string
	DeepSeekBaseURL string
	DeepSeekModel   string
	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	EmbeddingModel  string

	PollInterval       time.Duration
	WorkerPollInterval time.Duration
	GenerationTimeout  time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration

	TaskRetention      time.Duration
	ContextMaxTokens   int
	ContextMinMessages int

	AdminJWTSecret     string
	CORSAllowedOrigins []string

	MonitorKeyword   string
	MonitorMatchMode string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		DeepSeekAPIKey:  getEnv("DEEPSEEK_API_KEY", ""),
		DeepSeekBaseURL: getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
		DeepSeekModel:   getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		PollInterval:       getEnvAsDuration("POLL_INTERVAL", 500*time.Millisecond),
		WorkerPollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		GenerationTimeout:  getEnvAsDuration("GENERATION_TIMEOUT", 45*time.Second),

		RateLimitMax:    getEnvAsInt("RATE_LIMIT_MAX", 20),
		RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),

		TaskRetention:      getEnvAsDuration("TASK_RETENTION", 168*time.Hour),
		ContextMaxTokens:   getEnvAsInt("CONTEXT_MAX_TOKENS", 2000),
		ContextMinMessages: getEnvAsInt("CONTEXT_MIN_MESSAGES", 3),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),

		MonitorKeyword:   getEnv("MONITOR_KEYWORD", ""),
		MonitorMatchMode: strings.ToLower(strings.TrimSpace(getEnv("MONITOR_MATCH_MODE", "contains"))),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
