package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/craftly/studio-api/internal/core/service"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo      MongoConfig
	Redis      RedisConfig
	OpenAI     OpenAIConfig
	Storage    StorageConfig
	Generation GenerationConfig

	Costs service.CostTable
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=studio"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type OpenAIConfig struct {
	APIKey     string `env:"OPENAI_API_KEY"`
	BaseURL    string `env:"OPENAI_BASE_URL"`
	ChatModel  string `env:"OPENAI_CHAT_MODEL"`
	ImageModel string `env:"OPENAI_IMAGE_MODEL"`
}

type StorageConfig struct {
	Root    string `env:"STORAGE_ROOT,     default=./data/media"`
	BaseURL string `env:"STORAGE_BASE_URL, default=http://localhost:8080/media"`
}

type GenerationConfig struct {
	// PlaceholderBaseURL is the placeholder image service used by the
	// fallback tiers.
	PlaceholderBaseURL string `env:"PLACEHOLDER_BASE_URL, default=https://placehold.co"`
	// StrictReserve switches the orchestrator to reserve-then-refund
	// billing, closing the check-then-act window at the cost of refund
	// writes on provider failure.
	StrictReserve bool `env:"STRICT_RESERVE, default=false"`
	// ProviderTimeout bounds each upstream provider call.
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT, default=90s"`
	// SweepWorkers is the concurrency of the monthly reset sweep.
	SweepWorkers int `env:"SWEEP_WORKERS, default=8"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
