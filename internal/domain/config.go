package domain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the complete storefront configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server" envPrefix:"SERVER_"`

	// Tier determines which backends are used
	Tier Tier `json:"tier" env:"TIER"`

	// Component configurations
	Repository RepositoryConfig `json:"repository" envPrefix:"DB_"`
	Cache      CacheConfig      `json:"cache" envPrefix:"CACHE_"`
	EventBus   EventBusConfig   `json:"eventBus" envPrefix:"BUS_"`

	Logging LoggingConfig `json:"logging" envPrefix:"LOG_"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" env:"HOST"`
	Port         int    `json:"port" env:"PORT"`
	ReadTimeout  int    `json:"readTimeout" env:"READ_TIMEOUT"`   // seconds
	WriteTimeout int    `json:"writeTimeout" env:"WRITE_TIMEOUT"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `json:"format" env:"FORMAT"` // json, text
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite, an in-process cache and channels
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL, Redis and NATS
	TierPro Tier = "pro"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "STOREFRONT_"

// DefaultConfig returns a default configuration for the Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./storefront.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 1000,
			LocalTTL:     5 * time.Minute,
			StatisticTTL: time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// ProConfig returns a configuration for the Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "storefront",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		StatisticTTL:   time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	return cfg
}

// LoadConfig builds the configuration from defaults, an optional dotenv file
// and STOREFRONT_* environment variables, in that order of precedence.
// An empty envFile means ".env"; a missing file is not an error.
func LoadConfig(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := DefaultConfig()
	if Tier(os.Getenv(EnvPrefix+"TIER")) == TierPro {
		cfg = ProConfig()
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
