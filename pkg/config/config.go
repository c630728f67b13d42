package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the question cache service.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (the database password) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (unseen-question buffer)
	Redis RedisConfig `yaml:"redis"`

	// Batch serving configuration
	Serving ServingConfig `yaml:"serving"`

	// Background maintenance configuration
	Maintenance MaintenanceConfig `yaml:"maintenance"`

	// External question generator configuration
	Generator GeneratorConfig `yaml:"generator"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"trivgame"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"trivgame"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"20"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds Redis connection configuration for the unseen buffer.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	PoolSize int    `yaml:"pool_size" env:"REDIS_POOL_SIZE" env-default:"10"`
}

// ServingConfig tunes the client-facing batch path.
type ServingConfig struct {
	// OverFetchCount is how many questions a store query requests per
	// category. Anything beyond the client's immediate need is parked in the
	// unseen buffer for that user.
	OverFetchCount int `yaml:"over_fetch_count" env:"OVER_FETCH_COUNT" env-default:"10"`
}

// MaintenanceConfig holds thresholds and intervals for the background jobs.
type MaintenanceConfig struct {
	// UsageThreshold evicts a question once it has been served this many times.
	UsageThreshold int `yaml:"usage_threshold" env:"USAGE_THRESHOLD" env-default:"5"`
	// DownvoteThreshold evicts a question once it has collected this many downvotes.
	DownvoteThreshold int `yaml:"downvote_threshold" env:"DOWNVOTE_THRESHOLD" env-default:"3"`
	// RetentionWindow evicts questions older than this regardless of counters.
	RetentionWindow time.Duration `yaml:"retention_window" env:"RETENTION_WINDOW" env-default:"48h"`
	// ArticleCooldown keeps an article out of generation after it was last used.
	ArticleCooldown time.Duration `yaml:"article_cooldown" env:"ARTICLE_COOLDOWN" env-default:"24h"`

	EvictionInterval      time.Duration `yaml:"eviction_interval" env:"EVICTION_INTERVAL" env-default:"5m"`
	ReplenishmentInterval time.Duration `yaml:"replenishment_interval" env:"REPLENISHMENT_INTERVAL" env-default:"5m"`

	// ProactiveFetchCount caps how many fresh articles one replenishment pass
	// selects per under-stocked category.
	ProactiveFetchCount int `yaml:"proactive_fetch_count" env:"PROACTIVE_FETCH_COUNT" env-default:"5"`
	// GenerationBatchSize is the chunk size for generator calls.
	GenerationBatchSize int `yaml:"generation_batch_size" env:"GENERATION_BATCH_SIZE" env-default:"10"`
	// MinThresholdFactor scales the fresh-article count into the minimum
	// question count a category should hold.
	MinThresholdFactor float64 `yaml:"min_threshold_factor" env:"MIN_THRESHOLD_FACTOR" env-default:"1.1"`

	// Workers is the size of the generation worker pool.
	Workers int `yaml:"workers" env:"MAINTENANCE_WORKERS" env-default:"2"`
	// QueueDepth bounds how many generation batches may sit queued at once.
	QueueDepth int `yaml:"queue_depth" env:"MAINTENANCE_QUEUE_DEPTH" env-default:"32"`
}

// GeneratorConfig points at the external question generation service.
type GeneratorConfig struct {
	BaseURL string        `yaml:"base_url" env:"GENERATOR_BASE_URL" env-default:"http://question-gen:8000"`
	Timeout time.Duration `yaml:"timeout" env:"GENERATOR_TIMEOUT" env-default:"120s"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// If config.yaml does not exist, configuration comes from environment variables
// and defaults alone.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Serving.OverFetchCount < 1 {
		return fmt.Errorf("over_fetch_count must be at least 1, got %d", c.Serving.OverFetchCount)
	}
	if c.Maintenance.GenerationBatchSize < 1 {
		return fmt.Errorf("generation_batch_size must be at least 1, got %d", c.Maintenance.GenerationBatchSize)
	}
	if c.Maintenance.MinThresholdFactor <= 0 {
		return fmt.Errorf("min_threshold_factor must be positive, got %g", c.Maintenance.MinThresholdFactor)
	}
	if c.Maintenance.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Maintenance.Workers)
	}
	if c.Maintenance.EvictionInterval <= 0 {
		return fmt.Errorf("eviction_interval must be positive, got %s", c.Maintenance.EvictionInterval)
	}
	if c.Maintenance.ReplenishmentInterval <= 0 {
		return fmt.Errorf("replenishment_interval must be positive, got %s", c.Maintenance.ReplenishmentInterval)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Addr returns the Redis host:port address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
