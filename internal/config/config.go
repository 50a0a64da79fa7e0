// Package config loads runtime settings from the process environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config covers cache behaviour, optimistic update handling, provider
// scheduling and snapshot persistence.
type Config struct {
	// Cache freshness.
	CacheTTL       time.Duration `env:"CACHECORE_CACHE_TTL"        envDefault:"5m"`
	ProfileMaxAge  time.Duration `env:"CACHECORE_PROFILE_MAX_AGE"  envDefault:"10m"`
	ProfileMaxSize int           `env:"CACHECORE_PROFILE_MAX_SIZE" envDefault:"256"`
	PageSize       int           `env:"CACHECORE_PAGE_SIZE"        envDefault:"0"`

	// Optimistic updates.
	OptimisticTimeout time.Duration `env:"CACHECORE_OPTIMISTIC_TIMEOUT"     envDefault:"10s"`
	MaxPendingUpdates int           `env:"CACHECORE_MAX_PENDING_UPDATES"    envDefault:"50"`

	// Provider scheduling.
	WarmBatchSize  int           `env:"CACHECORE_WARM_BATCH_SIZE"  envDefault:"3"`
	WarmBatchDelay time.Duration `env:"CACHECORE_WARM_BATCH_DELAY" envDefault:"0"`
	CheckInterval  time.Duration `env:"CACHECORE_CHECK_INTERVAL"   envDefault:"5m"`

	// Snapshot persistence.
	SnapshotDriver string `env:"CACHECORE_SNAPSHOT_DRIVER" envDefault:"sqlite"`
	SQLitePath     string `env:"CACHECORE_SQLITE_PATH"     envDefault:"cachecore.db"`
	PostgresDSN    string `env:"CACHECORE_POSTGRES_DSN"`

	// Remote API.
	APIBaseURL string `env:"CACHECORE_API_BASE_URL" envDefault:"http://localhost:8080/api"`

	// Logging.
	LogLevel string `env:"CACHECORE_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
