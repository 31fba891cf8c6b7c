package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends for saved sessions.
const (
	StorageNone   = "none"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

type Config struct {
	Environment    string        `env:"ENVIRONMENT"     envDefault:"development"`
	LogLevelName   string        `env:"LOG_LEVEL"       envDefault:"info"`
	LogFile        string        `env:"LOG_FILE"`
	ContentDir     string        `env:"CONTENT_DIR"     envDefault:"./data/rooms"`
	StartRoom      string        `env:"START_ROOM"      envDefault:"boot"`
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"none"`
	RedisURL       string        `env:"REDIS_URL"       envDefault:"localhost:6379"`
	RedisWait      time.Duration `env:"REDIS_WAIT"      envDefault:"10s"`
	SQLitePath     string        `env:"SQLITE_PATH"     envDefault:"./data/saves.db"`
	SessionTTL     time.Duration `env:"SESSION_TTL"     envDefault:"24h"`
	PollInterval   time.Duration `env:"POLL_INTERVAL"   envDefault:"1s"`
	RoomCacheTTL   time.Duration `env:"ROOM_CACHE_TTL"` // zero keeps decoded rooms for the whole run
	DebugCommands  bool          `env:"DEBUG_COMMANDS"`

	LogLevel slog.Level // derived from LogLevelName
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)
	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)

	switch cfg.StorageBackend {
	case StorageNone, StorageRedis, StorageSQLite:
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	if cfg.RoomCacheTTL < 0 {
		return nil, fmt.Errorf("ROOM_CACHE_TTL must not be negative, got %s", cfg.RoomCacheTTL)
	}
	if cfg.RedisWait < 0 {
		return nil, fmt.Errorf("REDIS_WAIT must not be negative, got %s", cfg.RedisWait)
	}
	return &cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
