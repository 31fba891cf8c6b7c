package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/room-engine/internal/config"
	"github.com/jwebster45206/room-engine/pkg/state"
)

// ErrSessionNotFound is returned when no saved session has the requested id.
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo summarizes a saved session for listings.
type SessionInfo struct {
	ID        uuid.UUID
	Room      string
	UpdatedAt time.Time
}

// SessionStore saves and restores session snapshots.
type SessionStore interface {
	Save(ctx context.Context, s *state.Session) error
	Load(ctx context.Context, id uuid.UUID) (*state.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]SessionInfo, error)
	Close() error
}

// NewSessionStore opens the store selected by cfg.StorageBackend. A redis store is retried
// for up to cfg.RedisWait before giving up; zero tries once.
func NewSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (SessionStore, error) {
	switch cfg.StorageBackend {
	case config.StorageRedis:
		store := NewRedisStore(cfg.RedisURL, cfg.SessionTTL, logger)
		if err := connectRedis(ctx, store, cfg.RedisWait); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case config.StorageSQLite:
		return OpenSQLiteStore(cfg.SQLitePath, logger)
	case config.StorageNone, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func connectRedis(ctx context.Context, store *RedisStore, wait time.Duration) error {
	if wait <= 0 {
		return store.Ping(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return store.WaitForConnection(ctx)
}
