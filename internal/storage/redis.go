package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/room-engine/pkg/state"
)

const sessionKeyPrefix = "session:"

// RedisStore keeps session snapshots as JSON under session:<uuid> keys with a TTL.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Ensure RedisStore implements SessionStore interface
var _ SessionStore = (*RedisStore)(nil)

// NewRedisStore creates a store for the Redis server at addr. A zero ttl keeps sessions forever.
func NewRedisStore(addr string, ttl time.Duration, logger *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client: rdb,
		logger: logger,
		ttl:    ttl,
	}
}

// Health and lifecycle methods

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Session operations

func (r *RedisStore) Save(ctx context.Context, s *state.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	if s.UpdatedAt().IsZero() {
		s.Touch(time.Now())
	}

	data, err := s.MarshalJSON()
	if err != nil {
		r.logger.Error("Failed to marshal session", "session_id", s.ID(), "error", err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(s.ID()), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save session", "session_id", s.ID(), "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, id uuid.UUID) (*state.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		r.logger.Error("Failed to load session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	s, err := state.Restore(data)
	if err != nil {
		r.logger.Error("Failed to unmarshal session", "session_id", id, "error", err)
		return nil, err
	}
	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete session", "session_id", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List scans for session keys. Entries that vanish or fail to decode mid-scan are skipped.
func (r *RedisStore) List(ctx context.Context) ([]SessionInfo, error) {
	var infos []SessionInfo
	iter := r.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id, err := uuid.Parse(strings.TrimPrefix(key, sessionKeyPrefix))
		if err != nil {
			continue
		}
		data, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		snap, err := state.DecodeSnapshot(data)
		if err != nil {
			r.logger.Warn("Skipping unreadable session", "key", key, "error", err)
			continue
		}
		infos = append(infos, SessionInfo{ID: id, Room: snap.CurrentRoom, UpdatedAt: snap.UpdatedAt})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sortNewestFirst(infos)
	return infos, nil
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}
