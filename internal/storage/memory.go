package storage

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/room-engine/pkg/state"
)

// MemoryStore keeps snapshots in process memory. It backs STORAGE_BACKEND=none and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[uuid.UUID]state.Snapshot
}

// Ensure MemoryStore implements SessionStore interface
var _ SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[uuid.UUID]state.Snapshot)}
}

func (m *MemoryStore) Save(ctx context.Context, s *state.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	if s.UpdatedAt().IsZero() {
		s.Touch(time.Now())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[s.ID()] = s.Snapshot()
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, id uuid.UUID) (*state.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return state.FromSnapshot(snap), nil
}

func (m *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]SessionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]SessionInfo, 0, len(m.snaps))
	for id, snap := range m.snaps {
		infos = append(infos, SessionInfo{ID: id, Room: snap.CurrentRoom, UpdatedAt: snap.UpdatedAt})
	}
	sortNewestFirst(infos)
	return infos, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func sortNewestFirst(infos []SessionInfo) {
	slices.SortFunc(infos, func(a, b SessionInfo) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}
