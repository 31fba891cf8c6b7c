package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"

	"github.com/jwebster45206/room-engine/pkg/room"
	"github.com/jwebster45206/room-engine/pkg/state"
)

const defaultRoomCacheSize = 256

// RoomLoader resolves room ids to rooms. Declarative rooms come from *.json files in a
// content directory and are decoded on demand; procedural rooms are registered in code.
type RoomLoader struct {
	dir      string
	handlers room.Handlers
	logger   *slog.Logger

	mu       sync.RWMutex
	paths    map[string]string // room id -> json file
	builtins map[string]room.Room
	cache    cache.Cache[string, room.Room]
}

// Ensure RoomLoader implements state.RoomLoader interface
var _ state.RoomLoader = (*RoomLoader)(nil)

// LoaderOption configures a RoomLoader.
type LoaderOption func(*RoomLoader)

// WithCacheTTL re-reads a declarative room from disk once its cached copy is older than ttl.
// Zero keeps decoded rooms until the loader is discarded.
func WithCacheTTL(ttl time.Duration) LoaderOption {
	return func(l *RoomLoader) {
		l.cache = cache.NewCache[string, room.Room]().WithMaxKeys(defaultRoomCacheSize).WithLRU().WithTTL(ttl)
	}
}

// NewRoomLoader indexes every room file in dir. Each file is decoded once here so that
// malformed content and duplicate ids fail at startup. An empty dir loads builtins only.
func NewRoomLoader(dir string, handlers room.Handlers, logger *slog.Logger, builtins []room.Room, opts ...LoaderOption) (*RoomLoader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &RoomLoader{
		dir:      dir,
		handlers: handlers,
		logger:   logger,
		paths:    make(map[string]string),
		builtins: make(map[string]room.Room),
		cache:    cache.NewCache[string, room.Room]().WithMaxKeys(defaultRoomCacheSize).WithLRU(),
	}
	for _, opt := range opts {
		opt(l)
	}

	for _, r := range builtins {
		if r.RoomID() == "" {
			return nil, fmt.Errorf("%w: builtin room has no id", room.ErrInvalidRoom)
		}
		if _, dup := l.builtins[r.RoomID()]; dup {
			return nil, fmt.Errorf("%w: duplicate room id %q", room.ErrInvalidRoom, r.RoomID())
		}
		l.builtins[r.RoomID()] = r
	}

	if dir == "" {
		return l, nil
	}
	if err := l.index(); err != nil {
		return nil, err
	}
	logger.Info("Room content indexed", "dir", dir, "rooms", len(l.paths), "builtins", len(l.builtins))
	return l, nil
}

func (l *RoomLoader) index() error {
	files, err := filepath.Glob(filepath.Join(l.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list room files: %w", err)
	}
	slices.Sort(files)

	for _, path := range files {
		r, err := l.decode(path)
		if err != nil {
			return err
		}
		id := r.RoomID()
		if id == "" {
			return fmt.Errorf("%w: %s has no id", room.ErrInvalidRoom, path)
		}
		if prev, dup := l.paths[id]; dup {
			return fmt.Errorf("%w: room id %q defined in both %s and %s", room.ErrInvalidRoom, id, prev, path)
		}
		if _, dup := l.builtins[id]; dup {
			return fmt.Errorf("%w: room id %q in %s shadows a builtin room", room.ErrInvalidRoom, id, path)
		}
		l.paths[id] = path
		l.cache.Set(id, r, 0)
	}
	return nil
}

func (l *RoomLoader) decode(path string) (*room.Declarative, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read room file: %w", err)
	}
	r, err := room.Decode(data, l.handlers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// LoadRoom returns the room for id. Declarative rooms are served from cache and
// re-decoded from disk on a miss.
func (l *RoomLoader) LoadRoom(id string) (state.RoomHandle, error) {
	r, err := l.Room(id)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Room is LoadRoom with the concrete room type.
func (l *RoomLoader) Room(id string) (room.Room, error) {
	l.mu.RLock()
	builtin, isBuiltin := l.builtins[id]
	path, isFile := l.paths[id]
	l.mu.RUnlock()

	if isBuiltin {
		return builtin, nil
	}
	if !isFile {
		return nil, fmt.Errorf("%w: %q", state.ErrRoomNotFound, id)
	}

	if r, ok := l.cache.Get(id); ok {
		return r, nil
	}

	l.logger.Debug("Room cache miss", "room", id, "path", path)
	r, err := l.decode(path)
	if err != nil {
		l.logger.Error("Failed to reload room", "room", id, "error", err)
		return nil, err
	}
	if r.RoomID() != id {
		return nil, fmt.Errorf("%w: %s now declares id %q, expected %q", room.ErrInvalidRoom, path, r.RoomID(), id)
	}
	l.cache.Set(id, r, 0)
	return r, nil
}

func (l *RoomLoader) HasRoom(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.builtins[id]; ok {
		return true
	}
	_, ok := l.paths[id]
	return ok
}

// IDs lists every known room id, sorted.
func (l *RoomLoader) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.paths)+len(l.builtins))
	for id := range l.paths {
		ids = append(ids, id)
	}
	for id := range l.builtins {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Invalidate drops the cached copy of a declarative room so the next load reads the file again.
func (l *RoomLoader) Invalidate(id string) {
	l.cache.Invalidate(id)
}

// ValidateAll checks every room and reports all problems together.
func (l *RoomLoader) ValidateAll() error {
	var problems []error
	for _, id := range l.IDs() {
		r, err := l.Room(id)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		if err := room.Validate(r, l.HasRoom); err != nil {
			problems = append(problems, err)
		}
	}
	return errors.Join(problems...)
}
