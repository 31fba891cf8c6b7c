package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/room-engine/internal/storage"
	"github.com/jwebster45206/room-engine/pkg/engine"
	"github.com/jwebster45206/room-engine/pkg/state"
)

// Game is the console's handle on one running session and the save store behind it.
type Game struct {
	engine *engine.Engine
	store  storage.SessionStore
	logger *slog.Logger
	clock  func() time.Time
}

func NewGame(eng *engine.Engine, store storage.SessionStore, logger *slog.Logger) *Game {
	return &Game{
		engine: eng,
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
}

func (g *Game) Session() *state.Session { return g.engine.Session() }

// ChallengeStatus is the countdown line for the current room, or "" when no challenge runs.
func (g *Game) ChallengeStatus() string {
	ch := g.engine.Challenge()
	if ch == nil {
		return ""
	}
	return ch.Status(g.clock())
}

func (g *Game) Start() (engine.Output, error) {
	return g.engine.Start(g.clock())
}

func (g *Game) Send(input string) (engine.Output, error) {
	return g.engine.Handle(input, g.clock())
}

func (g *Game) Poll() (engine.Output, error) {
	return g.engine.Poll(g.clock())
}

// ReloadRoom re-reads the current room's content from disk and enters it again.
func (g *Game) ReloadRoom() (engine.Output, error) {
	return g.engine.ReloadRoom(g.clock())
}

// Save writes the current session to the store and returns its id.
func (g *Game) Save(ctx context.Context) (uuid.UUID, error) {
	s := g.engine.Session()
	if err := g.store.Save(ctx, s); err != nil {
		return uuid.Nil, err
	}
	g.logger.Info("Session saved", "session_id", s.ID(), "room", s.CurrentRoom())
	return s.ID(), nil
}

// Load resumes the saved session whose id starts with prefix.
func (g *Game) Load(ctx context.Context, prefix string) (engine.Output, error) {
	id, err := g.resolve(ctx, prefix)
	if err != nil {
		return engine.Output{}, err
	}
	saved, err := g.store.Load(ctx, id)
	if err != nil {
		return engine.Output{}, err
	}
	g.logger.Info("Session loaded", "session_id", id, "room", saved.CurrentRoom())
	return g.engine.Resume(saved.Snapshot(), g.clock())
}

func (g *Game) Saves(ctx context.Context) ([]storage.SessionInfo, error) {
	return g.store.List(ctx)
}

func (g *Game) resolve(ctx context.Context, prefix string) (uuid.UUID, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return uuid.Nil, fmt.Errorf("usage: /load <id-prefix>")
	}
	saves, err := g.store.List(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var matches []uuid.UUID
	for _, info := range saves {
		if strings.HasPrefix(info.ID.String(), prefix) {
			matches = append(matches, info.ID)
		}
	}
	switch len(matches) {
	case 0:
		return uuid.Nil, fmt.Errorf("%w: no save starts with %q", storage.ErrSessionNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return uuid.Nil, fmt.Errorf("%d saves start with %q, type more of the id", len(matches), prefix)
	}
}
