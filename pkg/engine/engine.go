// Package engine drives a session through its rooms: it dispatches input to global
// commands and the active room, applies transitions and runs the room's timed challenge.
package engine

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/gertd/go-pluralize"

	"github.com/jwebster45206/room-engine/pkg/challenge"
	"github.com/jwebster45206/room-engine/pkg/command"
	"github.com/jwebster45206/room-engine/pkg/room"
	"github.com/jwebster45206/room-engine/pkg/state"
)

// Output is what the host displays after each call.
type Output struct {
	Lines []string
	Room  string // current room after the call
	Ended bool   // the session can only be restarted
}

type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithDebug enables debug-only global commands such as "flags".
func WithDebug(debug bool) Option {
	return func(e *Engine) { e.debug = debug }
}

// Engine is a synchronous request/response driver for one session.
// It is not safe for concurrent use; the host serializes input and polls.
type Engine struct {
	session   *state.Session
	loader    state.RoomLoader
	log       *slog.Logger
	debug     bool
	challenge *challenge.Challenge // challenge for the current room visit, nil if the room has none
	ended     bool
	plural    *pluralize.Client
}

// New creates an engine over the session and attaches loader to it.
func New(s *state.Session, loader state.RoomLoader, opts ...Option) *Engine {
	s.AttachLoader(loader)
	e := &Engine{
		session: s,
		loader:  loader,
		log:     slog.Default(),
		plural:  pluralize.NewClient(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ended = !s.IsAlive()
	return e
}

func (e *Engine) Session() *state.Session { return e.session }

// Challenge returns the current room's challenge, or nil.
func (e *Engine) Challenge() *challenge.Challenge { return e.challenge }

// Start enters the current room and returns its entry lines.
func (e *Engine) Start(now time.Time) (Output, error) {
	e.session.Touch(now)
	r, err := e.room(e.session.CurrentRoom())
	if err != nil {
		return e.output(nil), err
	}
	e.log.Info("session started", "session_id", e.session.ID(), "room", r.RoomID())
	return e.output(e.enter(r)), nil
}

// Resume replaces the session data with a saved snapshot and re-enters its room.
// Timed challenges are never resumed from a saved clock.
func (e *Engine) Resume(snap state.Snapshot, now time.Time) (Output, error) {
	e.discardChallenge()
	e.session.Apply(snap)
	e.ended = !e.session.IsAlive()
	return e.Start(now)
}

// ReloadRoom re-reads the current room from its content and enters it again. Any running
// challenge is dropped; session data is untouched.
func (e *Engine) ReloadRoom(now time.Time) (Output, error) {
	if e.ended {
		return e.output(deathLines), nil
	}
	id := e.session.CurrentRoom()
	if inv, ok := e.loader.(interface{ Invalidate(id string) }); ok {
		inv.Invalidate(id)
	}
	e.session.ForgetRoom(id)
	e.discardChallenge()
	e.log.Info("room reloaded", "room", id)
	return e.Start(now)
}

// Handle processes one line of player input.
func (e *Engine) Handle(input string, now time.Time) (Output, error) {
	text := command.NormalizeInput(input)
	if text == "" {
		return e.output(nil), nil
	}
	e.session.Touch(now)

	if lines, handled, err := e.restart(text); handled {
		return e.output(lines), err
	}
	if e.ended {
		return e.output(deathLines), nil
	}

	r, err := e.room(e.session.CurrentRoom())
	if err != nil {
		return e.output(nil), err
	}

	if e.challenge != nil && e.challenge.Overdue(now) {
		return e.handleLate(text, r, now)
	}

	if lines, ok := e.global(text, r, now); ok {
		if e.challenge != nil && e.challenge.IsActive() {
			lines, _, err = e.evaluate(lines, now)
		}
		return e.output(lines), err
	}

	resp, err := r.HandleInput(text, e.session)
	if err != nil {
		return e.output(nil), fmt.Errorf("room %q: %w", r.RoomID(), err)
	}
	if resp.Unrecognized {
		if lines, ok := lookFallback[text]; ok {
			resp = command.Say(lines...)
		}
	}
	return e.respond(resp, now)
}

// handleLate runs input that arrived after the challenge deadline but before a poll
// noticed. The input only counts if it completes the challenge; otherwise its effects
// are rolled back and the expiry wins.
func (e *Engine) handleLate(text string, r room.Room, now time.Time) (Output, error) {
	snap := e.session.Snapshot()
	resp, err := r.HandleInput(text, e.session)
	if err != nil {
		e.session.Apply(snap)
		return e.output(nil), fmt.Errorf("room %q: %w", r.RoomID(), err)
	}
	if e.challenge.Config().Succeeded(e.session) {
		return e.respond(resp, now)
	}

	e.session.Apply(snap)
	e.log.Debug("input arrived after challenge deadline", "room", r.RoomID(), "input", text)
	return e.Poll(now)
}

// Poll advances the current room's timed challenge without input.
func (e *Engine) Poll(now time.Time) (Output, error) {
	if e.challenge == nil || !e.challenge.IsActive() {
		return e.output(nil), nil
	}
	lines, _, err := e.evaluate(nil, now)
	return e.output(lines), err
}

func (e *Engine) respond(resp command.Response, now time.Time) (Output, error) {
	lines := slices.Clone(resp.Lines)

	if resp.StartsChallenge && e.challenge != nil && e.challenge.State() == challenge.Inactive &&
		!e.challenge.Config().Succeeded(e.session) {
		start, _ := e.challenge.Start(now)
		lines = append(lines, start...)
		e.log.Info("challenge started", "room", e.session.CurrentRoom(),
			"duration", e.challenge.Config().Duration)
	}

	if e.challenge != nil && e.challenge.IsActive() {
		var (
			expired bool
			err     error
		)
		lines, expired, err = e.evaluate(lines, now)
		if err != nil || expired {
			return e.output(lines), err
		}
	}
	return e.afterResponse(resp.Target, lines)
}

func (e *Engine) afterResponse(target string, lines []string) (Output, error) {
	if target != "" {
		entry, err := e.transition(target)
		if err != nil {
			return e.output(lines), err
		}
		lines = append(lines, entry...)
	}

	if !e.session.IsAlive() && !e.ended {
		e.ended = true
		e.discardChallenge()
		e.log.Info("session ended", "session_id", e.session.ID(), "room", e.session.CurrentRoom())
		lines = append(lines, deathLines...)
	}
	return e.output(lines), nil
}

// evaluate checks completion, ticks and expiry in that order and appends the result to lines.
// On expiry the room's reset flags are cleared and the session moves to the fail destination.
func (e *Engine) evaluate(lines []string, now time.Time) ([]string, bool, error) {
	ch := e.challenge
	cfg := ch.Config()
	outcome := ch.Evaluate(now, cfg.Succeeded(e.session))
	lines = append(lines, outcome.Lines...)

	if outcome.Completed {
		e.log.Info("challenge completed", "room", e.session.CurrentRoom())
	}
	if !outcome.Expired {
		return lines, false, nil
	}

	e.log.Info("challenge expired", "room", e.session.CurrentRoom(), "destination", outcome.Target)
	for _, f := range cfg.ResetFlags {
		e.session.ClearFlag(f)
	}
	entry, err := e.transition(outcome.Target)
	return append(lines, entry...), true, err
}

// transition leaves the current room, discarding its challenge, and enters target.
// The target is resolved afresh so a loader's expired content is picked up on entry.
func (e *Engine) transition(target string) ([]string, error) {
	from := e.session.CurrentRoom()
	e.session.ForgetRoom(target)
	r, err := e.room(target)
	if err != nil {
		return nil, err
	}
	e.discardChallenge()
	e.session.SetCurrentRoom(target)
	e.log.Info("room transition", "from", from, "to", target)
	return e.enter(r), nil
}

// enter runs the room's entry hook and attaches a fresh, inactive challenge when it has one.
func (e *Engine) enter(r room.Room) []string {
	e.discardChallenge()
	if cfg := room.ChallengeOf(r); cfg != nil {
		e.challenge = challenge.New(*cfg)
	}
	return r.Enter(e.session)
}

func (e *Engine) discardChallenge() {
	if e.challenge == nil {
		return
	}
	if e.challenge.IsActive() {
		e.log.Debug("challenge discarded", "room", e.session.CurrentRoom())
	}
	e.challenge.Reset()
	e.challenge = nil
}

func (e *Engine) room(id string) (room.Room, error) {
	h, err := e.session.GetRoom(id)
	if err != nil {
		return nil, err
	}
	r, ok := h.(room.Room)
	if !ok {
		return nil, fmt.Errorf("room %q: loader returned %T, not a room", id, h)
	}
	return r, nil
}

func (e *Engine) output(lines []string) Output {
	return Output{
		Lines: lines,
		Room:  e.session.CurrentRoom(),
		Ended: e.ended,
	}
}
