// Package room defines the contract every room satisfies and its two variants:
// Declarative rooms are data interpreted by the command processor, Procedural rooms
// wrap custom logic behind the same contract.
package room

import (
	"errors"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/room-engine/pkg/challenge"
	"github.com/jwebster45206/room-engine/pkg/command"
	"github.com/jwebster45206/room-engine/pkg/state"
)

// ErrInvalidRoom marks room configuration problems found during validation.
var ErrInvalidRoom = errors.New("invalid room")

// Room is a discrete interactive location.
type Room interface {
	RoomID() string
	Name() string
	// Enter returns the entry lines. One-time setup must be guarded so re-entry never repeats it.
	Enter(s *state.Session) []string
	HandleInput(text string, s *state.Session) (command.Response, error)
	ListCommands() []string
}

// Challenger is implemented by rooms that bound a phase with a timed challenge.
type Challenger interface {
	ChallengeConfig() *challenge.Config
}

// Targeter lists every room id a room can transition to, for validation.
type Targeter interface {
	Targets() []string
}

// FlagScoper names the prefix shared by a room's flags, used by "restart room".
type FlagScoper interface {
	FlagPrefix() string
}

// Banner formats entry lines: a title bar, the body, then a blank line.
func Banner(name string, body []string) []string {
	lines := make([]string, 0, len(body)+2)
	lines = append(lines, "=== "+cases.Upper(language.Und).String(name)+" ===")
	lines = append(lines, body...)
	return append(lines, "")
}

// InitializedFlag is the flag guarding a room's one-time setup.
func InitializedFlag(roomID string) string {
	return roomID + "_initialized"
}

// SetupOnce runs setup the first time the room is entered and reports whether it ran.
func SetupOnce(roomID string, s *state.Session, setup func()) bool {
	flag := InitializedFlag(roomID)
	if s.GetFlag(flag) {
		return false
	}
	setup()
	s.SetFlag(flag, true)
	return true
}

// ChallengeOf returns the room's challenge config, or nil when it has none.
func ChallengeOf(r Room) *challenge.Config {
	if c, ok := r.(Challenger); ok {
		return c.ChallengeConfig()
	}
	return nil
}

// FlagPrefixOf returns the room's flag prefix, defaulting to "<id>_".
func FlagPrefixOf(r Room) string {
	if f, ok := r.(FlagScoper); ok {
		if p := f.FlagPrefix(); p != "" {
			return p
		}
	}
	return r.RoomID() + "_"
}
