// Package command matches player input against ordered command tables and
// evaluates puzzle prerequisites and effects.
package command

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/room-engine/pkg/conditionals"
	"github.com/jwebster45206/room-engine/pkg/state"
)

// Default lines used when a command leaves a branch unspecified.
var (
	DefaultSuccess      = []string{">> Command completed."}
	DefaultAlreadyDone  = []string{">> Already completed."}
	DefaultMissingReq   = []string{">> Requirements not met."}
	DefaultUnrecognized = []string{">> Unknown command. Try 'help' for available options."}
)

// ErrHandlerFailed wraps any error returned by a dynamic handler. It marks a content bug, not a player mistake.
var ErrHandlerFailed = errors.New("dynamic handler failed")

// Kind tags which of the two command variants a PuzzleCommand is.
type Kind string

const (
	KindStandard Kind = ""        // requires/sets record interpreted by the processor
	KindDynamic  Kind = "dynamic" // a Handler produces the whole response
)

// Handler produces the full response for a dynamic command, including its own prerequisite checks.
type Handler func(in Input, s *state.Session) (Response, error)

// Transition moves the session to another room, showing Message on the way out.
type Transition struct {
	To      string   `json:"to"`
	Message []string `json:"message,omitempty"`
}

// PuzzleCommand is one recognized phrase with prerequisites, effects and response lines.
type PuzzleCommand struct {
	Kind     Kind     `json:"kind,omitempty"`
	Phrase   string   `json:"command"`
	Aliases  []string `json:"aliases,omitempty"`
	TakesArg bool     `json:"takes_arg,omitempty"` // match on "phrase <argument>"
	Help     string   `json:"help,omitempty"`

	Requires []string           `json:"requires,omitempty"` // flags that must all be true
	When     *conditionals.When `json:"when,omitempty"`     // extra item/var/location prerequisites
	SetsFlag string             `json:"sets,omitempty"`

	Effects         *state.Delta `json:"effects,omitempty"`
	StartsChallenge bool         `json:"starts_challenge,omitempty"`

	OnSuccess            []string `json:"success,omitempty"`
	OnAlreadyDone        []string `json:"already_done,omitempty"`
	OnMissingRequirement []string `json:"missing_req,omitempty"`

	Transition *Transition `json:"transition,omitempty"`

	// HandlerName binds a dynamic command loaded from content to a handler registered in code.
	HandlerName string  `json:"handler,omitempty"`
	Handler     Handler `json:"-"`
}

// Phrases returns the canonical phrase followed by its aliases.
func (c *PuzzleCommand) Phrases() []string {
	return append([]string{c.Phrase}, c.Aliases...)
}

// Usage is the phrase as shown in help, with an argument marker when the command takes one.
func (c *PuzzleCommand) Usage() string {
	if c.TakesArg {
		return c.Phrase + " <arg>"
	}
	return c.Phrase
}

// Check reports structural problems with the command definition.
func (c *PuzzleCommand) Check() error {
	if NormalizeInput(c.Phrase) == "" {
		return errors.New("command has an empty phrase")
	}
	switch c.Kind {
	case KindStandard:
		if c.Handler != nil || c.HandlerName != "" {
			return fmt.Errorf("standard command %q must not carry a handler", c.Phrase)
		}
	case KindDynamic:
		if c.Handler == nil {
			if c.HandlerName != "" {
				return fmt.Errorf("dynamic command %q: handler %q is not registered", c.Phrase, c.HandlerName)
			}
			return fmt.Errorf("dynamic command %q has no handler", c.Phrase)
		}
	default:
		return fmt.Errorf("command %q has unknown kind %q", c.Phrase, c.Kind)
	}
	return nil
}

// Table is a named, ordered list of commands. A room may register several.
type Table struct {
	Name     string          `json:"name"`
	Hidden   bool            `json:"hidden,omitempty"` // left out of help listings
	Commands []PuzzleCommand `json:"commands"`
}

// Response is what every room input handler returns.
type Response struct {
	Target          string   // room to move to; empty means stay
	Lines           []string // display lines, in order
	StartsChallenge bool     // the action that produced this response starts the room's timed challenge
	Unrecognized    bool     // no command matched the input
}

// Say is a response that stays in the room.
func Say(lines ...string) Response {
	return Response{Lines: lines}
}

// MoveTo is a response that transitions to target. With no lines a default message is used.
func MoveTo(target string, lines ...string) Response {
	if len(lines) == 0 {
		lines = []string{fmt.Sprintf(">> Transitioning to %s...", target)}
	}
	return Response{Target: target, Lines: lines}
}

// Unrecognized is the catch-all response for input no table matches.
func Unrecognized() Response {
	return Response{Lines: DefaultUnrecognized, Unrecognized: true}
}
