package room

import (
	"github.com/jwebster45206/room-engine/pkg/challenge"
	"github.com/jwebster45206/room-engine/pkg/command"
	"github.com/jwebster45206/room-engine/pkg/state"
)

// Behavior is the custom logic behind a procedural room.
// Enter returns body lines only; the room adds the banner.
type Behavior interface {
	Enter(s *state.Session) []string
	Handle(text string, s *state.Session) (command.Response, error)
	Commands() []string
}

// Behaviors may also implement these to take part in validation, restarts and challenges.
type (
	destinationLister interface{ Destinations() []string }
	checker           interface{ Check() []error }
)

// Procedural adapts a Behavior to the Room contract.
type Procedural struct {
	id       string
	name     string
	behavior Behavior
}

func NewProcedural(id, name string, b Behavior) *Procedural {
	return &Procedural{id: id, name: name, behavior: b}
}

func (p *Procedural) RoomID() string     { return p.id }
func (p *Procedural) Name() string       { return p.name }
func (p *Procedural) Behavior() Behavior { return p.behavior }

func (p *Procedural) Enter(s *state.Session) []string {
	return Banner(p.name, p.behavior.Enter(s))
}

func (p *Procedural) HandleInput(text string, s *state.Session) (command.Response, error) {
	return p.behavior.Handle(text, s)
}

func (p *Procedural) ListCommands() []string {
	return p.behavior.Commands()
}

func (p *Procedural) Targets() []string {
	if d, ok := p.behavior.(destinationLister); ok {
		return d.Destinations()
	}
	return nil
}

func (p *Procedural) FlagPrefix() string {
	if f, ok := p.behavior.(FlagScoper); ok {
		return f.FlagPrefix()
	}
	return ""
}

func (p *Procedural) ChallengeConfig() *challenge.Config {
	if c, ok := p.behavior.(Challenger); ok {
		return c.ChallengeConfig()
	}
	return nil
}

func (p *Procedural) Check() []error {
	if c, ok := p.behavior.(checker); ok {
		return c.Check()
	}
	return nil
}
