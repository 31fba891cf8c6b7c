package room

import (
	"fmt"
	"slices"

	"github.com/goccy/go-json"

	"github.com/jwebster45206/room-engine/pkg/challenge"
	"github.com/jwebster45206/room-engine/pkg/command"
	"github.com/jwebster45206/room-engine/pkg/state"
)

// Hint is a progression hint shown on entry while Flag is unset.
// A hint with no flag always qualifies and is typically last.
type Hint struct {
	Flag string `json:"flag,omitempty"`
	Text string `json:"text"`
}

// Config is the data behind a declarative room. It maps 1:1 to the JSON room files.
type Config struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	EntryText    []string          `json:"entry_text"`
	Hints        []Hint            `json:"hints,omitempty"`
	Destinations map[string]string `json:"destinations,omitempty"` // transition key -> room id
	Setup        *state.Delta      `json:"setup,omitempty"`        // applied once, on first entry
	FlagPrefix   string            `json:"flag_prefix,omitempty"`
	Challenge    *challenge.Config `json:"challenge,omitempty"`
	Tables       []command.Table   `json:"tables"`
}

// Handlers binds dynamic command handler names used in content to code.
type Handlers map[string]command.Handler

// Declarative is a room whose behavior is entirely described by its Config.
type Declarative struct {
	cfg  Config
	proc *command.Processor
}

// NewDeclarative builds a room over cfg. Tables are evaluated in the order given.
func NewDeclarative(cfg Config) *Declarative {
	return &Declarative{
		cfg:  cfg,
		proc: command.NewProcessor(cfg.Tables...).WithDestinations(cfg.Destinations),
	}
}

// Decode parses a JSON room definition and binds its dynamic commands to handlers.
func Decode(data []byte, handlers Handlers) (*Declarative, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode room: %w", err)
	}
	if err := bindHandlers(&cfg, handlers); err != nil {
		return nil, err
	}
	return NewDeclarative(cfg), nil
}

func bindHandlers(cfg *Config, handlers Handlers) error {
	for ti := range cfg.Tables {
		cmds := slices.Clone(cfg.Tables[ti].Commands)
		for ci := range cmds {
			name := cmds[ci].HandlerName
			if name == "" {
				continue
			}
			if cmds[ci].Kind == command.KindStandard {
				cmds[ci].Kind = command.KindDynamic
			}
			h, ok := handlers[name]
			if !ok {
				return fmt.Errorf("%w: room %q: command %q: handler %q is not registered",
					ErrInvalidRoom, cfg.ID, cmds[ci].Phrase, name)
			}
			cmds[ci].Handler = h
		}
		cfg.Tables[ti].Commands = cmds
	}
	return nil
}

func (d *Declarative) RoomID() string { return d.cfg.ID }
func (d *Declarative) Name() string   { return d.cfg.Name }

// Config returns the room definition.
func (d *Declarative) Config() Config { return d.cfg }

func (d *Declarative) ChallengeConfig() *challenge.Config { return d.cfg.Challenge }

func (d *Declarative) FlagPrefix() string { return d.cfg.FlagPrefix }

// Enter applies one-time setup on the first visit and returns the banner, entry text
// and the current progression hint.
func (d *Declarative) Enter(s *state.Session) []string {
	SetupOnce(d.cfg.ID, s, func() {
		d.cfg.Setup.ApplyTo(s)
	})

	body := slices.Clone(d.cfg.EntryText)
	if hint := d.hint(s); hint != "" {
		body = append(body, "", hint)
	}
	return Banner(d.cfg.Name, body)
}

func (d *Declarative) hint(s *state.Session) string {
	for _, h := range d.cfg.Hints {
		if h.Flag == "" || !s.GetFlag(h.Flag) {
			return h.Text
		}
	}
	return ""
}

// HandleInput delegates entirely to the command processor.
func (d *Declarative) HandleInput(text string, s *state.Session) (command.Response, error) {
	return d.proc.Process(text, s)
}

func (d *Declarative) ListCommands() []string {
	return d.proc.Describe()
}

// Targets lists every room id this room can send the session to.
func (d *Declarative) Targets() []string {
	targets := d.proc.Targets()
	if d.cfg.Challenge != nil {
		targets = append(targets, d.cfg.Challenge.FailDestination)
	}
	return targets
}

// Check reports problems with the room's own definition.
func (d *Declarative) Check() []error {
	var problems []error
	if d.cfg.Name == "" {
		problems = append(problems, fmt.Errorf("room has no name"))
	}
	for _, t := range d.cfg.Tables {
		seen := make(map[string]bool)
		for i := range t.Commands {
			cmd := &t.Commands[i]
			if err := cmd.Check(); err != nil {
				problems = append(problems, fmt.Errorf("table %q: %w", t.Name, err))
				continue
			}
			for _, p := range cmd.Phrases() {
				p = command.NormalizeInput(p)
				if seen[p] {
					problems = append(problems, fmt.Errorf("table %q: duplicate phrase %q", t.Name, p))
				}
				seen[p] = true
			}
		}
	}
	if d.cfg.Challenge != nil {
		if err := d.cfg.Challenge.Check(); err != nil {
			problems = append(problems, err)
		}
	}
	return problems
}
