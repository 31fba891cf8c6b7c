package command

import (
	"fmt"
	"maps"
	"slices"

	"github.com/jwebster45206/room-engine/pkg/conditionals"
	"github.com/jwebster45206/room-engine/pkg/state"
)

// Match is the command chosen for an input.
type Match struct {
	Table   string
	Command *PuzzleCommand
	Input   Input
}

// Processor evaluates input against its tables in registration order. The first table
// containing a matching command wins, even if a later table also matches.
type Processor struct {
	tables       []Table
	destinations map[string]string
}

// NewProcessor creates a processor over the given tables, in order.
func NewProcessor(tables ...Table) *Processor {
	return &Processor{tables: slices.Clone(tables)}
}

// WithDestinations sets the alias map used to resolve transition targets.
// A target missing from the map is used as a room id directly.
// Returns the Processor for method chaining
func (p *Processor) WithDestinations(dest map[string]string) *Processor {
	p.destinations = dest
	return p
}

// Register appends a table after the existing ones.
func (p *Processor) Register(t Table) {
	p.tables = append(p.tables, t)
}

// Tables returns the registered tables in order.
func (p *Processor) Tables() []Table {
	return p.tables
}

// Resolve maps a transition key through the destinations table.
func (p *Processor) Resolve(target string) string {
	if dest, ok := p.destinations[target]; ok {
		return dest
	}
	return target
}

// Match finds the command for raw input. Within one table an exact phrase beats a prefix
// match, and the longest prefix phrase wins among prefix matches.
func (p *Processor) Match(raw string) (Match, bool) {
	input := NormalizeInput(raw)
	if input == "" {
		return Match{}, false
	}

	for ti := range p.tables {
		table := &p.tables[ti]
		var best *Match
		bestLen := -1

		for ci := range table.Commands {
			cmd := &table.Commands[ci]
			for _, phrase := range cmd.Phrases() {
				phrase = NormalizeInput(phrase)
				arg, exact, ok := matchPhrase(input, phrase, cmd.TakesArg)
				if !ok {
					continue
				}
				if exact {
					return Match{Table: table.Name, Command: cmd, Input: Input{Raw: input, Phrase: phrase}}, true
				}
				if len(phrase) > bestLen {
					bestLen = len(phrase)
					best = &Match{Table: table.Name, Command: cmd, Input: Input{Raw: input, Phrase: phrase, Arg: arg}}
				}
			}
		}

		if best != nil {
			return *best, true
		}
	}

	return Match{}, false
}

// Process matches the input and evaluates the command against the session.
// Unmatched input yields an Unrecognized response and changes nothing.
func (p *Processor) Process(raw string, s *state.Session) (Response, error) {
	m, ok := p.Match(raw)
	if !ok {
		return Unrecognized(), nil
	}
	return p.Execute(m, s)
}

// Execute evaluates an already matched command.
func (p *Processor) Execute(m Match, s *state.Session) (Response, error) {
	cmd := m.Command

	switch cmd.Kind {
	case KindDynamic:
		if cmd.Handler == nil {
			return Response{}, fmt.Errorf("%w: command %q has no handler bound", ErrHandlerFailed, cmd.Phrase)
		}
		resp, err := cmd.Handler(m.Input, s)
		if err != nil {
			return Response{}, fmt.Errorf("%w: command %q: %w", ErrHandlerFailed, cmd.Phrase, err)
		}
		if resp.Target != "" {
			resp.Target = p.Resolve(resp.Target)
		}
		return resp, nil

	case KindStandard:
		return p.executeStandard(cmd, s), nil

	default:
		return Response{}, fmt.Errorf("command %q has unknown kind %q", cmd.Phrase, cmd.Kind)
	}
}

func (p *Processor) executeStandard(cmd *PuzzleCommand, s *state.Session) Response {
	if !RequirementsMet(cmd, s) {
		return Say(linesOr(cmd.OnMissingRequirement, DefaultMissingReq)...)
	}

	if cmd.SetsFlag != "" && s.GetFlag(cmd.SetsFlag) {
		return Say(linesOr(cmd.OnAlreadyDone, DefaultAlreadyDone)...)
	}

	if cmd.SetsFlag != "" {
		s.SetFlag(cmd.SetsFlag, true)
	}
	cmd.Effects.ApplyTo(s)

	resp := Response{StartsChallenge: cmd.StartsChallenge}
	if cmd.Transition == nil {
		resp.Lines = linesOr(cmd.OnSuccess, DefaultSuccess)
		return resp
	}

	move := MoveTo(p.Resolve(cmd.Transition.To), cmd.Transition.Message...)
	resp.Target = move.Target
	resp.Lines = append(slices.Clone(cmd.OnSuccess), move.Lines...)
	return resp
}

// RequirementsMet reports whether all required flags and the When clause hold.
func RequirementsMet(cmd *PuzzleCommand, view conditionals.StateView) bool {
	for _, req := range cmd.Requires {
		if !view.GetFlag(req) {
			return false
		}
	}
	return cmd.When.Met(view)
}

// Describe lists help lines for every command in non-hidden tables.
func (p *Processor) Describe() []string {
	var lines []string
	for _, t := range p.tables {
		if t.Hidden {
			continue
		}
		for _, cmd := range t.Commands {
			if cmd.Help == "" {
				lines = append(lines, cmd.Usage())
				continue
			}
			lines = append(lines, fmt.Sprintf("%-22s - %s", cmd.Usage(), cmd.Help))
		}
	}
	return lines
}

// Targets returns every transition target declared by standard commands, resolved through
// the destinations table, in table order.
func (p *Processor) Targets() []string {
	var targets []string
	for _, t := range p.tables {
		for _, cmd := range t.Commands {
			if cmd.Transition != nil {
				targets = append(targets, p.Resolve(cmd.Transition.To))
			}
		}
	}
	keys := slices.Sorted(maps.Keys(p.destinations))
	for _, k := range keys {
		targets = append(targets, p.destinations[k])
	}
	return targets
}

func linesOr(lines, fallback []string) []string {
	if len(lines) == 0 {
		return slices.Clone(fallback)
	}
	return slices.Clone(lines)
}
