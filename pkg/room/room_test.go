package room

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/room-engine/pkg/challenge"
	"github.com/jwebster45206/room-engine/pkg/command"
	"github.com/jwebster45206/room-engine/pkg/state"
)

const cellarJSON = `{
  "id": "cellar",
  "name": "Dusty Cellar",
  "entry_text": ["Cobwebs everywhere."],
  "hints": [
    { "flag": "cellar_lit", "text": "It is dark. Try 'light lamp'." },
    { "text": "The stairs lead up." }
  ],
  "destinations": { "up": "hall" },
  "setup": { "add_items": ["matches"], "set_vars": { "candles": 3 } },
  "tables": [
    {
      "name": "main",
      "commands": [
        { "command": "light lamp", "sets": "cellar_lit", "success": ["The lamp flickers on."] },
        { "command": "shout", "takes_arg": true, "handler": "echo" },
        { "command": "climb stairs", "requires": ["cellar_lit"], "transition": { "to": "up" } }
      ]
    }
  ]
}`

func echoHandler(in command.Input, _ *state.Session) (command.Response, error) {
	return command.Say("You shout: " + in.Arg), nil
}

func TestBanner(t *testing.T) {
	got := Banner("Dusty Cellar", []string{"line"})
	assert.Equal(t, []string{"=== DUSTY CELLAR ===", "line", ""}, got)
}

func TestDecode(t *testing.T) {
	r, err := Decode([]byte(cellarJSON), Handlers{"echo": echoHandler})
	require.NoError(t, err)

	assert.Equal(t, "cellar", r.RoomID())
	assert.Equal(t, "Dusty Cellar", r.Name())
	assert.Contains(t, r.Targets(), "hall")

	s := state.NewSession("cellar")
	resp, err := r.HandleInput("shout hello there", s)
	require.NoError(t, err)
	assert.Equal(t, []string{"You shout: hello there"}, resp.Lines, "handler names bind dynamic commands")
}

func TestDecode_UnknownHandler(t *testing.T) {
	_, err := Decode([]byte(cellarJSON), Handlers{})
	assert.ErrorIs(t, err, ErrInvalidRoom)
}

func TestDecode_BadJSON(t *testing.T) {
	_, err := Decode([]byte(`{"id": `), nil)
	assert.Error(t, err)
}

func TestDeclarative_EnterRunsSetupOnce(t *testing.T) {
	r, err := Decode([]byte(cellarJSON), Handlers{"echo": echoHandler})
	require.NoError(t, err)
	s := state.NewSession("cellar")

	lines := r.Enter(s)
	assert.Equal(t, []string{
		"=== DUSTY CELLAR ===",
		"Cobwebs everywhere.",
		"",
		"It is dark. Try 'light lamp'.",
		"",
	}, lines)
	assert.Equal(t, []string{"matches"}, s.Inventory())
	assert.Equal(t, 3, s.GetInt("candles", 0))
	assert.True(t, s.GetFlag(InitializedFlag("cellar")))

	s.RemoveItem("matches")
	s.SetVar("candles", 1)
	_, err = r.HandleInput("light lamp", s)
	require.NoError(t, err)

	lines = r.Enter(s)
	assert.Empty(t, s.Inventory(), "setup does not repeat on re-entry")
	assert.Equal(t, 1, s.GetInt("candles", 0))
	assert.Equal(t, "The stairs lead up.", lines[len(lines)-2], "next hint once the first flag is set")
}

func TestDeclarative_ListCommands(t *testing.T) {
	r, err := Decode([]byte(cellarJSON), Handlers{"echo": echoHandler})
	require.NoError(t, err)
	assert.Equal(t, []string{"light lamp", "shout <arg>", "climb stairs"}, r.ListCommands())
}

func TestDeclarative_Transition(t *testing.T) {
	r, err := Decode([]byte(cellarJSON), Handlers{"echo": echoHandler})
	require.NoError(t, err)
	s := state.NewSession("cellar")

	resp, err := r.HandleInput("climb stairs", s)
	require.NoError(t, err)
	assert.Empty(t, resp.Target, "prerequisites gate the transition")

	s.SetFlag("cellar_lit", true)
	resp, err = r.HandleInput("climb stairs", s)
	require.NoError(t, err)
	assert.Equal(t, "hall", resp.Target)
}

func TestValidate(t *testing.T) {
	known := func(ids ...string) func(string) bool {
		return func(id string) bool {
			for _, k := range ids {
				if k == id {
					return true
				}
			}
			return false
		}
	}

	r, err := Decode([]byte(cellarJSON), Handlers{"echo": echoHandler})
	require.NoError(t, err)

	assert.NoError(t, Validate(r, known("cellar", "hall")))

	err = Validate(r, known("cellar"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRoom))
	assert.Contains(t, err.Error(), `"hall"`)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	r := NewDeclarative(Config{
		ID: "broken",
		Tables: []command.Table{{Name: "main", Commands: []command.PuzzleCommand{
			{Phrase: "go", Transition: &command.Transition{To: "nowhere"}},
			{Phrase: "GO"},
			{Kind: command.KindDynamic, Phrase: "magic"},
		}}},
		Challenge: &challenge.Config{Duration: 30, FailDestination: "void", SuccessFlag: "done"},
	})

	err := Validate(r, func(string) bool { return false })
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "no name")
	assert.Contains(t, msg, "duplicate phrase")
	assert.Contains(t, msg, "no handler")
	assert.Contains(t, msg, `"nowhere"`)
	assert.Contains(t, msg, `"void"`, "challenge fail destination is checked")
}

type stubBehavior struct {
	prefix string
}

func (b stubBehavior) Enter(*state.Session) []string { return []string{"body"} }
func (b stubBehavior) Commands() []string            { return []string{"poke"} }
func (b stubBehavior) Destinations() []string        { return []string{"exit"} }
func (b stubBehavior) FlagPrefix() string            { return b.prefix }

func (b stubBehavior) Handle(text string, _ *state.Session) (command.Response, error) {
	if text == "poke" {
		return command.Say("ouch"), nil
	}
	return command.Unrecognized(), nil
}

func TestProcedural(t *testing.T) {
	r := NewProcedural("lab", "Secret Lab", stubBehavior{prefix: "lab_"})
	s := state.NewSession("lab")

	assert.Equal(t, []string{"=== SECRET LAB ===", "body", ""}, r.Enter(s))
	assert.Equal(t, []string{"poke"}, r.ListCommands())
	assert.Equal(t, []string{"exit"}, r.Targets())
	assert.Nil(t, r.ChallengeConfig())
	assert.Equal(t, "lab_", FlagPrefixOf(r))

	resp, err := r.HandleInput("poke", s)
	require.NoError(t, err)
	assert.Equal(t, []string{"ouch"}, resp.Lines)

	err = Validate(r, func(id string) bool { return id == "exit" })
	assert.NoError(t, err)
}

func TestFlagPrefixOf_Default(t *testing.T) {
	r := NewProcedural("lab", "Lab", stubBehavior{})
	assert.Equal(t, "lab_", FlagPrefixOf(r))

	d := NewDeclarative(Config{ID: "vault", FlagPrefix: "v_"})
	assert.Equal(t, "v_", FlagPrefixOf(d))
}

func TestSetupOnce(t *testing.T) {
	s := state.NewSession("x")
	runs := 0
	assert.True(t, SetupOnce("x", s, func() { runs++ }))
	assert.False(t, SetupOnce("x", s, func() { runs++ }))
	assert.Equal(t, 1, runs)
}
