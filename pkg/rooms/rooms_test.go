package rooms

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/room-engine/pkg/command"
	"github.com/jwebster45206/room-engine/pkg/room"
	"github.com/jwebster45206/room-engine/pkg/state"
)

type fakeClock struct {
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
func (c *fakeClock) AdvanceMillis(ms int)    { c.Advance(time.Duration(ms) * time.Millisecond) }

func send(t *testing.T, r room.Room, s *state.Session, input string) command.Response {
	t.Helper()
	resp, err := r.HandleInput(input, s)
	require.NoError(t, err, input)
	return resp
}

func readyPulseArray(t *testing.T, clock *fakeClock) (room.Room, *state.Session) {
	t.Helper()
	r := NewPulseArray("next_room", DefaultPulseTiming, clock.Now)
	s := state.NewSession(PulseArrayID)
	r.Enter(s)
	for _, in := range []string{"scan array", "calibrate spires", "analyze rhythm"} {
		send(t, r, s, in)
	}
	return r, s
}

func TestPulseArray_Setup(t *testing.T) {
	clock := newClock()
	r := NewPulseArray("next_room", DefaultPulseTiming, clock.Now)
	s := state.NewSession(PulseArrayID)

	lines := r.Enter(s)
	assert.Equal(t, "=== BEACON NODE: PULSE SYNCHRONIZATION ===", lines[0])
	assert.Contains(t, lines, ">> Neural resonance offline. Try 'scan array' to assess pulse harmonics.")

	resp := send(t, r, s, "calibrate spires")
	assert.Equal(t, []string{">> Unknown array configuration. 'scan array' first."}, resp.Lines)

	resp = send(t, r, s, "fire pulse 1")
	assert.Equal(t, []string{">> Rhythm analysis required. Use 'analyze rhythm' first."}, resp.Lines)

	send(t, r, s, "scan array")
	send(t, r, s, "calibrate spires")
	resp = send(t, r, s, "analyze rhythm")
	assert.Contains(t, resp.Lines, "   - Required sequence: Spire 1 -> Spire 3 -> Spire 2")
	assert.Contains(t, resp.Lines, "   - Timing intervals: 5.0s, 4.5s")
	assert.Contains(t, resp.Lines, "   - Tolerance: +/-0.8 seconds")
}

func TestPulseArray_CorrectSequence(t *testing.T) {
	clock := newClock()
	r, s := readyPulseArray(t, clock)

	resp := send(t, r, s, "fire pulse 1")
	assert.Equal(t, []string{">> Pulse 1 fired successfully.", ">> Next: fire pulse 3 in 5.0s"}, resp.Lines)

	clock.AdvanceMillis(5300)
	resp = send(t, r, s, "fire pulse 3")
	assert.Equal(t, ">> Pulse 3 fired successfully.", resp.Lines[0])

	resp = send(t, r, s, "pulse status")
	assert.Contains(t, resp.Lines, "   - Progress: 2/3")
	assert.Contains(t, resp.Lines, "   - Fired: 1 -> 3")

	clock.AdvanceMillis(4000)
	resp = send(t, r, s, "fire pulse 2")
	assert.Contains(t, resp.Lines, ">> SYNCHRONIZATION COMPLETE. Pulse sequence matched.")
	assert.True(t, s.GetFlag(paComplete))

	resp = send(t, r, s, "activate beacon")
	assert.Equal(t, "next_room", resp.Target)
	assert.Equal(t, 25, s.Score())
}

func TestPulseArray_WrongOrderResets(t *testing.T) {
	clock := newClock()
	r, s := readyPulseArray(t, clock)

	send(t, r, s, "fire pulse 1")
	clock.Advance(5 * time.Second)
	resp := send(t, r, s, "fire pulse 2")
	assert.Equal(t, ">> Pulse 2 fired out of sequence.", resp.Lines[0])
	assert.Equal(t, ">> Expected pulse 3. Sequence reset.", resp.Lines[1])
	assert.Equal(t, 0, s.GetInt(paStep, 0))
}

func TestPulseArray_BadTimingResets(t *testing.T) {
	tests := []struct {
		name string
		wait time.Duration
		ok   bool
	}{
		{name: "too early", wait: 4 * time.Second, ok: false},
		{name: "early edge", wait: 4200 * time.Millisecond, ok: true},
		{name: "late edge", wait: 5800 * time.Millisecond, ok: true},
		{name: "too late", wait: 6 * time.Second, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newClock()
			r, s := readyPulseArray(t, clock)
			send(t, r, s, "fire pulse 1")
			clock.Advance(tt.wait)

			resp := send(t, r, s, "fire pulse 3")
			if tt.ok {
				assert.Equal(t, ">> Pulse 3 fired successfully.", resp.Lines[0])
				assert.Equal(t, 2, s.GetInt(paStep, 0))
				return
			}
			assert.Equal(t, ">> Pulse 3 fired with incorrect timing.", resp.Lines[0])
			assert.Equal(t, 0, s.GetInt(paStep, 0))
		})
	}
}

func TestPulseArray_InvalidInput(t *testing.T) {
	clock := newClock()
	r, s := readyPulseArray(t, clock)

	tests := []struct {
		input string
		want  string
	}{
		{"fire pulse", ">> Invalid syntax. Use 'fire pulse [1/2/3]'."},
		{"fire pulse 1 2", ">> Invalid syntax. Use 'fire pulse [1/2/3]'."},
		{"fire pulse 7", ">> Invalid pulse ID. Use 1, 2, or 3."},
		{"fire pulse x", ">> Invalid pulse ID. Use 1, 2, or 3."},
	}
	for _, tt := range tests {
		resp := send(t, r, s, tt.input)
		assert.Equal(t, []string{tt.want}, resp.Lines, tt.input)
	}
}

func TestPulseArray_ResetAndStop(t *testing.T) {
	clock := newClock()
	r, s := readyPulseArray(t, clock)

	send(t, r, s, "fire pulse 1")
	resp := send(t, r, s, "reset sequence")
	assert.Equal(t, ">> Pulse sequence reset.", resp.Lines[0])
	assert.Nil(t, s.GetVar(paFired, nil))

	send(t, r, s, "fire pulse 1")
	resp = send(t, r, s, "emergency stop")
	assert.Equal(t, ">> EMERGENCY STOP ACTIVATED", resp.Lines[0])
	assert.Equal(t, 0, s.GetInt(paStep, 0))
}

func TestPulseArray_ProgressSurvivesSnapshot(t *testing.T) {
	clock := newClock()
	r, s := readyPulseArray(t, clock)
	send(t, r, s, "fire pulse 1")

	data, err := s.MarshalJSON()
	require.NoError(t, err)
	restored, err := state.Restore(data)
	require.NoError(t, err)

	clock.Advance(5 * time.Second)
	resp := send(t, r, restored, "fire pulse 3")
	assert.Equal(t, ">> Pulse 3 fired successfully.", resp.Lines[0])
}

func TestPulseArray_Validate(t *testing.T) {
	r := NewPulseArray("next_room", DefaultPulseTiming, nil)
	assert.NoError(t, room.Validate(r, func(id string) bool { return id == "next_room" }))

	bad := NewPulseArray("next_room", PulseTiming{Sequence: []int{1, 2}}, nil)
	err := room.Validate(bad, func(string) bool { return true })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs 1 intervals")
}

func stableVault(t *testing.T) (room.Room, *state.Session) {
	t.Helper()
	r := NewShardVault("hub")
	s := state.NewSession(ShardVaultID)
	r.Enter(s)
	send(t, r, s, "scan shards")
	send(t, r, s, "stabilize orbit")
	return r, s
}

func TestShardVault_Gating(t *testing.T) {
	r := NewShardVault("hub")
	s := state.NewSession(ShardVaultID)

	resp := send(t, r, s, "collect c1")
	assert.Equal(t, []string{">> Cannot collect from chaotic orbit. Stabilize first."}, resp.Lines)

	resp = send(t, r, s, "stabilize orbit")
	assert.Equal(t, []string{">> Unknown shard configuration. 'scan shards' first."}, resp.Lines)

	resp = send(t, r, s, "recall origin")
	assert.Equal(t, []string{">> Memory synchronization incomplete. Gather more fragments."}, resp.Lines)
}

func TestShardVault_CollectAndRelease(t *testing.T) {
	r, s := stableVault(t)

	resp := send(t, r, s, "collect c1")
	assert.Equal(t, ">> Collected [RED] Shard C1:", resp.Lines[0])
	assert.Equal(t, ">> Collection progress: 1/20 shards", resp.Lines[3])

	resp = send(t, r, s, "collect C1")
	assert.Equal(t, []string{">> Shard C1 already in collection."}, resp.Lines)

	resp = send(t, r, s, "collect z9")
	assert.Equal(t, []string{">> Unknown shard ID: Z9"}, resp.Lines)

	resp = send(t, r, s, "examine crimson")
	assert.Contains(t, resp.Lines, "   C1: You were called by a different name once... [COLLECTED]")

	resp = send(t, r, s, "examine teal")
	assert.True(t, strings.HasPrefix(resp.Lines[0], ">> Unknown category: teal."))

	resp = send(t, r, s, "release c1")
	assert.Equal(t, []string{">> Released shard C1 back to orbital vault."}, resp.Lines)
	assert.Empty(t, collectedShards(s))
}

func TestShardVault_SyncAndIntegrate(t *testing.T) {
	r, s := stableVault(t)

	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		send(t, r, s, "collect "+id)
	}
	resp := send(t, r, s, "sync memories")
	assert.Contains(t, resp.Lines, ">> 1 New Memory Fragment synchronized:")
	assert.Contains(t, resp.Lines, "   [+] Identity")
	assert.Contains(t, resp.Lines, ">> Synchronization progress: 1/5 memory fragments")
	assert.False(t, s.GetFlag(svSynced))

	for _, cat := range shardCategories {
		for _, sh := range cat.Shards {
			send(t, r, s, "collect "+sh.ID)
		}
	}
	resp = send(t, r, s, "sync memories")
	assert.Contains(t, resp.Lines, ">> 4 New Memory Fragments synchronized:")
	assert.Contains(t, resp.Lines, ">> COMPLETE SYNCHRONIZATION ACHIEVED!")
	assert.True(t, s.GetFlag(svSynced))

	send(t, r, s, "release v5")
	assert.False(t, s.GetFlag(svSynced), "releasing a shard unsyncs its fragment")
	assert.NotContains(t, syncedFragments(s), "purpose")
	send(t, r, s, "collect v5")
	send(t, r, s, "sync memories")
	require.True(t, s.GetFlag(svSynced))

	resp = send(t, r, s, "recall origin")
	assert.Contains(t, resp.Lines, ">> YOUR ORIGIN STORY:")

	resp = send(t, r, s, "integrate self")
	assert.Equal(t, "hub", resp.Target)
	assert.Equal(t, 25, s.Score())
}

func TestShardVault_Status(t *testing.T) {
	r, s := stableVault(t)
	send(t, r, s, "collect a2")

	resp := send(t, r, s, "shard status")
	assert.Contains(t, resp.Lines, "   Orbital State: STABILIZED [ACTIVE]")
	assert.Contains(t, resp.Lines, "   [BLUE] Purpose Shards: 1/5")
	assert.Contains(t, resp.Lines, "   Total Collection: 1/20 shards")

	resp = send(t, r, s, "memory progress")
	assert.Contains(t, resp.Lines, "   [PARTIAL] Mission: 1/4")
}

func TestBuiltin(t *testing.T) {
	builtins := Builtin(nil)
	require.Len(t, builtins, 2)
	assert.Equal(t, PulseArrayID, builtins[0].RoomID())
	assert.Equal(t, ShardVaultID, builtins[1].RoomID())

	known := func(id string) bool { return id == ShardVaultID || id == "system_hub" }
	for _, r := range builtins {
		assert.NoError(t, room.Validate(r, known), r.RoomID())
		assert.NotEmpty(t, r.ListCommands())
	}
	assert.Equal(t, "pa_", room.FlagPrefixOf(builtins[0]))
	assert.Equal(t, "sv_", room.FlagPrefixOf(builtins[1]))
}

func TestPassword(t *testing.T) {
	setup := func() *state.Session {
		s := state.NewSession("gate")
		s.SetVar("gate_password", "open sesame")
		s.SetVar("gate_password_flag", "gate_open")
		return s
	}

	t.Run("wrong phrase costs health", func(t *testing.T) {
		s := setup()
		resp, err := password(command.Input{Phrase: "password", Arg: "let me in"}, s)
		require.NoError(t, err)
		assert.Equal(t, ">> ACCESS DENIED.", resp.Lines[0])
		assert.Equal(t, 90, s.Health())
		assert.False(t, s.GetFlag("gate_open"))
	})

	t.Run("quoted phrase unlocks", func(t *testing.T) {
		s := setup()
		resp, err := password(command.Input{Phrase: "password", Arg: "'open sesame'"}, s)
		require.NoError(t, err)
		assert.Equal(t, []string{">> ACCESS GRANTED. Security layer dissolved."}, resp.Lines)
		assert.True(t, s.GetFlag("gate_open"))
		assert.Equal(t, 10, s.Score())

		resp, err = password(command.Input{Phrase: "password", Arg: "anything"}, s)
		require.NoError(t, err)
		assert.Equal(t, []string{">> Access already granted."}, resp.Lines)
	})

	t.Run("missing argument", func(t *testing.T) {
		resp, err := password(command.Input{Phrase: "password"}, setup())
		require.NoError(t, err)
		assert.Equal(t, []string{">> Usage: password <phrase>"}, resp.Lines)
	})

	t.Run("unconfigured room is an error", func(t *testing.T) {
		_, err := password(command.Input{Phrase: "password", Arg: "x"}, state.NewSession("gate"))
		assert.EqualError(t, err, "session variable gate_password_flag is not set")
	})

	t.Run("rooms keep separate phrases", func(t *testing.T) {
		s := setup()
		s.SetVar("vault_password", "swordfish")
		s.SetVar("vault_password_flag", "vault_open")

		resp, err := password(command.Input{Phrase: "password", Arg: "swordfish"}, s)
		require.NoError(t, err)
		assert.Equal(t, ">> ACCESS DENIED.", resp.Lines[0], "the vault phrase does not open the gate")

		s.SetCurrentRoom("vault")
		resp, err = password(command.Input{Phrase: "password", Arg: "swordfish"}, s)
		require.NoError(t, err)
		assert.Equal(t, []string{">> ACCESS GRANTED. Security layer dissolved."}, resp.Lines)
		assert.True(t, s.GetFlag("vault_open"))
		assert.False(t, s.GetFlag("gate_open"))

		s.SetCurrentRoom("gate")
		resp, err = password(command.Input{Phrase: "password", Arg: "open sesame"}, s)
		require.NoError(t, err)
		assert.Equal(t, []string{">> ACCESS GRANTED. Security layer dissolved."}, resp.Lines)
		assert.True(t, s.GetFlag("gate_open"))
	})
}

func TestSetHandle(t *testing.T) {
	s := state.NewSession("boot")

	resp, err := setHandle(command.Input{Phrase: "set handle"}, s)
	require.NoError(t, err)
	assert.Equal(t, []string{">> Invalid handle. Try again."}, resp.Lines)

	resp, err = setHandle(command.Input{Phrase: "set handle", Arg: "a very long handle that will not fit"}, s)
	require.NoError(t, err)
	assert.Equal(t, []string{">> Handle too long. Use at most 24 characters."}, resp.Lines)

	resp, err = setHandle(command.Input{Phrase: "set handle", Arg: "dumbass"}, s)
	require.NoError(t, err)
	assert.Equal(t, []string{">> Handle rejected by the node's content filter."}, resp.Lines)
	assert.False(t, s.GetFlag("boot_handle_set"))

	resp, err = setHandle(command.Input{Phrase: "set handle", Arg: "neo!"}, s)
	require.NoError(t, err)
	assert.Equal(t, ">> Handle set to 'neo'.", resp.Lines[0])
	assert.Equal(t, "neo", s.GetString("handle", ""))
	assert.True(t, s.GetFlag("boot_handle_set"))
}

func TestHandlers(t *testing.T) {
	h := Handlers()
	assert.Contains(t, h, "password")
	assert.Contains(t, h, "set_handle")
}
