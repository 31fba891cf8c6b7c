// Package rooms holds the built-in procedural rooms and the dynamic handlers that
// JSON room content can bind to by name.
package rooms

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwebster45206/room-engine/pkg/command"
	"github.com/jwebster45206/room-engine/pkg/room"
	"github.com/jwebster45206/room-engine/pkg/state"
	"github.com/jwebster45206/room-engine/pkg/textfilter"
)

// Builtin returns the procedural rooms shipped with the engine, wired into the default content.
func Builtin(clock func() time.Time) []room.Room {
	return []room.Room{
		NewPulseArray(ShardVaultID, DefaultPulseTiming, clock),
		NewShardVault("system_hub"),
	}
}

// Handlers returns the dynamic command handlers available to JSON content.
func Handlers() room.Handlers {
	return room.Handlers{
		"password":   password,
		"set_handle": setHandle,
	}
}

// password compares the argument with the "<room>_password" variable and, on a match, sets
// the flag named by "<room>_password_flag", where <room> is the current room id. Rooms
// provide both through their one-time setup, so each room keeps its own phrase.
func password(in command.Input, s *state.Session) (command.Response, error) {
	phraseVar, flagVar := passwordVars(s.CurrentRoom())
	unlock := s.GetString(flagVar, "")
	if unlock == "" {
		return command.Response{}, fmt.Errorf("session variable %s is not set", flagVar)
	}
	if s.GetFlag(unlock) {
		return command.Say(">> Access already granted."), nil
	}
	if in.Arg == "" {
		return command.Say(">> Usage: " + in.Phrase + " <phrase>"), nil
	}

	want := s.GetString(phraseVar, "")
	if strings.Join(in.Fields(), " ") != want {
		s.ModifyHealth(-10)
		return command.Say(
			">> ACCESS DENIED.",
			">> Feedback surge. Integrity -10.",
		), nil
	}

	s.SetFlag(unlock, true)
	s.ModifyScore(10)
	return command.Say(">> ACCESS GRANTED. Security layer dissolved."), nil
}

func passwordVars(roomID string) (phrase, flag string) {
	return roomID + "_password", roomID + "_password_flag"
}

var handles = textfilter.NewHandleFilter()

// setHandle records the player's handle in the "handle" variable.
func setHandle(in command.Input, s *state.Session) (command.Response, error) {
	name, err := handles.Clean(in.Arg)
	switch {
	case errors.Is(err, textfilter.ErrHandleTooLong):
		return command.Say(fmt.Sprintf(">> Handle too long. Use at most %d characters.", textfilter.MaxHandleLength)), nil
	case errors.Is(err, textfilter.ErrBlockedHandle):
		return command.Say(">> Handle rejected by the node's content filter."), nil
	case err != nil:
		return command.Say(">> Invalid handle. Try again."), nil
	}
	s.SetVar("handle", name)
	s.SetFlag("boot_handle_set", true)
	return command.Say(
		">> Handle set to '"+name+"'.",
		">> Type 'connect' to open the system hub.",
	), nil
}
