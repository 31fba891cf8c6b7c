package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/jwebster45206/room-engine/pkg/room"
)

var deathLines = []string{
	">> SYSTEM FAILURE. Integrity depleted.",
	">> Type 'restart confirm' to begin again.",
}

// lookFallback answers look-family input the room did not recognize.
var lookFallback = map[string][]string{
	"look":    {">> You scan the area... but nothing changes."},
	"observe": {">> You observe carefully, but nothing new stands out."},
	"scan":    {">> You run a basic scan, but no anomalies are found."},
}

var globalHelp = []string{
	">> Universal commands:",
	"  look / scan / observe - examine your surroundings",
	"  inventory / i         - view held items",
	"  score / health        - view score or health",
	"  status                - view current game status",
	"  restart               - restart options (room/game)",
	"  help                  - show this help menu",
}

var restartOptions = []string{
	"=== RESTART OPTIONS ===",
	"restart room     - Reset current room puzzles",
	"restart game     - Reset entire game to beginning",
	"restart confirm  - Confirm full game reset",
	"",
	"Note: 'restart room' keeps your inventory and progress in other rooms",
}

const invalidRestart = "Invalid restart command. Type 'restart' for options."

// global answers the commands available in every room. They take precedence over room commands.
func (e *Engine) global(text string, r room.Room, now time.Time) ([]string, bool) {
	s := e.session
	switch text {
	case "help", "h":
		lines := append([]string(nil), globalHelp...)
		if e.debug {
			lines = append(lines, "  flags                 - list game flags (debug)")
		}
		if cmds := r.ListCommands(); len(cmds) > 0 {
			lines = append(lines, "", ">> Room-specific commands:")
			for _, c := range cmds {
				lines = append(lines, "  "+c)
			}
		}
		return lines, true

	case "inventory", "inv", "i":
		return e.inventoryLines(), true

	case "score":
		return []string{fmt.Sprintf(">> Score: %d", s.Score())}, true

	case "health":
		return []string{fmt.Sprintf(">> Health: %d", s.Health())}, true

	case "status":
		lines := []string{
			">> STATUS:",
			fmt.Sprintf("   Current Room: %s", r.Name()),
			fmt.Sprintf("   Inventory: %s", e.plural.Pluralize("item", len(s.Inventory()), true)),
			fmt.Sprintf("   Progress: %s set", e.plural.Pluralize("flag", len(s.SetFlags()), true)),
			fmt.Sprintf("   Score: %d", s.Score()),
			fmt.Sprintf("   Health: %d", s.Health()),
		}
		if e.challenge != nil {
			if line := e.challenge.Status(now); line != "" {
				lines = append(lines, line)
			}
		}
		return lines, true

	case "flags":
		if !e.debug {
			return nil, false
		}
		names := s.SetFlags()
		if len(names) == 0 {
			return []string{">> No flags set."}, true
		}
		lines := make([]string, 0, len(names))
		for _, name := range names {
			lines = append(lines, name+": true")
		}
		return lines, true
	}
	return nil, false
}

func (e *Engine) inventoryLines() []string {
	inv := e.session.Inventory()
	if len(inv) == 0 {
		return []string{"Inventory is empty."}
	}
	return []string{fmt.Sprintf("Inventory (%s): %s",
		e.plural.Pluralize("item", len(inv), true), strings.Join(inv, ", "))}
}

// restart handles "restart"/"reset" and their room, game and confirm options. Other
// "reset ..." phrases are left for the room so content can define its own; an
// unknown "restart ..." option is answered here.
func (e *Engine) restart(text string) ([]string, bool, error) {
	verb, option, _ := strings.Cut(text, " ")
	if verb != "restart" && verb != "reset" {
		return nil, false, nil
	}

	switch option {
	case "":
		return restartOptions, true, nil

	case "room":
		if e.ended {
			return deathLines, true, nil
		}
		lines, err := e.restartRoom()
		return lines, true, err

	case "game":
		return []string{
			"=== WARNING ===",
			"This will reset ALL progress, inventory, and flags!",
			"Type 'restart confirm' to proceed, or any other command to cancel.",
		}, true, nil

	case "confirm":
		lines, err := e.restartGame()
		return lines, true, err
	}
	if verb == "restart" {
		return []string{invalidRestart}, true, nil
	}
	return nil, false, nil
}

func (e *Engine) restartRoom() ([]string, error) {
	r, err := e.room(e.session.CurrentRoom())
	if err != nil {
		return nil, err
	}
	cleared := e.session.ClearFlagsWithPrefix(room.FlagPrefixOf(r))
	e.log.Info("room restarted", "room", r.RoomID(), "flags_cleared", cleared)

	lines := []string{
		fmt.Sprintf("=== RESTARTING ROOM: %s ===", strings.ToUpper(r.RoomID())),
		fmt.Sprintf("Cleared %s.", e.plural.Pluralize("room-specific flag", cleared, true)),
		"Your inventory and progress in other rooms remain intact.",
		"",
	}
	return append(lines, e.enter(r)...), nil
}

func (e *Engine) restartGame() ([]string, error) {
	e.discardChallenge()
	e.session.Reset()
	e.ended = false
	e.log.Info("game restarted", "session_id", e.session.ID(), "room", e.session.CurrentRoom())

	r, err := e.room(e.session.CurrentRoom())
	if err != nil {
		return nil, err
	}
	lines := []string{
		"=== GAME RESET COMPLETE ===",
		"All progress has been erased.",
		"Starting from the beginning...",
		"",
	}
	return append(lines, e.enter(r)...), nil
}
