package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rodaine/table"

	"github.com/jwebster45206/room-engine/internal/config"
	"github.com/jwebster45206/room-engine/internal/storage"
	"github.com/jwebster45206/room-engine/pkg/room"
	"github.com/jwebster45206/room-engine/pkg/rooms"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	dir := cfg.ContentDir
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	fmt.Printf("Validating rooms in %s...\n", dir)

	loader, err := storage.NewRoomLoader(dir, rooms.Handlers(), nil, rooms.Builtin(time.Now))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	validator := &RoomValidator{loader: loader, startRoom: cfg.StartRoom}
	validator.validate()
	validator.print()

	if len(validator.errors) > 0 {
		fmt.Fprintf(os.Stderr, "\nValidation errors:\n%s\n", strings.Join(validator.errors, "\n"))
		os.Exit(1)
	}
	fmt.Println("\nAll rooms are valid!")
}

type RoomValidator struct {
	loader    *storage.RoomLoader
	startRoom string
	rows      []row
	errors    []string
}

type row struct {
	id, name, kind    string
	commands, targets int
	challenge, status string
}

func (v *RoomValidator) validate() {
	if !v.loader.HasRoom(v.startRoom) {
		v.addError(fmt.Sprintf("start room '%s' does not exist", v.startRoom))
	}

	for _, id := range v.loader.IDs() {
		r, err := v.loader.Room(id)
		if err != nil {
			v.addError(err.Error())
			v.rows = append(v.rows, row{id: id, status: "LOAD ERROR"})
			continue
		}

		rw := row{
			id:        id,
			name:      r.Name(),
			kind:      kindOf(r),
			commands:  len(r.ListCommands()),
			challenge: "-",
			status:    "ok",
		}
		if t, ok := r.(room.Targeter); ok {
			rw.targets = len(t.Targets())
		}
		if c := room.ChallengeOf(r); c != nil {
			rw.challenge = fmt.Sprintf("%ds -> %s", c.Duration, c.FailDestination)
		}

		if !isValidID(id) {
			v.addError(fmt.Sprintf("room ID '%s' should be lowercase snake_case", id))
			rw.status = "invalid"
		}
		if err := room.Validate(r, v.loader.HasRoom); err != nil {
			for _, problem := range flatten(err) {
				v.addError(problem)
			}
			rw.status = "invalid"
		}
		v.rows = append(v.rows, rw)
	}
}

func (v *RoomValidator) print() {
	t := table.New("Room", "Name", "Kind", "Commands", "Targets", "Challenge", "Status")
	for _, rw := range v.rows {
		t.AddRow(rw.id, rw.name, rw.kind, rw.commands, rw.targets, rw.challenge, rw.status)
	}
	t.Print()
}

func (v *RoomValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func kindOf(r room.Room) string {
	switch r.(type) {
	case *room.Declarative:
		return "declarative"
	case *room.Procedural:
		return "procedural"
	default:
		return "custom"
	}
}

// flatten expands joined errors into one line per problem.
func flatten(err error) []string {
	var lines []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
