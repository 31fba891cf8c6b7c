package room

import (
	"errors"
	"fmt"
)

// Validate checks a room's definition and that every transition target, destination and
// challenge fail destination resolves through known. All problems are reported together.
func Validate(r Room, known func(id string) bool) error {
	var problems []error
	if r.RoomID() == "" {
		problems = append(problems, errors.New("room has no id"))
	}

	if c, ok := r.(interface{ Check() []error }); ok {
		problems = append(problems, c.Check()...)
	}

	if t, ok := r.(Targeter); ok {
		seen := make(map[string]bool)
		for _, target := range t.Targets() {
			if seen[target] {
				continue
			}
			seen[target] = true
			if target == "" {
				problems = append(problems, errors.New("empty transition target"))
				continue
			}
			if !known(target) {
				problems = append(problems, fmt.Errorf("transition target %q does not resolve", target))
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w %q: %w", ErrInvalidRoom, r.RoomID(), errors.Join(problems...))
}
