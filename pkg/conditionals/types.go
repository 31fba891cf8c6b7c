package conditionals

import (
	"fmt"

	"github.com/goccy/go-json"
)

// When is a conjunction of conditions over session state.
// Every listed condition must hold.
type When struct {
	Flags    []string          `json:"flags,omitempty"`     // All flags must be true
	NotFlags []string          `json:"not_flags,omitempty"` // All flags must be false or unset
	Items    []string          `json:"items,omitempty"`     // All items must be held
	Vars     map[string]string `json:"vars,omitempty"`      // All variables must match (compared as text)
	Location string            `json:"location,omitempty"`  // Session must be in this room
}

// UnmarshalJSON accepts a bare list of flag names as shorthand for {"flags": [...]}.
func (w *When) UnmarshalJSON(data []byte) error {
	var flags []string
	if err := json.Unmarshal(data, &flags); err == nil {
		*w = When{Flags: flags}
		return nil
	}

	type Alias When
	aux := &struct{ *Alias }{Alias: (*Alias)(w)}
	return json.Unmarshal(data, aux)
}

// StateView provides the minimal interface needed to evaluate conditions.
// This avoids an import cycle with the state package
type StateView interface {
	GetFlag(name string) bool
	HasItem(id string) bool
	GetVar(name string, def any) any
	CurrentRoom() string
}

// IsEmpty reports whether the clause has no conditions at all.
func (w *When) IsEmpty() bool {
	return w == nil || (len(w.Flags) == 0 &&
		len(w.NotFlags) == 0 &&
		len(w.Items) == 0 &&
		len(w.Vars) == 0 &&
		w.Location == "")
}

// Met reports whether every condition holds. An empty clause is always met,
// which suits prerequisites.
func (w *When) Met(view StateView) bool {
	if w.IsEmpty() {
		return true
	}
	return EvaluateWhen(*w, view)
}

// Triggers reports whether the clause fires. Unlike Met, an empty clause never fires,
// which suits success conditions and triggers.
func (w *When) Triggers(view StateView) bool {
	if w.IsEmpty() {
		return false
	}
	return EvaluateWhen(*w, view)
}

// EvaluateWhen checks if all conditions in a When clause are met
func EvaluateWhen(when When, view StateView) bool {
	// If no conditions specified, return false (conditional should not trigger)
	if when.IsEmpty() {
		return false
	}

	for _, f := range when.Flags {
		if !view.GetFlag(f) {
			return false
		}
	}

	for _, f := range when.NotFlags {
		if view.GetFlag(f) {
			return false
		}
	}

	for _, item := range when.Items {
		if !view.HasItem(item) {
			return false
		}
	}

	for varName, expectedValue := range when.Vars {
		actual := view.GetVar(varName, nil)
		if actual == nil || fmt.Sprint(actual) != expectedValue {
			return false
		}
	}

	if when.Location != "" && view.CurrentRoom() != when.Location {
		return false
	}

	// All conditions passed
	return true
}

// Missing lists the flags and items from the clause that are not yet satisfied, in declaration order.
func Missing(when *When, view StateView) []string {
	if when.IsEmpty() {
		return nil
	}
	var missing []string
	for _, f := range when.Flags {
		if !view.GetFlag(f) {
			missing = append(missing, f)
		}
	}
	for _, item := range when.Items {
		if !view.HasItem(item) {
			missing = append(missing, item)
		}
	}
	return missing
}
