package state

import (
	"sort"
	"strings"
)

// Delta is a compact description of changes to apply to a session after a successful action.
type Delta struct {
	SetFlags    []string       `json:"set_flags,omitempty"`
	ClearFlags  []string       `json:"clear_flags,omitempty"`
	AddItems    []string       `json:"add_items,omitempty"`
	RemoveItems []string       `json:"remove_items,omitempty"`
	SetVars     map[string]any `json:"set_vars,omitempty"`
	Score       int            `json:"score,omitempty"`
	Health      int            `json:"health,omitempty"`
}

// IsEmpty checks if the Delta changes nothing
func (d *Delta) IsEmpty() bool {
	return d == nil || (len(d.SetFlags) == 0 &&
		len(d.ClearFlags) == 0 &&
		len(d.AddItems) == 0 &&
		len(d.RemoveItems) == 0 &&
		len(d.SetVars) == 0 &&
		d.Score == 0 &&
		d.Health == 0)
}

// ApplyTo applies the delta in a fixed order: flags, items, vars, then score and health.
// Items already held are not added twice.
func (d *Delta) ApplyTo(s *Session) {
	if d.IsEmpty() {
		return
	}

	for _, f := range d.SetFlags {
		s.SetFlag(f, true)
	}
	for _, f := range d.ClearFlags {
		s.ClearFlag(f)
	}

	for _, item := range d.AddItems {
		if !s.HasItem(item) {
			s.AddItem(item)
		}
	}
	for _, item := range d.RemoveItems {
		s.RemoveItem(item)
	}

	// Map iteration order is random; sort so the write order is reproducible.
	keys := make([]string, 0, len(d.SetVars))
	for k := range d.SetVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.SetVar(toSnakeCase(strings.ToLower(k)), d.SetVars[k])
	}

	if d.Score != 0 {
		s.ModifyScore(d.Score)
	}
	if d.Health != 0 {
		s.ModifyHealth(d.Health)
	}
}

// toSnakeCase converts a string to lower snake_case
func toSnakeCase(s string) string {
	var out strings.Builder
	prevUnderscore := false
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			r = r + ('a' - 'A')
		}
		if r == ' ' || r == '-' || r == '.' || r == '_' {
			if !prevUnderscore && i > 0 {
				out.WriteRune('_')
				prevUnderscore = true
			}
			continue
		}
		out.WriteRune(r)
		prevUnderscore = false
	}
	return out.String()
}
