package state

import (
	"bytes"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Snapshot is the flat, serializable form of a Session.
type Snapshot struct {
	ID          uuid.UUID       `json:"id"`
	CurrentRoom string          `json:"current_room"`
	StartRoom   string          `json:"start_room,omitempty"`
	Flags       map[string]bool `json:"flags,omitempty"`
	Vars        map[string]any  `json:"vars,omitempty"`
	Inventory   []string        `json:"inventory,omitempty"`
	Score       int             `json:"score"`
	Health      int             `json:"health"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Snapshot copies the session's data. Mutating the result does not affect the session.
func (s *Session) Snapshot() Snapshot {
	vars := make(map[string]any, len(s.vars))
	for k, v := range s.vars {
		if list, ok := v.([]string); ok {
			v = slices.Clone(list)
		}
		vars[k] = v
	}
	return Snapshot{
		ID:          s.id,
		CurrentRoom: s.currentRoom,
		StartRoom:   s.startRoom,
		Flags:       maps.Clone(s.flags),
		Vars:        vars,
		Inventory:   slices.Clone(s.inventory),
		Score:       s.score,
		Health:      s.health,
		UpdatedAt:   s.updatedAt,
	}
}

// Apply overwrites the session's data with a snapshot. The loader and resolved rooms are kept.
func (s *Session) Apply(snap Snapshot) {
	s.id = snap.ID
	s.currentRoom = snap.CurrentRoom
	s.startRoom = snap.StartRoom
	if s.startRoom == "" {
		s.startRoom = snap.CurrentRoom
	}
	s.flags = maps.Clone(snap.Flags)
	if s.flags == nil {
		s.flags = make(map[string]bool)
	}
	s.vars = make(map[string]any, len(snap.Vars))
	for k, v := range snap.Vars {
		s.vars[k] = normalizeValue(v)
	}
	s.inventory = slices.Clone(snap.Inventory)
	if s.inventory == nil {
		s.inventory = make([]string, 0)
	}
	s.score = snap.Score
	s.health = snap.Health
	s.updatedAt = snap.UpdatedAt
}

// FromSnapshot builds a detached session from a snapshot.
func FromSnapshot(snap Snapshot) *Session {
	s := &Session{rooms: make(map[string]RoomHandle)}
	s.Apply(snap)
	return s
}

func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

func (s *Session) UnmarshalJSON(data []byte) error {
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}
	s.Apply(snap)
	return nil
}

// DecodeSnapshot parses serialized session data. Integral numbers in vars come back as int.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	for k, v := range snap.Vars {
		snap.Vars[k] = normalizeValue(v)
	}
	return snap, nil
}

// Restore decodes serialized session data into a new session.
func Restore(data []byte) (*Session, error) {
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	return FromSnapshot(snap), nil
}

// number is satisfied by json.Number from either the std or goccy decoder.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
}

// normalizeValue brings a variable value into the canonical form it would have after
// a JSON round trip: integral numbers as int, string lists as []string.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int(val)
		}
		return val
	case number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return v
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			str, ok := item.(string)
			if !ok {
				return v
			}
			out = append(out, str)
		}
		return out
	default:
		return v
	}
}
