package state

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultHealth = 100
	DefaultScore  = 0
)

// ErrRoomNotFound is returned when a room id does not resolve through the loader.
var ErrRoomNotFound = errors.New("room not found")

// RoomHandle is anything the loader hands back for a room id.
// The engine narrows it to its own Room contract.
type RoomHandle interface {
	RoomID() string
}

// RoomLoader resolves room ids to loaded rooms. How content is discovered is up to the implementation.
type RoomLoader interface {
	LoadRoom(id string) (RoomHandle, error)
	HasRoom(id string) bool
}

// Session is the single mutable store for one play session.
// All reads and writes go through its accessor methods.
type Session struct {
	id          uuid.UUID
	currentRoom string
	startRoom   string
	flags       map[string]bool
	vars        map[string]any
	inventory   []string
	score       int
	health      int
	updatedAt   time.Time

	loader RoomLoader
	rooms  map[string]RoomHandle // resolved rooms, never serialized
}

// NewSession creates a fresh session positioned at startRoom.
func NewSession(startRoom string) *Session {
	return &Session{
		id:          uuid.New(),
		currentRoom: startRoom,
		startRoom:   startRoom,
		flags:       make(map[string]bool),
		vars:        make(map[string]any),
		inventory:   make([]string, 0),
		score:       DefaultScore,
		health:      DefaultHealth,
		rooms:       make(map[string]RoomHandle),
	}
}

func (s *Session) ID() uuid.UUID        { return s.id }
func (s *Session) CurrentRoom() string  { return s.currentRoom }
func (s *Session) StartRoom() string    { return s.startRoom }
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

// Touch records the last time the session was saved or played.
func (s *Session) Touch(t time.Time) {
	s.updatedAt = t
}

func (s *Session) SetCurrentRoom(id string) {
	s.currentRoom = id
}

// Flags

// GetFlag reports whether a flag is set. Missing flags are false.
func (s *Session) GetFlag(name string) bool {
	return s.flags[name]
}

func (s *Session) SetFlag(name string, value bool) {
	if s.flags == nil {
		s.flags = make(map[string]bool)
	}
	s.flags[name] = value
}

// ClearFlag removes a flag and reports whether it existed.
func (s *Session) ClearFlag(name string) bool {
	if _, ok := s.flags[name]; !ok {
		return false
	}
	delete(s.flags, name)
	return true
}

// ClearFlagsWithPrefix removes every flag starting with prefix and returns how many were removed.
func (s *Session) ClearFlagsWithPrefix(prefix string) int {
	if prefix == "" {
		return 0
	}
	cleared := 0
	for name := range s.flags {
		if strings.HasPrefix(name, prefix) {
			delete(s.flags, name)
			cleared++
		}
	}
	return cleared
}

// SetFlags returns the names of all flags currently true, sorted.
func (s *Session) SetFlags() []string {
	names := make([]string, 0, len(s.flags))
	for name, v := range s.flags {
		if v {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Variables

// GetVar returns the variable value or def when it is unset.
func (s *Session) GetVar(name string, def any) any {
	if v, ok := s.vars[name]; ok {
		return v
	}
	return def
}

// GetInt reads an integer variable, accepting any numeric representation.
func (s *Session) GetInt(name string, def int) int {
	switch v := s.vars[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func (s *Session) GetString(name, def string) string {
	if v, ok := s.vars[name].(string); ok {
		return v
	}
	return def
}

// SetVar stores a variable. Values should be flat: strings, bools, numbers or string lists.
// Integral floats are stored as int.
func (s *Session) SetVar(name string, value any) {
	if s.vars == nil {
		s.vars = make(map[string]any)
	}
	s.vars[name] = normalizeValue(value)
}

func (s *Session) DeleteVar(name string) {
	delete(s.vars, name)
}

// Inventory

// AddItem appends an item. Duplicates are not rejected; callers check HasItem first.
func (s *Session) AddItem(id string) {
	s.inventory = append(s.inventory, id)
}

// RemoveItem removes the first occurrence of id and reports whether anything was removed.
func (s *Session) RemoveItem(id string) bool {
	i := slices.Index(s.inventory, id)
	if i < 0 {
		return false
	}
	s.inventory = slices.Delete(s.inventory, i, i+1)
	return true
}

func (s *Session) HasItem(id string) bool {
	return slices.Contains(s.inventory, id)
}

// Inventory returns a copy of the held items in insertion order.
func (s *Session) Inventory() []string {
	return slices.Clone(s.inventory)
}

// Score and health

func (s *Session) Score() int  { return s.score }
func (s *Session) Health() int { return s.health }

// ModifyScore adjusts the score, never dropping below zero.
func (s *Session) ModifyScore(amount int) {
	s.score = max(0, s.score+amount)
}

// ModifyHealth adjusts health, never dropping below zero.
func (s *Session) ModifyHealth(amount int) {
	s.health = max(0, s.health+amount)
}

func (s *Session) IsAlive() bool {
	return s.health > 0
}

// Reset returns the session to its initial values. The id, loader and resolved rooms are kept.
func (s *Session) Reset() {
	s.currentRoom = s.startRoom
	s.flags = make(map[string]bool)
	s.vars = make(map[string]any)
	s.inventory = make([]string, 0)
	s.score = DefaultScore
	s.health = DefaultHealth
}

// Rooms

// AttachLoader sets the loader used by GetRoom and drops any cached rooms.
func (s *Session) AttachLoader(l RoomLoader) {
	s.loader = l
	s.rooms = make(map[string]RoomHandle)
}

// HasRoom reports whether id is known to the attached loader.
func (s *Session) HasRoom(id string) bool {
	if _, ok := s.rooms[id]; ok {
		return true
	}
	return s.loader != nil && s.loader.HasRoom(id)
}

// ForgetRoom drops the resolved copy of a room so the next GetRoom asks the loader again.
func (s *Session) ForgetRoom(id string) {
	delete(s.rooms, id)
}

// GetRoom resolves a room through the loader, caching it on first resolution.
func (s *Session) GetRoom(id string) (RoomHandle, error) {
	if r, ok := s.rooms[id]; ok {
		return r, nil
	}
	if s.loader == nil {
		return nil, fmt.Errorf("no room loader attached: %w", ErrRoomNotFound)
	}
	r, err := s.loader.LoadRoom(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load room %q: %w", id, err)
	}
	if s.rooms == nil {
		s.rooms = make(map[string]RoomHandle)
	}
	s.rooms[id] = r
	return r, nil
}
