package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/room-engine/pkg/room"
	"github.com/jwebster45206/room-engine/pkg/rooms"
	"github.com/jwebster45206/room-engine/pkg/state"
)

func writeRoom(t *testing.T, dir, file, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(body), 0o644))
}

const roomTemplate = `{"id": "%ID%", "name": "%NAME%", "tables": [{"name": "main", "commands": [{"command": "wait"}]}]}`

func roomJSON(id, name string) string {
	return strings.NewReplacer("%ID%", id, "%NAME%", name).Replace(roomTemplate)
}

func TestRoomLoader_ShippedContent(t *testing.T) {
	l, err := NewRoomLoader("../../data/rooms", rooms.Handlers(), testLogger(), rooms.Builtin(nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"boot", "pulse_array", "shard_vault", "system_hub", "whisper_1"}, l.IDs())
	assert.NoError(t, l.ValidateAll(), "every shipped room and transition target must resolve")

	r, err := l.Room("boot")
	require.NoError(t, err)
	assert.Equal(t, "Boot Sector", r.Name())

	h, err := l.LoadRoom(rooms.PulseArrayID)
	require.NoError(t, err)
	assert.Equal(t, rooms.PulseArrayID, h.RoomID())
	assert.True(t, l.HasRoom(rooms.ShardVaultID))
}

func TestRoomLoader_UnknownRoom(t *testing.T) {
	l, err := NewRoomLoader("", nil, testLogger(), nil)
	require.NoError(t, err)

	_, err = l.LoadRoom("nowhere")
	assert.ErrorIs(t, err, state.ErrRoomNotFound)
	assert.False(t, l.HasRoom("nowhere"))
	assert.Empty(t, l.IDs())
}

func TestRoomLoader_RejectsBadContent(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		builtins []room.Room
		wantErr  string
	}{
		{
			name:    "duplicate id",
			files:   map[string]string{"a.json": roomJSON("hall", "A"), "b.json": roomJSON("hall", "B")},
			wantErr: `room id "hall" defined in both`,
		},
		{
			name:    "missing id",
			files:   map[string]string{"a.json": roomJSON("", "A")},
			wantErr: "has no id",
		},
		{
			name:     "shadows builtin",
			files:    map[string]string{"a.json": roomJSON(rooms.ShardVaultID, "Fake")},
			builtins: []room.Room{rooms.NewShardVault("hub")},
			wantErr:  "shadows a builtin room",
		},
		{
			name:    "malformed json",
			files:   map[string]string{"a.json": `{"id": "hall",`},
			wantErr: "a.json",
		},
		{
			name:    "unknown handler",
			files:   map[string]string{"a.json": `{"id": "gate", "name": "Gate", "tables": [{"name": "m", "commands": [{"command": "knock", "handler": "nope"}]}]}`},
			wantErr: `handler "nope" is not registered`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for file, body := range tt.files {
				writeRoom(t, dir, file, body)
			}
			_, err := NewRoomLoader(dir, rooms.Handlers(), testLogger(), tt.builtins)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRoomLoader_DuplicateBuiltins(t *testing.T) {
	_, err := NewRoomLoader("", nil, testLogger(), []room.Room{rooms.NewShardVault("a"), rooms.NewShardVault("b")})
	assert.ErrorIs(t, err, room.ErrInvalidRoom)
}

func TestRoomLoader_InvalidateRereadsFile(t *testing.T) {
	dir := t.TempDir()
	writeRoom(t, dir, "hall.json", roomJSON("hall", "Old Hall"))

	l, err := NewRoomLoader(dir, nil, testLogger(), nil)
	require.NoError(t, err)

	writeRoom(t, dir, "hall.json", roomJSON("hall", "New Hall"))
	r, err := l.Room("hall")
	require.NoError(t, err)
	assert.Equal(t, "Old Hall", r.Name(), "served from cache until invalidated")

	l.Invalidate("hall")
	r, err = l.Room("hall")
	require.NoError(t, err)
	assert.Equal(t, "New Hall", r.Name())

	writeRoom(t, dir, "hall.json", roomJSON("lobby", "Lobby"))
	l.Invalidate("hall")
	_, err = l.Room("hall")
	assert.True(t, errors.Is(err, room.ErrInvalidRoom), "a file may not change its id after indexing")
}

func TestRoomLoader_CacheTTLRereadsFile(t *testing.T) {
	dir := t.TempDir()
	writeRoom(t, dir, "hall.json", roomJSON("hall", "Old Hall"))

	l, err := NewRoomLoader(dir, nil, testLogger(), nil, WithCacheTTL(20*time.Millisecond))
	require.NoError(t, err)
	r, err := l.Room("hall")
	require.NoError(t, err)
	require.Equal(t, "Old Hall", r.Name())

	writeRoom(t, dir, "hall.json", roomJSON("hall", "New Hall"))
	assert.Eventually(t, func() bool {
		r, err := l.Room("hall")
		return err == nil && r.Name() == "New Hall"
	}, time.Second, 10*time.Millisecond, "an expired room is decoded again")
}

func TestRoomLoader_ValidateAllReportsEveryRoom(t *testing.T) {
	dir := t.TempDir()
	writeRoom(t, dir, "a.json", `{"id": "a", "name": "A", "tables": [{"name": "m", "commands": [
		{"command": "go", "transition": {"to": "missing_one"}}]}]}`)
	writeRoom(t, dir, "b.json", `{"id": "b", "name": "B", "destinations": {"x": "missing_two"}, "tables": []}`)

	l, err := NewRoomLoader(dir, nil, testLogger(), nil)
	require.NoError(t, err)

	err = l.ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_one")
	assert.Contains(t, err.Error(), "missing_two")
}
