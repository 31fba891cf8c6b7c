package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/room-engine/internal/config"
	"github.com/jwebster45206/room-engine/internal/logger"
	"github.com/jwebster45206/room-engine/internal/storage"
	"github.com/jwebster45206/room-engine/pkg/engine"
	"github.com/jwebster45206/room-engine/pkg/rooms"
	"github.com/jwebster45206/room-engine/pkg/state"
)

const defaultLogFile = "console.log"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	// The UI owns stdout.
	if cfg.LogFile == "" {
		cfg.LogFile = defaultLogFile
	}
	log := logger.Setup(cfg)

	var loaderOpts []storage.LoaderOption
	if cfg.RoomCacheTTL > 0 {
		loaderOpts = append(loaderOpts, storage.WithCacheTTL(cfg.RoomCacheTTL))
	}
	loader, err := storage.NewRoomLoader(cfg.ContentDir, rooms.Handlers(), log, rooms.Builtin(time.Now), loaderOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load rooms: %v\n", err)
		os.Exit(1)
	}
	if err := loader.ValidateAll(); err != nil {
		fmt.Fprintf(os.Stderr, "Room content is invalid:\n%v\n", err)
		os.Exit(1)
	}
	if !loader.HasRoom(cfg.StartRoom) {
		fmt.Fprintf(os.Stderr, "Start room %q does not exist\n", cfg.StartRoom)
		os.Exit(1)
	}

	store, err := storage.NewSessionStore(context.Background(), cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s session store: %v\n", cfg.StorageBackend, err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.WithError(log, err).Warn("Failed to close session store")
		}
	}()

	sess := state.NewSession(cfg.StartRoom)
	eng := engine.New(sess, loader,
		engine.WithLogger(log),
		engine.WithDebug(cfg.DebugCommands))
	game := NewGame(eng, store, logger.WithSessionID(log, sess.ID().String()))

	p := tea.NewProgram(NewConsoleUI(cfg, game),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
