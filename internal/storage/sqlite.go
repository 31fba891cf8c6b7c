package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jwebster45206/room-engine/pkg/state"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	room       TEXT NOT NULL,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps save slots in a local SQLite file.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Ensure SQLiteStore implements SessionStore interface
var _ SessionStore = (*SQLiteStore)(nil)

type sessionRow struct {
	ID        string `db:"id"`
	Room      string `db:"room"`
	Data      []byte `db:"data"`
	UpdatedAt int64  `db:"updated_at"`
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, sess *state.Session) error {
	if sess == nil {
		return errors.New("session cannot be nil")
	}
	if sess.UpdatedAt().IsZero() {
		sess.Touch(time.Now())
	}
	data, err := sess.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.db.NamedExecContext(ctx, `
INSERT INTO sessions (id, room, data, updated_at)
VALUES (:id, :room, :data, :updated_at)
ON CONFLICT(id) DO UPDATE SET
	room = excluded.room,
	data = excluded.data,
	updated_at = excluded.updated_at
`, sessionRow{
		ID:        sess.ID().String(),
		Room:      sess.CurrentRoom(),
		Data:      data,
		UpdatedAt: sess.UpdatedAt().UTC().UnixMilli(),
	})
	if err != nil {
		s.logger.Error("Failed to save session", "session_id", sess.ID(), "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id uuid.UUID) (*state.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `SELECT id, room, data, updated_at FROM sessions WHERE id = ?`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return state.Restore(row.Data)
}

func (s *SQLiteStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]SessionInfo, error) {
	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, room, updated_at FROM sessions ORDER BY updated_at DESC, id`); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	infos := make([]SessionInfo, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			s.logger.Warn("Skipping session with bad id", "id", row.ID, "error", err)
			continue
		}
		infos = append(infos, SessionInfo{ID: id, Room: row.Room, UpdatedAt: time.UnixMilli(row.UpdatedAt).UTC()})
	}
	return infos, nil
}
