package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
)

// ErrEmptyKey is returned when a snapshot is saved without a client key.
var ErrEmptyKey = errors.New("snapshot key is required")

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		client_key      TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		stage           TEXT NOT NULL,
		payload         TEXT NOT NULL,
		saved_at        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_conversation ON snapshots(conversation_id)`,
}

// SQLite persists snapshots in a SQLite database, one row per client key.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and applies the schema.
// If path is ":memory:", uses an in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration %d: %w", i, err)
		}
	}

	return &SQLite{db: db}, nil
}

// Save upserts the snapshot stored under key.
func (s *SQLite) Save(ctx context.Context, key string, snap essay.Snapshot) error {
	if key == "" {
		return ErrEmptyKey
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (client_key, conversation_id, stage, payload, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(client_key) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			stage = excluded.stage,
			payload = excluded.payload,
			saved_at = excluded.saved_at`,
		key, snap.ConversationID, string(snap.Stage), string(payload), snap.SavedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", key, err)
	}
	return nil
}

// Load returns the snapshot stored under key, if any.
func (s *SQLite) Load(ctx context.Context, key string) (essay.Snapshot, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE client_key = ?`, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return essay.Snapshot{}, false, nil
	}
	if err != nil {
		return essay.Snapshot{}, false, fmt.Errorf("loading snapshot %s: %w", key, err)
	}

	var snap essay.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return essay.Snapshot{}, false, fmt.Errorf("decoding snapshot %s: %w", key, err)
	}
	return snap, true, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
