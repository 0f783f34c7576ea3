// Package history persists a log of tool invocations handled by the bridge.
// It records what the bridge did, not remote task state; the Manus API
// remains the only source of truth for tasks.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Invocation is one recorded tool call.
type Invocation struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"status_code"` // upstream HTTP status; zero when none applies
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store handles invocation persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a history store with a SQLite backend under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS invocations (
		id TEXT PRIMARY KEY,
		tool TEXT NOT NULL,
		success INTEGER NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool);
	CREATE INDEX IF NOT EXISTS idx_invocations_created_at ON invocations(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one invocation. The ID and timestamp are assigned here.
func (s *Store) Record(tool string, success bool, statusCode int, duration time.Duration) error {
	inv := &Invocation{
		ID:         uuid.NewString(),
		Tool:       tool,
		Success:    success,
		StatusCode: statusCode,
		DurationMs: duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO invocations (id, tool, success, status_code, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Tool, inv.Success, inv.StatusCode, inv.DurationMs, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invocation: %w", err)
	}
	return nil
}

// Recent returns the most recent invocations, newest first.
func (s *Store) Recent(limit int) ([]*Invocation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, tool, success, status_code, duration_ms, created_at
		 FROM invocations ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var invocations []*Invocation
	for rows.Next() {
		inv := &Invocation{}
		if err := rows.Scan(&inv.ID, &inv.Tool, &inv.Success, &inv.StatusCode, &inv.DurationMs, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		invocations = append(invocations, inv)
	}
	return invocations, rows.Err()
}

// Prune deletes invocations older than maxAge. Returns the number removed.
func (s *Store) Prune(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	result, err := s.db.Exec(`DELETE FROM invocations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune invocations: %w", err)
	}
	return result.RowsAffected()
}
