// Package storage implements the durable session keystore on SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"fintrack/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Keys under which the session fields are stored.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUsername     = "username"
)

// SQLiteKeystore implements the SessionKeystore interface using SQLite.
// It holds exactly three keys: the access token, the refresh token, and
// the username. This is the only state the client persists.
type SQLiteKeystore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteKeystore creates a new SQLite keystore instance.
func NewSQLiteKeystore(dbPath string) (*SQLiteKeystore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath is required")
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteKeystore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteKeystore) Close() error {
	return s.db.Close()
}

// SaveSession writes the full session state in one transaction.
func (s *SQLiteKeystore) SaveSession(ctx context.Context, state service.SessionState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pairs := map[string]string{
		keyAccessToken:  state.AccessToken,
		keyRefreshToken: state.RefreshToken,
		keyUsername:     state.Username,
	}

	for key, value := range pairs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_state (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			key, value); err != nil {
			return fmt.Errorf("failed to save session key %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session state: %w", err)
	}

	return nil
}

// LoadSession reads the stored session, or returns nil when no access
// token is held.
func (s *SQLiteKeystore) LoadSession(ctx context.Context) (*service.SessionState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session_state`)
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var state service.SessionState
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		switch key {
		case keyAccessToken:
			state.AccessToken = value
		case keyRefreshToken:
			state.RefreshToken = value
		case keyUsername:
			state.Username = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session rows: %w", err)
	}

	if state.AccessToken == "" {
		return nil, nil
	}

	return &state, nil
}

// ClearSession removes all stored session fields. It is a no-op when no
// session is stored.
func (s *SQLiteKeystore) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_state`); err != nil {
		return fmt.Errorf("failed to clear session state: %w", err)
	}
	return nil
}

// Ensure SQLiteKeystore implements the SessionKeystore interface.
var _ service.SessionKeystore = (*SQLiteKeystore)(nil)
