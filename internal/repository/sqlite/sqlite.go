// Package sqlite implements the account repository on SQLite.
//
// modernc.org/sqlite is a pure-Go translation of the SQLite C code, so the
// binary cross-compiles without cgo. The driver registers itself with
// database/sql under the name "sqlite" via the blank import below.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath is either a file path (persistent) or ":memory:" (tests). WAL mode
// lets concurrent reads proceed while a write is in flight, which matters
// once multiple requests hit the store at once.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping forces an immediate connection so a bad path or permissions
	// problem surfaces here, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the accounts table.
//
// email carries a UNIQUE index; NULL emails (phone-registered accounts) are
// allowed to repeat because SQLite treats NULLs as distinct in unique
// indexes. phone intentionally has NO unique index, matching the permissive
// multi-channel identity model; the service layer checks phone collisions
// explicitly where the phone channel requires it.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id                     TEXT PRIMARY KEY,
			public_id              TEXT NOT NULL UNIQUE,
			name                   TEXT NOT NULL DEFAULT 'New User',
			email                  TEXT UNIQUE,
			phone                  TEXT,
			google_subject         TEXT,
			password_hash          TEXT NOT NULL DEFAULT '',
			coins_earned           INTEGER NOT NULL DEFAULT 0,
			coins_purchased        INTEGER NOT NULL DEFAULT 0,
			coins_withdrawable     INTEGER NOT NULL DEFAULT 0,
			coins_total            INTEGER NOT NULL DEFAULT 0,
			address                TEXT NOT NULL DEFAULT '',
			avatar_url             TEXT NOT NULL DEFAULT '',
			is_admin               INTEGER NOT NULL DEFAULT 0,
			reset_token_hash       TEXT,
			reset_token_expires_at DATETIME,
			created_at             DATETIME NOT NULL,
			updated_at             DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_phone ON accounts(phone);
		CREATE INDEX IF NOT EXISTS idx_accounts_reset_token ON accounts(reset_token_hash);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	return nil
}
