// Package sqlite implements the repository interfaces on SQLite.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// modernc.org/sqlite is a pure Go translation of SQLite: no CGo, no C
// toolchain, cross-compiles like any other Go package.
//
// ":memory:" gives every test its own throwaway database.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements
// repository.UserRepository and repository.RevocationRepository.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath, verifies the connection and runs the
// migrations.
func New(dbPath string) (*DB, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		// Concurrent logins wait for the write lock instead of failing with
		// SQLITE_BUSY. The pragma must be set on every pooled connection.
		dsn += "?_pragma=busy_timeout(5000)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each connection to ":memory:" is a separate database, so the pool must
	// hold exactly one connection for the schema to be visible everywhere.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets page loads read sessions while a login writes.
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

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates or upgrades the schema. Every step is idempotent.
func (db *DB) migrate() error {
	// github_id is UNIQUE: one GitHub account maps to exactly one row.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			github_id  INTEGER NOT NULL UNIQUE,
			login      TEXT NOT NULL,
			email      TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Display name arrived after the first schema; add it in place.
	if err := db.addColumnIfNotExists("users", "name", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding name to users: %w", err)
	}

	// The OAuth access token lets the repository API act as the user.
	if err := db.addColumnIfNotExists("users", "github_token", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding github_token to users: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS revoked_tokens (
			token_id   TEXT PRIMARY KEY,
			expires_at INTEGER NOT NULL -- unix seconds
		);
		CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires_at ON revoked_tokens(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("creating revoked_tokens table: %w", err)
	}

	return nil
}

// addColumnIfNotExists makes ALTER TABLE ... ADD COLUMN safe to re-run.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
