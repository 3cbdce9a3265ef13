// Package testdb opens in-memory SQLite databases with the server schema for
// service-level tests. The repositories' SQL (numbered placeholders, ON
// CONFLICT ... DO NOTHING) is valid in both PostgreSQL and SQLite, and all
// timestamps are bound as arguments, so the same repository code runs against
// both engines. Crucially, SQLite enforces the same uniqueness constraints,
// so the ledger's race-closing path is exercised for real.
package testdb

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE identities (
    id TEXT PRIMARY KEY,
    phone TEXT NOT NULL UNIQUE,
    full_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    verified BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE actions (
    id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL UNIQUE,
    identity_id TEXT NOT NULL REFERENCES identities (id),
    action_type TEXT NOT NULL,
    payload BLOB NOT NULL,
    client_timestamp TIMESTAMP NOT NULL,
    received_at TIMESTAMP NOT NULL
);

CREATE TABLE refresh_tokens (
    token TEXT PRIMARY KEY,
    identity_id TEXT NOT NULL REFERENCES identities (id),
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

// New returns an isolated in-memory database carrying the server schema.
// A single connection keeps SQLite's writer semantics simple; concurrency in
// tests still interleaves at the statement level.
func New(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}
