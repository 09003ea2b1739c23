// Package sqlite stores datastore snapshots in a SQLite database.
//
// Snapshots live in a single table (name TEXT PRIMARY KEY, data BLOB). Each
// Put is one upsert statement, which SQLite applies atomically.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hupe1980/diskstore/blobstore/internal/sqlblob"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var dialect = sqlblob.Dialect{
	CreateTable: `CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`,
	Upsert: `INSERT INTO %s (name, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
}

// Store implements blobstore.BlobStore on SQLite.
type Store struct {
	*sqlblob.Store
}

// Open opens (or creates) the database at path and prepares the blob table.
// An empty table name selects the default.
func Open(ctx context.Context, path, table string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Serialize writers; SQLite allows one at a time anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(ctx, db, table)
}

// New wraps an existing handle opened with the "sqlite3" driver.
func New(ctx context.Context, db *sql.DB, table string) (*Store, error) {
	s, err := sqlblob.New(ctx, db, table, dialect)
	if err != nil {
		return nil, err
	}
	return &Store{Store: s}, nil
}
