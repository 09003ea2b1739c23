// Package sqlblob implements blobstore.BlobStore on a database/sql table.
// Dialects differ only in their DDL and upsert statements.
package sqlblob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/diskstore/blobstore"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "diskstore_blobs"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect holds the statements that differ between databases. Each is a
// format string taking the table name.
type Dialect struct {
	CreateTable string
	Upsert      string
}

// Store is a blob table.
type Store struct {
	db    *sql.DB
	table string

	get    string
	upsert string
	delete string
	list   string
}

// New creates the blob table if needed and returns the store.
func New(ctx context.Context, db *sql.DB, table string, d Dialect) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(d.CreateTable, table)); err != nil {
		return nil, fmt.Errorf("create blob table: %w", err)
	}
	return &Store{
		db:     db,
		table:  table,
		get:    fmt.Sprintf("SELECT data FROM %s WHERE name = ?", table),
		upsert: fmt.Sprintf(d.Upsert, table),
		delete: fmt.Sprintf("DELETE FROM %s WHERE name = ?", table),
		list:   fmt.Sprintf("SELECT name FROM %s ORDER BY name", table),
	}, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Get reads a blob.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.get, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, blobstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Put upserts a blob in a single statement.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, s.upsert, name, data, time.Now().UTC())
	return err
}

// Delete removes a blob.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, s.delete, name)
	return err
}

// List returns the sorted blob names with the given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.list)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }
