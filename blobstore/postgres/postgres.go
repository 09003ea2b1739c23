// Package postgres stores datastore snapshots in a PostgreSQL table through
// a pgx connection pool.
//
// Store also implements blobstore.Locker with session-level advisory locks,
// so two processes cannot open the same datastore for writing.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/hupe1980/diskstore/blobstore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "diskstore_blobs"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store implements blobstore.BlobStore on PostgreSQL.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

// Open connects to connString and prepares the blob table. An empty table
// name selects the default.
func Open(ctx context.Context, connString, table string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s, err := New(ctx, pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool.
func New(ctx context.Context, pool *pgxpool.Pool, table string) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	_, err := pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	data BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, table))
	if err != nil {
		return nil, fmt.Errorf("create blob table: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// Pool returns the underlying pool.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Get reads a blob.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT data FROM %s WHERE name = $1", s.table), name).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
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
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (name, data, updated_at) VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`, s.table), name, data)
	return err
}

// Delete removes a blob.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE name = $1", s.table), name)
	return err
}

// List returns the sorted blob names with the given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT name FROM %s ORDER BY name", s.table))
	if err != nil {
		return nil, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Lock takes a session-level advisory lock keyed by table and name. The
// connection stays checked out of the pool until the lock is released.
func (s *Store) Lock(ctx context.Context, name string) (io.Closer, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	key := s.table + "/" + name
	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", key).Scan(&ok); err != nil {
		conn.Release()
		return nil, err
	}
	if !ok {
		conn.Release()
		return nil, fmt.Errorf("%w: %s", blobstore.ErrLocked, key)
	}
	return &advisoryLock{conn: conn, key: key}, nil
}

type advisoryLock struct {
	once sync.Once
	conn *pgxpool.Conn
	key  string
	err  error
}

func (l *advisoryLock) Close() error {
	l.once.Do(func() {
		_, l.err = l.conn.Exec(context.Background(), "SELECT pg_advisory_unlock(hashtext($1))", l.key)
		l.conn.Release()
	})
	return l.err
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
