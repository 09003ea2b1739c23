// Package mysql stores datastore snapshots in a MySQL table.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/hupe1980/diskstore/blobstore/internal/sqlblob"
)

var dialect = sqlblob.Dialect{
	CreateTable: `CREATE TABLE IF NOT EXISTS %s (
	name VARCHAR(255) NOT NULL PRIMARY KEY,
	data LONGBLOB NOT NULL,
	updated_at DATETIME(6) NOT NULL
)`,
	Upsert: `INSERT INTO %s (name, data, updated_at) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)`,
}

// Store implements blobstore.BlobStore on MySQL.
type Store struct {
	*sqlblob.Store
}

// Open connects with a go-sql-driver DSN (user:pass@tcp(host:3306)/db?parseTime=true)
// and prepares the blob table. An empty table name selects the default.
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(ctx, db, table)
}

// New wraps an existing handle opened with the "mysql" driver.
func New(ctx context.Context, db *sql.DB, table string) (*Store, error) {
	s, err := sqlblob.New(ctx, db, table, dialect)
	if err != nil {
		return nil, err
	}
	return &Store{Store: s}, nil
}
