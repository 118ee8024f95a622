package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Provider opens database connections.
type Provider interface {
	// Open returns a ready connection pool. The caller closes it.
	Open(ctx context.Context) (*sql.DB, error)
}

// FileProvider opens the SQLite database at Path, creating its parent
// directory on first use. Path may be MemoryPath.
type FileProvider struct {
	Path string
}

// NewFileProvider creates a provider for path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// Open opens the database with a single connection. The process is the only
// writer and an in-memory database lives only as long as its one connection.
func (p *FileProvider) Open(ctx context.Context) (*sql.DB, error) {
	if p.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	if p.Path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(p.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(p.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", p.Path, err)
	}

	return db, nil
}

// dsn appends the connection pragmas to path.
func dsn(path string) string {
	connStr := path
	if !strings.Contains(path, "?") {
		connStr += "?"
	} else {
		connStr += "&"
	}
	return connStr + "_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
}
