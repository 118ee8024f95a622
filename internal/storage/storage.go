// Package storage provides the SQLite persistence layer for raztodo: schema
// management, the task data-access object, connection providers and the
// title migration.
package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/raztodo/raztodo/internal/domain"
)

// taskColumns is the column list every task query selects, in Row order.
const taskColumns = "id, title, description, done, created_at, priority, due_date, tags, project"

// Row is a raw tasks row. Nullable columns are kept as sql.NullString and
// mapped to domain values by the repository.
type Row struct {
	ID          int64
	Title       string
	Description sql.NullString
	Done        bool
	CreatedAt   sql.NullString
	Priority    sql.NullString
	DueDate     sql.NullString
	Tags        sql.NullString
	Project     sql.NullString
}

// NewRow holds already validated values for an insert.
type NewRow struct {
	Title       string
	Description string
	Priority    string
	DueDate     *string
	Tags        []string
	Project     *string
}

// Changes is a column-level partial update. Cleared fields are written as NULL.
type Changes struct {
	Title       domain.Field[string]
	Description domain.Field[string]
	Done        domain.Field[bool]
	Priority    domain.Field[string]
	DueDate     domain.Field[string]
	Tags        domain.Field[[]string]
	Project     domain.Field[string]
}

// dbExecutor is an interface for database operations that works with both *sql.DB and *sql.Tx
type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// IsConstraintViolation reports whether err is any constraint failure,
// including CHECK constraints and RAISE(ABORT) from triggers.
func IsConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
