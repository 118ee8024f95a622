package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"

	"github.com/raztodo/raztodo/internal/domain"
)

// TaskStore is the data-access object for the tasks table. It performs no
// validation; callers pass already normalized values.
type TaskStore struct {
	db  *sql.DB
	tx  *sql.Tx
	log logrus.FieldLogger
}

// NewTaskStore creates a TaskStore on db. The schema must already exist.
func NewTaskStore(db *sql.DB, log logrus.FieldLogger) *TaskStore {
	return &TaskStore{db: db, log: log}
}

func (s *TaskStore) executor() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// WithTx executes fn with a TaskStore bound to a new transaction. If fn
// returns an error the transaction is rolled back, otherwise it is committed.
// fn must use only the store it is given.
func (s *TaskStore) WithTx(ctx context.Context, fn func(*TaskStore) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&TaskStore{db: s.db, tx: tx, log: s.log}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// encodeTags serializes tags as a JSON array. An empty list is stored as "".
func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "", nil
	}
	data, err := sonic.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(data), nil
}

// Insert adds a task and returns its row id.
func (s *TaskStore) Insert(ctx context.Context, row NewRow) (int64, error) {
	tags, err := encodeTags(row.Tags)
	if err != nil {
		return 0, err
	}

	res, err := s.executor().ExecContext(ctx, `
		INSERT INTO tasks (title, description, priority, due_date, tags, project)
		VALUES (?, ?, ?, ?, ?, ?)
	`, row.Title, row.Description, row.Priority, row.DueDate, tags, row.Project)
	if err != nil {
		return 0, fmt.Errorf("failed to insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	return id, nil
}

// FetchAll returns the tasks matching filter, ordered by id.
func (s *TaskStore) FetchAll(ctx context.Context, filter domain.ListFilter) ([]Row, error) {
	where := newWhereBuilder("")
	where.listFilter(filter)

	page, pageArgs := pagination(filter.Limit, filter.Offset)
	query := "SELECT " + taskColumns + " FROM tasks" + where.clause() + " ORDER BY id" + page
	args := append(where.args, pageArgs...)

	rows, err := s.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// Update applies changes to one task and returns the affected row count.
// When changes touches no column no statement is issued and 0 is returned.
func (s *TaskStore) Update(ctx context.Context, id int64, changes Changes) (int64, error) {
	var sets []string
	var args []interface{}

	setString := func(column string, f fieldValue) {
		switch {
		case f.cleared:
			sets = append(sets, column+" = NULL")
		case f.set:
			sets = append(sets, column+" = ?")
			args = append(args, f.value)
		}
	}

	setString("title", stringField(changes.Title))
	setString("description", stringField(changes.Description))
	if done, ok := changes.Done.Value(); ok {
		v := 0
		if done {
			v = 1
		}
		sets = append(sets, "done = ?")
		args = append(args, v)
	} else if changes.Done.IsCleared() {
		sets = append(sets, "done = 0")
	}
	setString("priority", stringField(changes.Priority))
	setString("due_date", stringField(changes.DueDate))
	if tags, ok := changes.Tags.Value(); ok {
		data, err := sonic.Marshal(nonNil(tags))
		if err != nil {
			return 0, fmt.Errorf("failed to encode tags: %w", err)
		}
		sets = append(sets, "tags = ?")
		args = append(args, string(data))
	} else if changes.Tags.IsCleared() {
		sets = append(sets, "tags = NULL")
	}
	setString("project", stringField(changes.Project))

	if len(sets) == 0 {
		return 0, nil
	}

	args = append(args, id)
	res, err := s.executor().ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update task: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes one task and returns the affected row count.
func (s *TaskStore) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.executor().ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete task: %w", err)
	}
	return res.RowsAffected()
}

// ClearAll removes every task and returns how many were deleted.
func (s *TaskStore) ClearAll(ctx context.Context) (int64, error) {
	res, err := s.executor().ExecContext(ctx, "DELETE FROM tasks")
	if err != nil {
		return 0, fmt.Errorf("failed to clear tasks: %w", err)
	}
	return res.RowsAffected()
}

// Search returns tasks whose title or description matches keyword, ordered
// by id. Full-text prefix matching is tried first; on any failure the search
// falls back to case-insensitive substring matching.
func (s *TaskStore) Search(ctx context.Context, keyword string, filter domain.SearchFilter) ([]Row, error) {
	rows, err := s.searchFullText(ctx, keyword, filter)
	if err == nil {
		return rows, nil
	}
	s.log.WithError(err).Debug("full-text search unavailable, falling back to LIKE")
	return s.searchLike(ctx, keyword, filter)
}

func (s *TaskStore) searchFullText(ctx context.Context, keyword string, filter domain.SearchFilter) ([]Row, error) {
	where := newWhereBuilder("t.")
	where.searchFilter(filter)

	query := `
		SELECT t.id, t.title, t.description, t.done, t.created_at, t.priority, t.due_date, t.tags, t.project
		FROM tasks t
		JOIN tasks_fts ON t.id = tasks_fts.rowid
		WHERE tasks_fts MATCH ?` + where.and() + `
		ORDER BY t.id`
	args := append([]interface{}{ftsPrefixQuery(keyword)}, where.args...)

	rows, err := s.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run full-text search: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func (s *TaskStore) searchLike(ctx context.Context, keyword string, filter domain.SearchFilter) ([]Row, error) {
	pattern := containsPattern(keyword)
	where := newWhereBuilder("")
	where.add(`(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`, pattern, pattern)
	where.searchFilter(filter)

	query := "SELECT " + taskColumns + " FROM tasks" + where.clause() + " ORDER BY id"
	rows, err := s.executor().QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var r Row
		var done sql.NullInt64
		if err := rows.Scan(
			&r.ID,
			&r.Title,
			&r.Description,
			&done,
			&r.CreatedAt,
			&r.Priority,
			&r.DueDate,
			&r.Tags,
			&r.Project,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		r.Done = done.Valid && done.Int64 != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return out, nil
}

type fieldValue struct {
	set     bool
	cleared bool
	value   string
}

func stringField(f domain.Field[string]) fieldValue {
	v, ok := f.Value()
	return fieldValue{set: ok, cleared: f.IsCleared(), value: v}
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
