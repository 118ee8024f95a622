// Package repository implements domain.TaskRepository on top of the SQLite
// storage layer. It owns input validation and normalization and classifies
// every storage failure into a domain error kind.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/raztodo/raztodo/internal/domain"
	"github.com/raztodo/raztodo/internal/storage"
	"github.com/raztodo/raztodo/internal/transfer"
)

// SQLiteTaskRepository is a task repository bound to one open connection.
type SQLiteTaskRepository struct {
	db     *sql.DB
	store  *storage.TaskStore
	log    logrus.FieldLogger
	closed bool
}

var _ domain.TaskRepository = (*SQLiteTaskRepository)(nil)

// New opens a connection through provider and ensures the schema.
func New(ctx context.Context, provider storage.Provider, log logrus.FieldLogger) (*SQLiteTaskRepository, error) {
	db, err := provider.Open(ctx)
	if err != nil {
		return nil, domain.NewDatabaseError("open", err)
	}

	if err := storage.EnsureSchema(ctx, db, log); err != nil {
		db.Close()
		return nil, domain.NewDatabaseError("ensure_schema", err)
	}

	return &SQLiteTaskRepository{
		db:    db,
		store: storage.NewTaskStore(db, log),
		log:   log,
	}, nil
}

// Close releases the connection. It is safe to call more than once.
func (r *SQLiteTaskRepository) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}

func validateLength(field, value string, max int, required bool, log logrus.FieldLogger) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" && required {
		log.WithField("field", field).Warn("attempt to store empty value")
		return "", domain.NewValidationError(field, "cannot be empty")
	}
	if n := domain.Length(value); n > max {
		log.WithFields(logrus.Fields{"field": field, "length": n}).Warn("attempt to store too long value")
		return "", domain.NewValidationError(field, fmt.Sprintf("too long (max %d, got %d)", max, n))
	}
	return value, nil
}

func (r *SQLiteTaskRepository) normalizePriority(p string) string {
	normalized, ok := domain.NormalizePriority(p)
	if !ok {
		r.log.WithField("priority", p).Warn("invalid priority, using empty")
	}
	return normalized
}

// classify maps a storage failure to a domain error. CHECK constraints and
// guard trigger aborts surface as validation errors.
func classify(operation, title string, err error) error {
	switch {
	case storage.IsUniqueViolation(err):
		return domain.NewDuplicateTaskError(title, err)
	case storage.IsConstraintViolation(err):
		return &domain.DomainError{
			Kind:    domain.KindValidation,
			Message: fmt.Sprintf("Validation failed: %v", err),
			Context: map[string]interface{}{"operation": operation},
			Err:     err,
		}
	default:
		return domain.NewDatabaseError(operation, err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// blankToNil maps a missing or whitespace-only value to NULL.
func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// AddTask validates and stores a new task.
func (r *SQLiteTaskRepository) AddTask(ctx context.Context, task domain.NewTask) (int64, error) {
	title, err := validateLength("title", task.Title, domain.MaxTitleLength, true, r.log)
	if err != nil {
		return 0, err
	}
	description, err := validateLength("description", task.Description, domain.MaxDescriptionLength, false, r.log)
	if err != nil {
		return 0, err
	}

	id, err := r.store.Insert(ctx, storage.NewRow{
		Title:       title,
		Description: description,
		Priority:    r.normalizePriority(task.Priority),
		DueDate:     blankToNil(task.DueDate),
		Tags:        domain.NormalizeTags(task.Tags),
		Project:     blankToNil(task.Project),
	})
	if err != nil {
		return 0, classify("add_task", title, err)
	}
	if id == 0 {
		return 0, domain.NewDatabaseError("add_task", fmt.Errorf("no row id returned for %q", title))
	}
	return id, nil
}

// GetTasks returns tasks matching filter, ordered by id.
func (r *SQLiteTaskRepository) GetTasks(ctx context.Context, filter domain.ListFilter) ([]domain.Task, error) {
	rows, err := r.store.FetchAll(ctx, filter)
	if err != nil {
		return nil, domain.NewDatabaseError("get_tasks", err)
	}
	return toTasks(rows), nil
}

// UpdateTask applies a partial update. Supplied fields are validated like
// AddTask. An empty due date or project clears the column.
func (r *SQLiteTaskRepository) UpdateTask(ctx context.Context, id int64, update domain.TaskUpdate) (int64, error) {
	var changes storage.Changes
	title := ""

	switch {
	case update.Title.IsCleared():
		return 0, domain.NewValidationError("title", "cannot be empty")
	case update.Title.IsSet():
		v, _ := update.Title.Value()
		t, err := validateLength("title", v, domain.MaxTitleLength, true, r.log)
		if err != nil {
			return 0, err
		}
		title = t
		changes.Title = domain.Set(t)
	}

	switch {
	case update.Description.IsCleared():
		changes.Description = domain.Set("")
	case update.Description.IsSet():
		v, _ := update.Description.Value()
		d, err := validateLength("description", v, domain.MaxDescriptionLength, false, r.log)
		if err != nil {
			return 0, err
		}
		changes.Description = domain.Set(d)
	}

	switch {
	case update.Priority.IsCleared():
		changes.Priority = domain.Set(domain.PriorityNone)
	case update.Priority.IsSet():
		v, _ := update.Priority.Value()
		changes.Priority = domain.Set(r.normalizePriority(v))
	}

	switch {
	case update.Tags.IsCleared():
		changes.Tags = domain.Set([]string{})
	case update.Tags.IsSet():
		v, _ := update.Tags.Value()
		changes.Tags = domain.Set(domain.NormalizeTags(v))
	}

	changes.DueDate = clearBlank(update.DueDate)
	changes.Project = clearBlank(update.Project)

	n, err := r.store.Update(ctx, id, changes)
	if err != nil {
		return 0, classify("update_task", title, err)
	}
	return n, nil
}

func clearBlank(f domain.Field[string]) domain.Field[string] {
	if v, ok := f.Value(); ok && strings.TrimSpace(v) == "" {
		return domain.Clear[string]()
	}
	return f
}

// RemoveTask deletes a task.
func (r *SQLiteTaskRepository) RemoveTask(ctx context.Context, id int64) (int64, error) {
	n, err := r.store.Delete(ctx, id)
	if err != nil {
		return 0, domain.NewDatabaseError("remove_task", err)
	}
	return n, nil
}

// MarkDone sets the done flag of a task.
func (r *SQLiteTaskRepository) MarkDone(ctx context.Context, id int64, done bool) (int64, error) {
	n, err := r.store.Update(ctx, id, storage.Changes{Done: domain.Set(done)})
	if err != nil {
		return 0, domain.NewDatabaseError("mark_done", err)
	}
	return n, nil
}

// SearchTasks matches keyword against title and description. A blank keyword
// returns no tasks without touching storage.
func (r *SQLiteTaskRepository) SearchTasks(ctx context.Context, keyword string, filter domain.SearchFilter) ([]domain.Task, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []domain.Task{}, nil
	}

	r.log.WithFields(logrus.Fields{
		"keyword":  keyword,
		"priority": deref(filter.Priority),
		"project":  deref(filter.Project),
		"tags":     filter.Tags,
	}).Info("searching tasks")

	rows, err := r.store.Search(ctx, keyword, filter)
	if err != nil {
		return nil, domain.NewDatabaseError("search_tasks", err)
	}
	r.log.WithField("count", len(rows)).Info("search complete")
	return toTasks(rows), nil
}

// ExportTasks writes every task to path.
func (r *SQLiteTaskRepository) ExportTasks(ctx context.Context, path string) error {
	rows, err := r.store.FetchAll(ctx, domain.ListFilter{})
	if err != nil {
		return domain.NewFileOperationError(path, err)
	}
	tasks := toTasks(rows)

	if err := transfer.WriteFile(path, tasks); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{"count": len(tasks), "filepath": path}).Info("exported tasks")
	return nil
}

// ImportTasks adds every task in the file at path. Elements without a title
// are skipped and per-element failures are collected. When nothing could be
// imported and at least one element failed the whole import fails.
func (r *SQLiteTaskRepository) ImportTasks(ctx context.Context, path string) (*domain.ImportResult, error) {
	batch, err := transfer.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if batch.Skipped > 0 {
		r.log.WithFields(logrus.Fields{"skipped": batch.Skipped, "filepath": path}).Warn("skipping items without a title")
	}

	result := &domain.ImportResult{Skipped: batch.Skipped, Errors: []string{}}
	for _, rec := range batch.Records {
		if rec.Err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Item %d: %v", rec.Index, rec.Err))
			continue
		}

		id, err := r.AddTask(ctx, domain.NewTask{
			Title:       rec.Title,
			Description: rec.Description,
			Priority:    rec.Priority,
			DueDate:     rec.DueDate,
			Tags:        rec.Tags,
			Project:     rec.Project,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Item %d: %v", rec.Index, err))
			continue
		}

		if rec.Done != nil {
			if _, err := r.MarkDone(ctx, id, *rec.Done); err != nil {
				r.log.WithError(err).WithField("id", id).Warn("failed to set done flag")
			}
		}
		result.Imported++
	}

	if result.Imported == 0 && len(result.Errors) > 0 {
		return nil, domain.NewImportFailedError(path, result.Errors)
	}

	r.log.WithFields(logrus.Fields{"count": result.Imported, "filepath": path}).Info("imported tasks")
	return result, nil
}

// Migrate deduplicates titles and installs the unique title index on the
// repository's own connection.
func (r *SQLiteTaskRepository) Migrate(ctx context.Context) (*storage.MigrationResult, error) {
	result, err := storage.MigrateDB(ctx, r.db, r.log)
	if err != nil {
		return nil, domain.NewDatabaseError("migrate", err)
	}
	return result, nil
}

// ClearAllTasks deletes every task.
func (r *SQLiteTaskRepository) ClearAllTasks(ctx context.Context) (int64, error) {
	n, err := r.store.ClearAll(ctx)
	if err != nil {
		return 0, domain.NewDatabaseError("clear_all_tasks", err)
	}
	r.log.WithField("count", n).Info("cleared tasks")
	return n, nil
}
