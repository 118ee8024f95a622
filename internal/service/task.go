package service

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/raztodo/raztodo/internal/domain"
	"github.com/raztodo/raztodo/internal/storage"
)

// TaskService handles task use cases on top of a repository.
type TaskService struct {
	repo domain.TaskRepository
	log  logrus.FieldLogger
}

// Migrator is implemented by repositories that can deduplicate titles and
// install the unique title index on their own connection.
type Migrator interface {
	Migrate(ctx context.Context) (*storage.MigrationResult, error)
}

// NewTaskService creates a new TaskService.
func NewTaskService(repo domain.TaskRepository, log logrus.FieldLogger) *TaskService {
	return &TaskService{
		repo: repo,
		log:  log,
	}
}

// Close closes the underlying repository.
func (s *TaskService) Close() error {
	return s.repo.Close()
}

// CreateTaskInput contains the input for creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    string
	DueDate     *string
	Tags        []string
	Project     *string
}

// Create creates a new task and returns its id.
func (s *TaskService) Create(ctx context.Context, input CreateTaskInput) (int64, error) {
	return s.repo.AddTask(ctx, domain.NewTask{
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		Tags:        input.Tags,
		Project:     input.Project,
	})
}

// SortField names a task attribute List can order by.
type SortField string

const (
	SortByID        SortField = "id"
	SortByTitle     SortField = "title"
	SortByCreatedAt SortField = "created_at"
	SortByDone      SortField = "done"
	SortByPriority  SortField = "priority"
	SortByDueDate   SortField = "due_date"
)

// SortFields lists the accepted sort fields in display order.
var SortFields = []SortField{SortByID, SortByTitle, SortByCreatedAt, SortByDone, SortByPriority, SortByDueDate}

// ParseSortField validates a sort field name. Empty means id.
func ParseSortField(name string) (SortField, error) {
	if name == "" {
		return SortByID, nil
	}
	for _, f := range SortFields {
		if string(f) == name {
			return f, nil
		}
	}
	names := make([]string, len(SortFields))
	for i, f := range SortFields {
		names[i] = string(f)
	}
	return "", domain.NewValidationError("sort", "must be one of "+strings.Join(names, ", "))
}

// ListTasksInput contains the input for listing tasks.
type ListTasksInput struct {
	Filter     domain.ListFilter
	SortBy     SortField
	Descending bool
}

// List retrieves tasks matching the filter, ordered by SortBy. Ties keep
// storage order.
func (s *TaskService) List(ctx context.Context, input ListTasksInput) ([]domain.Task, error) {
	tasks, err := s.repo.GetTasks(ctx, input.Filter)
	if err != nil {
		return nil, err
	}
	sortTasks(tasks, input.SortBy, input.Descending)
	return tasks, nil
}

func sortTasks(tasks []domain.Task, field SortField, desc bool) {
	less := lessFunc(field)
	sort.SliceStable(tasks, func(i, j int) bool {
		if desc {
			return less(tasks[j], tasks[i])
		}
		return less(tasks[i], tasks[j])
	})
}

func lessFunc(field SortField) func(a, b domain.Task) bool {
	switch field {
	case SortByTitle:
		return func(a, b domain.Task) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case SortByCreatedAt:
		return func(a, b domain.Task) bool { return a.CreatedAt < b.CreatedAt }
	case SortByDone:
		return func(a, b domain.Task) bool { return !a.Done && b.Done }
	case SortByPriority:
		return func(a, b domain.Task) bool { return domain.PriorityRank(a.Priority) < domain.PriorityRank(b.Priority) }
	case SortByDueDate:
		return func(a, b domain.Task) bool { return deref(a.DueDate) < deref(b.DueDate) }
	default:
		return func(a, b domain.Task) bool { return a.ID < b.ID }
	}
}

// Update applies a partial update. An update that touches no row is
// reported as not found.
func (s *TaskService) Update(ctx context.Context, id int64, update domain.TaskUpdate) error {
	if update.IsEmpty() {
		s.log.WithField("id", id).Debug("update without changes")
		return domain.NewNotFoundOrUnchangedError(id)
	}
	n, err := s.repo.UpdateTask(ctx, id, update)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFoundOrUnchangedError(id)
	}
	return nil
}

// Delete deletes a task.
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	n, err := s.repo.RemoveTask(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewTaskNotFoundError(id)
	}
	return nil
}

// SearchTasksInput contains the input for a keyword search. Done, when set,
// keeps only completed (true) or pending (false) matches.
type SearchTasksInput struct {
	Keyword string
	Filter  domain.SearchFilter
	Done    *bool
}

// Search finds tasks whose title or description matches the keyword.
func (s *TaskService) Search(ctx context.Context, input SearchTasksInput) ([]domain.Task, error) {
	tasks, err := s.repo.SearchTasks(ctx, input.Keyword, input.Filter)
	if err != nil {
		return nil, err
	}
	if input.Done == nil {
		return tasks, nil
	}

	filtered := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Done == *input.Done {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// Clear deletes every task. It refuses to run without confirmation.
func (s *TaskService) Clear(ctx context.Context, confirmed bool) (int64, error) {
	if !confirmed {
		return 0, domain.NewValidationError("confirm", "clearing all tasks requires confirmation")
	}
	return s.repo.ClearAllTasks(ctx)
}

// Migrate deduplicates titles and installs the unique title index.
func (s *TaskService) Migrate(ctx context.Context) (*storage.MigrationResult, error) {
	m, ok := s.repo.(Migrator)
	if !ok {
		return nil, domain.NewDatabaseError("migrate", errNoMigrator)
	}
	return m.Migrate(ctx)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
