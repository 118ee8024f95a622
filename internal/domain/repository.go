package domain

import "context"

// TaskRepository is the capability contract the use cases depend on. Any
// storage technology that satisfies it is substitutable.
type TaskRepository interface {
	// AddTask validates and stores a new task, returning its id.
	AddTask(ctx context.Context, task NewTask) (int64, error)

	// GetTasks returns tasks matching filter, ordered by id.
	GetTasks(ctx context.Context, filter ListFilter) ([]Task, error)

	// UpdateTask applies a partial update and returns the affected row count.
	// Zero means the task does not exist or nothing changed.
	UpdateTask(ctx context.Context, id int64, update TaskUpdate) (int64, error)

	// RemoveTask deletes a task and returns the affected row count.
	RemoveTask(ctx context.Context, id int64) (int64, error)

	// MarkDone sets the done flag and returns the affected row count.
	MarkDone(ctx context.Context, id int64, done bool) (int64, error)

	// SearchTasks matches keyword against title and description.
	// A blank keyword yields an empty result.
	SearchTasks(ctx context.Context, keyword string, filter SearchFilter) ([]Task, error)

	// ExportTasks writes every task to a JSON file.
	ExportTasks(ctx context.Context, path string) error

	// ImportTasks adds every task found in a JSON file.
	ImportTasks(ctx context.Context, path string) (*ImportResult, error)

	// ClearAllTasks deletes every task and returns how many were removed.
	ClearAllTasks(ctx context.Context) (int64, error)

	// Close releases the underlying connection.
	Close() error
}
