package service

import (
	"context"
	"errors"

	"github.com/raztodo/raztodo/internal/domain"
)

var errNoMigrator = errors.New("repository does not support migration")

// MarkDone moves a task to done, or back to pending when done is false.
func (s *TaskService) MarkDone(ctx context.Context, id int64, done bool) error {
	n, err := s.repo.MarkDone(ctx, id, done)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewTaskNotFoundError(id)
	}

	action := "completed"
	if !done {
		action = "reopened"
	}
	s.log.WithField("id", id).Info("task " + action)
	return nil
}
