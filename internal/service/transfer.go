package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/raztodo/raztodo/internal/domain"
	"github.com/raztodo/raztodo/internal/transfer"
)

// ImportSummary reports the outcome of an import.
type ImportSummary struct {
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Failed   int      `json:"failed"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// Export writes every task to path.
func (s *TaskService) Export(ctx context.Context, path string) error {
	return s.repo.ExportTasks(ctx, path)
}

// Import reads tasks from path. Without upsert every element is inserted and
// elements whose title already exists fail. With upsert such elements update
// the existing task with the same title instead.
func (s *TaskService) Import(ctx context.Context, path string, upsert bool) (*ImportSummary, error) {
	if !upsert {
		res, err := s.repo.ImportTasks(ctx, path)
		if err != nil {
			return nil, err
		}
		return &ImportSummary{
			Inserted: res.Imported,
			Failed:   len(res.Errors),
			Skipped:  res.Skipped,
			Errors:   res.Errors,
		}, nil
	}
	return s.upsert(ctx, path)
}

func (s *TaskService) upsert(ctx context.Context, path string) (*ImportSummary, error) {
	batch, err := transfer.ReadFile(path)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{Skipped: batch.Skipped, Errors: []string{}}
	fail := func(index int, err error) {
		summary.Failed++
		summary.Errors = append(summary.Errors, fmt.Sprintf("Item %d: %v", index, err))
	}

	for _, rec := range batch.Records {
		if rec.Err != nil {
			fail(rec.Index, rec.Err)
			continue
		}
		title := strings.TrimSpace(rec.Title)
		if title == "" {
			summary.Skipped++
			continue
		}

		id, addErr := s.repo.AddTask(ctx, domain.NewTask{
			Title:       title,
			Description: rec.Description,
			Priority:    rec.Priority,
			DueDate:     rec.DueDate,
			Tags:        rec.Tags,
			Project:     rec.Project,
		})
		if addErr == nil {
			s.applyDone(ctx, id, rec.Done)
			summary.Inserted++
			continue
		}

		existing, err := s.findByTitle(ctx, title)
		if err != nil {
			fail(rec.Index, err)
			continue
		}
		if existing == nil {
			fail(rec.Index, addErr)
			continue
		}

		if _, err := s.repo.UpdateTask(ctx, existing.ID, upsertUpdate(title, rec)); err != nil {
			fail(rec.Index, err)
			continue
		}
		s.applyDone(ctx, existing.ID, rec.Done)
		summary.Updated++
	}

	s.log.WithFields(logrus.Fields{
		"inserted": summary.Inserted,
		"updated":  summary.Updated,
		"failed":   summary.Failed,
		"filepath": path,
	}).Info("upsert import complete")
	return summary, nil
}

// upsertUpdate builds the update applied to an existing task. Absent or null
// due date and project, an empty priority and empty tags leave the stored
// values alone.
func upsertUpdate(title string, rec transfer.Record) domain.TaskUpdate {
	update := domain.TaskUpdate{
		Title:       domain.Set(title),
		Description: domain.Set(rec.Description),
		DueDate:     domain.FromPtr(rec.DueDate),
		Project:     domain.FromPtr(rec.Project),
	}
	if rec.Priority != "" {
		update.Priority = domain.Set(rec.Priority)
	}
	if len(rec.Tags) > 0 {
		update.Tags = domain.Set(rec.Tags)
	}
	return update
}

func (s *TaskService) applyDone(ctx context.Context, id int64, done *bool) {
	if done == nil {
		return
	}
	if _, err := s.repo.MarkDone(ctx, id, *done); err != nil {
		s.log.WithError(err).WithField("id", id).Warn("failed to set done flag")
	}
}

// findByTitle returns the task whose title equals title exactly, or nil.
// The keyword search narrows candidates; a full listing covers titles the
// search cannot tokenize.
func (s *TaskService) findByTitle(ctx context.Context, title string) (*domain.Task, error) {
	matches, err := s.repo.SearchTasks(ctx, title, domain.SearchFilter{})
	if err != nil {
		return nil, err
	}
	if t := exactTitle(matches, title); t != nil {
		return t, nil
	}

	all, err := s.repo.GetTasks(ctx, domain.ListFilter{})
	if err != nil {
		return nil, err
	}
	return exactTitle(all, title), nil
}

func exactTitle(tasks []domain.Task, title string) *domain.Task {
	for i := range tasks {
		if tasks[i].Title == title {
			return &tasks[i]
		}
	}
	return nil
}
