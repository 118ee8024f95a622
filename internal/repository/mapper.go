package repository

import (
	"strings"

	"github.com/bytedance/sonic"

	"github.com/raztodo/raztodo/internal/domain"
	"github.com/raztodo/raztodo/internal/storage"
)

// toTask maps a raw row to a domain task. Empty optional columns map to nil.
func toTask(r storage.Row) domain.Task {
	t := domain.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description.String,
		Done:        r.Done,
		CreatedAt:   r.CreatedAt.String,
		Priority:    r.Priority.String,
		Tags:        decodeTags(r.Tags.String),
	}
	if r.DueDate.Valid && r.DueDate.String != "" {
		due := r.DueDate.String
		t.DueDate = &due
	}
	if r.Project.Valid && r.Project.String != "" {
		project := r.Project.String
		t.Project = &project
	}
	return t
}

func toTasks(rows []storage.Row) []domain.Task {
	tasks := make([]domain.Task, len(rows))
	for i, r := range rows {
		tasks[i] = toTask(r)
	}
	return tasks
}

// decodeTags reads the tags column. JSON arrays are decoded; other valid JSON
// yields no tags; anything else is treated as a comma-separated list.
func decodeTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}

	var v interface{}
	if err := sonic.UnmarshalString(raw, &v); err != nil {
		return domain.NormalizeTags(strings.Split(raw, ","))
	}

	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	tags := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}
