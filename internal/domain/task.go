package domain

import (
	"strings"
	"unicode/utf8"
)

// Field limits enforced at the repository boundary and by the schema.
const (
	MaxTitleLength       = 60
	MaxDescriptionLength = 200
)

// Canonical priority values. PriorityNone is stored for missing or invalid input.
const (
	PriorityNone   = ""
	PriorityLow    = "L"
	PriorityMedium = "M"
	PriorityHigh   = "H"
)

// ValidPriorities contains every canonical priority value.
var ValidPriorities = []string{PriorityNone, PriorityLow, PriorityMedium, PriorityHigh}

// NormalizePriority upper-cases and trims p. The second result is false when
// p was not one of the canonical values, in which case PriorityNone is returned.
func NormalizePriority(p string) (string, bool) {
	p = strings.ToUpper(strings.TrimSpace(p))
	for _, v := range ValidPriorities {
		if p == v {
			return p, true
		}
	}
	return PriorityNone, false
}

// PriorityRank orders priorities for sorting: H > M > L > none.
func PriorityRank(p string) int {
	switch strings.ToUpper(p) {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// NormalizeTags trims every tag and drops empty ones. Order and duplicates
// are preserved. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Length counts characters, matching SQLite length() on TEXT values.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// Task represents a to-do item.
type Task struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Done        bool     `json:"done"`
	CreatedAt   string   `json:"created_at"`
	Priority    string   `json:"priority"`
	DueDate     *string  `json:"due_date"`
	Tags        []string `json:"tags"`
	Project     *string  `json:"project"`
}

// NewTask contains the input for creating a task.
type NewTask struct {
	Title       string
	Description string
	Priority    string
	DueDate     *string
	Tags        []string
	Project     *string
}

// TaskUpdate is a partial update. Zero-valued fields are left unchanged.
type TaskUpdate struct {
	Title       Field[string]
	Description Field[string]
	Priority    Field[string]
	DueDate     Field[string]
	Tags        Field[[]string]
	Project     Field[string]
}

// IsEmpty reports whether the update touches no field.
func (u TaskUpdate) IsEmpty() bool {
	return u.Title.IsUnchanged() &&
		u.Description.IsUnchanged() &&
		u.Priority.IsUnchanged() &&
		u.DueDate.IsUnchanged() &&
		u.Tags.IsUnchanged() &&
		u.Project.IsUnchanged()
}

// ListFilter specifies filtering and pagination options for listing tasks.
// Nil pointers and empty slices mean "no filter".
type ListFilter struct {
	Limit     *int
	Offset    *int
	Priority  *string
	Project   *string
	Done      *bool
	Tags      []string
	DueBefore *string
	DueAfter  *string
}

// SearchFilter narrows keyword search results.
type SearchFilter struct {
	Priority *string
	Project  *string
	Tags     []string
}

// ImportResult summarises a non-upsert import.
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   []string
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
