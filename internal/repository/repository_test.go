package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/raztodo/raztodo/internal/domain"
	"github.com/raztodo/raztodo/internal/storage"
)

// setupTestRepo creates a repository on a fresh file-backed database
func setupTestRepo(t *testing.T) (*SQLiteTaskRepository, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	path := filepath.Join(t.TempDir(), "tasks.db")
	repo, err := New(context.Background(), storage.NewFileProvider(path), log)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo, hook
}

func mustAdd(t *testing.T, repo *SQLiteTaskRepository, task domain.NewTask) int64 {
	t.Helper()
	id, err := repo.AddTask(context.Background(), task)
	if err != nil {
		t.Fatalf("failed to add %q: %v", task.Title, err)
	}
	return id
}

func getTask(t *testing.T, repo *SQLiteTaskRepository, id int64) domain.Task {
	t.Helper()
	tasks, err := repo.GetTasks(context.Background(), domain.ListFilter{})
	if err != nil {
		t.Fatalf("GetTasks failed: %v", err)
	}
	for _, task := range tasks {
		if task.ID == id {
			return task
		}
	}
	t.Fatalf("task %d not found", id)
	return domain.Task{}
}

func TestAddTask(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	t.Run("trims title and description", func(t *testing.T) {
		id := mustAdd(t, repo, domain.NewTask{Title: "  Buy milk  ", Description: "  fresh  "})
		got := getTask(t, repo, id)
		if got.Title != "Buy milk" || got.Description != "fresh" {
			t.Errorf("expected trimmed values, got %q / %q", got.Title, got.Description)
		}
		if got.CreatedAt == "" || got.Done {
			t.Errorf("unexpected defaults: %+v", got)
		}
		if got.Tags == nil || len(got.Tags) != 0 {
			t.Errorf("expected empty non-nil tags, got %#v", got.Tags)
		}
	})

	t.Run("duplicate after trimming", func(t *testing.T) {
		_, err := repo.AddTask(ctx, domain.NewTask{Title: "Buy milk  "})
		if !domain.IsKind(err, domain.KindDuplicate) {
			t.Errorf("expected duplicate error, got: %v", err)
		}
	})

	tests := []struct {
		name        string
		title       string
		description string
		wantErr     bool
	}{
		{"title of 60", strings.Repeat("t", 60), "", false},
		{"title of 61", strings.Repeat("u", 61), "", true},
		{"blank title", "   ", "", true},
		{"description of 200", "desc 200", strings.Repeat("d", 200), false},
		{"description of 201", "desc 201", strings.Repeat("d", 201), true},
		{"multibyte title of 60", strings.Repeat("ß", 60), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.AddTask(ctx, domain.NewTask{Title: tt.title, Description: tt.description})
			if tt.wantErr {
				if !domain.IsKind(err, domain.KindValidation) {
					t.Errorf("expected validation error, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		})
	}
}

func TestAddTask_PriorityNormalization(t *testing.T) {
	repo, hook := setupTestRepo(t)

	tests := []struct {
		input string
		want  string
		warn  bool
	}{
		{"h", "H", false},
		{" m ", "M", false},
		{"L", "L", false},
		{"", "", false},
		{"invalid", "", true},
	}

	for i, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			hook.Reset()
			id := mustAdd(t, repo, domain.NewTask{Title: "prio " + string(rune('a'+i)), Priority: tt.input})
			if got := getTask(t, repo, id).Priority; got != tt.want {
				t.Errorf("expected priority %q, got %q", tt.want, got)
			}

			warned := false
			for _, e := range hook.AllEntries() {
				if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "invalid priority") {
					warned = true
				}
			}
			if warned != tt.warn {
				t.Errorf("expected warning=%v, got %v", tt.warn, warned)
			}
		})
	}
}

func TestAddTask_TagsRoundTrip(t *testing.T) {
	repo, _ := setupTestRepo(t)

	id := mustAdd(t, repo, domain.NewTask{Title: "tagged", Tags: []string{" b ", "a", "", "b", "  "}})
	got := getTask(t, repo, id).Tags
	want := []string{"b", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected tags %v, got %v", want, got)
	}
}

func TestAddTask_OptionalFields(t *testing.T) {
	repo, _ := setupTestRepo(t)

	id := mustAdd(t, repo, domain.NewTask{
		Title:   "with extras",
		DueDate: domain.StringPtr("2025-06-01"),
		Project: domain.StringPtr("garden"),
	})
	got := getTask(t, repo, id)
	if got.DueDate == nil || *got.DueDate != "2025-06-01" {
		t.Errorf("expected due date, got %v", got.DueDate)
	}
	if got.Project == nil || *got.Project != "garden" {
		t.Errorf("expected project, got %v", got.Project)
	}

	id = mustAdd(t, repo, domain.NewTask{Title: "blank extras", DueDate: domain.StringPtr(""), Project: domain.StringPtr("")})
	got = getTask(t, repo, id)
	if got.DueDate != nil || got.Project != nil {
		t.Errorf("expected nil due date and project, got %+v", got)
	}

	id = mustAdd(t, repo, domain.NewTask{Title: "spaces only", DueDate: domain.StringPtr("   "), Project: domain.StringPtr("\t ")})
	got = getTask(t, repo, id)
	if got.DueDate != nil || got.Project != nil {
		t.Errorf("expected whitespace-only values stored as NULL, got %+v", got)
	}
}

func TestGetTasks_FiltersAndPagination(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	a := mustAdd(t, repo, domain.NewTask{Title: "a", Priority: "H", Project: domain.StringPtr("work")})
	b := mustAdd(t, repo, domain.NewTask{Title: "b", Priority: "H"})
	c := mustAdd(t, repo, domain.NewTask{Title: "c", Project: domain.StringPtr("work")})
	if _, err := repo.MarkDone(ctx, b, true); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}

	tests := []struct {
		name   string
		filter domain.ListFilter
		want   []int64
	}{
		{"all", domain.ListFilter{}, []int64{a, b, c}},
		{"priority and done", domain.ListFilter{Priority: domain.StringPtr("H"), Done: domain.BoolPtr(false)}, []int64{a}},
		{"project", domain.ListFilter{Project: domain.StringPtr("work")}, []int64{a, c}},
		{"limit and offset", domain.ListFilter{Limit: domain.IntPtr(1), Offset: domain.IntPtr(1)}, []int64{b}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := repo.GetTasks(ctx, tt.filter)
			if err != nil {
				t.Fatalf("GetTasks failed: %v", err)
			}
			got := make([]int64, len(tasks))
			for i, task := range tasks {
				got[i] = task.ID
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestUpdateTask(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	id := mustAdd(t, repo, domain.NewTask{
		Title:       "Original",
		Description: "desc",
		Priority:    "H",
		DueDate:     domain.StringPtr("2025-01-01"),
		Tags:        []string{"x"},
		Project:     domain.StringPtr("p"),
	})
	other := mustAdd(t, repo, domain.NewTask{Title: "Other"})

	t.Run("empty update changes nothing", func(t *testing.T) {
		n, err := repo.UpdateTask(ctx, id, domain.TaskUpdate{})
		if err != nil || n != 0 {
			t.Errorf("expected (0, nil), got (%d, %v)", n, err)
		}
	})

	t.Run("sets fields with normalization", func(t *testing.T) {
		n, err := repo.UpdateTask(ctx, id, domain.TaskUpdate{
			Title:    domain.Set("  Renamed "),
			Priority: domain.Set("bogus"),
			Tags:     domain.Set([]string{" y ", ""}),
		})
		if err != nil || n != 1 {
			t.Fatalf("expected (1, nil), got (%d, %v)", n, err)
		}
		got := getTask(t, repo, id)
		if got.Title != "Renamed" || got.Priority != "" || !reflect.DeepEqual(got.Tags, []string{"y"}) {
			t.Errorf("unexpected task after update: %+v", got)
		}
		if got.Description != "desc" {
			t.Errorf("expected description untouched, got %q", got.Description)
		}
	})

	t.Run("empty due date and project clear", func(t *testing.T) {
		if _, err := repo.UpdateTask(ctx, id, domain.TaskUpdate{
			DueDate: domain.Set(""),
			Project: domain.Set(""),
		}); err != nil {
			t.Fatalf("UpdateTask failed: %v", err)
		}
		got := getTask(t, repo, id)
		if got.DueDate != nil || got.Project != nil {
			t.Errorf("expected cleared due date and project, got %+v", got)
		}
	})

	t.Run("whitespace due date and project clear", func(t *testing.T) {
		if _, err := repo.UpdateTask(ctx, id, domain.TaskUpdate{
			DueDate: domain.Set("2025-02-02"),
			Project: domain.Set("q"),
		}); err != nil {
			t.Fatalf("UpdateTask failed: %v", err)
		}
		if _, err := repo.UpdateTask(ctx, id, domain.TaskUpdate{
			DueDate: domain.Set("  "),
			Project: domain.Set(" "),
		}); err != nil {
			t.Fatalf("UpdateTask failed: %v", err)
		}
		got := getTask(t, repo, id)
		if got.DueDate != nil || got.Project != nil {
			t.Errorf("expected cleared due date and project, got %+v", got)
		}
	})

	t.Run("cleared fields", func(t *testing.T) {
		if _, err := repo.UpdateTask(ctx, id, domain.TaskUpdate{
			Description: domain.Clear[string](),
			Tags:        domain.Clear[[]string](),
			Priority:    domain.Clear[string](),
		}); err != nil {
			t.Fatalf("UpdateTask failed: %v", err)
		}
		got := getTask(t, repo, id)
		if got.Description != "" || got.Priority != "" || len(got.Tags) != 0 {
			t.Errorf("expected cleared values, got %+v", got)
		}
	})

	t.Run("cleared title is invalid", func(t *testing.T) {
		_, err := repo.UpdateTask(ctx, id, domain.TaskUpdate{Title: domain.Clear[string]()})
		if !domain.IsKind(err, domain.KindValidation) {
			t.Errorf("expected validation error, got: %v", err)
		}
	})

	t.Run("too long description", func(t *testing.T) {
		_, err := repo.UpdateTask(ctx, id, domain.TaskUpdate{Description: domain.Set(strings.Repeat("d", 201))})
		if !domain.IsKind(err, domain.KindValidation) {
			t.Errorf("expected validation error, got: %v", err)
		}
	})

	t.Run("title collision", func(t *testing.T) {
		_, err := repo.UpdateTask(ctx, other, domain.TaskUpdate{Title: domain.Set("Renamed")})
		if !domain.IsKind(err, domain.KindDuplicate) {
			t.Errorf("expected duplicate error, got: %v", err)
		}
	})

	t.Run("missing task", func(t *testing.T) {
		n, err := repo.UpdateTask(ctx, 9999, domain.TaskUpdate{Description: domain.Set("x")})
		if err != nil || n != 0 {
			t.Errorf("expected (0, nil), got (%d, %v)", n, err)
		}
	})
}

func TestRemoveAndMarkDone(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	id := mustAdd(t, repo, domain.NewTask{Title: "finish me"})

	if n, err := repo.MarkDone(ctx, id, true); err != nil || n != 1 {
		t.Fatalf("expected (1, nil), got (%d, %v)", n, err)
	}
	if !getTask(t, repo, id).Done {
		t.Error("expected task to be done")
	}
	if n, err := repo.MarkDone(ctx, id, false); err != nil || n != 1 {
		t.Fatalf("expected (1, nil), got (%d, %v)", n, err)
	}
	if getTask(t, repo, id).Done {
		t.Error("expected task to be pending again")
	}

	if n, err := repo.RemoveTask(ctx, id); err != nil || n != 1 {
		t.Fatalf("expected (1, nil), got (%d, %v)", n, err)
	}
	if n, err := repo.RemoveTask(ctx, id); err != nil || n != 0 {
		t.Errorf("expected (0, nil) for missing task, got (%d, %v)", n, err)
	}
	if n, err := repo.MarkDone(ctx, id, true); err != nil || n != 0 {
		t.Errorf("expected (0, nil) for missing task, got (%d, %v)", n, err)
	}
}

func TestSearchTasks(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	milk := mustAdd(t, repo, domain.NewTask{Title: "Buy milk", Priority: "H"})
	mustAdd(t, repo, domain.NewTask{Title: "Walk dog", Description: "around the park"})

	t.Run("blank keyword", func(t *testing.T) {
		tasks, err := repo.SearchTasks(ctx, "   ", domain.SearchFilter{})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if tasks == nil || len(tasks) != 0 {
			t.Errorf("expected empty result, got %v", tasks)
		}
	})

	t.Run("keyword is trimmed", func(t *testing.T) {
		tasks, err := repo.SearchTasks(ctx, "  milk ", domain.SearchFilter{Priority: domain.StringPtr("H")})
		if err != nil {
			t.Fatalf("SearchTasks failed: %v", err)
		}
		if len(tasks) != 1 || tasks[0].ID != milk {
			t.Errorf("expected task %d, got %v", milk, tasks)
		}
	})

	t.Run("fallback without full-text table", func(t *testing.T) {
		if _, err := repo.db.Exec(`DROP TABLE IF EXISTS tasks_fts`); err != nil {
			t.Fatalf("failed to drop full-text table: %v", err)
		}
		tasks, err := repo.SearchTasks(ctx, "ILK", domain.SearchFilter{})
		if err != nil {
			t.Fatalf("SearchTasks failed: %v", err)
		}
		if len(tasks) != 1 || tasks[0].ID != milk {
			t.Errorf("expected task %d, got %v", milk, tasks)
		}
	})
}

func TestClearAllTasks(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	mustAdd(t, repo, domain.NewTask{Title: "one"})
	mustAdd(t, repo, domain.NewTask{Title: "two"})

	n, err := repo.ClearAllTasks(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected (2, nil), got (%d, %v)", n, err)
	}
	tasks, _ := repo.GetTasks(ctx, domain.ListFilter{})
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(tasks))
	}
}

func writeImportFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write import file: %v", err)
	}
	return path
}

func TestImportTasks(t *testing.T) {
	ctx := context.Background()

	t.Run("partial success", func(t *testing.T) {
		repo, _ := setupTestRepo(t)
		mustAdd(t, repo, domain.NewTask{Title: "exists"})

		path := writeImportFile(t, `[
			{"title": "new one", "done": true, "tags": ["a"]},
			{"title": "exists"},
			{"description": "no title"},
			{"title": ""},
			{"title": "second", "priority": "m"}
		]`)

		result, err := repo.ImportTasks(ctx, path)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if result.Imported != 2 || result.Skipped != 1 || len(result.Errors) != 2 {
			t.Fatalf("unexpected result: %+v", result)
		}
		if !strings.HasPrefix(result.Errors[0], "Item 2:") || !strings.HasPrefix(result.Errors[1], "Item 4:") {
			t.Errorf("unexpected errors: %v", result.Errors)
		}

		tasks, _ := repo.GetTasks(ctx, domain.ListFilter{Done: domain.BoolPtr(true)})
		if len(tasks) != 1 || tasks[0].Title != "new one" {
			t.Errorf("expected imported done task, got %v", tasks)
		}
	})

	t.Run("nothing imported is an aggregate failure", func(t *testing.T) {
		repo, _ := setupTestRepo(t)
		path := writeImportFile(t, `[{"title": ""}, {"title": 5}, {"title": "   "}, {"title": ""}]`)

		_, err := repo.ImportTasks(ctx, path)
		if !domain.IsKind(err, domain.KindFileOperation) {
			t.Fatalf("expected file_operation error, got: %v", err)
		}
		if strings.Contains(err.Error(), "Item 4") {
			t.Errorf("expected at most three element errors in message, got: %v", err)
		}
	})

	t.Run("only skipped elements is not a failure", func(t *testing.T) {
		repo, _ := setupTestRepo(t)
		path := writeImportFile(t, `[1, "x", {"name": "no title"}]`)

		result, err := repo.ImportTasks(ctx, path)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if result.Imported != 0 || result.Skipped != 3 {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("file errors keep their kind", func(t *testing.T) {
		repo, _ := setupTestRepo(t)

		_, err := repo.ImportTasks(ctx, filepath.Join(t.TempDir(), "missing.json"))
		if !domain.IsKind(err, domain.KindFileNotFound) {
			t.Errorf("expected file_not_found, got: %v", err)
		}

		_, err = repo.ImportTasks(ctx, writeImportFile(t, `{"title": "x"}`))
		if !domain.IsKind(err, domain.KindInvalidFormat) {
			t.Errorf("expected invalid_format, got: %v", err)
		}
	})
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _ := setupTestRepo(t)

	mustAdd(t, src, domain.NewTask{
		Title:       "Full task",
		Description: "with everything",
		Priority:    "H",
		DueDate:     domain.StringPtr("2025-12-24"),
		Tags:        []string{"b", "a", "b"},
		Project:     domain.StringPtr("home"),
	})
	done := mustAdd(t, src, domain.NewTask{Title: "Finished"})
	if _, err := src.MarkDone(ctx, done, true); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "sub", "export.json")
	if err := src.ExportTasks(ctx, path); err != nil {
		t.Fatalf("ExportTasks failed: %v", err)
	}

	dst, _ := setupTestRepo(t)
	result, err := dst.ImportTasks(ctx, path)
	if err != nil {
		t.Fatalf("ImportTasks failed: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("expected 2 imported, got %d", result.Imported)
	}

	want, _ := src.GetTasks(ctx, domain.ListFilter{})
	got, _ := dst.GetTasks(ctx, domain.ListFilter{})
	for i := range want {
		w, g := want[i], got[i]
		w.ID, g.ID = 0, 0
		w.CreatedAt, g.CreatedAt = "", ""
		if !reflect.DeepEqual(w, g) {
			t.Errorf("task %d differs after round trip:\nwant %+v\ngot  %+v", i, w, g)
		}
	}
}

func TestExportTasks_Errors(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create blocker: %v", err)
	}

	err := repo.ExportTasks(ctx, filepath.Join(blocker, "export.json"))
	if !domain.IsKind(err, domain.KindFileOperation) {
		t.Errorf("expected file_operation error, got: %v", err)
	}
}

type failingProvider struct{}

func (failingProvider) Open(context.Context) (*sql.DB, error) {
	return nil, errors.New("disk unavailable")
}

func TestNew_ProviderFailure(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := New(context.Background(), failingProvider{}, log)
	if !domain.IsKind(err, domain.KindDatabase) {
		t.Errorf("expected database error, got: %v", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	repo, _ := setupTestRepo(t)
	if err := repo.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestClassify(t *testing.T) {
	repo, _ := setupTestRepo(t)
	mustAdd(t, repo, domain.NewTask{Title: "taken"})

	_, uniqueErr := repo.db.Exec(`INSERT INTO tasks (title) VALUES ('taken')`)
	_, triggerErr := repo.db.Exec(`INSERT INTO tasks (title, description) VALUES ('long', ?)`, strings.Repeat("d", 201))
	_, checkErr := repo.db.Exec(`INSERT INTO tasks (title) VALUES (?)`, strings.Repeat("t", 61))

	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"unique title", uniqueErr, domain.KindDuplicate},
		{"guard trigger abort", triggerErr, domain.KindValidation},
		{"check constraint", checkErr, domain.KindValidation},
		{"other failure", errors.New("disk I/O error"), domain.KindDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatal("expected the raw statement to fail")
			}
			if got := classify("add_task", "taken", tt.err); !domain.IsKind(got, tt.want) {
				t.Errorf("expected kind %s, got %v", tt.want, got)
			}
		})
	}
}

func TestMigrate_UsesOwnConnection(t *testing.T) {
	log, _ := test.NewNullLogger()
	repo, err := New(context.Background(), storage.NewFileProvider(storage.MemoryPath), log)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()
	ctx := context.Background()

	if _, err := repo.db.Exec(`DROP INDEX ` + storage.UniqueTitleIndex); err != nil {
		t.Fatalf("failed to drop unique index: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := repo.db.Exec(`INSERT INTO tasks (title) VALUES ('twin')`); err != nil {
			t.Fatalf("failed to insert duplicate: %v", err)
		}
	}

	result, err := repo.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if result.Renamed != 1 || !result.UniqueIndex {
		t.Errorf("expected 1 rename and the unique index, got %+v", result)
	}

	tasks, err := repo.GetTasks(ctx, domain.ListFilter{})
	if err != nil {
		t.Fatalf("GetTasks failed: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Title != "twin" || tasks[1].Title != "twin (2)" {
		t.Errorf("expected renamed duplicate in the same database, got %+v", tasks)
	}
}
