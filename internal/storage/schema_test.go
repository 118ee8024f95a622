package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// setupRawDB opens an empty file-backed database without any schema
func setupRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewFileProvider(filepath.Join(t.TempDir(), "tasks.db")).Open(context.Background())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func quietLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func objectExists(t *testing.T, db *sql.DB, kind, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type=? AND name=?`, kind, name).Scan(&n)
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	return n > 0
}

func TestEnsureSchema_FreshDatabase(t *testing.T) {
	db := setupRawDB(t)
	ctx := context.Background()

	if err := EnsureSchema(ctx, db, quietLogger()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !objectExists(t, db, "table", "tasks") {
		t.Error("expected tasks table to exist")
	}
	if !objectExists(t, db, "index", UniqueTitleIndex) {
		t.Error("expected unique title index to exist")
	}
	for _, idx := range []string{"idx_tasks_priority", "idx_tasks_due_date", "idx_tasks_project", "idx_tasks_done"} {
		if !objectExists(t, db, "index", idx) {
			t.Errorf("expected index %s to exist", idx)
		}
	}
	for _, trg := range guardTriggers {
		if !objectExists(t, db, "trigger", trg.name) {
			t.Errorf("expected trigger %s to exist", trg.name)
		}
	}

	enabled, err := FullTextEnabled(ctx, db)
	if err != nil {
		t.Fatalf("FullTextEnabled failed: %v", err)
	}
	for _, trg := range fullTextTriggers {
		if objectExists(t, db, "trigger", trg.name) != enabled {
			t.Errorf("expected trigger %s to exist only with the full-text table", trg.name)
		}
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := setupRawDB(t)
	ctx := context.Background()
	log := quietLogger()

	if err := EnsureSchema(ctx, db, log); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO tasks (title) VALUES ('keep me')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := EnsureSchema(ctx, db, log); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 task after re-running schema, got %d", n)
	}
}

func TestEnsureSchema_Constraints(t *testing.T) {
	db := setupRawDB(t)
	if err := EnsureSchema(context.Background(), db, quietLogger()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	tests := []struct {
		name        string
		title       string
		description string
		wantErr     bool
	}{
		{"title at limit", strings.Repeat("a", 60), "", false},
		{"title over limit", strings.Repeat("b", 61), "", true},
		{"description at limit", "desc ok", strings.Repeat("d", 200), false},
		{"description over limit", "desc long", strings.Repeat("d", 201), true},
		{"multibyte title at limit", strings.Repeat("é", 60), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Exec(`INSERT INTO tasks (title, description) VALUES (?, ?)`, tt.title, tt.description)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected constraint error, got nil")
				}
				if !IsConstraintViolation(err) {
					t.Errorf("expected constraint violation, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		})
	}

	t.Run("description update over limit", func(t *testing.T) {
		_, err := db.Exec(`UPDATE tasks SET description = ? WHERE title = 'desc ok'`, strings.Repeat("d", 201))
		if !IsConstraintViolation(err) {
			t.Errorf("expected constraint violation, got: %v", err)
		}
	})
}

func TestEnsureSchema_BackfillsCreatedAt(t *testing.T) {
	db := setupRawDB(t)
	if err := EnsureSchema(context.Background(), db, quietLogger()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO tasks (title, created_at) VALUES ('empty stamp', '')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	var createdAt string
	if err := db.QueryRow(`SELECT created_at FROM tasks WHERE title = 'empty stamp'`).Scan(&createdAt); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if len(createdAt) != len("2006-01-02 15:04:05") {
		t.Errorf("expected backfilled timestamp, got %q", createdAt)
	}
}

func TestEnsureSchema_DuplicateTitlesOnlyWarn(t *testing.T) {
	db := setupRawDB(t)
	ctx := context.Background()

	if _, err := db.Exec(createTasksTable); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := db.Exec(`INSERT INTO tasks (title) VALUES ('same')`); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	log, hook := test.NewNullLogger()
	if err := EnsureSchema(ctx, db, log); err != nil {
		t.Fatalf("expected duplicates not to be fatal, got: %v", err)
	}

	if objectExists(t, db, "index", UniqueTitleIndex) {
		t.Error("expected unique index to be missing while duplicates exist")
	}

	warned := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, "unique title index") {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning about the unique title index")
	}
}

func TestEnsureSchema_RebuildsFullTextForExistingRows(t *testing.T) {
	db := setupRawDB(t)
	ctx := context.Background()

	if _, err := db.Exec(createTasksTable); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO tasks (title, description) VALUES ('Water plants', 'balcony')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := EnsureSchema(ctx, db, quietLogger()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	enabled, err := FullTextEnabled(ctx, db)
	if err != nil {
		t.Fatalf("FullTextEnabled failed: %v", err)
	}
	if !enabled {
		t.Skip("FTS5 not compiled in (build with -tags sqlite_fts5)")
	}

	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM tasks_fts WHERE tasks_fts MATCH '"balcony"*'`).Scan(&n)
	if err != nil {
		t.Fatalf("full-text query failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected pre-existing row to be indexed, got %d matches", n)
	}
}
