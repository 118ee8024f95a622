package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

const createTasksTable = `
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL CHECK(length(title) <= 60),
		description TEXT,
		done INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		priority TEXT DEFAULT '',
		due_date TEXT,
		tags TEXT DEFAULT '',
		project TEXT
	)
`

// UniqueTitleIndex is the name of the index enforcing title uniqueness.
const UniqueTitleIndex = "idx_tasks_title_unique"

const createUniqueTitleIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ` + UniqueTitleIndex + ` ON tasks(title)`

var secondaryIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks(priority)",
	"CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date)",
	"CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project)",
	"CREATE INDEX IF NOT EXISTS idx_tasks_done ON tasks(done)",
	"CREATE INDEX IF NOT EXISTS idx_tasks_title_search ON tasks(title)",
	"CREATE INDEX IF NOT EXISTS idx_tasks_description_search ON tasks(description)",
}

type namedStatement struct {
	name string
	sql  string
}

var guardTriggers = []namedStatement{
	{"trg_tasks_desc_len_insert", `
		CREATE TRIGGER IF NOT EXISTS trg_tasks_desc_len_insert
		BEFORE INSERT ON tasks
		FOR EACH ROW
		WHEN NEW.description IS NOT NULL AND length(NEW.description) > 200
		BEGIN
			SELECT RAISE(ABORT, 'description too long');
		END
	`},
	{"trg_tasks_desc_len_update", `
		CREATE TRIGGER IF NOT EXISTS trg_tasks_desc_len_update
		BEFORE UPDATE OF description ON tasks
		FOR EACH ROW
		WHEN NEW.description IS NOT NULL AND length(NEW.description) > 200
		BEGIN
			SELECT RAISE(ABORT, 'description too long');
		END
	`},
	{"trg_tasks_created_at_insert", `
		CREATE TRIGGER IF NOT EXISTS trg_tasks_created_at_insert
		AFTER INSERT ON tasks
		FOR EACH ROW
		WHEN NEW.created_at IS NULL OR NEW.created_at = ''
		BEGIN
			UPDATE tasks SET created_at = datetime('now') WHERE id = NEW.id;
		END
	`},
}

// FullTextTable is the FTS5 table indexing title and description.
const FullTextTable = "tasks_fts"

const createFullTextTable = `
	CREATE VIRTUAL TABLE IF NOT EXISTS tasks_fts USING fts5(
		title,
		description,
		content='tasks',
		content_rowid='id'
	)
`

// Sync triggers run inside the statement transaction of the base-table write.
var fullTextTriggers = []namedStatement{
	{"trg_tasks_fts_insert", `
		CREATE TRIGGER IF NOT EXISTS trg_tasks_fts_insert AFTER INSERT ON tasks BEGIN
			INSERT INTO tasks_fts(rowid, title, description)
			VALUES (new.id, new.title, new.description);
		END
	`},
	{"trg_tasks_fts_delete", `
		CREATE TRIGGER IF NOT EXISTS trg_tasks_fts_delete AFTER DELETE ON tasks BEGIN
			INSERT INTO tasks_fts(tasks_fts, rowid, title, description)
			VALUES ('delete', old.id, old.title, old.description);
		END
	`},
	{"trg_tasks_fts_update", `
		CREATE TRIGGER IF NOT EXISTS trg_tasks_fts_update AFTER UPDATE OF title, description ON tasks BEGIN
			INSERT INTO tasks_fts(tasks_fts, rowid, title, description)
			VALUES ('delete', old.id, old.title, old.description);
			INSERT INTO tasks_fts(rowid, title, description)
			VALUES (new.id, new.title, new.description);
		END
	`},
}

// EnsureSchema creates the tasks table and its auxiliary objects. It is
// idempotent. Only a failure to create the base table is returned; every
// other failure is logged as a warning.
func EnsureSchema(ctx context.Context, db *sql.DB, log logrus.FieldLogger) error {
	if _, err := db.ExecContext(ctx, createTasksTable); err != nil {
		log.WithError(err).Error("failed to create tasks table")
		return fmt.Errorf("failed to create tasks table: %w", err)
	}

	if _, err := db.ExecContext(ctx, createUniqueTitleIndex); err != nil {
		log.WithError(err).Warn("could not create unique title index, run migrate to deduplicate titles")
	}

	for _, stmt := range secondaryIndexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.WithError(err).Warn("failed to create index")
		}
	}

	for _, trg := range guardTriggers {
		if _, err := db.ExecContext(ctx, trg.sql); err != nil {
			log.WithError(err).WithField("trigger", trg.name).Warn("failed to create trigger")
		}
	}

	ensureFullText(ctx, db, log)

	log.Debug("schema ensured")
	return nil
}

// ensureFullText installs the FTS table and its sync triggers, rebuilding the
// index when either was missing so an existing database starts in sync.
func ensureFullText(ctx context.Context, db *sql.DB, log logrus.FieldLogger) {
	hadTable, err := FullTextEnabled(ctx, db)
	if err != nil {
		log.WithError(err).Warn("failed to inspect full-text table")
		return
	}
	if !hadTable {
		if _, err := db.ExecContext(ctx, createFullTextTable); err != nil {
			log.WithError(err).Warn("full-text search unavailable (build with -tags sqlite_fts5), search will use LIKE matching")
			return
		}
	}

	before, err := countTriggers(ctx, db, fullTextTriggers)
	if err != nil {
		log.WithError(err).Warn("failed to inspect full-text triggers")
		return
	}
	for _, trg := range fullTextTriggers {
		if _, err := db.ExecContext(ctx, trg.sql); err != nil {
			log.WithError(err).WithField("trigger", trg.name).Warn("failed to create trigger")
		}
	}

	if hadTable && before == len(fullTextTriggers) {
		return
	}
	if err := RebuildFullText(ctx, db); err != nil {
		log.WithError(err).Warn("failed to rebuild full-text index")
	}
}

func countTriggers(ctx context.Context, db dbExecutor, triggers []namedStatement) (int, error) {
	count := 0
	for _, trg := range triggers {
		var n int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type='trigger' AND name=?`, trg.name,
		).Scan(&n)
		if err != nil {
			return 0, err
		}
		count += n
	}
	return count, nil
}

// FullTextEnabled reports whether the FTS table exists.
func FullTextEnabled(ctx context.Context, db *sql.DB) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, FullTextTable,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check full-text table: %w", err)
	}
	return n > 0, nil
}

// RebuildFullText repopulates the FTS index from the tasks table.
func RebuildFullText(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `INSERT INTO tasks_fts(tasks_fts) VALUES('rebuild')`); err != nil {
		return fmt.Errorf("failed to rebuild full-text index: %w", err)
	}
	return nil
}

// UniqueIndexPresent reports whether the unique title index exists.
func UniqueIndexPresent(ctx context.Context, db dbExecutor) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?`, UniqueTitleIndex,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check unique index: %w", err)
	}
	return n > 0, nil
}
