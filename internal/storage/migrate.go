package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/raztodo/raztodo/internal/domain"
)

// MigrationResult reports what a migration changed.
type MigrationResult struct {
	Renamed     int  `json:"renamed"`
	UniqueIndex bool `json:"unique_index"`
}

// MigrateDB makes titles unique and installs the unique title index. Later
// duplicates of a title are renamed to "<title> (N)"; the lowest id keeps the
// original title. Renames and index creation share one transaction.
func MigrateDB(ctx context.Context, db *sql.DB, log logrus.FieldLogger) (*MigrationResult, error) {
	if err := EnsureSchema(ctx, db, log); err != nil {
		return nil, err
	}

	result := &MigrationResult{}
	store := NewTaskStore(db, log)
	err := store.WithTx(ctx, func(tx *TaskStore) error {
		renamed, err := tx.deduplicateTitles(ctx)
		if err != nil {
			return err
		}
		result.Renamed = renamed

		if _, err := tx.executor().ExecContext(ctx, createUniqueTitleIndex); err != nil {
			return fmt.Errorf("failed to create unique title index: %w", err)
		}

		present, err := UniqueIndexPresent(ctx, tx.executor())
		if err != nil {
			return err
		}
		result.UniqueIndex = present
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"renamed":      result.Renamed,
		"unique_index": result.UniqueIndex,
	}).Info("migration complete")
	return result, nil
}

func (s *TaskStore) deduplicateTitles(ctx context.Context) (int, error) {
	titles, err := s.queryStrings(ctx, "SELECT title FROM tasks GROUP BY title HAVING COUNT(*) > 1")
	if err != nil {
		return 0, fmt.Errorf("failed to find duplicate titles: %w", err)
	}

	renamed := 0
	for _, title := range titles {
		ids, err := s.queryIDs(ctx, "SELECT id FROM tasks WHERE title = ? ORDER BY id", title)
		if err != nil {
			return renamed, fmt.Errorf("failed to list duplicates of %q: %w", title, err)
		}

		for i, id := range ids {
			if i == 0 {
				continue
			}

			n := i + 1
			candidate := numberedTitle(title, n)
			for {
				taken, err := s.titleExists(ctx, candidate)
				if err != nil {
					return renamed, err
				}
				if !taken {
					break
				}
				n++
				candidate = numberedTitle(title, n)
			}

			if _, err := s.executor().ExecContext(ctx,
				"UPDATE tasks SET title = ? WHERE id = ?", candidate, id); err != nil {
				return renamed, fmt.Errorf("failed to rename task %d: %w", id, err)
			}
			renamed++
		}
	}

	return renamed, nil
}

// numberedTitle returns "<title> (n)", shortening title so the result fits
// the title length limit.
func numberedTitle(title string, n int) string {
	suffix := fmt.Sprintf(" (%d)", n)
	room := domain.MaxTitleLength - len(suffix)
	if room < 0 {
		room = 0
	}
	runes := []rune(title)
	if len(runes) > room {
		runes = runes[:room]
	}
	return string(runes) + suffix
}

func (s *TaskStore) titleExists(ctx context.Context, title string) (bool, error) {
	var one int
	err := s.executor().QueryRowContext(ctx,
		"SELECT 1 FROM tasks WHERE title = ? LIMIT 1", title).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check title: %w", err)
	}
	return true, nil
}

func (s *TaskStore) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *TaskStore) queryIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := s.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
