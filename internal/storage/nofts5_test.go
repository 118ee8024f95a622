//go:build !sqlite_fts5

package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestEnsureSchema_WarnsWithoutFullText(t *testing.T) {
	db := setupRawDB(t)
	log, hook := test.NewNullLogger()

	if err := EnsureSchema(context.Background(), db, log); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	warned := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, "sqlite_fts5") {
			warned++
		}
	}
	if warned != 1 {
		t.Errorf("expected one warning naming the build tag, got %d", warned)
	}
}
