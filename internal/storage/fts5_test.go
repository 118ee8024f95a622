//go:build sqlite_fts5

package storage

import (
	"context"
	"testing"

	"github.com/raztodo/raztodo/internal/domain"
)

func TestEnsureSchema_FullTextCompiledIn(t *testing.T) {
	s := setupTestStore(t)

	enabled, err := FullTextEnabled(context.Background(), s.db)
	if err != nil {
		t.Fatalf("FullTextEnabled failed: %v", err)
	}
	if !enabled {
		t.Fatal("expected the FTS table with the sqlite_fts5 build tag")
	}
}

func TestTaskStore_SearchPathsAgree(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mustInsert(t, s, NewRow{Title: "Buy MILK", Priority: "H"})
	mustInsert(t, s, NewRow{Title: "Walk dog", Description: "then fetch milk", Priority: "L"})
	mustInsert(t, s, NewRow{Title: "Milk run", Tags: []string{"shop"}})
	mustInsert(t, s, NewRow{Title: "Pay rent"})

	tests := []struct {
		name    string
		keyword string
		filter  domain.SearchFilter
	}{
		{"lower case", "milk", domain.SearchFilter{}},
		{"upper case", "MILK", domain.SearchFilter{}},
		{"mixed case", "Walk", domain.SearchFilter{}},
		{"with priority filter", "milk", domain.SearchFilter{Priority: domain.StringPtr("L")}},
		{"with tag filter", "milk", domain.SearchFilter{Tags: []string{"shop"}}},
		{"no match", "zebra", domain.SearchFilter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			full, err := s.searchFullText(ctx, tt.keyword, tt.filter)
			if err != nil {
				t.Fatalf("searchFullText failed: %v", err)
			}
			like, err := s.searchLike(ctx, tt.keyword, tt.filter)
			if err != nil {
				t.Fatalf("searchLike failed: %v", err)
			}
			if !equalIDs(rowIDs(full), rowIDs(like)) {
				t.Errorf("full-text %v and fallback %v disagree", rowIDs(full), rowIDs(like))
			}
		})
	}
}
