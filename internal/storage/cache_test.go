package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/snooow1029/paper-master/internal/s2"
)

func setupTestCache(t *testing.T) *Cache {
	t.Helper()

	cache, err := Open(filepath.Join(t.TempDir(), "lookups.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func intPtr(n int) *int { return &n }

func TestCache_PutGet(t *testing.T) {
	cache := setupTestCache(t)

	if _, ok := cache.Get("ARXIV:2305.10403"); ok {
		t.Fatal("Get returned a record from an empty cache")
	}

	paper := &s2.Paper{
		PaperID:   "abc123",
		Title:     "PaLM 2 Technical Report",
		Year:      2023,
		Citations: intPtr(1200),
		ExternalIDs: s2.ExternalIDs{
			ArXiv: "2305.10403",
		},
		Authors: []s2.Author{{Name: "Anil"}},
	}
	cache.Put("ARXIV:2305.10403", paper)

	got, ok := cache.Get("ARXIV:2305.10403")
	if !ok {
		t.Fatal("Get missed a stored record")
	}
	if got.Title != paper.Title || got.ExternalIDs.ArXiv != "2305.10403" {
		t.Errorf("got %+v, want stored paper", got)
	}
	if got.Citations == nil || *got.Citations != 1200 {
		t.Errorf("Citations = %v, want 1200", got.Citations)
	}
}

func TestCache_PutReplaces(t *testing.T) {
	cache := setupTestCache(t)

	cache.Put("abc123", &s2.Paper{PaperID: "abc123", Title: "Old Title"})
	cache.Put("abc123", &s2.Paper{PaperID: "abc123", Title: "New Title", Citations: intPtr(5)})

	got, ok := cache.Get("abc123")
	if !ok {
		t.Fatal("Get missed the record")
	}
	if got.Title != "New Title" {
		t.Errorf("Title = %q, replacement did not stick", got.Title)
	}

	n, err := cache.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 1 {
		t.Errorf("Len = %d, want 1 after replace", n)
	}
}

func TestCache_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lookups.db")

	cache, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cache.Put("ARXIV:1706.03762", &s2.Paper{Title: "Attention Is All You Need"})
	if err := cache.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("ARXIV:1706.03762")
	if !ok {
		t.Fatal("record lost across reopen")
	}
	if got.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestCache_Prune(t *testing.T) {
	cache := setupTestCache(t)

	cache.Put("old", &s2.Paper{Title: "Old"})
	cache.Put("fresh", &s2.Paper{Title: "Fresh"})

	// Backdate one record past the cutoff.
	if _, err := cache.db.Exec(
		"UPDATE lookups SET fetched_at = ? WHERE key = 'old'",
		time.Now().Add(-48*time.Hour).Unix(),
	); err != nil {
		t.Fatalf("backdating: %v", err)
	}

	n, err := cache.Prune(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d records, want 1", n)
	}
	if _, ok := cache.Get("old"); ok {
		t.Error("pruned record still readable")
	}
	if _, ok := cache.Get("fresh"); !ok {
		t.Error("fresh record pruned")
	}
}
