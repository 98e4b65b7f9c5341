package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"review_dashboard/internal/domain"
	"review_dashboard/internal/storage/file"
)

func TestStore_GetSetRemove(t *testing.T) {
	s, err := file.New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Get(ctx, "review-decisions"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Set(ctx, "review-decisions", []byte(`{"7454":"approved"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "review-decisions", []byte(`{"7454":"rejected"}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.Get(ctx, "review-decisions")
	if err != nil || string(got) != `{"7454":"rejected"}` {
		t.Fatalf("expected last write, got %q %v", got, err)
	}
	if err := s.Remove(ctx, "review-decisions"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(ctx, "review-decisions"); err != nil {
		t.Fatalf("removing a missing key should be a no-op: %v", err)
	}
	if _, err := s.Get(ctx, "review-decisions"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := file.New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s1.Set(ctx, "property-analysis-cache", []byte(`{}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	s2, err := file.New(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := s2.Get(ctx, "property-analysis-cache")
	if err != nil || string(got) != `{}` {
		t.Fatalf("expected blob after reopen, got %q %v", got, err)
	}

	// no temp files left behind
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || filepath.Ext(entries[0].Name()) != ".json" {
		t.Fatalf("unexpected files in data dir: %v", entries)
	}
}

func TestStore_KeyIsEscaped(t *testing.T) {
	dir := t.TempDir()
	s, _ := file.New(dir)
	ctx := context.Background()

	if err := s.Set(ctx, "../escape", []byte("x")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.json")); err == nil {
		t.Fatalf("key escaped the data dir")
	}
	if got, err := s.Get(ctx, "../escape"); err != nil || string(got) != "x" {
		t.Fatalf("got %q %v", got, err)
	}
}

func TestNew_EmptyDir(t *testing.T) {
	if _, err := file.New(""); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
