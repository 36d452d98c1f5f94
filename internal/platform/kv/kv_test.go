package kv_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	apperrors "studytrack/internal/platform/errors"
	"studytrack/internal/platform/kv"
)

type record struct {
	CourseID string  `json:"courseId"`
	Duration float64 `json:"duration"`
}

func backends(t *testing.T) map[string]kv.Store {
	t.Helper()
	sqliteStore, err := kv.NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	badgerStore, err := kv.NewInMemoryBadgerStore()
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	stores := map[string]kv.Store{
		"file":   kv.NewFileStore(t.TempDir()),
		"memory": kv.NewMemoryStore(),
		"sqlite": sqliteStore,
		"badger": badgerStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreRoundTripAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	for name, store := range backends(t) {
		if _, err := store.Get(ctx, "activeStudySession"); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("%s: expected not found on empty store, got %v", name, err)
		}
		if err := kv.PutJSON(ctx, store, "activeStudySession", record{CourseID: "c1", Duration: 42}); err != nil {
			t.Fatalf("%s: put: %v", name, err)
		}
		if err := kv.PutJSON(ctx, store, "activeStudySession", record{CourseID: "c1", Duration: 90}); err != nil {
			t.Fatalf("%s: overwrite: %v", name, err)
		}
		got := record{}
		found, err := kv.GetJSON(ctx, store, "activeStudySession", &got)
		if err != nil || !found {
			t.Fatalf("%s: get: found=%v err=%v", name, found, err)
		}
		if got.Duration != 90 {
			t.Fatalf("%s: expected overwritten value 90, got %v", name, got.Duration)
		}
		if err := store.Delete(ctx, "activeStudySession"); err != nil {
			t.Fatalf("%s: delete: %v", name, err)
		}
		if err := store.Delete(ctx, "activeStudySession"); err != nil {
			t.Fatalf("%s: second delete must be a no-op: %v", name, err)
		}
		found, err = kv.GetJSON(ctx, store, "activeStudySession", &got)
		if err != nil || found {
			t.Fatalf("%s: expected key gone, found=%v err=%v", name, found, err)
		}
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	if err := kv.PutJSON(ctx, kv.NewFileStore(dir), "progress_c1_l/1", record{CourseID: "c1"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got := record{}
	found, err := kv.GetJSON(ctx, kv.NewFileStore(dir), "progress_c1_l/1", &got)
	if err != nil || !found || got.CourseID != "c1" {
		t.Fatalf("expected record after reopen, got %+v found=%v err=%v", got, found, err)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	t.Parallel()
	if _, err := kv.Open("etcd", t.TempDir()); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	store, err := kv.Open("sqlite", t.TempDir())
	if err != nil {
		t.Fatalf("open sqlite backend: %v", err)
	}
	_ = store.Close()
}
