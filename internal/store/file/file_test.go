package file

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"opsched/internal/store"
)

func TestStoreSaveLoad(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nested", "scheduler.dat"))
	ctx := context.Background()

	if err := s.Save(ctx, []byte("first")); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := s.Save(ctx, []byte("second")); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !bytes.Equal(got, []byte("second")) {
		t.Fatalf("Load = %q, want %q", got, "second")
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want 1 (temp files left behind?)", len(entries))
	}
}

func TestStoreLoadMissing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing.dat"))
	if _, err := s.Load(context.Background()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, store.ErrNotFound)
	}
}

func TestStoreRejectsEmptyPayload(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "scheduler.dat"))
	if err := s.Save(context.Background(), nil); !errors.Is(err, store.ErrEmpty) {
		t.Fatalf("error = %v, want %v", err, store.ErrEmpty)
	}
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "scheduler.dat"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Save(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want %v", err, context.Canceled)
	}
}

func TestNewDefaultsPath(t *testing.T) {
	if got := New("").Path(); got != DefaultPath {
		t.Fatalf("Path = %q, want %q", got, DefaultPath)
	}
}
