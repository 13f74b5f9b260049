package postgres

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"opsched/internal/store"
)

func TestPostgresIntegration_SnapshotSaveLoadPrune(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("OPSCHED_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("OPSCHED_TEST_DATABASE_URL not set")
	}

	db, err := Open(context.Background(), databaseURL, PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := "opsched_test_" + randomHex(t, 8)
	if _, err := db.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})
	// One connection, so the session search_path sticks.
	if _, err := db.NewRaw("SET search_path TO " + schema).Exec(ctx); err != nil {
		t.Fatalf("set search_path: %v", err)
	}

	repo := NewSnapshotRepo(db, 2)

	if err := repo.Save(ctx, []byte("x")); !errors.Is(err, ErrSchemaMissing) {
		t.Fatalf("Save before schema error = %v, want %v", err, ErrSchemaMissing)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema error: %v", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema second call error: %v", err)
	}

	if _, err := repo.Load(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Load on empty table error = %v, want %v", err, store.ErrNotFound)
	}

	for _, p := range []string{"one", "two", "three"} {
		if err := repo.Save(ctx, []byte(p)); err != nil {
			t.Fatalf("Save(%q) error: %v", p, err)
		}
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !bytes.Equal(got, []byte("three")) {
		t.Fatalf("Load = %q, want %q", got, "three")
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
}

func randomHex(t *testing.T, n int) string {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}
