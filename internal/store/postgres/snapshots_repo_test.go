package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassify(t *testing.T) {
	if classify(nil) != nil {
		t.Fatalf("classify(nil) != nil")
	}

	missing := &pgconn.PgError{Code: "42P01", Message: `relation "engine_snapshots" does not exist`}
	if err := classify(fmt.Errorf("exec: %w", missing)); !errors.Is(err, ErrSchemaMissing) {
		t.Fatalf("error = %v, want %v", err, ErrSchemaMissing)
	}

	other := &pgconn.PgError{Code: "23505"}
	if err := classify(other); errors.Is(err, ErrSchemaMissing) {
		t.Fatalf("unique violation classified as missing schema")
	}
}

func TestSnapshotRowBeforeAppendModelIgnoresNonInsert(t *testing.T) {
	var row snapshotRow
	if err := row.BeforeAppendModel(context.Background(), nil); err != nil {
		t.Fatalf("BeforeAppendModel error: %v", err)
	}
	if !row.CreatedAt.IsZero() {
		t.Fatalf("created_at set for non-insert query")
	}
}
