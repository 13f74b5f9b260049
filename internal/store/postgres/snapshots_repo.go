package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"opsched/internal/store"
)

var ErrSchemaMissing = errors.New("snapshot table missing")

type snapshotRow struct {
	bun.BaseModel `bun:"table:engine_snapshots"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Payload   []byte    `bun:"payload,type:bytea,notnull"`
	SizeBytes int       `bun:"size_bytes,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (s *snapshotRow) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if s.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		s.ID = id
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return nil
}

// SnapshotRepo appends every save as a new row and loads the newest. When
// keep is positive, older rows beyond keep are pruned in the same transaction.
type SnapshotRepo struct {
	db   *bun.DB
	keep int
}

func NewSnapshotRepo(db *bun.DB, keep int) *SnapshotRepo {
	return &SnapshotRepo{db: db, keep: keep}
}

func (r *SnapshotRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().
		Model((*snapshotRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create engine_snapshots: %w", err)
	}
	if _, err := r.db.NewCreateIndex().
		Model((*snapshotRow)(nil)).
		Index("engine_snapshots_created_at_idx").
		Column("created_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create engine_snapshots index: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) Save(ctx context.Context, payload []byte) error {
	if len(payload) == 0 {
		return store.ErrEmpty
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := snapshotRow{Payload: payload, SizeBytes: len(payload)}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return classify(err)
		}
		if r.keep <= 0 {
			return nil
		}
		return prune(ctx, tx, r.keep)
	})
}

func (r *SnapshotRepo) Load(ctx context.Context) ([]byte, error) {
	var row snapshotRow
	err := r.db.NewSelect().
		Model(&row).
		OrderExpr("created_at DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, classify(err)
	}
	return row.Payload, nil
}

func (r *SnapshotRepo) Count(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*snapshotRow)(nil)).Count(ctx)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func prune(ctx context.Context, tx bun.Tx, keep int) error {
	newest := tx.NewSelect().
		Model((*snapshotRow)(nil)).
		Column("id").
		OrderExpr("created_at DESC, id DESC").
		Limit(keep)
	_, err := tx.NewDelete().
		Model((*snapshotRow)(nil)).
		Where("id NOT IN (?)", newest).
		Exec(ctx)
	return classify(err)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, pgErr.Message)
	}
	return err
}
