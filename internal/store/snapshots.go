package store

import "context"

// SnapshotStore persists opaque whole-engine snapshots. Load returns the most
// recently saved payload or ErrNotFound.
type SnapshotStore interface {
	Save(ctx context.Context, payload []byte) error
	Load(ctx context.Context) ([]byte, error)
}

// Discard is a SnapshotStore that keeps nothing.
type Discard struct{}

func (Discard) Save(ctx context.Context, payload []byte) error {
	return ctx.Err()
}

func (Discard) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNotFound
}
