package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Snapshot is one persisted copy of a remote collection.
type Snapshot struct {
	ID          uuid.UUID
	Entity      string
	TakenAt     time.Time
	RecordCount int
	Payload     []byte
}

type SnapshotRepo interface {
	SaveSnapshot(ctx context.Context, entity string, count int, payload []byte) (uuid.UUID, error)
	// LatestSnapshot returns nil, nil when nothing was saved for entity yet.
	LatestSnapshot(ctx context.Context, entity string) (*Snapshot, error)
	PruneSnapshots(ctx context.Context, entity string, keep int) (int64, error)
}

type SnapshotRepository struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepository(p *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: p}
}

func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, entity string, count int, payload []byte) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO backoffice.snapshots (id, entity, taken_at, record_count, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, entity, time.Now().UTC(), count, payload,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *SnapshotRepository) LatestSnapshot(ctx context.Context, entity string) (*Snapshot, error) {
	var s Snapshot
	err := r.pool.QueryRow(ctx,
		`SELECT id, entity, taken_at, record_count, payload
		   FROM backoffice.snapshots
		  WHERE entity = $1
		  ORDER BY taken_at DESC
		  LIMIT 1`,
		entity,
	).Scan(&s.ID, &s.Entity, &s.TakenAt, &s.RecordCount, &s.Payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// PruneSnapshots keeps the newest keep snapshots of entity and deletes the rest.
func (r *SnapshotRepository) PruneSnapshots(ctx context.Context, entity string, keep int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM backoffice.snapshots
		  WHERE entity = $1
		    AND id NOT IN (
		        SELECT id FROM backoffice.snapshots
		         WHERE entity = $1
		         ORDER BY taken_at DESC
		         LIMIT $2)`,
		entity, keep,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
