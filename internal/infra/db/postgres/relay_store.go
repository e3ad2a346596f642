package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-channel-relay/internal/domain"
	"telegram-channel-relay/internal/domain/model"
	"telegram-channel-relay/internal/domain/ports/repository"
)

var _ repository.Store = (*relayStore)(nil)

// executor is the subset of pgxpool.Pool the store needs.
type executor interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

type relayStore struct {
	db   executor
	pool *pgxpool.Pool
}

// NewRelayStore returns a Store backed by the channel_bindings and channel_cursors tables.
// Close releases the pool.
func NewRelayStore(pool *pgxpool.Pool) repository.Store {
	return &relayStore{db: pool, pool: pool}
}

func (r *relayStore) Save(ctx context.Context, b *model.ChannelBinding) error {
	if b == nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO channel_bindings (group_id, channel_name, bound_at)
VALUES ($1, $2, $3)
ON CONFLICT (group_id) DO UPDATE
SET channel_name = EXCLUDED.channel_name, bound_at = EXCLUDED.bound_at`
	_, err := r.db.Exec(ctx, q, b.GroupID, b.Channel, b.BoundAt)
	return err
}

func (r *relayStore) Delete(ctx context.Context, groupID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM channel_bindings WHERE group_id = $1`, groupID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *relayStore) FindByGroup(ctx context.Context, groupID int64) (*model.ChannelBinding, error) {
	const q = `SELECT group_id, channel_name, bound_at FROM channel_bindings WHERE group_id = $1`
	var b model.ChannelBinding
	err := r.db.QueryRow(ctx, q, groupID).Scan(&b.GroupID, &b.Channel, &b.BoundAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *relayStore) ListAll(ctx context.Context) ([]model.ChannelBinding, error) {
	rows, err := r.db.Query(ctx, `SELECT group_id, channel_name, bound_at FROM channel_bindings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ChannelBinding
	for rows.Next() {
		var b model.ChannelBinding
		if err := rows.Scan(&b.GroupID, &b.Channel, &b.BoundAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *relayStore) Get(ctx context.Context, channel string) (int64, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `SELECT last_seq FROM channel_cursors WHERE channel_name = $1`, channel).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return seq, err
}

func (r *relayStore) Init(ctx context.Context, channel string) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO channel_cursors (channel_name, last_seq) VALUES ($1, 0)
ON CONFLICT (channel_name) DO NOTHING`, channel)
	return err
}

func (r *relayStore) Advance(ctx context.Context, channel string, seq int64) (bool, error) {
	// The WHERE clause on the conflict branch keeps the cursor monotonic.
	const q = `
INSERT INTO channel_cursors (channel_name, last_seq, updated_at) VALUES ($1, $2, now())
ON CONFLICT (channel_name) DO UPDATE
SET last_seq = EXCLUDED.last_seq, updated_at = now()
WHERE channel_cursors.last_seq < EXCLUDED.last_seq`
	if seq <= 0 {
		return false, nil
	}
	tag, err := r.db.Exec(ctx, q, channel, seq)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *relayStore) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}
