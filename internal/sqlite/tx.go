package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// versionsLocked snapshots the current version counter of each key.
// Never-written keys read as 0.
func (s *Store) versionsLocked(ctx context.Context, keys []string) (map[string]uint64, error) {
	snap := make(map[string]uint64, len(keys))
	for _, key := range keys {
		var v uint64
		err := s.db.QueryRowContext(ctx,
			`SELECT version FROM versions WHERE key = ?`, key).Scan(&v)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("reading version of %q: %w", key, err)
		}
		snap[key] = v
	}
	return snap, nil
}

// Watch snapshots the version of each key, then runs fn. Commit
// re-reads the counters inside one database transaction and aborts
// with ErrTxAborted if any moved since the snapshot.
func (s *Store) Watch(ctx context.Context, fn func(types.Tx) error, keys ...string) error {
	s.mu.Lock()
	snap, err := s.versionsLocked(ctx, keys)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return fn(&tx{s: s, snap: snap})
}

func (s *Store) Pipelined(ctx context.Context, fn func(types.Pipeline)) error {
	p := &pipe{s: s}
	fn(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withTx(ctx, func(dbtx *sql.Tx) error {
		return p.apply(ctx, dbtx)
	})
}

type tx struct {
	s    *Store
	snap map[string]uint64
}

func (t *tx) Get(ctx context.Context, key string) (string, bool, error) {
	return t.s.Get(ctx, key)
}

func (t *tx) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return t.s.HGetAll(ctx, key)
}

func (t *tx) Exists(ctx context.Context, key string) (bool, error) {
	return t.s.Exists(ctx, key)
}

func (t *tx) Commit(ctx context.Context, fn func(types.Pipeline)) error {
	p := &pipe{s: t.s}
	fn(p)

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.withTx(ctx, func(dbtx *sql.Tx) error {
		for key, watched := range t.snap {
			var current uint64
			err := dbtx.QueryRowContext(ctx,
				`SELECT version FROM versions WHERE key = ?`, key).Scan(&current)
			if err != nil && err != sql.ErrNoRows {
				return fmt.Errorf("reading version of %q: %w", key, err)
			}
			if current != watched {
				return types.ErrTxAborted
			}
		}
		return p.apply(ctx, dbtx)
	})
}

// pipe queues writes as closures over a database transaction; apply
// replays them in order.
type pipe struct {
	s   *Store
	ops []func(ctx context.Context, dbtx *sql.Tx) error
}

func (p *pipe) apply(ctx context.Context, dbtx *sql.Tx) error {
	for _, op := range p.ops {
		if err := op(ctx, dbtx); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipe) Set(key, value string, ttl time.Duration) {
	p.ops = append(p.ops, func(ctx context.Context, dbtx *sql.Tx) error {
		return setInTx(ctx, dbtx, key, value, ttl, p.s.now)
	})
}

func (p *pipe) Del(keys ...string) {
	p.ops = append(p.ops, func(ctx context.Context, dbtx *sql.Tx) error {
		for _, key := range keys {
			for _, table := range []string{"strings", "hashes", "sets", "zsets"} {
				if _, err := dbtx.ExecContext(ctx,
					`DELETE FROM `+table+` WHERE key = ?`, key); err != nil {
					return fmt.Errorf("deleting %q: %w", key, err)
				}
			}
			if err := bump(ctx, dbtx, key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *pipe) HSet(key string, fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	staged := make(map[string]string, len(fields))
	for k, v := range fields {
		staged[k] = v
	}
	p.ops = append(p.ops, func(ctx context.Context, dbtx *sql.Tx) error {
		return hsetInTx(ctx, dbtx, key, staged)
	})
}

func (p *pipe) SAdd(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	p.ops = append(p.ops, func(ctx context.Context, dbtx *sql.Tx) error {
		_, err := saddInTx(ctx, dbtx, key, members)
		return err
	})
}

func (p *pipe) SRem(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	p.ops = append(p.ops, func(ctx context.Context, dbtx *sql.Tx) error {
		_, err := sremInTx(ctx, dbtx, key, members)
		return err
	})
}
