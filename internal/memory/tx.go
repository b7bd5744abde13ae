package memory

import (
	"context"
	"time"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Watch captures the version counters of the given keys, then runs fn.
// A Commit issued through the Tx applies its queued writes only if every
// captured counter is still current; otherwise it returns ErrTxAborted.
func (s *Store) Watch(_ context.Context, fn func(types.Tx) error, keys ...string) error {
	s.mu.Lock()
	snap := make(map[string]uint64, len(keys))
	for _, k := range keys {
		s.lookup(k) // purge an expired key so its version settles
		snap[k] = s.versions[k]
	}
	s.mu.Unlock()
	return fn(&tx{store: s, watched: snap})
}

func (s *Store) Pipelined(_ context.Context, fn func(types.Pipeline)) error {
	p := &pipe{}
	fn(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	return p.applyLocked(s)
}

type tx struct {
	store   *Store
	watched map[string]uint64
}

func (t *tx) Get(ctx context.Context, key string) (string, bool, error) {
	return t.store.Get(ctx, key)
}

func (t *tx) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return t.store.HGetAll(ctx, key)
}

func (t *tx) Exists(ctx context.Context, key string) (bool, error) {
	return t.store.Exists(ctx, key)
}

func (t *tx) Commit(_ context.Context, fn func(types.Pipeline)) error {
	p := &pipe{}
	fn(p)

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range t.watched {
		s.lookup(k)
		if s.versions[k] != v {
			return types.ErrTxAborted
		}
	}
	return p.applyLocked(s)
}

// pipe queues writes and replays them under the store lock, making the
// whole batch atomic with respect to every other operation.
type pipe struct {
	ops []func(s *Store) error
}

func (p *pipe) applyLocked(s *Store) error {
	for _, op := range p.ops {
		if err := op(s); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipe) Set(key, value string, ttl time.Duration) {
	p.ops = append(p.ops, func(s *Store) error {
		s.setLocked(key, value, ttl)
		return nil
	})
}

func (p *pipe) Del(keys ...string) {
	p.ops = append(p.ops, func(s *Store) error {
		for _, k := range keys {
			s.delLocked(k)
		}
		return nil
	})
}

func (p *pipe) HSet(key string, fields map[string]string) {
	p.ops = append(p.ops, func(s *Store) error {
		return s.hsetLocked(key, fields)
	})
}

func (p *pipe) SAdd(key string, members ...string) {
	p.ops = append(p.ops, func(s *Store) error {
		_, err := s.saddLocked(key, members)
		return err
	})
}

func (p *pipe) SRem(key string, members ...string) {
	p.ops = append(p.ops, func(s *Store) error {
		_, err := s.sremLocked(key, members)
		return err
	})
}
