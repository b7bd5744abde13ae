package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Watch maps directly onto Redis WATCH/MULTI/EXEC. A nil EXEC reply
// from a concurrent write surfaces as ErrTxAborted so callers can
// retry.
func (s *Store) Watch(ctx context.Context, fn func(types.Tx) error, keys ...string) error {
	err := s.rdb.Watch(ctx, func(rtx *goredis.Tx) error {
		return fn(&tx{rtx: rtx})
	}, keys...)
	if errors.Is(err, goredis.TxFailedErr) {
		return types.ErrTxAborted
	}
	return err
}

func (s *Store) Pipelined(ctx context.Context, fn func(types.Pipeline)) error {
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		fn(&pipe{p: p})
		return nil
	})
	return err
}

type tx struct {
	rtx *goredis.Tx
}

func (t *tx) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := t.rtx.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (t *tx) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return t.rtx.HGetAll(ctx, key).Result()
}

func (t *tx) Exists(ctx context.Context, key string) (bool, error) {
	n, err := t.rtx.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *tx) Commit(ctx context.Context, fn func(types.Pipeline)) error {
	_, err := t.rtx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		fn(&pipe{p: p})
		return nil
	})
	if errors.Is(err, goredis.TxFailedErr) {
		return types.ErrTxAborted
	}
	return err
}

type pipe struct {
	p goredis.Pipeliner
}

func (pl *pipe) Set(key, value string, ttl time.Duration) {
	pl.p.Set(context.Background(), key, value, ttl)
}

func (pl *pipe) Del(keys ...string) {
	if len(keys) == 0 {
		return
	}
	pl.p.Del(context.Background(), keys...)
}

func (pl *pipe) HSet(key string, fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	pl.p.HSet(context.Background(), key, fields)
}

func (pl *pipe) SAdd(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	pl.p.SAdd(context.Background(), key, anySlice(members)...)
}

func (pl *pipe) SRem(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	pl.p.SRem(context.Background(), key, anySlice(members)...)
}
