// Package redis backs the store contract with a Redis server via
// go-redis. The mapping is nearly one-to-one: every primitive is a
// single command, and Watch rides on Redis WATCH/MULTI/EXEC.
package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Store is a Redis-backed key-value store.
type Store struct {
	rdb *goredis.Client
}

var _ types.Store = (*Store)(nil)

// New connects to the Redis server named by cfg and verifies the
// connection with a ping.
func New(ctx context.Context, cfg types.Config) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}
	return &Store{rdb: rdb}, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.rdb.Incr(ctx, key).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return s.rdb.Del(ctx, keys...).Result()
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	// EXPIRE with a non-positive ttl deletes the key; the store contract
	// clears the expiry instead.
	if ttl <= 0 {
		cleared, err := s.rdb.Persist(ctx, key).Result()
		if err != nil || cleared {
			return cleared, err
		}
		n, err := s.rdb.Exists(ctx, key).Result()
		return n > 0, err
	}
	return s.rdb.Expire(ctx, key, ttl).Result()
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, key).Result()
}

func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.rdb.HSet(ctx, key, fields).Err()
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	return s.rdb.SAdd(ctx, key, anySlice(members)...).Result()
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	return s.rdb.SRem(ctx, key, anySlice(members)...).Result()
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return s.rdb.SIsMember(ctx, key, member).Result()
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.rdb.SMembers(ctx, key).Result()
}

func (s *Store) SScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error) {
	return s.rdb.SScan(ctx, key, cursor, "", count).Result()
}

func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	return s.rdb.SCard(ctx, key).Result()
}

func (s *Store) ZAdd(ctx context.Context, key string, members ...types.ScoredMember) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	zs := make([]goredis.Z, 0, len(members))
	for _, m := range members {
		zs = append(zs, goredis.Z{Score: m.Score, Member: m.Member})
	}
	return s.rdb.ZAdd(ctx, key, zs...).Result()
}

func (s *Store) ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error) {
	return s.rdb.ZIncrBy(ctx, key, delta, member).Result()
}

func (s *Store) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	return s.rdb.ZRem(ctx, key, anySlice(members)...).Result()
}

func (s *Store) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) (int64, error) {
	return s.rdb.ZRemRangeByRank(ctx, key, start, stop).Result()
}

func (s *Store) ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error) {
	return s.rdb.ZRemRangeByScore(ctx, key, scoreArg(min), scoreArg(max)).Result()
}

func (s *Store) ZRangeByRank(ctx context.Context, key string, start, stop int64, rev bool) ([]types.ScoredMember, error) {
	var zs []goredis.Z
	var err error
	if rev {
		zs, err = s.rdb.ZRevRangeWithScores(ctx, key, start, stop).Result()
	} else {
		zs, err = s.rdb.ZRangeWithScores(ctx, key, start, stop).Result()
	}
	if err != nil {
		return nil, err
	}
	return scoredMembers(zs), nil
}

func (s *Store) ZRangeByScore(ctx context.Context, key string, rng types.ScoreRange) ([]types.ScoredMember, error) {
	by := &goredis.ZRangeBy{
		Min:    scoreArg(rng.Min),
		Max:    scoreArg(rng.Max),
		Offset: rng.Offset,
		Count:  rng.Count,
	}
	// LIMIT with count 0 means "nothing" to Redis; -1 means unbounded.
	if by.Count == 0 && by.Offset > 0 {
		by.Count = -1
	}
	var zs []goredis.Z
	var err error
	if rng.Rev {
		zs, err = s.rdb.ZRevRangeByScoreWithScores(ctx, key, by).Result()
	} else {
		zs, err = s.rdb.ZRangeByScoreWithScores(ctx, key, by).Result()
	}
	if err != nil {
		return nil, err
	}
	return scoredMembers(zs), nil
}

func (s *Store) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	score, err := s.rdb.ZScore(ctx, key, member).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

func (s *Store) ZRank(ctx context.Context, key, member string, rev bool) (int64, bool, error) {
	var rank int64
	var err error
	if rev {
		rank, err = s.rdb.ZRevRank(ctx, key, member).Result()
	} else {
		rank, err = s.rdb.ZRank(ctx, key, member).Result()
	}
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rank, true, nil
}

func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	return s.rdb.ZCard(ctx, key).Result()
}

func (s *Store) ZCount(ctx context.Context, key string, min, max float64) (int64, error) {
	return s.rdb.ZCount(ctx, key, scoreArg(min), scoreArg(max)).Result()
}

func (s *Store) ScanKeys(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	return s.rdb.Scan(ctx, cursor, match, count).Result()
}

func anySlice(members []string) []interface{} {
	out := make([]interface{}, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}

func scoredMembers(zs []goredis.Z) []types.ScoredMember {
	out := make([]types.ScoredMember, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		out = append(out, types.ScoredMember{Member: member, Score: z.Score})
	}
	return out
}

// scoreArg renders a score bound in Redis range syntax, with the
// infinities as their sentinel spellings.
func scoreArg(f float64) string {
	switch {
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsInf(f, 1):
		return "+inf"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}
