package types

import (
	"context"
	"math"
	"time"
)

// ScoreRange selects sorted-set members by score. Min and Max are
// inclusive; math.Inf(-1) and math.Inf(+1) mean unbounded below and
// above. Offset and Count paginate after range filtering; Count 0 means
// no limit. Rev flips the result order to highest score first.
type ScoreRange struct {
	Min    float64
	Max    float64
	Offset int64
	Count  int64
	Rev    bool
}

// FullScoreRange matches every member of a sorted set.
func FullScoreRange() ScoreRange {
	return ScoreRange{Min: math.Inf(-1), Max: math.Inf(1)}
}

// Store is the primitive surface Shelf requires from a backing key-value
// store. Every operation is a single atomic step from the caller's point
// of view; consistency across operations is the responsibility of the
// layers built on top, via Watch.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// String operations.

	// Get returns the string value at key. The bool is false when the
	// key is absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value at key. A positive ttl arms expiry; zero means
	// the key does not expire.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Incr atomically increments the integer at key, creating it at 0
	// first if absent, and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Del removes keys of any kind and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)
	// Exists reports whether key is present, regardless of kind.
	Exists(ctx context.Context, key string) (bool, error)
	// Expire re-arms the ttl on an existing key; a non-positive ttl
	// clears any expiry, making the key persistent. Returns false when
	// the key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Hash operations.

	// HGetAll returns every field of the hash at key; an absent key
	// yields an empty map, not an error.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HSet writes the given fields into the hash at key, creating the
	// hash if needed and leaving other fields untouched.
	HSet(ctx context.Context, key string, fields map[string]string) error

	// Set operations.

	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SRem(ctx context.Context, key string, members ...string) (int64, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	// SScan iterates the set at key in cursor-sized steps. A returned
	// cursor of 0 terminates the iteration. Members may be delivered
	// twice or skipped when the set mutates between calls.
	SScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error)
	SCard(ctx context.Context, key string) (int64, error)

	// Sorted-set operations. Order is (score, member) ascending.

	// ZAdd upserts members and returns how many were newly added.
	ZAdd(ctx context.Context, key string, members ...ScoredMember) (int64, error)
	// ZIncrBy atomically adds delta to the member's score, creating the
	// member at delta if absent, and returns the new score.
	ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error)
	ZRem(ctx context.Context, key string, members ...string) (int64, error)
	ZRemRangeByRank(ctx context.Context, key string, start, stop int64) (int64, error)
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error)
	// ZRangeByRank returns members between the zero-based positions
	// start and stop inclusive. Negative positions count from the end.
	// rev reverses the order before positions are applied.
	ZRangeByRank(ctx context.Context, key string, start, stop int64, rev bool) ([]ScoredMember, error)
	ZRangeByScore(ctx context.Context, key string, rng ScoreRange) ([]ScoredMember, error)
	// ZScore returns the member's score; the bool is false when absent.
	ZScore(ctx context.Context, key, member string) (float64, bool, error)
	// ZRank returns the member's zero-based position; the bool is false
	// when absent.
	ZRank(ctx context.Context, key, member string, rev bool) (int64, bool, error)
	ZCard(ctx context.Context, key string) (int64, error)
	ZCount(ctx context.Context, key string, min, max float64) (int64, error)

	// Keyspace operations.

	// ScanKeys iterates keys matching the glob pattern match. Cursor
	// semantics are those of SScan.
	ScanKeys(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)

	// Transactions.

	// Watch runs fn with the given keys under optimistic watch. Writes
	// queued through Tx.Commit apply only if no watched key changed
	// since the watch was placed; otherwise Commit returns ErrTxAborted
	// and nothing is written. Errors returned by fn propagate unchanged
	// and release the watch.
	Watch(ctx context.Context, fn func(Tx) error, keys ...string) error
	// Pipelined batches the queued writes into one atomic submission.
	Pipelined(ctx context.Context, fn func(Pipeline)) error

	Close() error
}

// Tx is the view of the store inside a Watch callback. Reads observe
// current state, which may already be stale by commit time; the commit
// itself is the verification step.
type Tx interface {
	Get(ctx context.Context, key string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Commit queues writes through fn and submits them conditioned on
	// the watched keys. Returns ErrTxAborted on conflict.
	Commit(ctx context.Context, fn func(Pipeline)) error
}

// Pipeline queues writes for a single atomic submission. Methods never
// fail at queue time; submission errors surface from the enclosing
// Commit or Pipelined call.
type Pipeline interface {
	Set(key, value string, ttl time.Duration)
	Del(keys ...string)
	HSet(key string, fields map[string]string)
	SAdd(key string, members ...string)
	SRem(key string, members ...string)
}
