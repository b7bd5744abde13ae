// Package sorted exposes the store's sorted-set primitives as an
// ordered index layer: members totally ordered by (score, member) with
// stable rank semantics, queryable by position or by score range.
//
// A sorted index may stand alone (rankings, priority queues, rate
// windows) or be bound to a table field by key naming, in which case
// its members are row ids and pkg/table joins them back to rows. Every
// operation here is a single atomic primitive; none needs the
// watch/retry discipline.
package sorted

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Store provides ordered-index operations over a backing key-value
// store.
type Store struct {
	st types.Store
}

// New returns a sorted-index store over st.
func New(st types.Store) *Store {
	return &Store{st: st}
}

// Add upserts one member: re-adding an existing member updates its
// score.
func (s *Store) Add(ctx context.Context, key string, score float64, member string) error {
	_, err := s.st.ZAdd(ctx, key, types.ScoredMember{Member: member, Score: score})
	if err != nil {
		return fmt.Errorf("adding to sorted index %q: %w", key, err)
	}
	return nil
}

// AddMany upserts members in one call and returns how many were newly
// added, as opposed to rescored.
func (s *Store) AddMany(ctx context.Context, key string, members ...types.ScoredMember) (int64, error) {
	n, err := s.st.ZAdd(ctx, key, members...)
	if err != nil {
		return 0, fmt.Errorf("adding to sorted index %q: %w", key, err)
	}
	return n, nil
}

// ByRank returns members between the zero-based positions start and
// stop inclusive; negative positions count from the end (-1 is the
// last). rev flips to highest-score-first order without changing the
// position semantics.
func (s *Store) ByRank(ctx context.Context, key string, start, stop int64, rev bool) ([]types.ScoredMember, error) {
	members, err := s.st.ZRangeByRank(ctx, key, start, stop, rev)
	if err != nil {
		return nil, fmt.Errorf("ranking sorted index %q: %w", key, err)
	}
	return members, nil
}

// ByScore returns members inside the inclusive score range. Use
// math.Inf for unbounded ends or FullScoreRange for everything; Offset
// and Count paginate after range filtering.
func (s *Store) ByScore(ctx context.Context, key string, rng types.ScoreRange) ([]types.ScoredMember, error) {
	members, err := s.st.ZRangeByScore(ctx, key, rng)
	if err != nil {
		return nil, fmt.Errorf("ranging sorted index %q: %w", key, err)
	}
	return members, nil
}

// Rank returns the member's zero-based position in the order, or
// ErrNotFound when absent.
func (s *Store) Rank(ctx context.Context, key, member string, rev bool) (int64, error) {
	rank, ok, err := s.st.ZRank(ctx, key, member, rev)
	if err != nil {
		return 0, fmt.Errorf("ranking %q in sorted index %q: %w", member, key, err)
	}
	if !ok {
		return 0, fmt.Errorf("member %q of sorted index %q: %w", member, key, types.ErrNotFound)
	}
	return rank, nil
}

// Score returns the member's score, or ErrNotFound when absent.
func (s *Store) Score(ctx context.Context, key, member string) (float64, error) {
	score, ok, err := s.st.ZScore(ctx, key, member)
	if err != nil {
		return 0, fmt.Errorf("scoring %q in sorted index %q: %w", member, key, err)
	}
	if !ok {
		return 0, fmt.Errorf("member %q of sorted index %q: %w", member, key, types.ErrNotFound)
	}
	return score, nil
}

// IncrementScore atomically adds delta to the member's score, creating
// the member at delta when absent, and returns the new score.
func (s *Store) IncrementScore(ctx context.Context, key, member string, delta float64) (float64, error) {
	score, err := s.st.ZIncrBy(ctx, key, delta, member)
	if err != nil {
		return 0, fmt.Errorf("incrementing %q in sorted index %q: %w", member, key, err)
	}
	return score, nil
}

// Remove deletes members and returns how many were present.
func (s *Store) Remove(ctx context.Context, key string, members ...string) (int64, error) {
	n, err := s.st.ZRem(ctx, key, members...)
	if err != nil {
		return 0, fmt.Errorf("removing from sorted index %q: %w", key, err)
	}
	return n, nil
}

// RemoveByRank deletes the members between the zero-based positions
// start and stop inclusive and returns how many were removed.
func (s *Store) RemoveByRank(ctx context.Context, key string, start, stop int64) (int64, error) {
	n, err := s.st.ZRemRangeByRank(ctx, key, start, stop)
	if err != nil {
		return 0, fmt.Errorf("trimming sorted index %q by rank: %w", key, err)
	}
	return n, nil
}

// RemoveByScore deletes the members inside the inclusive score range
// and returns how many were removed.
func (s *Store) RemoveByScore(ctx context.Context, key string, min, max float64) (int64, error) {
	n, err := s.st.ZRemRangeByScore(ctx, key, min, max)
	if err != nil {
		return 0, fmt.Errorf("trimming sorted index %q by score: %w", key, err)
	}
	return n, nil
}

// Card returns the number of members in the index.
func (s *Store) Card(ctx context.Context, key string) (int64, error) {
	n, err := s.st.ZCard(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("sizing sorted index %q: %w", key, err)
	}
	return n, nil
}

// CountByScore returns the number of members inside the inclusive
// score range without materializing them.
func (s *Store) CountByScore(ctx context.Context, key string, min, max float64) (int64, error) {
	n, err := s.st.ZCount(ctx, key, min, max)
	if err != nil {
		return 0, fmt.Errorf("counting sorted index %q: %w", key, err)
	}
	return n, nil
}
