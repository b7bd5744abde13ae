package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// ascendingLocked returns every member of the sorted set at key in
// (score, member) order. Range and rank arithmetic happens in Go over
// this listing; sorted keys here hold row ids and rankings, not bulk
// data, so loading one key whole is fine.
func (s *Store) ascendingLocked(ctx context.Context, key string) ([]types.ScoredMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT member, score FROM zsets WHERE key = ? ORDER BY score, member`, key)
	if err != nil {
		return nil, fmt.Errorf("reading sorted set %q: %w", key, err)
	}
	defer rows.Close()

	var out []types.ScoredMember
	for rows.Next() {
		var m types.ScoredMember
		if err := rows.Scan(&m.Member, &m.Score); err != nil {
			return nil, fmt.Errorf("reading sorted set %q: %w", key, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sorted set %q: %w", key, err)
	}
	return out, nil
}

func (s *Store) ZAdd(ctx context.Context, key string, members ...types.ScoredMember) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var added int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, m := range members {
			var n int
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM zsets WHERE key = ? AND member = ?`,
				key, m.Member).Scan(&n)
			if err != nil {
				return fmt.Errorf("writing sorted set %q: %w", key, err)
			}
			if n == 0 {
				added++
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO zsets (key, member, score) VALUES (?, ?, ?)
				 ON CONFLICT (key, member) DO UPDATE SET score = excluded.score`,
				key, m.Member, m.Score)
			if err != nil {
				return fmt.Errorf("writing sorted set %q: %w", key, err)
			}
		}
		return bump(ctx, tx, key)
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func (s *Store) ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next float64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var old float64
		err := tx.QueryRowContext(ctx,
			`SELECT score FROM zsets WHERE key = ? AND member = ?`, key, member).Scan(&old)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("incrementing sorted set %q: %w", key, err)
		}
		next = old + delta
		_, err = tx.ExecContext(ctx,
			`INSERT INTO zsets (key, member, score) VALUES (?, ?, ?)
			 ON CONFLICT (key, member) DO UPDATE SET score = excluded.score`,
			key, member, next)
		if err != nil {
			return fmt.Errorf("incrementing sorted set %q: %w", key, err)
		}
		return bump(ctx, tx, key)
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zremLocked(ctx, key, members)
}

func (s *Store) zremLocked(ctx context.Context, key string, members []string) (int64, error) {
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, member := range members {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM zsets WHERE key = ? AND member = ?`, key, member)
			if err != nil {
				return fmt.Errorf("removing from sorted set %q: %w", key, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("removing from sorted set %q: %w", key, err)
			}
			removed += n
		}
		if removed > 0 {
			return bump(ctx, tx, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.ascendingLocked(ctx, key)
	if err != nil {
		return 0, err
	}
	victims := rankSlice(all, start, stop, false)
	members := make([]string, len(victims))
	for i, v := range victims {
		members[i] = v.Member
	}
	if len(members) == 0 {
		return 0, nil
	}
	return s.zremLocked(ctx, key, members)
}

func (s *Store) ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.ascendingLocked(ctx, key)
	if err != nil {
		return 0, err
	}
	var members []string
	for _, rec := range all {
		if rec.Score >= min && rec.Score <= max {
			members = append(members, rec.Member)
		}
	}
	if len(members) == 0 {
		return 0, nil
	}
	return s.zremLocked(ctx, key, members)
}

func (s *Store) ZRangeByRank(ctx context.Context, key string, start, stop int64, rev bool) ([]types.ScoredMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.ascendingLocked(ctx, key)
	if err != nil {
		return nil, err
	}
	return rankSlice(all, start, stop, rev), nil
}

func (s *Store) ZRangeByScore(ctx context.Context, key string, rng types.ScoreRange) ([]types.ScoredMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.ascendingLocked(ctx, key)
	if err != nil {
		return nil, err
	}
	var hits []types.ScoredMember
	for _, rec := range all {
		if rec.Score >= rng.Min && rec.Score <= rng.Max {
			hits = append(hits, rec)
		}
	}
	if rng.Rev {
		reverse(hits)
	}
	if rng.Offset >= int64(len(hits)) {
		return nil, nil
	}
	hits = hits[rng.Offset:]
	if rng.Count > 0 && rng.Count < int64(len(hits)) {
		hits = hits[:rng.Count]
	}
	return hits, nil
}

func (s *Store) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var score float64
	err := s.db.QueryRowContext(ctx,
		`SELECT score FROM zsets WHERE key = ? AND member = ?`, key, member).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("scoring sorted set %q: %w", key, err)
	}
	return score, true, nil
}

func (s *Store) ZRank(ctx context.Context, key, member string, rev bool) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.ascendingLocked(ctx, key)
	if err != nil {
		return 0, false, err
	}
	for i, rec := range all {
		if rec.Member == member {
			if rev {
				return int64(len(all)) - 1 - int64(i), true, nil
			}
			return int64(i), true, nil
		}
	}
	return 0, false, nil
}

func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM zsets WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sizing sorted set %q: %w", key, err)
	}
	return n, nil
}

func (s *Store) ZCount(ctx context.Context, key string, min, max float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.ascendingLocked(ctx, key)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, rec := range all {
		if rec.Score >= min && rec.Score <= max {
			n++
		}
	}
	return n, nil
}

// rankSlice applies zero-based inclusive rank bounds with negative
// indices counting from the end, over the ascending order or its
// reverse.
func rankSlice(all []types.ScoredMember, start, stop int64, rev bool) []types.ScoredMember {
	if rev {
		all = append([]types.ScoredMember(nil), all...)
		reverse(all)
	}
	n := int64(len(all))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return nil
	}
	return all[start : stop+1]
}

func reverse(s []types.ScoredMember) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
