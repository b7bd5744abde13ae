package memory

import (
	"context"

	sorted "github.com/tobshub/go-sortedmap"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// zset keeps members ordered by (score, member) via a sorted map keyed
// by member and compared on the scored record.
type zset struct {
	m *sorted.SortedMap[string, types.ScoredMember]
}

func zsetLess(a, b types.ScoredMember) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Member < b.Member
}

func newZSet() *zset {
	return &zset{m: sorted.New[string, types.ScoredMember](0, zsetLess)}
}

// upsert adds or rescores a member, reporting whether it was new.
func (z *zset) upsert(member string, score float64) bool {
	rec := types.ScoredMember{Member: member, Score: score}
	if z.m.Insert(member, rec) {
		return true
	}
	z.m.Replace(member, rec)
	return false
}

func (z *zset) score(member string) (float64, bool) {
	rec, ok := z.m.Get(member)
	if !ok {
		return 0, false
	}
	return rec.Score, true
}

// ascending returns every member in (score, member) order.
func (z *zset) ascending() []types.ScoredMember {
	keys := z.m.Keys()
	out := make([]types.ScoredMember, 0, len(keys))
	for _, k := range keys {
		rec, ok := z.m.Get(k)
		if ok {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Store) zsetAt(key string) (*zset, error) {
	e, err := s.typed(key, kindZSet)
	if err != nil || e == nil {
		return nil, err
	}
	return e.zset, nil
}

func (s *Store) ZAdd(_ context.Context, key string, members ...types.ScoredMember) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.typed(key, kindZSet)
	if err != nil {
		return 0, err
	}
	if e == nil {
		e = &entry{kind: kindZSet, zset: newZSet()}
		s.data[key] = e
	}
	var added int64
	for _, m := range members {
		if e.zset.upsert(m.Member, m.Score) {
			added++
		}
	}
	s.bump(key)
	return added, nil
}

func (s *Store) ZIncrBy(_ context.Context, key string, delta float64, member string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.typed(key, kindZSet)
	if err != nil {
		return 0, err
	}
	if e == nil {
		e = &entry{kind: kindZSet, zset: newZSet()}
		s.data[key] = e
	}
	old, _ := e.zset.score(member)
	next := old + delta
	e.zset.upsert(member, next)
	s.bump(key)
	return next, nil
}

func (s *Store) ZRem(_ context.Context, key string, members ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zremLocked(key, members)
}

func (s *Store) zremLocked(key string, members []string) (int64, error) {
	z, err := s.zsetAt(key)
	if err != nil || z == nil {
		return 0, err
	}
	var n int64
	for _, m := range members {
		if z.m.Delete(m) {
			n++
		}
	}
	if z.m.Len() == 0 {
		delete(s.data, key)
	}
	s.bump(key)
	return n, nil
}

func (s *Store) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zsetAt(key)
	if err != nil || z == nil {
		return 0, err
	}
	victims := rankSlice(z.ascending(), start, stop, false)
	members := make([]string, len(victims))
	for i, v := range victims {
		members[i] = v.Member
	}
	return s.zremLocked(key, members)
}

func (s *Store) ZRemRangeByScore(_ context.Context, key string, min, max float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zsetAt(key)
	if err != nil || z == nil {
		return 0, err
	}
	var members []string
	for _, rec := range z.ascending() {
		if rec.Score >= min && rec.Score <= max {
			members = append(members, rec.Member)
		}
	}
	return s.zremLocked(key, members)
}

func (s *Store) ZRangeByRank(_ context.Context, key string, start, stop int64, rev bool) ([]types.ScoredMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zsetAt(key)
	if err != nil || z == nil {
		return nil, err
	}
	return rankSlice(z.ascending(), start, stop, rev), nil
}

func (s *Store) ZRangeByScore(_ context.Context, key string, rng types.ScoreRange) ([]types.ScoredMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zsetAt(key)
	if err != nil || z == nil {
		return nil, err
	}
	var hits []types.ScoredMember
	for _, rec := range z.ascending() {
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

func (s *Store) ZScore(_ context.Context, key, member string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zsetAt(key)
	if err != nil || z == nil {
		return 0, false, err
	}
	score, ok := z.score(member)
	return score, ok, nil
}

func (s *Store) ZRank(_ context.Context, key, member string, rev bool) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zsetAt(key)
	if err != nil || z == nil {
		return 0, false, err
	}
	all := z.ascending()
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

func (s *Store) ZCard(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zsetAt(key)
	if err != nil || z == nil {
		return 0, err
	}
	return int64(z.m.Len()), nil
}

func (s *Store) ZCount(_ context.Context, key string, min, max float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zsetAt(key)
	if err != nil || z == nil {
		return 0, err
	}
	var n int64
	for _, rec := range z.ascending() {
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
