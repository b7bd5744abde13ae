package sorted_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/internal/memory"
	"github.com/mesh-intelligence/shelf/pkg/sorted"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

func newTestIndex(t *testing.T) *sorted.Store {
	t.Helper()
	st := memory.New()
	t.Cleanup(func() { _ = st.Close() })
	return sorted.New(st)
}

func seedBoard(t *testing.T, idx *sorted.Store, key string) {
	t.Helper()
	n, err := idx.AddMany(context.Background(), key,
		types.ScoredMember{Member: "ada", Score: 30},
		types.ScoredMember{Member: "bob", Score: 10},
		types.ScoredMember{Member: "cyd", Score: 20},
		types.ScoredMember{Member: "dee", Score: 40},
	)
	require.NoError(t, err)
	require.Equal(t, int64(4), n)
}

func TestAddUpsertsScore(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "board", 5, "ada"))
	require.NoError(t, idx.Add(ctx, "board", 7, "ada"))

	score, err := idx.Score(ctx, "board", "ada")
	require.NoError(t, err)
	assert.Equal(t, 7.0, score)

	card, err := idx.Card(ctx, "board")
	require.NoError(t, err)
	assert.Equal(t, int64(1), card)
}

func TestByRankOrdering(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	seedBoard(t, idx, "board")

	asc, err := idx.ByRank(ctx, "board", 0, -1, false)
	require.NoError(t, err)
	members := make([]string, 0, len(asc))
	for _, m := range asc {
		members = append(members, m.Member)
	}
	assert.Equal(t, []string{"bob", "cyd", "ada", "dee"}, members)

	top, err := idx.ByRank(ctx, "board", 0, 1, true)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "dee", top[0].Member)
	assert.Equal(t, "ada", top[1].Member)
}

func TestByScoreRangeAndPagination(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	seedBoard(t, idx, "board")

	mid, err := idx.ByScore(ctx, "board", types.ScoreRange{Min: 15, Max: 35})
	require.NoError(t, err)
	require.Len(t, mid, 2)
	assert.Equal(t, "cyd", mid[0].Member)
	assert.Equal(t, "ada", mid[1].Member)

	all, err := idx.ByScore(ctx, "board", types.FullScoreRange())
	require.NoError(t, err)
	assert.Len(t, all, 4)

	rng := types.FullScoreRange()
	rng.Offset = 1
	rng.Count = 2
	page, err := idx.ByScore(ctx, "board", rng)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "cyd", page[0].Member)
	assert.Equal(t, "ada", page[1].Member)
}

func TestRankBothDirections(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	seedBoard(t, idx, "board")

	card, err := idx.Card(ctx, "board")
	require.NoError(t, err)

	for _, member := range []string{"ada", "bob", "cyd", "dee"} {
		fwd, err := idx.Rank(ctx, "board", member, false)
		require.NoError(t, err)
		rev, err := idx.Rank(ctx, "board", member, true)
		require.NoError(t, err)
		assert.Equal(t, card-1, fwd+rev, "member %s", member)
	}

	_, err = idx.Rank(ctx, "board", "ghost", false)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestScoreAbsentMember(t *testing.T) {
	idx := newTestIndex(t)
	seedBoard(t, idx, "board")

	_, err := idx.Score(context.Background(), "board", "ghost")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestIncrementScore(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "board", 5, "ada"))

	score, err := idx.IncrementScore(ctx, "board", "ada", 3)
	require.NoError(t, err)
	assert.Equal(t, 8.0, score)

	got, err := idx.ByScore(ctx, "board", types.ScoreRange{Min: 8, Max: 8})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.ScoredMember{Member: "ada", Score: 8}, got[0])

	// Incrementing an absent member creates it at the delta.
	score, err = idx.IncrementScore(ctx, "board", "eve", -2)
	require.NoError(t, err)
	assert.Equal(t, -2.0, score)
}

func TestRemove(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	seedBoard(t, idx, "board")

	n, err := idx.Remove(ctx, "board", "bob", "ghost")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	card, err := idx.Card(ctx, "board")
	require.NoError(t, err)
	assert.Equal(t, int64(3), card)
}

func TestRemoveByRank(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	seedBoard(t, idx, "board")

	// Drop the two lowest-scored members.
	n, err := idx.RemoveByRank(ctx, "board", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := idx.ByRank(ctx, "board", 0, -1, false)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "ada", left[0].Member)
	assert.Equal(t, "dee", left[1].Member)
}

func TestRemoveByScore(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	seedBoard(t, idx, "board")

	n, err := idx.RemoveByScore(ctx, "board", 20, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := idx.CountByScore(ctx, "board", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCountByScore(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	seedBoard(t, idx, "board")

	count, err := idx.CountByScore(ctx, "board", 15, 45)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = idx.CountByScore(ctx, "board", 100, 200)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEmptyIndex(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	card, err := idx.Card(ctx, "nope")
	require.NoError(t, err)
	assert.Zero(t, card)

	members, err := idx.ByRank(ctx, "nope", 0, -1, false)
	require.NoError(t, err)
	assert.Empty(t, members)
}
