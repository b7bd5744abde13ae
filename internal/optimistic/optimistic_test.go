package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/internal/memory"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

func TestRunCommitsFirstTry(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Set(ctx, "k", "1", 0))

	err := Run(ctx, s, 5, func(tx types.Tx) error {
		return tx.Commit(ctx, func(p types.Pipeline) {
			p.Set("k", "2", 0)
		})
	}, "k")
	require.NoError(t, err)

	v, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestRunRetriesAfterAbort(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Set(ctx, "k", "1", 0))

	calls := 0
	err := Run(ctx, s, 5, func(tx types.Tx) error {
		calls++
		if calls == 1 {
			// Interfere with the watched key on the first attempt only.
			require.NoError(t, s.Set(ctx, "k", "interfered", 0))
		}
		return tx.Commit(ctx, func(p types.Pipeline) {
			p.Set("k", "mine", 0)
		})
	}, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	v, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "mine", v)
}

func TestRunExhaustsToErrConcurrency(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Set(ctx, "k", "1", 0))

	calls := 0
	err := Run(ctx, s, 3, func(tx types.Tx) error {
		calls++
		require.NoError(t, s.Set(ctx, "k", "interfered", 0))
		return tx.Commit(ctx, func(p types.Pipeline) {
			p.Set("k", "mine", 0)
		})
	}, "k")
	assert.ErrorIs(t, err, types.ErrConcurrency)
	assert.Equal(t, 3, calls)
}

func TestRunPropagatesPreconditionErrors(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	calls := 0
	err := Run(ctx, s, 5, func(tx types.Tx) error {
		calls++
		return types.ErrNotFound
	}, "k")
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.Equal(t, 1, calls, "precondition failures must not retry")
}
