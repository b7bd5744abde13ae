package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/internal/memory"
	"github.com/mesh-intelligence/shelf/pkg/session"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

func newTestSessions(t *testing.T) *session.Store {
	t.Helper()
	st := memory.New()
	t.Cleanup(func() { _ = st.Close() })
	return session.New(st)
}

func TestCreateAndGet(t *testing.T) {
	sess := newTestSessions(t)
	ctx := context.Background()

	id, err := sess.Create(ctx, "u1", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	subject, err := sess.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)
}

func TestCreateMintsDistinctIDs(t *testing.T) {
	sess := newTestSessions(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := sess.Create(ctx, "u1", time.Minute)
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true
	}
}

func TestGetUnknown(t *testing.T) {
	sess := newTestSessions(t)

	_, err := sess.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestExpiry(t *testing.T) {
	sess := newTestSessions(t)
	ctx := context.Background()

	id, err := sess.Create(ctx, "u1", 50*time.Millisecond)
	require.NoError(t, err)

	subject, err := sess.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)

	time.Sleep(120 * time.Millisecond)

	_, err = sess.Get(ctx, id)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRefreshExtendsExpiry(t *testing.T) {
	sess := newTestSessions(t)
	ctx := context.Background()

	id, err := sess.Create(ctx, "u1", 80*time.Millisecond)
	require.NoError(t, err)

	// Keep refreshing past the original expiry.
	for i := 0; i < 3; i++ {
		time.Sleep(40 * time.Millisecond)
		require.NoError(t, sess.Refresh(ctx, id, 80*time.Millisecond))
	}

	subject, err := sess.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)
}

func TestRefreshUnknown(t *testing.T) {
	sess := newTestSessions(t)

	err := sess.Refresh(context.Background(), "nope", time.Minute)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDelete(t *testing.T) {
	sess := newTestSessions(t)
	ctx := context.Background()

	id, err := sess.Create(ctx, "u1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, sess.Delete(ctx, id))

	_, err = sess.Get(ctx, id)
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = sess.Delete(ctx, id)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
