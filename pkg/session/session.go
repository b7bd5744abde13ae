// Package session maps opaque session ids to subject ids with a
// time-to-live. Sessions are plain expiring string keys: they carry no
// relation to table rows beyond storing an id as payload, and every
// lifecycle operation is a single atomic primitive.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/shelf/internal/keys"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Store issues, resolves, refreshes, and revokes sessions over a
// backing key-value store.
type Store struct {
	st types.Store
}

// New returns a session store over st.
func New(st types.Store) *Store {
	return &Store{st: st}
}

// Create mints a session for subjectID that expires after ttl and
// returns the session id. Ids are version 4 UUIDs, so collisions are
// not a practical concern.
func (s *Store) Create(ctx context.Context, subjectID string, ttl time.Duration) (string, error) {
	id := uuid.NewString()
	if err := s.st.Set(ctx, keys.Session(id), subjectID, ttl); err != nil {
		return "", fmt.Errorf("creating session for %q: %w", subjectID, err)
	}
	return id, nil
}

// Get resolves a session id to its subject id. Expired and unknown
// sessions both return ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (string, error) {
	subject, ok, err := s.st.Get(ctx, keys.Session(id))
	if err != nil {
		return "", fmt.Errorf("reading session %q: %w", id, err)
	}
	if !ok {
		return "", fmt.Errorf("session %q: %w", id, types.ErrNotFound)
	}
	return subject, nil
}

// Refresh resets the session's expiry to ttl from now. The expiry
// update is one atomic primitive, so no retry discipline is needed;
// a session that expired before the call returns ErrNotFound.
func (s *Store) Refresh(ctx context.Context, id string, ttl time.Duration) error {
	ok, err := s.st.Expire(ctx, keys.Session(id), ttl)
	if err != nil {
		return fmt.Errorf("refreshing session %q: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("session %q: %w", id, types.ErrNotFound)
	}
	return nil
}

// Delete revokes a session. Deleting an unknown or already-expired
// session returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	n, err := s.st.Del(ctx, keys.Session(id))
	if err != nil {
		return fmt.Errorf("deleting session %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("session %q: %w", id, types.ErrNotFound)
	}
	return nil
}
