// Package optimistic implements the bounded watch/verify/commit/retry
// loop that every conditioned mutation goes through. The store's
// transaction primitive is abort-on-conflict rather than lock-based, so
// the data read inside an attempt may already be stale by commit time;
// the commit abort is the verification, and a fresh attempt re-reads
// from scratch.
package optimistic

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Run executes fn under watch of the given keys, retrying on transaction
// abort up to attempts times. Any error other than ErrTxAborted, such
// as a precondition failure or a transport error, propagates
// immediately without retry. When every attempt aborts, Run
// fails with ErrConcurrency; it never spins silently.
func Run(ctx context.Context, st types.Store, attempts int, fn func(tx types.Tx) error, keys ...string) error {
	if attempts <= 0 {
		attempts = types.DefaultTxRetries
	}
	for i := 0; i < attempts; i++ {
		err := st.Watch(ctx, fn, keys...)
		if err == nil {
			return nil
		}
		if !errors.Is(err, types.ErrTxAborted) {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts", types.ErrConcurrency, attempts)
}
