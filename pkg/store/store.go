// Package store opens the configured backend behind the common store
// contract. Callers pick a backend by name; everything above this
// point is backend-agnostic.
package store

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/shelf/internal/memory"
	"github.com/mesh-intelligence/shelf/internal/redis"
	"github.com/mesh-intelligence/shelf/internal/sqlite"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Open validates cfg and connects the named backend.
func Open(ctx context.Context, cfg types.Config) (types.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	switch cfg.Backend {
	case types.BackendMemory:
		return memory.New(), nil
	case types.BackendRedis:
		return redis.New(ctx, cfg)
	case types.BackendSQLite:
		return sqlite.New(cfg)
	default:
		// Validate rejects unknown backends already.
		return nil, fmt.Errorf("backend %q: %w", cfg.Backend, types.ErrBackendUnknown)
	}
}
