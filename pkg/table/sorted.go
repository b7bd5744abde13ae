package table

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/shelf/internal/keys"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// GetRowsBySortedField resolves a page of the sorted index bound to
// (table, field) into full rows, ordered by score. Pass
// types.FullScoreRange for the whole index; the zero ScoreRange is the
// literal range [0, 0].
//
// The sorted index is maintained by the caller after field changes; it
// is not transactionally tied to Update. A row deleted after being
// indexed but before this join resolves disappears from the results
// silently. Each member costs one row fetch, so the N+1 round trips
// bound the practical page size.
func (s *Store) GetRowsBySortedField(ctx context.Context, table, field string, rng types.ScoreRange) ([]types.Row, error) {
	members, err := s.st.ZRangeByScore(ctx, keys.TableSorted(table, field), rng)
	if err != nil {
		return nil, fmt.Errorf("reading sorted index %s of %q: %w", field, table, err)
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.Member
	}
	return s.fetchRows(ctx, table, ids)
}

// SetSortedField upserts the row id into the sorted index bound to
// (table, field) with the given score. Callers invoke it after changing
// the field's value; the row hash remains authoritative for the value
// itself.
func (s *Store) SetSortedField(ctx context.Context, table, field, id string, score float64) error {
	_, err := s.st.ZAdd(ctx, keys.TableSorted(table, field),
		types.ScoredMember{Member: id, Score: score})
	if err != nil {
		return fmt.Errorf("writing sorted index %s of %q: %w", field, table, err)
	}
	return nil
}

// RemoveSortedField removes the row id from the sorted index bound to
// (table, field).
func (s *Store) RemoveSortedField(ctx context.Context, table, field, id string) error {
	_, err := s.st.ZRem(ctx, keys.TableSorted(table, field), id)
	if err != nil {
		return fmt.Errorf("trimming sorted index %s of %q: %w", field, table, err)
	}
	return nil
}
