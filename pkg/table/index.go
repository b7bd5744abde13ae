package table

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/shelf/internal/keys"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// FindByField returns every row whose field currently holds value.
// An undefined table or an empty index yields an empty result, not an
// error.
func (s *Store) FindByField(ctx context.Context, table, field, value string) ([]types.Row, error) {
	ids, err := s.st.SMembers(ctx, keys.FieldIndex(table, field, value))
	if err != nil {
		return nil, fmt.Errorf("reading index %s=%s of %q: %w", field, value, table, err)
	}
	return s.fetchRows(ctx, table, ids)
}

// indexRow adds id to the field-value index of every non-system field
// in rec. Each addition is an independent atomic primitive; a failure
// partway leaves earlier entries in place.
func (s *Store) indexRow(ctx context.Context, table, id string, rec types.Record) error {
	for f, v := range rec {
		if types.IsSystemField(f) {
			continue
		}
		if _, err := s.st.SAdd(ctx, keys.FieldIndex(table, f, v), id); err != nil {
			return fmt.Errorf("indexing %s=%s for row %s: %w", f, v, id, err)
		}
	}
	return nil
}

// deindexRow removes id from the field-value index of every non-system
// field in rec.
func (s *Store) deindexRow(ctx context.Context, table, id string, rec types.Record) error {
	for f, v := range rec {
		if types.IsSystemField(f) {
			continue
		}
		if _, err := s.st.SRem(ctx, keys.FieldIndex(table, f, v), id); err != nil {
			return fmt.Errorf("unindexing %s=%s for row %s: %w", f, v, id, err)
		}
	}
	return nil
}

// RebuildIndexes drops every field-value index key of the table and
// recomputes the entries from current rows. It is the recovery tool for
// index entries left stale by a crash between a row write and its index
// maintenance; run it out of the hot path. The rebuild itself is not
// atomic; lookups racing it may briefly see an empty index.
func (s *Store) RebuildIndexes(ctx context.Context, table string) error {
	if _, err := s.GetSchema(ctx, table); err != nil {
		return err
	}

	stale, err := s.scanMatching(ctx, keys.FieldIndexPattern(table))
	if err != nil {
		return fmt.Errorf("scanning indexes of %q: %w", table, err)
	}
	if len(stale) > 0 {
		if _, err := s.st.Del(ctx, stale...); err != nil {
			return fmt.Errorf("clearing indexes of %q: %w", table, err)
		}
	}

	ids, err := s.st.SMembers(ctx, keys.TableRows(table))
	if err != nil {
		return fmt.Errorf("listing rows of %q: %w", table, err)
	}
	for _, id := range ids {
		row, err := s.st.HGetAll(ctx, keys.Row(table, id))
		if err != nil {
			return fmt.Errorf("reading row %s of %q: %w", id, table, err)
		}
		if len(row) == 0 {
			continue
		}
		if err := s.indexRow(ctx, table, id, row); err != nil {
			return err
		}
	}
	s.log.Debug("rebuilt field indexes", "table", table, "rows", len(ids), "dropped_keys", len(stale))
	return nil
}

// scanMatching walks the keyspace and collects every key matching the
// glob pattern.
func (s *Store) scanMatching(ctx context.Context, pattern string) ([]string, error) {
	var all []string
	var cursor uint64
	for {
		page, next, err := s.st.ScanKeys(ctx, cursor, pattern, scanPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == 0 {
			break
		}
		cursor = next
	}
	return all, nil
}
