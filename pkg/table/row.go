package table

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mesh-intelligence/shelf/internal/keys"
	"github.com/mesh-intelligence/shelf/internal/optimistic"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// scanPageSize is the per-step hint handed to cursor scans.
const scanPageSize = 100

// Insert validates rec against the table schema, mints the next row id,
// and writes the row hash and membership entry in one atomic
// submission. Field-value index entries are added afterwards,
// best-effort; when one of those additions fails the row is already
// live, so Insert returns the new id alongside the error and the
// indexes heal on the next write or rebuild.
//
// Validation failures abort before any mutation. Row ids are strictly
// increasing per table and never reused, even after deletes.
func (s *Store) Insert(ctx context.Context, table string, rec types.Record) (string, error) {
	schema, err := s.GetSchema(ctx, table)
	if err != nil {
		return "", err
	}
	if err := validateExact(table, schema, rec); err != nil {
		return "", err
	}

	seq, err := s.st.Incr(ctx, keys.TableNextID(table))
	if err != nil {
		return "", fmt.Errorf("minting id for %q: %w", table, err)
	}
	id := strconv.FormatInt(seq, 10)

	now := nowMillis()
	full := rec.Clone()
	full[types.FieldCreatedAt] = now
	full[types.FieldUpdatedAt] = now

	err = s.st.Pipelined(ctx, func(p types.Pipeline) {
		p.HSet(keys.Row(table, id), full)
		p.SAdd(keys.TableRows(table), id)
	})
	if err != nil {
		return "", fmt.Errorf("writing row %s of %q: %w", id, table, err)
	}

	if err := s.indexRow(ctx, table, id, rec); err != nil {
		s.log.Warn("index maintenance incomplete after insert",
			"table", table, "row", id, "error", err)
		return id, err
	}
	return id, nil
}

// GetByID returns the row's fields, system fields included, or
// ErrNotFound when the row hash is absent or empty.
func (s *Store) GetByID(ctx context.Context, table, id string) (types.Record, error) {
	row, err := s.st.HGetAll(ctx, keys.Row(table, id))
	if err != nil {
		return nil, fmt.Errorf("reading row %s of %q: %w", id, table, err)
	}
	if len(row) == 0 {
		return nil, fmt.Errorf("row %s of %q: %w", id, table, types.ErrNotFound)
	}
	return row, nil
}

// GetAll returns every live row of the table. Rows deleted while the
// enumeration runs are skipped silently.
func (s *Store) GetAll(ctx context.Context, table string) ([]types.Row, error) {
	ids, err := s.st.SMembers(ctx, keys.TableRows(table))
	if err != nil {
		return nil, fmt.Errorf("listing rows of %q: %w", table, err)
	}
	return s.fetchRows(ctx, table, ids)
}

// Scan returns one page of rows and a cursor token for the next call.
// An empty token starts the iteration; an empty returned token ends it.
// count hints the page size.
//
// Enumeration of a quiescent table is complete and duplicate-free.
// Under concurrent mutation a row id may be delivered twice or skipped;
// callers needing exact-once enumeration must quiesce writers first.
func (s *Store) Scan(ctx context.Context, table, cursor string, count int64) ([]types.Row, string, error) {
	var pos uint64
	if cursor != "" {
		var err error
		pos, err = strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("parsing scan cursor %q: %w", cursor, err)
		}
	}
	if count <= 0 {
		count = scanPageSize
	}

	ids, next, err := s.st.SScan(ctx, keys.TableRows(table), pos, count)
	if err != nil {
		return nil, "", fmt.Errorf("scanning rows of %q: %w", table, err)
	}
	rows, err := s.fetchRows(ctx, table, ids)
	if err != nil {
		return nil, "", err
	}
	if next == 0 {
		return rows, "", nil
	}
	return rows, strconv.FormatUint(next, 10), nil
}

// fetchRows resolves ids to rows, dropping ids whose hash has vanished.
func (s *Store) fetchRows(ctx context.Context, table string, ids []string) ([]types.Row, error) {
	rows := make([]types.Row, 0, len(ids))
	for _, id := range ids {
		data, err := s.st.HGetAll(ctx, keys.Row(table, id))
		if err != nil {
			return nil, fmt.Errorf("reading row %s of %q: %w", id, table, err)
		}
		if len(data) == 0 {
			continue
		}
		rows = append(rows, types.Row{ID: id, Data: data})
	}
	return rows, nil
}

// fieldMove records an index transition computed from the row state a
// transaction attempt observed.
type fieldMove struct {
	field    string
	from, to string
	hadOld   bool
}

// Update rewrites the given fields plus _updated_at, conditioned on the
// row being unchanged since it was read. It fails with ErrNotFound when
// the row is absent, with a FieldMismatchError when partial names a
// non-schema field, and with ErrConcurrency when the retry bound is
// exhausted.
//
// Index entries for changed values move after the row write commits;
// see the package comment for the consistency window this opens.
func (s *Store) Update(ctx context.Context, table, id string, partial types.Record) error {
	schema, err := s.GetSchema(ctx, table)
	if err != nil {
		return err
	}
	if err := validatePartial(table, schema, partial); err != nil {
		return err
	}

	rowKey := keys.Row(table, id)
	var moves []fieldMove
	err = optimistic.Run(ctx, s.st, s.retries, func(tx types.Tx) error {
		old, err := tx.HGetAll(ctx, rowKey)
		if err != nil {
			return fmt.Errorf("reading row %s of %q: %w", id, table, err)
		}
		if len(old) == 0 {
			return fmt.Errorf("row %s of %q: %w", id, table, types.ErrNotFound)
		}

		moves = moves[:0]
		for f, next := range partial {
			prev, had := old[f]
			if !had || prev != next {
				moves = append(moves, fieldMove{field: f, from: prev, to: next, hadOld: had})
			}
		}

		write := partial.Clone()
		write[types.FieldUpdatedAt] = nowMillis()
		return tx.Commit(ctx, func(p types.Pipeline) {
			p.HSet(rowKey, write)
		})
	}, rowKey)
	if err != nil {
		return err
	}

	for _, m := range moves {
		if m.hadOld {
			if _, err := s.st.SRem(ctx, keys.FieldIndex(table, m.field, m.from), id); err != nil {
				s.log.Warn("index maintenance incomplete after update",
					"table", table, "row", id, "field", m.field, "error", err)
				return fmt.Errorf("unindexing %s=%s for row %s: %w", m.field, m.from, id, err)
			}
		}
		if _, err := s.st.SAdd(ctx, keys.FieldIndex(table, m.field, m.to), id); err != nil {
			s.log.Warn("index maintenance incomplete after update",
				"table", table, "row", id, "field", m.field, "error", err)
			return fmt.Errorf("indexing %s=%s for row %s: %w", m.field, m.to, id, err)
		}
	}
	return nil
}

// Delete removes the row hash and its membership entry in one
// conditioned commit, then clears the row's field-value index entries
// from the values it last held. ErrNotFound reports an absent row; it
// is a normal outcome, not a failure.
func (s *Store) Delete(ctx context.Context, table, id string) error {
	rowKey := keys.Row(table, id)
	var last types.Record
	err := optimistic.Run(ctx, s.st, s.retries, func(tx types.Tx) error {
		old, err := tx.HGetAll(ctx, rowKey)
		if err != nil {
			return fmt.Errorf("reading row %s of %q: %w", id, table, err)
		}
		if len(old) == 0 {
			return fmt.Errorf("row %s of %q: %w", id, table, types.ErrNotFound)
		}
		last = old
		return tx.Commit(ctx, func(p types.Pipeline) {
			p.Del(rowKey)
			p.SRem(keys.TableRows(table), id)
		})
	}, rowKey)
	if err != nil {
		return err
	}
	return s.deindexRow(ctx, table, id, last)
}

// Count returns the number of live rows in the table.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	n, err := s.st.SCard(ctx, keys.TableRows(table))
	if err != nil {
		return 0, fmt.Errorf("counting rows of %q: %w", table, err)
	}
	return n, nil
}

// CountByField returns the number of rows whose field holds value.
func (s *Store) CountByField(ctx context.Context, table, field, value string) (int64, error) {
	n, err := s.st.SCard(ctx, keys.FieldIndex(table, field, value))
	if err != nil {
		return 0, fmt.Errorf("counting %s=%s of %q: %w", field, value, table, err)
	}
	return n, nil
}
